package temporal

import (
	"gonum.org/v1/gonum/floats"
)

// DefaultBeatThresholdRatio is the fraction of the envelope maximum a peak
// must exceed to count as a beat
const DefaultBeatThresholdRatio = 0.3

// Beat is a discrete beat event on the envelope time axis
type Beat struct {
	Index    int     `json:"index"`    // envelope frame index
	Time     float64 `json:"time"`     // seconds
	Interval float64 `json:"interval"` // seconds since previous beat, 0 for the first
	BPM      float64 `json:"bpm"`      // 60 / Interval, 0 for the first
}

// BeatDetector picks beats as strong strict local maxima of an energy envelope
type BeatDetector struct {
	thresholdRatio float64
}

// NewBeatDetector creates a beat detector with the given threshold ratio
func NewBeatDetector(thresholdRatio float64) *BeatDetector {
	return &BeatDetector{thresholdRatio: thresholdRatio}
}

// Detect returns beats in time order. Frame i is a beat when
// env[i] > ratio*max(env) and env[i-1] < env[i] > env[i+1]; the first and last
// frames can never qualify. frameRate is envelope frames per second.
func (bd *BeatDetector) Detect(envelope []float64, frameRate float64) []Beat {
	if len(envelope) < 3 || frameRate <= 0 {
		return nil
	}

	peak := floats.Max(envelope)
	if peak <= 0 {
		return nil
	}
	threshold := peak * bd.thresholdRatio

	var beats []Beat
	for i := 1; i < len(envelope)-1; i++ {
		v := envelope[i]
		if v <= threshold || v <= envelope[i-1] || v <= envelope[i+1] {
			continue
		}

		beat := Beat{Index: i, Time: float64(i) / frameRate}
		if n := len(beats); n > 0 {
			beat.Interval = beat.Time - beats[n-1].Time
			beat.BPM = 60.0 / beat.Interval
		}
		beats = append(beats, beat)
	}
	return beats
}
