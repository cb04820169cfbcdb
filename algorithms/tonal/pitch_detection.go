package tonal

import (
	"fmt"
)

// DefaultYinThreshold is the cumulative mean normalized difference a lag must
// fall below to count as periodic.
const DefaultYinThreshold = 0.1

// minYinLag is the shortest period considered, in samples
const minYinLag = 2

// PitchDetector estimates the fundamental frequency of a frame with YIN.
// Reference: de Cheveigné, A., Kawahara, H. (2002)
//
// A PitchDetector holds no per-frame state and is safe for concurrent use.
type PitchDetector struct {
	sampleRate int
	threshold  float64
}

// NewPitchDetector creates a YIN detector for the given sample rate
func NewPitchDetector(sampleRate int, threshold float64) (*PitchDetector, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("yin threshold must be in (0, 1), got %f", threshold)
	}
	return &PitchDetector{sampleRate: sampleRate, threshold: threshold}, nil
}

// Detect returns the fundamental frequency of frame in Hz. ok is false when no
// lag in [2, len(frame)/2) clears the threshold (silence, noise, or a period
// longer than half the frame).
//
// The lag is the first dip under the threshold rather than the global minimum
// of d', which avoids octave-down errors on periodic signals, and the result
// is interpolated between lags instead of using sampleRate/tau directly.
func (pd *PitchDetector) Detect(frame []float64) (frequency float64, ok bool) {
	cmndf := pd.normalizedDifference(frame)
	if len(cmndf) <= minYinLag {
		return 0, false
	}

	tau := -1
	for t := minYinLag; t < len(cmndf); t++ {
		if cmndf[t] < pd.threshold {
			// walk down to the bottom of this dip
			for t+1 < len(cmndf) && cmndf[t+1] < cmndf[t] {
				t++
			}
			tau = t
			break
		}
	}
	if tau < 0 {
		return 0, false
	}

	period := parabolicInterpolation(cmndf, tau)
	if period <= 0 {
		return 0, false
	}
	return float64(pd.sampleRate) / period, true
}

// normalizedDifference computes the cumulative mean normalized difference
// function d'(tau) for tau in [0, len(frame)/2). d'(0) = 1, and lags where the
// running sum is still zero (silent frames) are also 1.
func (pd *PitchDetector) normalizedDifference(frame []float64) []float64 {
	halfN := len(frame) / 2
	if halfN == 0 {
		return nil
	}

	diff := make([]float64, halfN)
	for tau := 1; tau < halfN; tau++ {
		sum := 0.0
		for j := range halfN {
			delta := frame[j] - frame[j+tau]
			sum += delta * delta
		}
		diff[tau] = sum
	}

	cmndf := make([]float64, halfN)
	cmndf[0] = 1.0

	runningSum := 0.0
	for tau := 1; tau < halfN; tau++ {
		runningSum += diff[tau]
		if runningSum <= 0 {
			cmndf[tau] = 1.0
			continue
		}
		cmndf[tau] = diff[tau] * float64(tau) / runningSum
	}
	return cmndf
}

// parabolicInterpolation refines a minimum at idx to sub-sample precision.
// The offset is bounded to half a sample either side.
func parabolicInterpolation(data []float64, idx int) float64 {
	if idx <= 0 || idx >= len(data)-1 {
		return float64(idx)
	}

	y1 := data[idx-1]
	y2 := data[idx]
	y3 := data[idx+1]

	a := (y1 - 2*y2 + y3) / 2
	b := (y3 - y1) / 2
	if a == 0 {
		return float64(idx)
	}

	offset := -b / (2 * a)
	if offset > 0.5 || offset < -0.5 {
		return float64(idx)
	}
	return float64(idx) + offset
}
