package temporal

import (
	"math"

	"github.com/RyanBlaney/sonido-coach/algorithms/common"
	"github.com/RyanBlaney/sonido-coach/algorithms/stats"
)

// Tempo bounds in BPM
const (
	DefaultMinBPM   = 60.0
	DefaultMaxBPM   = 200.0
	DefaultFallback = 120.0
)

// TempoEstimation estimates tempo from the autocorrelation of an energy
// envelope and extracts beat events from the same envelope
type TempoEstimation struct {
	beats    *BeatDetector
	minBPM   float64
	maxBPM   float64
	fallback float64
}

// TempoResult is the output of TempoEstimation.Analyze
type TempoResult struct {
	BPM   float64
	Beats []Beat
	// Degraded is set when fewer than two beats were found and BPM is the
	// fallback value
	Degraded bool
}

// NewTempoEstimation creates a tempo estimator bounded to [minBPM, maxBPM]
func NewTempoEstimation(beats *BeatDetector, minBPM, maxBPM, fallback float64) *TempoEstimation {
	return &TempoEstimation{
		beats:    beats,
		minBPM:   minBPM,
		maxBPM:   maxBPM,
		fallback: fallback,
	}
}

// Analyze detects beats and estimates tempo. The returned BPM is always within
// [minBPM, maxBPM].
func (te *TempoEstimation) Analyze(envelope []float64, frameRate float64) TempoResult {
	beats := te.beats.Detect(envelope, frameRate)
	if len(beats) < 2 {
		return TempoResult{BPM: te.clamp(te.fallback), Beats: beats, Degraded: true}
	}

	bpm, ok := te.EstimateAutocorrelation(envelope, frameRate)
	if !ok {
		// envelope too short for the lag range, fall back to beat spacing
		intervals := make([]float64, 0, len(beats)-1)
		for _, b := range beats[1:] {
			intervals = append(intervals, b.Interval)
		}
		bpm = te.clamp(60.0 / common.Mean(intervals))
	}
	return TempoResult{BPM: bpm, Beats: beats}
}

// submultipleTolerance is how far below the best correlation a lag at a
// fraction of the best lag may fall and still be preferred
const submultipleTolerance = 0.1

// EstimateAutocorrelation picks the lag in the tempo range with the highest
// normalized autocorrelation and converts it to BPM. A lag at a half, third
// or quarter of the winner is taken instead when its correlation is within
// submultipleTolerance, so a beat period that falls between two frames is not
// read as half the tempo. The chosen lag is refined to a fraction of a frame
// by parabolic interpolation. ok is false when the envelope is too short to
// cover any lag in range.
func (te *TempoEstimation) EstimateAutocorrelation(envelope []float64, frameRate float64) (bpm float64, ok bool) {
	if frameRate <= 0 {
		return te.clamp(te.fallback), false
	}

	minLag := max(int(math.Ceil(60.0*frameRate/te.maxBPM)), 1)
	maxLag := min(int(math.Floor(60.0*frameRate/te.minBPM)), len(envelope)-2)
	if minLag > maxLag {
		return te.clamp(te.fallback), false
	}

	corr := make(map[int]float64)
	at := func(lag int) float64 {
		r, seen := corr[lag]
		if !seen {
			r = stats.NormalizedAutocorrelation(envelope, lag)
			corr[lag] = r
		}
		return r
	}

	bestLag := minLag
	bestCorr := math.Inf(-1)
	for lag := minLag; lag <= maxLag; lag++ {
		if r := at(lag); r > bestCorr {
			bestCorr = r
			bestLag = lag
		}
	}

	for _, k := range []int{4, 3, 2} {
		fraction := float64(bestLag) / float64(k)
		candidate := int(math.Floor(fraction))
		if hi := int(math.Ceil(fraction)); candidate < minLag || at(hi) > at(candidate) {
			candidate = hi
		}
		if candidate >= minLag && at(candidate) >= bestCorr-submultipleTolerance {
			bestLag = candidate
			break
		}
	}

	return te.clamp(60.0 * frameRate / refineLag(bestLag, len(envelope)-2, at)), true
}

// refineLag fits a parabola through the correlation at lag-1, lag and lag+1.
// The integer lag is kept unless it is a local maximum and both neighbours
// lie in [1, limit].
func refineLag(lag, limit int, at func(int) float64) float64 {
	if lag < 2 || lag+1 > limit {
		return float64(lag)
	}
	prev, cur, next := at(lag-1), at(lag), at(lag+1)
	curvature := prev - 2*cur + next
	if cur < prev || cur < next || curvature >= 0 {
		return float64(lag)
	}
	return float64(lag) + 0.5*(prev-next)/curvature
}

func (te *TempoEstimation) clamp(bpm float64) float64 {
	return common.Clamp(bpm, te.minBPM, te.maxBPM)
}

type tempoMarking struct {
	upTo float64
	name string
}

var tempoMarkings = []tempoMarking{
	{24, "Larghissimo"},
	{40, "Grave"},
	{60, "Largo"},
	{66, "Larghetto"},
	{76, "Adagio"},
	{108, "Andante"},
	{120, "Moderato"},
	{156, "Allegro"},
	{176, "Vivace"},
	{200, "Presto"},
}

// TempoMarking returns the conventional Italian marking for a tempo
func TempoMarking(bpm float64) string {
	if bpm <= 0 || math.IsNaN(bpm) {
		return "Unknown"
	}
	for _, m := range tempoMarkings {
		if bpm <= m.upTo {
			return m.name
		}
	}
	return "Prestissimo"
}
