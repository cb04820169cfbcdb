package performance

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-coach/algorithms/common"
	"github.com/RyanBlaney/sonido-coach/algorithms/stats"
	"github.com/RyanBlaney/sonido-coach/algorithms/tonal"
	"github.com/RyanBlaney/sonido-coach/logging"
	"github.com/RyanBlaney/sonido-coach/performance/config"
)

// semitoneTolerance is the relative frequency error of one semitone, about 5.95%
var semitoneTolerance = tonal.SemitoneRatio - 1

// Comparator scores a recording against a reference analysis. It only reads
// its inputs and holds no per-call state, so it is safe for concurrent use.
type Comparator struct {
	config config.ComparisonConfig
	logger logging.Logger
}

// NewComparator creates a comparator with the given configuration
func NewComparator(cfg config.ComparisonConfig) (*Comparator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid comparison config: %w", err)
	}
	return &Comparator{
		config: cfg,
		logger: logging.WithFields(logging.Fields{
			"component": "comparator",
		}),
	}, nil
}

// Compare aligns recording with reference in time and grades pitch, rhythm
// and timbre. It fails with ErrMissingReference when reference is nil.
func (c *Comparator) Compare(reference, recording *AnalysisResult) (*ComparisonReport, error) {
	if reference == nil {
		return nil, ErrMissingReference
	}
	if recording == nil {
		return nil, fmt.Errorf("%w: recording analysis is nil", ErrInvalidInput)
	}

	report := &ComparisonReport{
		Pitch:  c.comparePitch(reference.Pitch, recording.Pitch),
		Rhythm: c.compareRhythm(reference, recording),
		Timbre: c.compareTimbre(reference, recording),
	}

	w := c.config.Weights
	total := w.Pitch*report.Pitch.Score + w.Rhythm*report.Rhythm.Score + w.Timbre*report.Timbre.Score
	report.TotalScore = int(common.ClampScore(math.Round(total)))
	report.Tier = c.classify(report.TotalScore)
	report.Feedback = c.buildFeedback(report, reference, recording)

	c.logger.Info("comparison completed", logging.Fields{
		"total_score": report.TotalScore,
		"tier":        string(report.Tier),
		"pitch":       report.Pitch.Score,
		"rhythm":      report.Rhythm.Score,
		"timbre":      report.Timbre.Score,
	})
	return report, nil
}

// classify maps a total score to its tier
func (c *Comparator) classify(total int) Tier {
	t := c.config.Tiers
	score := float64(total)
	switch {
	case score >= t.Excellent:
		return TierExcellent
	case score >= t.Good:
		return TierGood
	case score >= t.Fair:
		return TierFair
	case score >= t.Poor:
		return TierPoor
	default:
		return TierNeedsWork
	}
}

func (c *Comparator) comparePitch(reference, recording []PitchSample) PitchComparison {
	var result PitchComparison
	result.Issues = []string{}

	pairs := stats.MatchNearest(pitchTimes(reference), pitchTimes(recording), c.config.PitchTolerance)
	result.Matched = len(pairs)
	if len(pairs) == 0 {
		result.Insufficient = true
		result.Issues = append(result.Issues, "Insufficient pitch data: no reference notes could be matched in the recording.")
		return result
	}

	severitySum := 0
	for _, p := range pairs {
		ref, rec := reference[p.Reference], recording[p.Recording]
		if math.Abs(rec.Frequency-ref.Frequency)/ref.Frequency <= semitoneTolerance {
			result.Correct++
		}
		if ref.Note != rec.Note {
			diff := int(math.Round(tonal.SemitoneDifference(ref.Frequency, rec.Frequency)))
			severity := abs(diff)
			result.Errors = append(result.Errors, PitchError{
				Time:         ref.Time,
				Expected:     ref.Note,
				Actual:       rec.Note,
				SemitoneDiff: diff,
				Severity:     severity,
			})
			severitySum += severity
		}
	}
	if len(result.Errors) > 0 {
		result.AverageError = float64(severitySum) / float64(len(result.Errors))
	}

	result.Accuracy = common.ClampScore(float64(result.Correct) / float64(result.Matched) * 100)

	// only variation beyond the reference's own counts against stability
	excess := math.Max(0, pitchVariation(recording)-pitchVariation(reference))
	result.Stability = common.ClampScore(100 - c.config.StabilityScale*excess)

	w := c.config.PitchWeights
	result.Score = common.ClampScore(w.Accuracy*result.Accuracy + w.Stability*result.Stability)

	if result.Accuracy < issueThreshold {
		result.Issues = append(result.Issues, "Many notes were out of tune.")
	}
	for _, e := range result.Errors {
		if e.Severity > c.config.LargePitchError {
			result.Issues = append(result.Issues, "Several large pitch errors occurred.")
			break
		}
	}
	return result
}

// pitchVariation is the mean relative change between consecutive pitch
// samples. Jumps of more than a semitone are note changes and are skipped.
func pitchVariation(samples []PitchSample) float64 {
	sum, n := 0.0, 0
	for i := 1; i < len(samples); i++ {
		prev := samples[i-1].Frequency
		change := math.Abs(samples[i].Frequency-prev) / prev
		if change > semitoneTolerance {
			continue
		}
		sum += change
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func (c *Comparator) compareRhythm(reference, recording *AnalysisResult) RhythmComparison {
	result := RhythmComparison{
		ReferenceBPM:   reference.EstimatedTempoBPM,
		RecordingBPM:   recording.EstimatedTempoBPM,
		ReferenceBeats: len(reference.Beats),
	}
	result.Issues = []string{}
	result.TempoAccuracy = common.ClampScore(100 - c.config.TempoPenaltyPerBPM*math.Abs(result.RecordingBPM-result.ReferenceBPM))

	pairs := stats.MatchNearest(beatTimes(reference.Beats), beatTimes(recording.Beats), c.config.BeatTolerance)
	result.MatchedBeats = len(pairs)
	if len(pairs) == 0 {
		result.Insufficient = true
		result.Issues = append(result.Issues, "Insufficient rhythm data: no reference beats could be matched in the recording.")
		return result
	}

	result.BeatAccuracy = common.ClampScore(float64(result.MatchedBeats) / float64(result.ReferenceBeats) * 100)

	refIntervals := beatIntervals(reference.Beats)
	recIntervals := beatIntervals(recording.Beats)
	if min(len(refIntervals), len(recIntervals)) < 2 {
		// no interval pattern to correlate, timing alone decides
		result.PatternSimilarity = result.BeatAccuracy
	} else {
		r := stats.Pearson(common.ZScore(refIntervals), common.ZScore(recIntervals))
		result.PatternSimilarity = stats.CorrelationToScore(r)
	}

	w := c.config.RhythmWeights
	result.Score = common.ClampScore(w.Tempo*result.TempoAccuracy + w.Beat*result.BeatAccuracy + w.Pattern*result.PatternSimilarity)

	if result.TempoAccuracy < issueThreshold {
		result.Issues = append(result.Issues, "The tempo differed considerably from the reference.")
	}
	if result.BeatAccuracy < issueThreshold {
		result.Issues = append(result.Issues, "Beat timing was inaccurate.")
	}
	if result.PatternSimilarity < issueThreshold {
		result.Issues = append(result.Issues, "The rhythm pattern differed considerably from the reference.")
	}
	return result
}

func (c *Comparator) compareTimbre(reference, recording *AnalysisResult) TimbreComparison {
	var result TimbreComparison
	result.Issues = []string{}

	pairs := stats.MatchNearest(timbreTimes(reference.Timbre), timbreTimes(recording.Timbre), c.config.TimbreTolerance)
	result.MatchedFrames = len(pairs)
	if len(pairs) == 0 {
		result.Insufficient = true
		result.Issues = append(result.Issues, "Insufficient timbre data: no reference frames could be matched in the recording.")
		return result
	}

	descriptorSum, harmonicSum := 0.0, 0.0
	for _, p := range pairs {
		ref, rec := reference.Timbre[p.Reference], recording.Timbre[p.Recording]
		descriptorSum += stats.CorrelationToScore(stats.Pearson(ref.Descriptor[:], rec.Descriptor[:]))
		harmonicSum += stats.CorrelationToScore(stats.Pearson(ref.Chroma[:], rec.Chroma[:]))
	}
	result.MFCCSimilarity = common.ClampScore(descriptorSum / float64(len(pairs)))
	result.HarmonicSimilarity = common.ClampScore(harmonicSum / float64(len(pairs)))

	loudnessPairs := stats.MatchNearest(loudnessTimes(reference.Loudness), loudnessTimes(recording.Loudness), c.config.TimbreTolerance)
	if len(loudnessPairs) == 0 {
		result.Issues = append(result.Issues, "Insufficient loudness data: dynamics could not be compared.")
	} else {
		refRMS := make([]float64, len(loudnessPairs))
		recRMS := make([]float64, len(loudnessPairs))
		for i, p := range loudnessPairs {
			refRMS[i] = reference.Loudness[p.Reference].RMS
			recRMS[i] = recording.Loudness[p.Recording].RMS
		}
		result.LoudnessSimilarity = stats.CorrelationToScore(stats.Pearson(refRMS, recRMS))
	}

	w := c.config.TimbreWeights
	result.Score = common.ClampScore(w.MFCC*result.MFCCSimilarity + w.Loudness*result.LoudnessSimilarity + w.Harmonic*result.HarmonicSimilarity)

	if result.MFCCSimilarity < issueThreshold {
		result.Issues = append(result.Issues, "The tone colour differed considerably from the reference.")
	}
	if len(loudnessPairs) > 0 && result.LoudnessSimilarity < issueThreshold {
		result.Issues = append(result.Issues, "The dynamics differed from the reference.")
	}
	return result
}

// issueThreshold is the sub-metric value below which an issue is reported
const issueThreshold = 70.0

func pitchTimes(samples []PitchSample) []float64 {
	times := make([]float64, len(samples))
	for i, s := range samples {
		times[i] = s.Time
	}
	return times
}

func beatTimes(beats []BeatEvent) []float64 {
	times := make([]float64, len(beats))
	for i, b := range beats {
		times[i] = b.Time
	}
	return times
}

func timbreTimes(frames []TimbreFrame) []float64 {
	times := make([]float64, len(frames))
	for i, f := range frames {
		times[i] = f.Time
	}
	return times
}

func loudnessTimes(samples []LoudnessSample) []float64 {
	times := make([]float64, len(samples))
	for i, s := range samples {
		times[i] = s.Time
	}
	return times
}

// beatIntervals returns the inter-beat intervals, skipping the first beat
// which has none
func beatIntervals(beats []BeatEvent) []float64 {
	if len(beats) < 2 {
		return nil
	}
	intervals := make([]float64, 0, len(beats)-1)
	for _, b := range beats[1:] {
		intervals = append(intervals, b.IntervalFromPrevious)
	}
	return intervals
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
