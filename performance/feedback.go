package performance

import "fmt"

var overallMessages = map[Tier]string{
	TierExcellent: "Excellent performance! Pitch, rhythm and tone were all rendered very accurately.",
	TierGood:      "Good performance. There are a few points to improve, but overall it was played well.",
	TierFair:      "An average performance. More practice is needed.",
	TierPoor:      "The basics need more practice. Try playing slowly and accurately.",
	TierNeedsWork: "A lot of practice is needed. Build up your fundamentals.",
}

const (
	noImprovements = "No particular improvements needed."
	noStrengths    = "You are improving steadily through practice."
)

// buildFeedback selects the feedback messages for a scored report. The
// result depends only on the scores and the degraded flags of both analyses.
func (c *Comparator) buildFeedback(report *ComparisonReport, reference, recording *AnalysisResult) Feedback {
	th := c.config.Feedback
	fb := Feedback{
		Overall:      overallMessages[report.Tier],
		Strengths:    []string{},
		Improvements: []string{},
		Pitch:        pitchDetails(report.Pitch),
		Rhythm:       rhythmDetails(report.Rhythm),
		Timbre:       timbreDetails(report.Timbre),
	}

	if report.Pitch.Score < th.Improvement {
		fb.Improvements = append(fb.Improvements, "Practise scales to improve intonation.")
	}
	if report.Rhythm.Score < th.Improvement {
		fb.Improvements = append(fb.Improvements, "Practise with a metronome to lock in the rhythm.")
	}
	if report.Timbre.Score < th.Improvement {
		fb.Improvements = append(fb.Improvements, "Work on touch and pedalling to shape the tone.")
	}
	if len(fb.Improvements) == 0 {
		fb.Improvements = append(fb.Improvements, noImprovements)
	}

	if report.Pitch.Score >= th.Strength {
		fb.Strengths = append(fb.Strengths, "Your intonation is very accurate.")
	}
	if report.Rhythm.Score >= th.Strength {
		fb.Strengths = append(fb.Strengths, "Your sense of rhythm is excellent.")
	}
	if report.Timbre.Score >= th.Strength {
		fb.Strengths = append(fb.Strengths, "Your tonal expression is superb.")
	}
	if len(fb.Strengths) == 0 {
		fb.Strengths = append(fb.Strengths, noStrengths)
	}

	fb.Notes = append(degradedNotes("Reference", reference), degradedNotes("Recording", recording)...)
	return fb
}

func pitchDetails(p PitchComparison) string {
	if p.Insufficient {
		return "Not enough pitch data to compare."
	}
	details := fmt.Sprintf("Pitch accuracy: %.0f%%, stability: %.0f%%", p.Accuracy, p.Stability)
	if len(p.Errors) > 0 {
		details += fmt.Sprintf(". Average pitch error: %.1f semitones", p.AverageError)
	}
	return details
}

func rhythmDetails(r RhythmComparison) string {
	if r.Insufficient {
		return "Not enough rhythm data to compare."
	}
	return fmt.Sprintf("Tempo accuracy: %.0f%%, beat accuracy: %.0f%%, pattern similarity: %.0f%%",
		r.TempoAccuracy, r.BeatAccuracy, r.PatternSimilarity)
}

func timbreDetails(t TimbreComparison) string {
	if t.Insufficient {
		return "Not enough timbre data to compare."
	}
	return fmt.Sprintf("MFCC similarity: %.0f%%, loudness similarity: %.0f%%, harmonic similarity: %.0f%%",
		t.MFCCSimilarity, t.LoudnessSimilarity, t.HarmonicSimilarity)
}

// degradedNotes lowers the confidence of every dimension fed by a fallback value
func degradedNotes(label string, result *AnalysisResult) []string {
	var notes []string
	for _, d := range result.Degraded {
		notes = append(notes, fmt.Sprintf("%s %s analysis used a default value (%s); related scores are less reliable.",
			label, d.Feature, d.Reason))
	}
	return notes
}
