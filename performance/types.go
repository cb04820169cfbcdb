package performance

import (
	"github.com/RyanBlaney/sonido-coach/algorithms/chroma"
)

// DescriptorLength is the number of cepstral coefficients in a timbre descriptor
const DescriptorLength = 13

// SampleBuffer is a decoded mono signal. The analyzer only reads it.
type SampleBuffer struct {
	Samples    []float32 `json:"-"`
	SampleRate int       `json:"sample_rate"`
	Duration   float64   `json:"duration"` // seconds
}

// NewSampleBuffer wraps samples and derives the duration from the sample rate
func NewSampleBuffer(samples []float32, sampleRate int) *SampleBuffer {
	buf := &SampleBuffer{Samples: samples, SampleRate: sampleRate}
	if sampleRate > 0 {
		buf.Duration = float64(len(samples)) / float64(sampleRate)
	}
	return buf
}

// PitchSample is a detected fundamental frequency at a frame start time
type PitchSample struct {
	Time      float64 `json:"time"`
	Frequency float64 `json:"frequency"` // always > 0
	Note      string  `json:"note"`
}

// BeatEvent is a detected beat. The first beat has no interval.
type BeatEvent struct {
	Time                 float64 `json:"time"`
	IntervalFromPrevious float64 `json:"interval_from_previous"`
	InstantaneousBPM     float64 `json:"instantaneous_bpm"`
}

// TimbreFrame holds the spectral descriptors of one frame
type TimbreFrame struct {
	Time       float64                   `json:"time"`
	Descriptor [DescriptorLength]float64 `json:"descriptor"` // mel cepstral coefficients
	Chroma     [chroma.NumBins]float64   `json:"chroma"`     // pitch class energy, unit sum or all zero
}

// LoudnessSample is the level of one frame
type LoudnessSample struct {
	Time     float64 `json:"time"`
	RMS      float64 `json:"rms"`      // [0, 1]
	Decibels float64 `json:"decibels"` // dBFS, floored at -120
}

// Feature names an extractor of the analysis pipeline
type Feature string

const (
	FeaturePitch    Feature = "pitch"
	FeatureTempo    Feature = "tempo"
	FeatureTimbre   Feature = "timbre"
	FeatureLoudness Feature = "loudness"
)

// DegradedFeature records that a feature holds a fallback value instead of a
// measurement
type DegradedFeature struct {
	Feature Feature `json:"feature"`
	Reason  string  `json:"reason"`
}

// AnalysisResult is the complete analysis of one buffer. It is not modified
// after Analyze returns it.
type AnalysisResult struct {
	DurationSeconds   float64                 `json:"duration_seconds"`
	SampleRate        int                     `json:"sample_rate"`
	EstimatedTempoBPM float64                 `json:"estimated_tempo_bpm"`
	EstimatedKey      string                  `json:"estimated_key"`
	FrequencyRange    string                  `json:"frequency_range"`
	ChromaProfile     [chroma.NumBins]float64 `json:"chroma_profile"`

	Pitch    []PitchSample    `json:"pitch"`
	Beats    []BeatEvent      `json:"beats"`
	Timbre   []TimbreFrame    `json:"timbre"`
	Loudness []LoudnessSample `json:"loudness"`

	Degraded []DegradedFeature `json:"degraded,omitempty"`
}

// IsDegraded reports whether feature fell back to a default value
func (r *AnalysisResult) IsDegraded(feature Feature) bool {
	for _, d := range r.Degraded {
		if d.Feature == feature {
			return true
		}
	}
	return false
}

// Tier is the coarse classification of a total score
type Tier string

const (
	TierExcellent Tier = "excellent"
	TierGood      Tier = "good"
	TierFair      Tier = "fair"
	TierPoor      Tier = "poor"
	TierNeedsWork Tier = "needs_work"
)

// DimensionScore is the common part of every dimension comparison
type DimensionScore struct {
	Score  float64  `json:"score"` // [0, 100]
	Issues []string `json:"issues"`
	// Insufficient is set when nothing could be matched and Score is 0
	Insufficient bool `json:"insufficient,omitempty"`
}

// PitchError is a matched reference sample whose note the recording missed
type PitchError struct {
	Time         float64 `json:"time"`
	Expected     string  `json:"expected"`
	Actual       string  `json:"actual"`
	SemitoneDiff int     `json:"semitone_diff"`
	Severity     int     `json:"severity"`
}

type PitchComparison struct {
	DimensionScore
	Accuracy     float64      `json:"accuracy"`
	Stability    float64      `json:"stability"`
	Matched      int          `json:"matched"`
	Correct      int          `json:"correct"`
	AverageError float64      `json:"average_error"` // mean severity of Errors, semitones
	Errors       []PitchError `json:"errors,omitempty"`
}

type RhythmComparison struct {
	DimensionScore
	ReferenceBPM      float64 `json:"reference_bpm"`
	RecordingBPM      float64 `json:"recording_bpm"`
	TempoAccuracy     float64 `json:"tempo_accuracy"`
	BeatAccuracy      float64 `json:"beat_accuracy"`
	PatternSimilarity float64 `json:"pattern_similarity"`
	MatchedBeats      int     `json:"matched_beats"`
	ReferenceBeats    int     `json:"reference_beats"`
}

type TimbreComparison struct {
	DimensionScore
	MFCCSimilarity     float64 `json:"mfcc_similarity"`
	LoudnessSimilarity float64 `json:"loudness_similarity"`
	HarmonicSimilarity float64 `json:"harmonic_similarity"`
	MatchedFrames      int     `json:"matched_frames"`
}

// Feedback is the human readable summary of a comparison
type Feedback struct {
	Overall      string   `json:"overall"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Pitch        string   `json:"pitch"`
	Rhythm       string   `json:"rhythm"`
	Timbre       string   `json:"timbre"`
	Notes        []string `json:"notes,omitempty"` // lowered-confidence notes for degraded analyses
}

// ComparisonReport is the graded result of comparing a recording with a
// reference
type ComparisonReport struct {
	TotalScore int              `json:"total_score"` // [0, 100]
	Tier       Tier             `json:"tier"`
	Pitch      PitchComparison  `json:"pitch"`
	Rhythm     RhythmComparison `json:"rhythm"`
	Timbre     TimbreComparison `json:"timbre"`
	Feedback   Feedback         `json:"feedback"`
}
