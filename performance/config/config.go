package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config bundles the tunable policy of an analysis and comparison run
type Config struct {
	Analysis   AnalysisConfig   `json:"analysis" yaml:"analysis" mapstructure:"analysis"`
	Comparison ComparisonConfig `json:"comparison" yaml:"comparison" mapstructure:"comparison"`
}

// AnalysisConfig configures feature extraction for a single buffer
type AnalysisConfig struct {
	// Framing shared by every extractor
	WindowSize int `json:"window_size" yaml:"window_size" mapstructure:"window_size"`
	HopSize    int `json:"hop_size" yaml:"hop_size" mapstructure:"hop_size"`

	// Pitch
	PitchThreshold float64 `json:"pitch_threshold" yaml:"pitch_threshold" mapstructure:"pitch_threshold"` // YIN d' threshold

	// Tempo and beats
	BeatThresholdRatio float64 `json:"beat_threshold_ratio" yaml:"beat_threshold_ratio" mapstructure:"beat_threshold_ratio"`
	MinTempoBPM        float64 `json:"min_tempo_bpm" yaml:"min_tempo_bpm" mapstructure:"min_tempo_bpm"`
	MaxTempoBPM        float64 `json:"max_tempo_bpm" yaml:"max_tempo_bpm" mapstructure:"max_tempo_bpm"`
	DefaultTempoBPM    float64 `json:"default_tempo_bpm" yaml:"default_tempo_bpm" mapstructure:"default_tempo_bpm"`

	// Timbre
	NumMelFilters int     `json:"num_mel_filters" yaml:"num_mel_filters" mapstructure:"num_mel_filters"`
	MelLowFreq    float64 `json:"mel_low_freq" yaml:"mel_low_freq" mapstructure:"mel_low_freq"`
	MelHighFreq   float64 `json:"mel_high_freq" yaml:"mel_high_freq" mapstructure:"mel_high_freq"` // capped at Nyquist
	LifterCoeff   float64 `json:"lifter_coeff" yaml:"lifter_coeff" mapstructure:"lifter_coeff"`

	// Harmonic content
	TuningFreq    float64 `json:"tuning_freq" yaml:"tuning_freq" mapstructure:"tuning_freq"` // A4
	ChromaMinFreq float64 `json:"chroma_min_freq" yaml:"chroma_min_freq" mapstructure:"chroma_min_freq"`
	ChromaMaxFreq float64 `json:"chroma_max_freq" yaml:"chroma_max_freq" mapstructure:"chroma_max_freq"`

	// Limits
	Timeout     time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	MaxDuration time.Duration `json:"max_duration" yaml:"max_duration" mapstructure:"max_duration"`
	MaxSamples  int           `json:"max_samples" yaml:"max_samples" mapstructure:"max_samples"`
}

// ComparisonConfig configures how two analyses are scored against each other
type ComparisonConfig struct {
	// Nearest-neighbour match windows in seconds
	PitchTolerance  float64 `json:"pitch_tolerance" yaml:"pitch_tolerance" mapstructure:"pitch_tolerance"`
	BeatTolerance   float64 `json:"beat_tolerance" yaml:"beat_tolerance" mapstructure:"beat_tolerance"`
	TimbreTolerance float64 `json:"timbre_tolerance" yaml:"timbre_tolerance" mapstructure:"timbre_tolerance"`

	Weights       DimensionWeights `json:"weights" yaml:"weights" mapstructure:"weights"`
	PitchWeights  PitchWeights     `json:"pitch_weights" yaml:"pitch_weights" mapstructure:"pitch_weights"`
	RhythmWeights RhythmWeights    `json:"rhythm_weights" yaml:"rhythm_weights" mapstructure:"rhythm_weights"`
	TimbreWeights TimbreWeights    `json:"timbre_weights" yaml:"timbre_weights" mapstructure:"timbre_weights"`

	// StabilityScale multiplies the mean relative pitch variation
	StabilityScale float64 `json:"stability_scale" yaml:"stability_scale" mapstructure:"stability_scale"`
	// TempoPenaltyPerBPM is subtracted from 100 per BPM of tempo difference
	TempoPenaltyPerBPM float64 `json:"tempo_penalty_per_bpm" yaml:"tempo_penalty_per_bpm" mapstructure:"tempo_penalty_per_bpm"`
	// LargePitchError is the semitone distance reported as a large error
	LargePitchError int `json:"large_pitch_error" yaml:"large_pitch_error" mapstructure:"large_pitch_error"`

	Tiers    TierThresholds     `json:"tiers" yaml:"tiers" mapstructure:"tiers"`
	Feedback FeedbackThresholds `json:"feedback" yaml:"feedback" mapstructure:"feedback"`
}

// DimensionWeights combine the dimension scores into the total
type DimensionWeights struct {
	Pitch  float64 `json:"pitch" yaml:"pitch" mapstructure:"pitch"`
	Rhythm float64 `json:"rhythm" yaml:"rhythm" mapstructure:"rhythm"`
	Timbre float64 `json:"timbre" yaml:"timbre" mapstructure:"timbre"`
}

type PitchWeights struct {
	Accuracy  float64 `json:"accuracy" yaml:"accuracy" mapstructure:"accuracy"`
	Stability float64 `json:"stability" yaml:"stability" mapstructure:"stability"`
}

type RhythmWeights struct {
	Tempo   float64 `json:"tempo" yaml:"tempo" mapstructure:"tempo"`
	Beat    float64 `json:"beat" yaml:"beat" mapstructure:"beat"`
	Pattern float64 `json:"pattern" yaml:"pattern" mapstructure:"pattern"`
}

type TimbreWeights struct {
	MFCC     float64 `json:"mfcc" yaml:"mfcc" mapstructure:"mfcc"`
	Loudness float64 `json:"loudness" yaml:"loudness" mapstructure:"loudness"`
	Harmonic float64 `json:"harmonic" yaml:"harmonic" mapstructure:"harmonic"`
}

// TierThresholds are the lower bounds of the four upper tiers
type TierThresholds struct {
	Excellent float64 `json:"excellent" yaml:"excellent" mapstructure:"excellent"`
	Good      float64 `json:"good" yaml:"good" mapstructure:"good"`
	Fair      float64 `json:"fair" yaml:"fair" mapstructure:"fair"`
	Poor      float64 `json:"poor" yaml:"poor" mapstructure:"poor"`
}

// FeedbackThresholds select per-dimension feedback messages
type FeedbackThresholds struct {
	Strength    float64 `json:"strength" yaml:"strength" mapstructure:"strength"`       // dimension score at or above is a strength
	Improvement float64 `json:"improvement" yaml:"improvement" mapstructure:"improvement"` // dimension score below needs work
}

// DefaultAnalysisConfig returns the analysis defaults
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		WindowSize:         2048,
		HopSize:            512,
		PitchThreshold:     0.1,
		BeatThresholdRatio: 0.3,
		MinTempoBPM:        60,
		MaxTempoBPM:        200,
		DefaultTempoBPM:    120,
		NumMelFilters:      26,
		MelLowFreq:         20,
		MelHighFreq:        8000,
		LifterCoeff:        22,
		TuningFreq:         440,
		ChromaMinFreq:      80,
		ChromaMaxFreq:      5000,
		Timeout:            30 * time.Second,
		MaxDuration:        10 * time.Minute,
		MaxSamples:         10 * 60 * 192000,
	}
}

// DefaultComparisonConfig returns the comparison defaults
func DefaultComparisonConfig() ComparisonConfig {
	return ComparisonConfig{
		PitchTolerance:     0.1,
		BeatTolerance:      0.1,
		TimbreTolerance:    0.2,
		Weights:            DimensionWeights{Pitch: 0.4, Rhythm: 0.35, Timbre: 0.25},
		PitchWeights:       PitchWeights{Accuracy: 0.7, Stability: 0.3},
		RhythmWeights:      RhythmWeights{Tempo: 0.4, Beat: 0.4, Pattern: 0.2},
		TimbreWeights:      TimbreWeights{MFCC: 0.5, Loudness: 0.3, Harmonic: 0.2},
		StabilityScale:     1000,
		TempoPenaltyPerBPM: 2,
		LargePitchError:    2,
		Tiers:              TierThresholds{Excellent: 90, Good: 80, Fair: 70, Poor: 60},
		Feedback:           FeedbackThresholds{Strength: 90, Improvement: 80},
	}
}

// Default returns the complete default configuration
func Default() *Config {
	return &Config{
		Analysis:   DefaultAnalysisConfig(),
		Comparison: DefaultComparisonConfig(),
	}
}

// Load reads a YAML file over the defaults and validates the result. Keys
// missing from the file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks both sections
func (c *Config) Validate() error {
	return errors.Join(c.Analysis.Validate(), c.Comparison.Validate())
}

// Validate checks the analysis configuration
func (c AnalysisConfig) Validate() error {
	var errs []error
	if c.WindowSize < 4 {
		errs = append(errs, fmt.Errorf("window size must be at least 4, got %d", c.WindowSize))
	}
	if c.HopSize <= 0 {
		errs = append(errs, fmt.Errorf("hop size must be positive, got %d", c.HopSize))
	}
	if c.PitchThreshold <= 0 || c.PitchThreshold >= 1 {
		errs = append(errs, fmt.Errorf("pitch threshold must be in (0, 1), got %v", c.PitchThreshold))
	}
	if c.BeatThresholdRatio < 0 || c.BeatThresholdRatio >= 1 {
		errs = append(errs, fmt.Errorf("beat threshold ratio must be in [0, 1), got %v", c.BeatThresholdRatio))
	}
	if c.MinTempoBPM <= 0 || c.MaxTempoBPM <= c.MinTempoBPM {
		errs = append(errs, fmt.Errorf("invalid tempo range [%v, %v]", c.MinTempoBPM, c.MaxTempoBPM))
	} else if c.DefaultTempoBPM < c.MinTempoBPM || c.DefaultTempoBPM > c.MaxTempoBPM {
		errs = append(errs, fmt.Errorf("default tempo %v outside [%v, %v]", c.DefaultTempoBPM, c.MinTempoBPM, c.MaxTempoBPM))
	}
	if c.NumMelFilters < 13 {
		errs = append(errs, fmt.Errorf("at least 13 mel filters are required, got %d", c.NumMelFilters))
	}
	if c.MelLowFreq < 0 || c.MelHighFreq <= c.MelLowFreq {
		errs = append(errs, fmt.Errorf("invalid mel range [%v, %v]", c.MelLowFreq, c.MelHighFreq))
	}
	if c.TuningFreq <= 0 {
		errs = append(errs, fmt.Errorf("tuning frequency must be positive, got %v", c.TuningFreq))
	}
	if c.ChromaMinFreq <= 0 || c.ChromaMaxFreq <= c.ChromaMinFreq {
		errs = append(errs, fmt.Errorf("invalid chroma range [%v, %v]", c.ChromaMinFreq, c.ChromaMaxFreq))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %v", c.Timeout))
	}
	if c.MaxDuration <= 0 {
		errs = append(errs, fmt.Errorf("max duration must be positive, got %v", c.MaxDuration))
	}
	if c.MaxSamples <= 0 {
		errs = append(errs, fmt.Errorf("max samples must be positive, got %d", c.MaxSamples))
	}
	return errors.Join(errs...)
}

// Validate checks the comparison configuration
func (c ComparisonConfig) Validate() error {
	var errs []error
	if c.PitchTolerance <= 0 || c.BeatTolerance <= 0 || c.TimbreTolerance <= 0 {
		errs = append(errs, fmt.Errorf("match tolerances must be positive"))
	}
	weightGroups := map[string][]float64{
		"dimension": {c.Weights.Pitch, c.Weights.Rhythm, c.Weights.Timbre},
		"pitch":     {c.PitchWeights.Accuracy, c.PitchWeights.Stability},
		"rhythm":    {c.RhythmWeights.Tempo, c.RhythmWeights.Beat, c.RhythmWeights.Pattern},
		"timbre":    {c.TimbreWeights.MFCC, c.TimbreWeights.Loudness, c.TimbreWeights.Harmonic},
	}
	for _, name := range []string{"dimension", "pitch", "rhythm", "timbre"} {
		if err := checkWeights(name, weightGroups[name]); err != nil {
			errs = append(errs, err)
		}
	}
	if c.StabilityScale < 0 {
		errs = append(errs, fmt.Errorf("stability scale cannot be negative"))
	}
	if c.TempoPenaltyPerBPM < 0 {
		errs = append(errs, fmt.Errorf("tempo penalty cannot be negative"))
	}
	t := c.Tiers
	if !(t.Excellent > t.Good && t.Good > t.Fair && t.Fair > t.Poor && t.Poor >= 0 && t.Excellent <= 100) {
		errs = append(errs, fmt.Errorf("tier thresholds must be strictly descending within [0, 100]"))
	}
	return errors.Join(errs...)
}

func checkWeights(name string, weights []float64) error {
	sum := 0.0
	for _, w := range weights {
		if w < 0 {
			return fmt.Errorf("%s weights cannot be negative", name)
		}
		sum += w
	}
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("%s weights must sum to 1, got %v", name, sum)
	}
	return nil
}
