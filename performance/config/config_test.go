package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 0.4, cfg.Comparison.Weights.Pitch)
	assert.Equal(t, 0.35, cfg.Comparison.Weights.Rhythm)
	assert.Equal(t, 0.25, cfg.Comparison.Weights.Timbre)
	assert.Equal(t, 0.1, cfg.Analysis.PitchThreshold)
	assert.Equal(t, 120.0, cfg.Analysis.DefaultTempoBPM)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coach.yaml")
	content := `
analysis:
  window_size: 1024
  hop_size: 256
  timeout: 5s
comparison:
  weights:
    pitch: 0.5
    rhythm: 0.3
    timbre: 0.2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1024, cfg.Analysis.WindowSize)
	assert.Equal(t, 256, cfg.Analysis.HopSize)
	assert.Equal(t, 5*time.Second, cfg.Analysis.Timeout)
	assert.Equal(t, 0.5, cfg.Comparison.Weights.Pitch)

	// untouched keys keep defaults
	assert.Equal(t, 0.1, cfg.Analysis.PitchThreshold)
	assert.Equal(t, 0.7, cfg.Comparison.PitchWeights.Accuracy)
}

func TestLoadRejectsInvalidFiles(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("analysis: [unclosed"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)

	unbalanced := filepath.Join(dir, "weights.yaml")
	require.NoError(t, os.WriteFile(unbalanced, []byte("comparison:\n  weights:\n    pitch: 0.9\n"), 0o644))
	_, err = Load(unbalanced)
	assert.ErrorContains(t, err, "dimension weights must sum to 1")
}

func TestAnalysisValidate(t *testing.T) {
	cases := map[string]func(*AnalysisConfig){
		"window":    func(c *AnalysisConfig) { c.WindowSize = 0 },
		"hop":       func(c *AnalysisConfig) { c.HopSize = -1 },
		"threshold": func(c *AnalysisConfig) { c.PitchThreshold = 1 },
		"tempo":     func(c *AnalysisConfig) { c.MinTempoBPM = 250 },
		"default":   func(c *AnalysisConfig) { c.DefaultTempoBPM = 30 },
		"mel":       func(c *AnalysisConfig) { c.NumMelFilters = 8 },
		"timeout":   func(c *AnalysisConfig) { c.Timeout = 0 },
		"samples":   func(c *AnalysisConfig) { c.MaxSamples = 0 },
	}
	for name, mutate := range cases {
		cfg := DefaultAnalysisConfig()
		mutate(&cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}

func TestComparisonValidate(t *testing.T) {
	cfg := DefaultComparisonConfig()
	cfg.Tiers.Good = 95
	assert.Error(t, cfg.Validate())

	cfg = DefaultComparisonConfig()
	cfg.TimbreWeights.Harmonic = -0.2
	assert.Error(t, cfg.Validate())

	cfg = DefaultComparisonConfig()
	cfg.BeatTolerance = 0
	assert.Error(t, cfg.Validate())
}
