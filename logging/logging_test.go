package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"":        InfoLevel,
	}
	for name, want := range cases {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestDefaultLoggerLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)

	logger.Debug("hidden")
	assert.Empty(t, buf.String(), "debug is below the default level")

	child := logger.WithFields(Fields{"component": "pipeline"})
	child.Info("analysis started", Fields{"samples": 1024})
	out := buf.String()
	assert.Contains(t, out, "analysis started")
	assert.Contains(t, out, "component=pipeline")
	assert.Contains(t, out, "samples=1024")

	buf.Reset()
	child.SetLevel(DebugLevel)
	logger.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible", "level is shared with derived loggers")

	buf.Reset()
	logger.Error(errors.New("boom"), "extraction failed")
	assert.Contains(t, buf.String(), "boom")
}

func TestWithContextPicksUpFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)

	ctx := ContextWithFields(context.Background(), Fields{"run": "reference"})
	ctx = ContextWithFields(ctx, Fields{"stage": "extract"})
	logger.WithContext(ctx).Info("tick")

	assert.Contains(t, buf.String(), "run=reference")
	assert.Contains(t, buf.String(), "stage=extract")
}

func TestSetGlobalLoggerNil(t *testing.T) {
	previous := GetGlobalLogger()
	defer SetGlobalLogger(previous)

	SetGlobalLogger(nil)
	_, ok := GetGlobalLogger().(*NoOpLogger)
	assert.True(t, ok)
	// must not panic
	Info("discarded", Fields{"k": 1})
}
