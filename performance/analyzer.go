package performance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-coach/algorithms/chroma"
	"github.com/RyanBlaney/sonido-coach/algorithms/common"
	"github.com/RyanBlaney/sonido-coach/algorithms/tonal"
	"github.com/RyanBlaney/sonido-coach/logging"
	"github.com/RyanBlaney/sonido-coach/performance/config"
	"golang.org/x/sync/errgroup"
)

// State is a stage of the analysis pipeline
type State int

const (
	StateIdle State = iota
	StateValidating
	StateExtracting
	StateAggregating
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateExtracting:
		return "extracting"
	case StateAggregating:
		return "aggregating"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Analyzer extracts pitch, tempo, timbre and loudness from sample buffers.
// Extractors run concurrently over the same read-only buffer under a single
// deadline. An Analyzer may be shared by concurrent Analyze calls.
type Analyzer struct {
	config  config.AnalysisConfig
	logger  logging.Logger
	onState func(State)
}

// AnalyzerOption customizes an Analyzer
type AnalyzerOption func(*Analyzer)

// WithLogger replaces the component logger
func WithLogger(logger logging.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithStateHook registers fn to observe every state transition. fn must be
// safe for concurrent use when Analyze is called concurrently.
func WithStateHook(fn func(State)) AnalyzerOption {
	return func(a *Analyzer) {
		a.onState = fn
	}
}

// NewAnalyzer creates an analyzer with the given configuration
func NewAnalyzer(cfg config.AnalysisConfig, opts ...AnalyzerOption) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis config: %w", err)
	}

	a := &Analyzer{
		config: cfg,
		logger: logging.WithFields(logging.Fields{
			"component": "analyzer",
		}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Analyze runs the pipeline over buf. It fails with ErrInvalidInput for
// unusable buffers and with ErrAnalysisTimeout when the run exceeds the
// configured timeout. The deadline covers validation as well as extraction. A
// failing extractor does not fail the run: its feature falls back to a
// default and is listed in AnalysisResult.Degraded.
func (a *Analyzer) Analyze(ctx context.Context, buf *SampleBuffer) (*AnalysisResult, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	logger := a.logger.WithContext(ctx)
	a.transition(logger, StateIdle)

	a.transition(logger, StateValidating)
	if err := a.validate(buf); err != nil {
		return nil, a.fail(logger, err)
	}

	x, err := newExtractors(a.config, buf.SampleRate)
	if err != nil {
		return nil, a.fail(logger, fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}

	signal, err := a.prepare(ctx, buf.Samples)
	if err != nil {
		return nil, a.fail(logger, a.contextFailure(logger, err))
	}

	a.transition(logger, StateExtracting)
	features, err := a.extract(ctx, logger, x, signal)
	if err != nil {
		return nil, a.fail(logger, err)
	}

	a.transition(logger, StateAggregating)
	result := aggregate(features, len(signal), buf.SampleRate)

	a.transition(logger, StateDone)
	logger.Info("analysis completed", logging.Fields{
		"duration_seconds": result.DurationSeconds,
		"pitch_samples":    len(result.Pitch),
		"beats":            len(result.Beats),
		"tempo_bpm":        result.EstimatedTempoBPM,
		"key":              result.EstimatedKey,
		"degraded":         len(result.Degraded),
		"processing_ms":    time.Since(start).Milliseconds(),
	})
	return result, nil
}

// validate checks the buffer shape; sample values are checked by prepare
func (a *Analyzer) validate(buf *SampleBuffer) error {
	if buf == nil {
		return fmt.Errorf("%w: sample buffer is nil", ErrInvalidInput)
	}
	if len(buf.Samples) == 0 {
		return fmt.Errorf("%w: sample buffer is empty", ErrInvalidInput)
	}
	if buf.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidInput, buf.SampleRate)
	}
	if len(buf.Samples) > a.config.MaxSamples {
		return fmt.Errorf("%w: %d samples exceeds the limit of %d", ErrInvalidInput, len(buf.Samples), a.config.MaxSamples)
	}
	duration := time.Duration(float64(len(buf.Samples)) / float64(buf.SampleRate) * float64(time.Second))
	if duration > a.config.MaxDuration {
		return fmt.Errorf("%w: duration %v exceeds the limit of %v", ErrInvalidInput, duration, a.config.MaxDuration)
	}
	if len(buf.Samples) < a.config.WindowSize {
		return fmt.Errorf("%w: %d samples is shorter than one analysis window (%d)", ErrInvalidInput, len(buf.Samples), a.config.WindowSize)
	}
	return nil
}

// scanChunk is how many samples prepare converts between deadline checks
const scanChunk = 1 << 16

// prepare widens the samples for processing and rejects non-finite values
func (a *Analyzer) prepare(ctx context.Context, samples []float32) ([]float64, error) {
	signal := make([]float64, len(samples))
	for i, s := range samples {
		if i%scanChunk == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		v := float64(s)
		if !common.IsFinite(v) {
			return nil, fmt.Errorf("%w: sample %d is not finite", ErrInvalidInput, i)
		}
		signal[i] = v
	}
	return signal, nil
}

// featureSet holds the raw output of every extractor. Each field is written by
// exactly one task.
type featureSet struct {
	pitch    []PitchSample
	tempo    tempoOutput
	timbre   []TimbreFrame
	loudness []LoudnessSample
	degraded [4]*DegradedFeature // indexed like extractionOrder
}

type tempoOutput struct {
	bpm   float64
	beats []BeatEvent
}

// extractionOrder fixes the order of degraded flags in the result
var extractionOrder = [4]Feature{FeaturePitch, FeatureTempo, FeatureTimbre, FeatureLoudness}

// extract runs the four extractors under ctx, which carries the run deadline
func (a *Analyzer) extract(ctx context.Context, logger logging.Logger, x *extractors, signal []float64) (*featureSet, error) {
	fs := &featureSet{}
	g, gctx := errgroup.WithContext(ctx)

	// task runs fn and converts any failure other than cancellation into the
	// documented default plus a degraded flag
	task := func(slot int, fn func(context.Context) error, fallback func()) {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("extractor panic: %v", r)
				}
				if err == nil || isContextError(err) {
					return
				}
				fallback()
				feature := extractionOrder[slot]
				fs.degraded[slot] = &DegradedFeature{Feature: feature, Reason: err.Error()}
				logger.Warn("extractor degraded, using default", logging.Fields{
					"feature": string(feature),
					"reason":  err.Error(),
				})
				err = nil
			}()
			return fn(gctx)
		})
	}

	task(0, func(ctx context.Context) (err error) {
		fs.pitch, err = x.pitchTrack(ctx, signal)
		return err
	}, func() { fs.pitch = nil })

	task(1, func(ctx context.Context) error {
		out, err := x.tempoTrack(ctx, signal)
		if err != nil {
			return err
		}
		fs.tempo = out
		if len(out.beats) < 2 {
			return errFewBeats
		}
		return nil
	}, func() {
		// keep the beats that were found, only the tempo is a default
		fs.tempo.bpm = a.config.DefaultTempoBPM
	})

	task(2, func(ctx context.Context) (err error) {
		fs.timbre, err = x.timbreTrack(ctx, signal)
		return err
	}, func() { fs.timbre = nil })

	task(3, func(ctx context.Context) (err error) {
		fs.loudness, err = x.loudnessTrack(ctx, signal)
		return err
	}, func() { fs.loudness = nil })

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	var err error
	select {
	case <-ctx.Done():
		// outstanding tasks observe the cancelled context and exit; their
		// partial output is never read
		err = ctx.Err()
	case err = <-done:
		if err == nil {
			err = ctx.Err()
		}
	}

	if err != nil {
		return nil, a.contextFailure(logger, err)
	}
	return fs, nil
}

// contextFailure maps an expired deadline to ErrAnalysisTimeout and wraps
// cancellation. Other errors pass through unchanged.
func (a *Analyzer) contextFailure(logger logging.Logger, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		logger.Error(err, "analysis deadline exceeded", logging.Fields{"timeout": a.config.Timeout.String()})
		return fmt.Errorf("%w: exceeded %v", ErrAnalysisTimeout, a.config.Timeout)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("analysis cancelled: %w", err)
	default:
		return err
	}
}

var errFewBeats = errors.New("fewer than two beats detected")

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// aggregate assembles the immutable result in a fixed field order
func aggregate(fs *featureSet, numSamples, sampleRate int) *AnalysisResult {
	result := &AnalysisResult{
		DurationSeconds:   float64(numSamples) / float64(sampleRate),
		SampleRate:        sampleRate,
		EstimatedTempoBPM: fs.tempo.bpm,
		FrequencyRange:    frequencyRange(fs.pitch),
		Pitch:             nonNil(fs.pitch),
		Beats:             nonNil(fs.tempo.beats),
		Timbre:            nonNil(fs.timbre),
		Loudness:          nonNil(fs.loudness),
	}

	frames := make([][chroma.NumBins]float64, len(fs.timbre))
	for i, f := range fs.timbre {
		frames[i] = f.Chroma
	}
	result.ChromaProfile = chroma.Profile(frames)
	result.EstimatedKey = tonal.KeyName(result.ChromaProfile[:])

	for _, d := range fs.degraded {
		if d != nil {
			result.Degraded = append(result.Degraded, *d)
		}
	}
	return result
}

// frequencyRange labels the lowest and highest detected notes, "N/A" without
// pitch
func frequencyRange(pitch []PitchSample) string {
	if len(pitch) == 0 {
		return "N/A"
	}
	lo, hi := pitch[0].Frequency, pitch[0].Frequency
	for _, p := range pitch[1:] {
		lo = min(lo, p.Frequency)
		hi = max(hi, p.Frequency)
	}
	return tonal.FrequencyToNote(lo) + " - " + tonal.FrequencyToNote(hi)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (a *Analyzer) transition(logger logging.Logger, s State) {
	logger.Debug("pipeline state", logging.Fields{"state": s.String()})
	if a.onState != nil {
		a.onState(s)
	}
}

func (a *Analyzer) fail(logger logging.Logger, err error) error {
	a.transition(logger, StateFailed)
	logger.Error(err, "analysis failed")
	return err
}
