package performance

import (
	"context"
	"fmt"

	"github.com/RyanBlaney/sonido-coach/algorithms/chroma"
	"github.com/RyanBlaney/sonido-coach/algorithms/common"
	"github.com/RyanBlaney/sonido-coach/algorithms/spectral"
	"github.com/RyanBlaney/sonido-coach/algorithms/temporal"
	"github.com/RyanBlaney/sonido-coach/algorithms/tonal"
	"github.com/RyanBlaney/sonido-coach/algorithms/windowing"
	"github.com/RyanBlaney/sonido-coach/performance/config"
)

// extractors holds the per-sample-rate components of one Analyze call. All of
// them are read-only after construction.
type extractors struct {
	framer   *windowing.Framer
	pitch    *tonal.PitchDetector
	envelope *temporal.Envelope
	tempo    *temporal.TempoEstimation
	window   *windowing.Hann
	fft      *spectral.FFT
	mfcc     *spectral.MFCC
	chroma   *chroma.ChromaSTFT
}

func newExtractors(cfg config.AnalysisConfig, sampleRate int) (*extractors, error) {
	framer, err := windowing.NewFramer(cfg.WindowSize, cfg.HopSize, sampleRate)
	if err != nil {
		return nil, err
	}

	pitch, err := tonal.NewPitchDetector(sampleRate, cfg.PitchThreshold)
	if err != nil {
		return nil, err
	}

	params := spectral.DefaultMFCCParams(sampleRate)
	params.NumCoefficients = DescriptorLength
	params.NumMelFilters = cfg.NumMelFilters
	params.LowFreq = cfg.MelLowFreq
	params.HighFreq = min(cfg.MelHighFreq, float64(sampleRate)/2)
	params.LifterCoeff = cfg.LifterCoeff
	mfcc, err := spectral.NewMFCC(sampleRate, cfg.WindowSize, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create MFCC extractor: %w", err)
	}

	chromaMax := min(cfg.ChromaMaxFreq, float64(sampleRate)/2)
	chromaSTFT, err := chroma.NewChromaSTFT(sampleRate, cfg.WindowSize, cfg.TuningFreq, cfg.ChromaMinFreq, chromaMax)
	if err != nil {
		return nil, fmt.Errorf("failed to create chroma extractor: %w", err)
	}

	beats := temporal.NewBeatDetector(cfg.BeatThresholdRatio)
	return &extractors{
		framer:   framer,
		pitch:    pitch,
		envelope: temporal.NewEnvelope(framer),
		tempo:    temporal.NewTempoEstimation(beats, cfg.MinTempoBPM, cfg.MaxTempoBPM, cfg.DefaultTempoBPM),
		window:   windowing.NewHann(cfg.WindowSize),
		fft:      spectral.NewFFT(),
		mfcc:     mfcc,
		chroma:   chromaSTFT,
	}, nil
}

// pitchTrack runs YIN on every frame and keeps the voiced ones
func (x *extractors) pitchTrack(ctx context.Context, signal []float64) ([]PitchSample, error) {
	var samples []PitchSample
	for i, frame := range x.framer.Frames(signal) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		freq, ok := x.pitch.Detect(frame)
		if !ok || freq <= 0 || !common.IsFinite(freq) {
			continue
		}
		samples = append(samples, PitchSample{
			Time:      x.framer.Time(i),
			Frequency: freq,
			Note:      tonal.FrequencyToNote(freq),
		})
	}
	return samples, nil
}

// tempoTrack derives beats and tempo from the energy envelope
func (x *extractors) tempoTrack(ctx context.Context, signal []float64) (tempoOutput, error) {
	if err := ctx.Err(); err != nil {
		return tempoOutput{}, err
	}
	envelope := x.envelope.ComputeEnergy(signal)
	if !common.AllFinite(envelope) {
		return tempoOutput{}, fmt.Errorf("energy envelope is not finite")
	}
	if err := ctx.Err(); err != nil {
		return tempoOutput{}, err
	}

	result := x.tempo.Analyze(envelope, x.framer.FrameRate())
	out := tempoOutput{bpm: result.BPM}
	for _, b := range result.Beats {
		out.beats = append(out.beats, BeatEvent{
			Time:                 b.Time,
			IntervalFromPrevious: b.Interval,
			InstantaneousBPM:     b.BPM,
		})
	}
	return out, nil
}

// timbreTrack computes the cepstral descriptor and chroma of every frame from
// one shared spectrum
func (x *extractors) timbreTrack(ctx context.Context, signal []float64) ([]TimbreFrame, error) {
	frames := make([]TimbreFrame, 0, x.framer.Count(len(signal)))
	for i, frame := range x.framer.Frames(signal) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		spectrum := x.fft.MagnitudeSpectrum(x.window.Apply(frame))
		coeffs, err := x.mfcc.Compute(spectrum)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		if !common.AllFinite(coeffs) {
			return nil, fmt.Errorf("frame %d: descriptor is not finite", i)
		}

		tf := TimbreFrame{Time: x.framer.Time(i), Chroma: x.chroma.Compute(spectrum)}
		copy(tf.Descriptor[:], coeffs)
		frames = append(frames, tf)
	}
	return frames, nil
}

// loudnessTrack reports the level of every frame from the same energy
// envelope that drives beat detection
func (x *extractors) loudnessTrack(ctx context.Context, signal []float64) ([]LoudnessSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	energy := x.envelope.ComputeEnergy(signal)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	samples := make([]LoudnessSample, len(energy))
	for i, e := range energy {
		rms, db := temporal.Loudness(e)
		samples[i] = LoudnessSample{Time: x.framer.Time(i), RMS: rms, Decibels: db}
	}
	return samples, nil
}
