package temporal

import (
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-coach/algorithms/windowing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRate = 8000
	testSize = 800
	testHop  = 200
)

// pulses renders decaying 440 Hz bursts every period seconds starting at
// first, for duration seconds
func pulses(first, period, duration float64) []float64 {
	n := int(duration * testRate)
	signal := make([]float64, n)
	for start := first; start < duration; start += period {
		s0 := int(math.Round(start * testRate))
		for j := s0; j < n; j++ {
			t := float64(j-s0) / testRate
			signal[j] += 0.8 * math.Exp(-t/0.1) * math.Sin(2*math.Pi*440*t)
		}
	}
	return signal
}

func newTestEnvelope(t *testing.T) (*Envelope, *windowing.Framer) {
	t.Helper()
	framer, err := windowing.NewFramer(testSize, testHop, testRate)
	require.NoError(t, err)
	return NewEnvelope(framer), framer
}

func newTestTempo() *TempoEstimation {
	return NewTempoEstimation(NewBeatDetector(DefaultBeatThresholdRatio), DefaultMinBPM, DefaultMaxBPM, DefaultFallback)
}

func TestEnvelopeEnergyAndRMS(t *testing.T) {
	env, framer := newTestEnvelope(t)

	constant := make([]float64, 2000)
	for i := range constant {
		constant[i] = 0.5
	}

	energy := env.ComputeEnergy(constant)
	require.Len(t, energy, framer.Count(len(constant)))
	for _, e := range energy {
		assert.InDelta(t, 0.25, e, 1e-12)
	}

	for _, r := range env.ComputeRMS(constant) {
		assert.InDelta(t, 0.5, r, 1e-12)
	}
}

func TestLoudness(t *testing.T) {
	rms, db := Loudness(0)
	assert.Equal(t, 0.0, rms)
	assert.Equal(t, MinDecibels, db)

	rms, db = Loudness(0.25)
	assert.InDelta(t, 0.5, rms, 1e-12)
	assert.InDelta(t, -6.0206, db, 1e-3)

	rms, db = Loudness(4)
	assert.Equal(t, 1.0, rms)
	assert.Equal(t, 0.0, db)

	_, db = Loudness(1e-30)
	assert.Equal(t, MinDecibels, db)
}

func TestBeatDetection(t *testing.T) {
	env, framer := newTestEnvelope(t)
	envelope := env.ComputeEnergy(pulses(0.3, 0.6, 6))

	beats := NewBeatDetector(DefaultBeatThresholdRatio).Detect(envelope, framer.FrameRate())
	require.Len(t, beats, 10)

	assert.Equal(t, 0.0, beats[0].Interval)
	assert.Equal(t, 0.0, beats[0].BPM)
	for i, b := range beats {
		assert.InDelta(t, 0.3+0.6*float64(i), b.Time, 1e-9)
		if i > 0 {
			assert.InDelta(t, 0.6, b.Interval, 1e-9)
			assert.InDelta(t, 100, b.BPM, 1e-6)
		}
	}
}

func TestBeatDetectionNeedsStrictMaxima(t *testing.T) {
	bd := NewBeatDetector(DefaultBeatThresholdRatio)

	assert.Empty(t, bd.Detect([]float64{1, 1, 1, 1}, 40))
	assert.Empty(t, bd.Detect(make([]float64, 10), 40))
	assert.Empty(t, bd.Detect([]float64{0, 1}, 40))

	// second peak is below 30% of the maximum
	beats := bd.Detect([]float64{0, 1, 0, 0.2, 0}, 40)
	require.Len(t, beats, 1)
	assert.Equal(t, 1, beats[0].Index)
}

func TestTempoFromPulseTrain(t *testing.T) {
	env, framer := newTestEnvelope(t)
	envelope := env.ComputeEnergy(pulses(0.3, 0.6, 6))

	result := newTestTempo().Analyze(envelope, framer.FrameRate())
	assert.False(t, result.Degraded)
	assert.InDelta(t, 100.0, result.BPM, 0.05)
	assert.Len(t, result.Beats, 10)
}

// melody renders eight decaying notes per bar at bpm, one note per beat
func melody(sampleRate int, bpm, duration float64) []float64 {
	notes := []float64{261.63, 293.66, 329.63, 349.23, 392.00, 440.00, 493.88, 523.25}
	period := 60.0 / bpm
	n := int(duration * float64(sampleRate))
	signal := make([]float64, n)
	for k := 0; float64(k)*period < duration; k++ {
		s0 := int(math.Round(float64(k) * period * float64(sampleRate)))
		end := min(n, s0+int(2*period*float64(sampleRate)))
		for j := s0; j < end; j++ {
			t := float64(j-s0) / float64(sampleRate)
			signal[j] += 0.8 * math.Exp(-t/0.15) * math.Sin(2*math.Pi*notes[k%len(notes)]*t)
		}
	}
	return signal
}

func TestTempoBetweenFrameLags(t *testing.T) {
	// at 22050 Hz with a 512 hop a 120 BPM beat lasts 21.5 frames, and lag 43
	// correlates best
	framer, err := windowing.NewFramer(2048, 512, 22050)
	require.NoError(t, err)
	envelope := NewEnvelope(framer).ComputeEnergy(melody(22050, 120, 8))

	bpm, ok := newTestTempo().EstimateAutocorrelation(envelope, framer.FrameRate())
	require.True(t, ok)
	assert.InDelta(t, 120.0, bpm, 1.0)
}

func TestTempoAcrossRates(t *testing.T) {
	for _, rate := range []int{16000, 22050, 44100} {
		framer, err := windowing.NewFramer(2048, 512, rate)
		require.NoError(t, err)
		env := NewEnvelope(framer)

		for _, bpm := range []float64{66, 90, 120, 160, 180} {
			got, ok := newTestTempo().EstimateAutocorrelation(env.ComputeEnergy(melody(rate, bpm, 8)), framer.FrameRate())
			require.True(t, ok)
			assert.InDelta(t, bpm, got, 1.0, "rate %d, %v BPM", rate, bpm)
		}
	}
}

func TestTempoFallbackWithoutBeats(t *testing.T) {
	env, framer := newTestEnvelope(t)

	result := newTestTempo().Analyze(env.ComputeEnergy(make([]float64, 16000)), framer.FrameRate())
	assert.True(t, result.Degraded)
	assert.Equal(t, DefaultFallback, result.BPM)
	assert.Empty(t, result.Beats)
}

func TestTempoAlwaysClamped(t *testing.T) {
	te := newTestTempo()
	envelopes := [][]float64{
		{0, 1, 0, 1, 0, 1, 0, 1, 0},
		{0, 5, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 4, 0},
		pulsedEnvelope(200, 3),
		pulsedEnvelope(200, 90),
	}
	for _, e := range envelopes {
		for _, rate := range []float64{5, 40, 400} {
			result := te.Analyze(e, rate)
			assert.GreaterOrEqual(t, result.BPM, DefaultMinBPM)
			assert.LessOrEqual(t, result.BPM, DefaultMaxBPM)
		}
	}
}

func pulsedEnvelope(n, period int) []float64 {
	e := make([]float64, n)
	for i := 1; i < n-1; i += period {
		e[i] = 1
	}
	return e
}

func TestTempoMarking(t *testing.T) {
	assert.Equal(t, "Largo", TempoMarking(60))
	assert.Equal(t, "Andante", TempoMarking(100))
	assert.Equal(t, "Moderato", TempoMarking(120))
	assert.Equal(t, "Allegro", TempoMarking(130))
	assert.Equal(t, "Presto", TempoMarking(200))
	assert.Equal(t, "Prestissimo", TempoMarking(204))
	assert.Equal(t, "Unknown", TempoMarking(0))
}
