package tonal

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(freq float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func TestPitchDetectorRecoversPureTones(t *testing.T) {
	const sampleRate = 44100
	pd, err := NewPitchDetector(sampleRate, DefaultYinThreshold)
	require.NoError(t, err)

	for freq := 80.0; freq <= 2000.0; freq *= 1.07 {
		got, ok := pd.Detect(sine(freq, sampleRate, 2048))
		require.True(t, ok, "no pitch for %.1f Hz", freq)

		semitones := math.Abs(SemitoneDifference(freq, got))
		assert.Less(t, semitones, 1.0, "%.1f Hz detected as %.1f Hz", freq, got)
	}

	got, ok := pd.Detect(sine(2000, sampleRate, 2048))
	require.True(t, ok)
	assert.InDelta(t, 2000, got, 2000*(SemitoneRatio-1))
}

func TestPitchDetectorSilenceAndShortFrames(t *testing.T) {
	pd, err := NewPitchDetector(8000, DefaultYinThreshold)
	require.NoError(t, err)

	_, ok := pd.Detect(make([]float64, 1024))
	assert.False(t, ok, "silence has no pitch")

	_, ok = pd.Detect([]float64{0.1, 0.2, 0.3})
	assert.False(t, ok)

	_, ok = pd.Detect(nil)
	assert.False(t, ok)
}

func TestPitchDetectorDeterministic(t *testing.T) {
	pd, err := NewPitchDetector(22050, DefaultYinThreshold)
	require.NoError(t, err)

	frame := sine(330, 22050, 1024)
	f1, ok1 := pd.Detect(frame)
	f2, ok2 := pd.Detect(frame)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, f1, f2)
}

func TestNewPitchDetectorValidation(t *testing.T) {
	_, err := NewPitchDetector(0, 0.1)
	assert.Error(t, err)
	_, err = NewPitchDetector(8000, 0)
	assert.Error(t, err)
	_, err = NewPitchDetector(8000, 1.5)
	assert.Error(t, err)
}

func TestFrequencyToNote(t *testing.T) {
	assert.Equal(t, "A4", FrequencyToNote(440))
	assert.Equal(t, "C4", FrequencyToNote(261.63))
	assert.Equal(t, "A#4", FrequencyToNote(466.16))
	assert.Equal(t, "C0", FrequencyToNote(C0))
	assert.Equal(t, "", FrequencyToNote(0))
	assert.Equal(t, "", FrequencyToNote(-3))
}

func TestNoteRoundTrip(t *testing.T) {
	for octave := MinOctave; octave <= MaxOctave; octave++ {
		for _, name := range NoteNames {
			label := name + strconv.Itoa(octave)
			freq, err := NoteToFrequency(label)
			require.NoError(t, err, label)
			assert.Equal(t, label, FrequencyToNote(freq))
		}
	}

	a4, err := NoteToFrequency("A4")
	require.NoError(t, err)
	assert.InDelta(t, 440.0, a4, 1e-9)
}

func TestNoteToFrequencyRejectsInvalidLabels(t *testing.T) {
	for _, label := range []string{"", "H4", "A", "A#", "Cb4", "A10", "A-1", "#4"} {
		_, err := NoteToFrequency(label)
		assert.Error(t, err, label)
	}
}

func TestEstimateKey(t *testing.T) {
	gMajor := rotateProfile(majorProfile, 7)
	assert.Equal(t, "G major", KeyName(gMajor))

	aMinor := rotateProfile(minorProfile, 9)
	est, ok := EstimateKey(aMinor)
	require.True(t, ok)
	assert.Equal(t, "A minor", est.Name())
	assert.InDelta(t, 1.0, est.Correlation, 1e-9)

	assert.Equal(t, UnknownKey, KeyName(make([]float64, 12)))
	assert.Equal(t, UnknownKey, KeyName([]float64{1, 2, 3}))
}
