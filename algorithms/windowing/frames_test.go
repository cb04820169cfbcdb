package windowing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFramerOffsets(t *testing.T) {
	f, err := NewFramer(4, 2, 10)
	require.NoError(t, err)

	signal := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8}

	var starts []float64
	var indices []int
	for i, frame := range f.Frames(signal) {
		require.Len(t, frame, 4)
		indices = append(indices, i)
		starts = append(starts, frame[0])
	}

	// offsets 0,2,4 fit; offset 6 would need index 9
	assert.Equal(t, []int{0, 1, 2}, indices)
	assert.Equal(t, []float64{0, 2, 4}, starts)
	assert.Equal(t, 3, f.Count(len(signal)))
	assert.InDelta(t, 0.4, f.Time(2), 1e-12)
	assert.InDelta(t, 5.0, f.FrameRate(), 1e-12)
}

func TestFramerRestartableAndEarlyStop(t *testing.T) {
	f, err := NewFramer(2, 1, 8)
	require.NoError(t, err)

	signal := []float64{1, 2, 3, 4, 5}
	seq := f.Frames(signal)

	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}
	assert.Equal(t, 4, count())
	assert.Equal(t, 4, count(), "ranging twice yields the same frames")

	seen := 0
	for i := range seq {
		seen++
		if i == 1 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestFramerShortSignal(t *testing.T) {
	f, err := NewFramer(8, 4, 8)
	require.NoError(t, err)

	for range f.Frames(make([]float64, 7)) {
		t.Fatal("no frame expected")
	}
	assert.Equal(t, 0, f.Count(7))
	assert.Equal(t, 1, f.Count(8))
}

func TestNewFramerRejectsInvalidParams(t *testing.T) {
	_, err := NewFramer(0, 1, 8)
	assert.Error(t, err)
	_, err = NewFramer(4, 0, 8)
	assert.Error(t, err)
	_, err = NewFramer(4, 2, 0)
	assert.Error(t, err)
}

func TestHann(t *testing.T) {
	h := NewHann(4)
	out := h.Apply([]float64{1, 1, 1, 1})

	assert.InDelta(t, 0.0, out[0], 1e-12)
	assert.InDelta(t, 0.5, out[1], 1e-12)
	assert.InDelta(t, 1.0, out[2], 1e-12)
	assert.InDelta(t, 0.5, out[3], 1e-12)

	padded := h.Apply([]float64{1, 1})
	assert.Len(t, padded, 4)
	assert.Equal(t, 0.0, padded[3])
}
