package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPearson(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}

	assert.InDelta(t, 1.0, Pearson(x, []float64{2, 4, 6, 8, 10}), 1e-12)
	assert.InDelta(t, -1.0, Pearson(x, []float64{5, 4, 3, 2, 1}), 1e-12)

	// truncated to the common prefix
	assert.InDelta(t, 1.0, Pearson(x, []float64{10, 20, 30}), 1e-12)
}

func TestPearsonDegenerateInputs(t *testing.T) {
	assert.Equal(t, 0.0, Pearson(nil, nil))
	assert.Equal(t, 0.0, Pearson([]float64{1}, []float64{1}))
	assert.Equal(t, 1.0, Pearson([]float64{3, 3, 3}, []float64{7, 7, 7}))
	assert.Equal(t, 0.0, Pearson([]float64{3, 3, 3}, []float64{1, 2, 3}))
}

func TestPearsonAlwaysBounded(t *testing.T) {
	inputs := [][2][]float64{
		{{1e308, -1e308, 1e308}, {1, 2, 3}},
		{{math.NaN(), 1, 2}, {1, 2, 3}},
		{{0, 1e-300, 0}, {0, 1e-300, 0}},
		{{1, 2, 3, 4}, {4, 1, 3, 2}},
	}
	for _, in := range inputs {
		r := Pearson(in[0], in[1])
		assert.False(t, math.IsNaN(r))
		assert.GreaterOrEqual(t, r, -1.0)
		assert.LessOrEqual(t, r, 1.0)
	}
}

func TestCorrelationToScore(t *testing.T) {
	assert.Equal(t, 0.0, CorrelationToScore(-1))
	assert.Equal(t, 50.0, CorrelationToScore(0))
	assert.Equal(t, 100.0, CorrelationToScore(1))
	assert.Equal(t, 50.0, CorrelationToScore(math.NaN()))
}

func TestNormalizedAutocorrelation(t *testing.T) {
	periodic := make([]float64, 100)
	for i := range periodic {
		if i%10 == 0 {
			periodic[i] = 1
		}
	}

	atPeriod := NormalizedAutocorrelation(periodic, 10)
	offPeriod := NormalizedAutocorrelation(periodic, 5)
	assert.InDelta(t, 1.0, atPeriod, 1e-9)
	assert.Less(t, offPeriod, atPeriod)

	assert.Equal(t, 0.0, NormalizedAutocorrelation(periodic, 0))
	assert.Equal(t, 0.0, NormalizedAutocorrelation(periodic, 99))
}

func TestNearestIndex(t *testing.T) {
	times := []float64{0.0, 0.5, 1.0, 1.5}

	assert.Equal(t, 1, NearestIndex(times, 0.52, 0.1))
	assert.Equal(t, 2, NearestIndex(times, 0.98, 0.1))
	assert.Equal(t, -1, NearestIndex(times, 0.75, 0.1))
	assert.Equal(t, 3, NearestIndex(times, 1.55, 0.1))
	assert.Equal(t, -1, NearestIndex(nil, 0.5, 0.1))

	// equidistant: earlier element wins
	assert.Equal(t, 0, NearestIndex([]float64{0.0, 0.5}, 0.25, 0.3))
}

func TestMatchNearest(t *testing.T) {
	ref := []float64{0.0, 0.5, 1.0, 3.0}
	rec := []float64{0.02, 0.49, 1.2}

	pairs := MatchNearest(ref, rec, 0.1)
	assert.Equal(t, []MatchPair{{0, 0}, {1, 1}}, pairs)
}
