package stats

import (
	"math"

	"github.com/RyanBlaney/sonido-coach/algorithms/common"
	"gonum.org/v1/gonum/stat"
)

// flatThreshold is the standard deviation below which a series is treated as
// constant.
const flatThreshold = 1e-12

// Pearson computes the Pearson correlation coefficient of x and y over their
// common prefix.
//
// The result is always in [-1, 1]:
//   - fewer than two paired values: 0 (undefined)
//   - both series constant: 1 (identical flat shapes)
//   - exactly one series constant: 0
func Pearson(x, y []float64) float64 {
	n := min(len(x), len(y))
	if n < 2 {
		return 0.0
	}
	x, y = x[:n], y[:n]

	flatX := common.PopulationStdDev(x) < flatThreshold
	flatY := common.PopulationStdDev(y) < flatThreshold
	switch {
	case flatX && flatY:
		return 1.0
	case flatX || flatY:
		return 0.0
	}

	return clampCorrelation(stat.Correlation(x, y, nil))
}

// CorrelationToScore maps a correlation in [-1, 1] onto [0, 100] via (r+1)*50
func CorrelationToScore(r float64) float64 {
	return common.ClampScore((clampCorrelation(r) + 1.0) * 50.0)
}

// NormalizedAutocorrelation is the Pearson correlation of the signal with
// itself shifted by lag samples. Lags outside [1, len-2] return 0.
func NormalizedAutocorrelation(signal []float64, lag int) float64 {
	if lag <= 0 || lag > len(signal)-2 {
		return 0.0
	}
	return Pearson(signal[:len(signal)-lag], signal[lag:])
}

// clampCorrelation ensures correlation is in valid range [-1, 1]
func clampCorrelation(correlation float64) float64 {
	if math.IsNaN(correlation) {
		return 0.0
	}
	if correlation > 1.0 {
		return 1.0
	}
	if correlation < -1.0 {
		return -1.0
	}
	return correlation
}
