package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic statistical helpers shared by the extractors and the comparator.
// All of them accept empty input and return a neutral value instead of NaN.

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// PopulationStdDev calculates the population (1/N) standard deviation
func PopulationStdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	_, variance := stat.PopMeanVariance(data, nil)
	return math.Sqrt(variance)
}

// ZScore normalizes data to zero mean and unit population variance.
// Constant input maps to all zeros.
func ZScore(data []float64) []float64 {
	normalized := make([]float64, len(data))
	if len(data) == 0 {
		return normalized
	}

	mean := Mean(data)
	std := PopulationStdDev(data)
	if std < 1e-12 {
		return normalized
	}

	for i, val := range data {
		normalized[i] = (val - mean) / std
	}
	return normalized
}

// Max returns the largest element, or 0 for empty input
func Max(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return floats.Max(data)
}

// Clamp limits value to [lo, hi]. NaN clamps to lo.
func Clamp(value, lo, hi float64) float64 {
	if math.IsNaN(value) || value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// ClampScore limits a score to [0, 100]
func ClampScore(score float64) float64 {
	return Clamp(score, 0, 100)
}

// IsFinite reports whether v is neither NaN nor ±Inf
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// AllFinite reports whether every element of data is finite
func AllFinite(data []float64) bool {
	for _, v := range data {
		if !IsFinite(v) {
			return false
		}
	}
	return true
}
