package spectral

import (
	"math"
)

// HzToMel converts frequency in Hz to mel scale
func HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// MelToHz converts mel scale to frequency in Hz
func MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// MelFilterBank builds numFilters triangular filters equally spaced on the
// mel scale between lowFreq and highFreq. Each filter has fftSize/2+1 weights.
// Filters narrower than one bin come out all zero.
func MelFilterBank(numFilters, fftSize, sampleRate int, lowFreq, highFreq float64) [][]float64 {
	if numFilters <= 0 || fftSize <= 0 || sampleRate <= 0 {
		return nil
	}

	lowMel := HzToMel(lowFreq)
	highMel := HzToMel(highFreq)
	melStep := (highMel - lowMel) / float64(numFilters+1)

	// filter edges as FFT bin indices
	bins := make([]int, numFilters+2)
	for i := range bins {
		hz := MelToHz(lowMel + float64(i)*melStep)
		bins[i] = min(int(math.Floor(float64(fftSize)*hz/float64(sampleRate)+0.5)), fftSize/2)
	}

	filterBank := make([][]float64, numFilters)
	for m := range filterBank {
		filter := make([]float64, fftSize/2+1)
		left, center, right := bins[m], bins[m+1], bins[m+2]

		for k := left; k < center; k++ {
			filter[k] = float64(k-left) / float64(center-left)
		}
		for k := center; k < right; k++ {
			filter[k] = float64(right-k) / float64(right-center)
		}
		filterBank[m] = filter
	}
	return filterBank
}

// ApplyFilterBank applies a mel filter bank to a power spectrum
func ApplyFilterBank(powerSpectrum []float64, filterBank [][]float64) []float64 {
	melSpectrum := make([]float64, len(filterBank))
	for i, filter := range filterBank {
		sum := 0.0
		for j := 0; j < len(filter) && j < len(powerSpectrum); j++ {
			sum += powerSpectrum[j] * filter[j]
		}
		melSpectrum[i] = sum
	}
	return melSpectrum
}
