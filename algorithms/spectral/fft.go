package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT provides Fast Fourier Transform functionality
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the FFT of a real signal using mjibson/go-dsp, which
// handles non-power-of-2 sizes
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.FFTReal(x)
}

// MagnitudeSpectrum returns |X[k]| for k in [0, len(x)/2]
func (f *FFT) MagnitudeSpectrum(x []float64) []float64 {
	if len(x) == 0 {
		return []float64{}
	}

	spectrum := f.Compute(x)
	magnitude := make([]float64, len(x)/2+1)
	for k := range magnitude {
		magnitude[k] = cmplx.Abs(spectrum[k])
	}
	return magnitude
}

// BinFrequency returns the centre frequency of bin k for an FFT of size n
func BinFrequency(k, n, sampleRate int) float64 {
	return float64(k) * float64(sampleRate) / float64(n)
}
