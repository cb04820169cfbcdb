package spectral

import (
	"fmt"
	"math"
)

// logFloor keeps log() finite for empty mel bands
const logFloor = 1e-10

// MFCC computes Mel-Frequency Cepstral Coefficients from a magnitude spectrum.
// The filter bank and DCT matrix are built once, so an MFCC is safe for
// concurrent use.
type MFCC struct {
	params     MFCCParams
	fftSize    int
	filterBank [][]float64
	dctMatrix  [][]float64
	lifter     []float64
}

// MFCCParams contains parameters for MFCC computation
type MFCCParams struct {
	NumCoefficients int     `json:"num_coefficients" yaml:"num_coefficients"` // default 13
	NumMelFilters   int     `json:"num_mel_filters" yaml:"num_mel_filters"`   // default 26
	LowFreq         float64 `json:"low_freq" yaml:"low_freq"`                 // default 20 Hz
	HighFreq        float64 `json:"high_freq" yaml:"high_freq"`               // default min(8000, sampleRate/2)
	LifterCoeff     float64 `json:"lifter_coeff" yaml:"lifter_coeff"`         // 0 disables liftering
}

// DefaultMFCCParams returns the parameters used for timbre descriptors
func DefaultMFCCParams(sampleRate int) MFCCParams {
	return MFCCParams{
		NumCoefficients: 13,
		NumMelFilters:   26,
		LowFreq:         20.0,
		HighFreq:        math.Min(8000.0, float64(sampleRate)/2.0),
		LifterCoeff:     22.0,
	}
}

// NewMFCC creates an MFCC computer for spectra of an fftSize-point FFT
func NewMFCC(sampleRate, fftSize int, params MFCCParams) (*MFCC, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}
	if fftSize <= 0 {
		return nil, fmt.Errorf("invalid FFT size: %d", fftSize)
	}
	if params.NumMelFilters <= 0 || params.NumCoefficients <= 0 {
		return nil, fmt.Errorf("invalid MFCC dimensions: %d coefficients, %d filters",
			params.NumCoefficients, params.NumMelFilters)
	}
	if params.NumCoefficients > params.NumMelFilters {
		return nil, fmt.Errorf("cannot compute %d coefficients from %d mel filters",
			params.NumCoefficients, params.NumMelFilters)
	}
	if params.HighFreq <= 0 || params.HighFreq > float64(sampleRate)/2 {
		params.HighFreq = float64(sampleRate) / 2
	}
	if params.LowFreq < 0 || params.LowFreq >= params.HighFreq {
		return nil, fmt.Errorf("invalid mel frequency range [%.1f, %.1f]", params.LowFreq, params.HighFreq)
	}

	m := &MFCC{
		params:     params,
		fftSize:    fftSize,
		filterBank: MelFilterBank(params.NumMelFilters, fftSize, sampleRate, params.LowFreq, params.HighFreq),
	}
	m.createDCTMatrix()
	m.createLifter()
	return m, nil
}

// Compute calculates MFCC coefficients from a magnitude spectrum of length
// fftSize/2+1
func (m *MFCC) Compute(magnitudeSpectrum []float64) ([]float64, error) {
	if len(magnitudeSpectrum) != m.fftSize/2+1 {
		return nil, fmt.Errorf("spectrum has %d bins, expected %d", len(magnitudeSpectrum), m.fftSize/2+1)
	}

	power := make([]float64, len(magnitudeSpectrum))
	for i, mag := range magnitudeSpectrum {
		power[i] = mag * mag
	}

	logMel := ApplyFilterBank(power, m.filterBank)
	for i, v := range logMel {
		logMel[i] = math.Log(math.Max(v, logFloor))
	}

	coeffs := make([]float64, m.params.NumCoefficients)
	for k, row := range m.dctMatrix {
		sum := 0.0
		for n, v := range logMel {
			sum += row[n] * v
		}
		coeffs[k] = sum * m.lifter[k]
	}
	return coeffs, nil
}

// NumCoefficients returns the descriptor length
func (m *MFCC) NumCoefficients() int {
	return m.params.NumCoefficients
}

// createDCTMatrix builds an orthonormal DCT-II truncated to NumCoefficients rows
func (m *MFCC) createDCTMatrix() {
	n := m.params.NumMelFilters
	m.dctMatrix = make([][]float64, m.params.NumCoefficients)
	for k := range m.dctMatrix {
		scale := math.Sqrt(2.0 / float64(n))
		if k == 0 {
			scale = math.Sqrt(1.0 / float64(n))
		}
		row := make([]float64, n)
		for i := range row {
			row[i] = scale * math.Cos(math.Pi*float64(k)*(float64(i)+0.5)/float64(n))
		}
		m.dctMatrix[k] = row
	}
}

// createLifter builds sinusoidal cepstral liftering weights
func (m *MFCC) createLifter() {
	m.lifter = make([]float64, m.params.NumCoefficients)
	l := m.params.LifterCoeff
	for k := range m.lifter {
		if l <= 0 {
			m.lifter[k] = 1.0
			continue
		}
		m.lifter[k] = 1.0 + (l/2.0)*math.Sin(math.Pi*float64(k)/l)
	}
}
