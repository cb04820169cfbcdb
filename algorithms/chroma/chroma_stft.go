package chroma

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-coach/algorithms/common"
)

// NumBins is the number of pitch classes, index 0 = C
const NumBins = 12

// ChromaSTFT folds an FFT magnitude spectrum onto the 12 pitch classes.
// The bin mapping is computed once for a fixed FFT size, so a ChromaSTFT is
// safe for concurrent use.
type ChromaSTFT struct {
	tuningFreq float64 // A4 frequency
	minFreq    float64
	maxFreq    float64
	mapping    []int // FFT bin -> pitch class, -1 outside [minFreq, maxFreq]
}

// NewChromaSTFT creates a chroma extractor for spectra of an fftSize-point FFT
// with A4 = tuningFreq, considering only bins between minFreq and maxFreq
func NewChromaSTFT(sampleRate, fftSize int, tuningFreq, minFreq, maxFreq float64) (*ChromaSTFT, error) {
	if sampleRate <= 0 || fftSize <= 0 {
		return nil, fmt.Errorf("invalid chroma setup: sample rate %d, fft size %d", sampleRate, fftSize)
	}
	if tuningFreq <= 0 || minFreq <= 0 || maxFreq <= minFreq {
		return nil, fmt.Errorf("invalid chroma frequencies: tuning %.1f, range [%.1f, %.1f]", tuningFreq, minFreq, maxFreq)
	}

	cs := &ChromaSTFT{
		tuningFreq: tuningFreq,
		minFreq:    minFreq,
		maxFreq:    maxFreq,
		mapping:    make([]int, fftSize/2+1),
	}

	resolution := float64(sampleRate) / float64(fftSize)
	for k := range cs.mapping {
		frequency := float64(k) * resolution
		if frequency < minFreq || frequency > maxFreq {
			cs.mapping[k] = -1
			continue
		}
		midi := int(math.Round(cs.frequencyToMIDI(frequency)))
		cs.mapping[k] = ((midi % NumBins) + NumBins) % NumBins
	}
	return cs, nil
}

// NewChromaSTFTDefault uses A4 = 440 Hz and the 80 Hz - 5 kHz range
func NewChromaSTFTDefault(sampleRate, fftSize int) (*ChromaSTFT, error) {
	return NewChromaSTFT(sampleRate, fftSize, 440.0, 80.0, 5000.0)
}

// Compute returns the unit-sum chroma vector of a magnitude spectrum.
// Spectra without energy in range give all zeros.
func (cs *ChromaSTFT) Compute(magnitudeSpectrum []float64) [NumBins]float64 {
	var chroma [NumBins]float64
	for k, mag := range magnitudeSpectrum {
		if k >= len(cs.mapping) || cs.mapping[k] < 0 {
			continue
		}
		chroma[cs.mapping[k]] += mag * mag
	}

	total := 0.0
	for _, v := range chroma {
		total += v
	}
	if total > 1e-10 {
		for i := range chroma {
			chroma[i] /= total
		}
	} else {
		chroma = [NumBins]float64{}
	}
	return chroma
}

// frequencyToMIDI converts frequency to MIDI note number (A4 = 69)
func (cs *ChromaSTFT) frequencyToMIDI(frequency float64) float64 {
	return 69.0 + 12.0*math.Log2(frequency/cs.tuningFreq)
}

// Profile averages chroma frames and scales the result to a maximum of 1
func Profile(frames [][NumBins]float64) [NumBins]float64 {
	var profile [NumBins]float64
	if len(frames) == 0 {
		return profile
	}
	for _, f := range frames {
		for i, v := range f {
			profile[i] += v
		}
	}

	peak := common.Max(profile[:])
	if peak <= 0 {
		return [NumBins]float64{}
	}
	for i := range profile {
		profile[i] /= peak
	}
	return profile
}
