package windowing

import "math"

// Hann holds precomputed Hann window coefficients
type Hann struct {
	coefficients []float64
}

// NewHann creates a periodic Hann window, the usual choice ahead of an FFT
func NewHann(size int) *Hann {
	h := &Hann{coefficients: make([]float64, size)}
	for i := range size {
		h.coefficients[i] = 0.5 * (1.0 - math.Cos(2*math.Pi*float64(i)/float64(size)))
	}
	return h
}

// Apply returns a windowed copy of frame. Frames shorter than the window are
// zero padded, longer ones are truncated.
func (h *Hann) Apply(frame []float64) []float64 {
	windowed := make([]float64, len(h.coefficients))
	for i := range min(len(frame), len(windowed)) {
		windowed[i] = frame[i] * h.coefficients[i]
	}
	return windowed
}

// Size returns the window length
func (h *Hann) Size() int {
	return len(h.coefficients)
}
