package temporal

import (
	"math"

	"github.com/RyanBlaney/sonido-coach/algorithms/windowing"
	"gonum.org/v1/gonum/floats"
)

// MinDecibels is the floor reported for silent frames instead of -Inf
const MinDecibels = -120.0

// Envelope computes per-frame energy over a shared framer
type Envelope struct {
	framer *windowing.Framer
}

// NewEnvelope creates an envelope tracker
func NewEnvelope(framer *windowing.Framer) *Envelope {
	return &Envelope{framer: framer}
}

// ComputeEnergy returns mean(x^2) for every frame
func (e *Envelope) ComputeEnergy(signal []float64) []float64 {
	energy := make([]float64, 0, e.framer.Count(len(signal)))
	for _, frame := range e.framer.Frames(signal) {
		energy = append(energy, floats.Dot(frame, frame)/float64(len(frame)))
	}
	return energy
}

// ComputeRMS returns the square root of ComputeEnergy for every frame
func (e *Envelope) ComputeRMS(signal []float64) []float64 {
	rms := e.ComputeEnergy(signal)
	for i, v := range rms {
		rms[i] = math.Sqrt(v)
	}
	return rms
}

// Loudness converts a frame energy to RMS in [0, 1] and decibels in
// [MinDecibels, 0] relative to full scale.
func Loudness(energy float64) (rms, decibels float64) {
	if energy <= 0 || math.IsNaN(energy) {
		return 0, MinDecibels
	}
	rms = math.Min(math.Sqrt(energy), 1.0)
	return rms, math.Max(20*math.Log10(rms), MinDecibels)
}
