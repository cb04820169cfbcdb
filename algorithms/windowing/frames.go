package windowing

import (
	"fmt"
	"iter"
)

// Framer slices a signal into overlapping analysis frames. Every extractor in
// a pipeline shares one Framer so their time axes line up exactly.
type Framer struct {
	size       int
	hop        int
	sampleRate int
}

// NewFramer creates a framer with the given frame size and hop, both in samples
func NewFramer(size, hop, sampleRate int) (*Framer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("frame size must be positive, got %d", size)
	}
	if hop <= 0 {
		return nil, fmt.Errorf("hop size must be positive, got %d", hop)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	return &Framer{size: size, hop: hop, sampleRate: sampleRate}, nil
}

// Frames yields (index, frame) for frames starting at 0, hop, 2*hop ... while
// offset+size <= len(signal). Frames alias signal and must not be modified.
// The sequence can be ranged over any number of times.
func (f *Framer) Frames(signal []float64) iter.Seq2[int, []float64] {
	return func(yield func(int, []float64) bool) {
		for i, offset := 0, 0; offset+f.size <= len(signal); i, offset = i+1, offset+f.hop {
			if !yield(i, signal[offset:offset+f.size]) {
				return
			}
		}
	}
}

// Count returns the number of complete frames in a signal of length n
func (f *Framer) Count(n int) int {
	if n < f.size {
		return 0
	}
	return (n-f.size)/f.hop + 1
}

// Time returns the start time in seconds of frame i
func (f *Framer) Time(i int) float64 {
	return float64(i*f.hop) / float64(f.sampleRate)
}

// FrameRate is the number of frames per second (sampleRate / hop)
func (f *Framer) FrameRate() float64 {
	return float64(f.sampleRate) / float64(f.hop)
}
