package tonal

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// A4 is the tuning reference in Hz
const A4 = 440.0

// C0 is the frequency of C in octave 0, 4.75 octaves below A4
var C0 = A4 * math.Pow(2, -4.75)

// Octave range accepted by NoteToFrequency
const (
	MinOctave = 0
	MaxOctave = 9
)

// NoteNames lists the chromatic scale starting at C, sharps only
var NoteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// SemitoneRatio is the frequency ratio of one equal-tempered semitone
var SemitoneRatio = math.Pow(2, 1.0/12.0)

// SemitoneIndex returns the nearest equal-tempered semitone above C0
func SemitoneIndex(frequency float64) int {
	return int(math.Round(12 * math.Log2(frequency/C0)))
}

// FrequencyToNote converts a frequency to a label such as "A4" or "C#3".
// Non-positive frequencies have no label and return "".
func FrequencyToNote(frequency float64) string {
	if frequency <= 0 || math.IsNaN(frequency) || math.IsInf(frequency, 0) {
		return ""
	}
	idx := SemitoneIndex(frequency)
	octave := floorDiv(idx, 12)
	return NoteNames[idx-octave*12] + strconv.Itoa(octave)
}

// NoteToFrequency parses a label such as "A4" or "C#3" and returns its
// equal-tempered frequency.
func NoteToFrequency(label string) (float64, error) {
	pitchClass, octave, err := ParseNote(label)
	if err != nil {
		return 0, err
	}
	semitones := float64(octave*12 + pitchClass)
	return C0 * math.Pow(2, semitones/12), nil
}

// ParseNote splits a label into its pitch class (0 = C) and octave
func ParseNote(label string) (pitchClass, octave int, err error) {
	label = strings.TrimSpace(label)
	split := 1
	if len(label) > 1 && label[1] == '#' {
		split = 2
	}
	if len(label) <= split {
		return 0, 0, fmt.Errorf("invalid note label %q", label)
	}

	name := strings.ToUpper(label[:split])
	pitchClass = -1
	for i, n := range NoteNames {
		if n == name {
			pitchClass = i
			break
		}
	}
	if pitchClass < 0 {
		return 0, 0, fmt.Errorf("invalid note name in %q", label)
	}

	octave, err = strconv.Atoi(label[split:])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid octave in %q: %w", label, err)
	}
	if octave < MinOctave || octave > MaxOctave {
		return 0, 0, fmt.Errorf("octave %d out of range [%d, %d]", octave, MinOctave, MaxOctave)
	}
	return pitchClass, octave, nil
}

// SemitoneDifference returns the signed distance from reference to actual in
// semitones
func SemitoneDifference(reference, actual float64) float64 {
	if reference <= 0 || actual <= 0 {
		return 0
	}
	return 12 * math.Log2(actual/reference)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
