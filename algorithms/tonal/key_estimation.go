package tonal

import (
	"github.com/RyanBlaney/sonido-coach/algorithms/common"
	"github.com/RyanBlaney/sonido-coach/algorithms/stats"
)

// UnknownKey is reported when the chroma profile carries no tonal information
const UnknownKey = "Unknown"

// Krumhansl-Schmuckler key profiles (empirically derived from listener ratings)
var (
	majorProfile = []float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	minorProfile = []float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

// KeyEstimate is the best matching key for a chroma profile
type KeyEstimate struct {
	Tonic       int     `json:"tonic"` // pitch class, 0 = C
	Minor       bool    `json:"minor"`
	Correlation float64 `json:"correlation"`
}

// Name returns a label such as "C major" or "F# minor"
func (k KeyEstimate) Name() string {
	mode := "major"
	if k.Minor {
		mode = "minor"
	}
	return NoteNames[k.Tonic] + " " + mode
}

// EstimateKey correlates a 12-bin chroma profile (index 0 = C) against all 24
// rotated major and minor profiles. ok is false for empty or flat profiles.
// Major wins ties, then the lower tonic.
func EstimateKey(chroma []float64) (estimate KeyEstimate, ok bool) {
	if len(chroma) != 12 || common.PopulationStdDev(chroma) < 1e-12 {
		return KeyEstimate{}, false
	}

	best := KeyEstimate{Correlation: -2}
	for _, minor := range []bool{false, true} {
		profile := majorProfile
		if minor {
			profile = minorProfile
		}
		for tonic := range 12 {
			r := stats.Pearson(chroma, rotateProfile(profile, tonic))
			if r > best.Correlation {
				best = KeyEstimate{Tonic: tonic, Minor: minor, Correlation: r}
			}
		}
	}
	return best, true
}

// KeyName is EstimateKey reduced to its label, UnknownKey when undetermined
func KeyName(chroma []float64) string {
	estimate, ok := EstimateKey(chroma)
	if !ok {
		return UnknownKey
	}
	return estimate.Name()
}

// rotateProfile moves the profile's tonic weight to pitch class tonic
func rotateProfile(profile []float64, tonic int) []float64 {
	rotated := make([]float64, len(profile))
	for i := range profile {
		rotated[(i+tonic)%len(profile)] = profile[i]
	}
	return rotated
}
