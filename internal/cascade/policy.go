package cascade

import (
	"strconv"

	"github.com/UnknownOlympus/meridian/internal/geocoding"
)

// DefaultThreshold is the minimum OpenCage confidence (0-10) accepted.
const DefaultThreshold = 7

// Policy decides whether a provider's candidates contain an acceptable match.
type Policy interface {
	Accept(candidates []geocoding.Candidate) (geocoding.Candidate, bool)
	String() string
}

// Thresholded accepts the top-ranked candidate only when its confidence is at
// least Min. Lower-ranked candidates are never considered.
type Thresholded struct {
	Min int
}

func (p Thresholded) Accept(candidates []geocoding.Candidate) (geocoding.Candidate, bool) {
	if len(candidates) == 0 {
		return geocoding.Candidate{}, false
	}
	top := candidates[0]
	if !top.Scored || top.Confidence < p.Min {
		return geocoding.Candidate{}, false
	}
	return top, true
}

func (p Thresholded) String() string { return "confidence>=" + strconv.Itoa(p.Min) }

// Unconditional accepts the first candidate, if there is one.
type Unconditional struct{}

func (Unconditional) Accept(candidates []geocoding.Candidate) (geocoding.Candidate, bool) {
	if len(candidates) == 0 {
		return geocoding.Candidate{}, false
	}
	return candidates[0], true
}

func (Unconditional) String() string { return "any" }

// Step is one provider of the cascade together with its acceptance rule.
type Step struct {
	Provider geocoding.Provider
	Policy   Policy
}
