package cascade_test

import (
	"testing"

	"github.com/UnknownOlympus/meridian/internal/cascade"
	"github.com/UnknownOlympus/meridian/internal/geocoding"
	"github.com/stretchr/testify/assert"
)

func scored(confidence int) geocoding.Candidate {
	return geocoding.Candidate{Confidence: confidence, Scored: true}
}

func TestThresholded_Accept(t *testing.T) {
	policy := cascade.Thresholded{Min: cascade.DefaultThreshold}

	tests := []struct {
		name       string
		candidates []geocoding.Candidate
		accepted   bool
	}{
		{name: "at threshold", candidates: []geocoding.Candidate{scored(7)}, accepted: true},
		{name: "above threshold", candidates: []geocoding.Candidate{scored(10)}, accepted: true},
		{name: "below threshold", candidates: []geocoding.Candidate{scored(6)}, accepted: false},
		{name: "only the top candidate counts", candidates: []geocoding.Candidate{scored(3), scored(9)}, accepted: false},
		{name: "unscored candidate", candidates: []geocoding.Candidate{{Confidence: 9}}, accepted: false},
		{name: "no candidates", candidates: nil, accepted: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := policy.Accept(tt.candidates)

			assert.Equal(t, tt.accepted, ok)
			if ok {
				assert.Equal(t, tt.candidates[0], got)
			}
		})
	}
}

func TestUnconditional_Accept(t *testing.T) {
	got, ok := cascade.Unconditional{}.Accept([]geocoding.Candidate{{Label: "N/A"}, {Label: "second"}})
	assert.True(t, ok)
	assert.Equal(t, "N/A", got.Label)

	_, ok = cascade.Unconditional{}.Accept(nil)
	assert.False(t, ok)
}

func TestPolicy_String(t *testing.T) {
	assert.Equal(t, "confidence>=7", cascade.Thresholded{Min: 7}.String())
	assert.Equal(t, "any", cascade.Unconditional{}.String())
}
