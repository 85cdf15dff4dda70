package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombineRatingsAllSources(t *testing.T) {
	got, ok := CombineRatings([]Rating{
		{Source: SourceIMDB, Score: 80},
		{Source: SourceRTCritic, Score: 90},
		{Source: SourceRTAudience, Score: 70},
		{Source: SourceMetacritic, Score: 60},
	})
	assert.True(t, ok)
	// 0.4*80 + 0.2*90 + 0.2*70 + 0.2*60 = 76
	assert.InDelta(t, 76, got, 1e-9)
}

func TestCombineRatingsRenormalizesOverPresentSources(t *testing.T) {
	got, ok := CombineRatings([]Rating{
		{Source: SourceIMDB, Score: 80},
		{Source: SourceMetacritic, Score: 50},
	})
	assert.True(t, ok)
	// (0.4*80 + 0.2*50) / 0.6 = 70
	assert.InDelta(t, 70, got, 1e-9)
}

func TestCombineRatingsIgnoresUnknownSources(t *testing.T) {
	got, ok := CombineRatings([]Rating{
		{Source: "letterboxd", Score: 100},
		{Source: SourceIMDB, Score: 60},
	})
	assert.True(t, ok)
	assert.InDelta(t, 60, got, 1e-9)
}

func TestCombineRatingsNoWeightedSource(t *testing.T) {
	_, ok := CombineRatings([]Rating{{Source: "letterboxd", Score: 100}})
	assert.False(t, ok)

	_, ok = CombineRatings(nil)
	assert.False(t, ok)
}
