package service

import (
	"testing"

	"github.com/Aashish23092/runlog-ocr/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cand(raw string, value, conf float64) dto.DistanceCandidate {
	return dto.DistanceCandidate{RawMatch: raw, Value: value, Unit: dto.UnitKM, Confidence: conf}
}

func TestDisambiguateAutoSingle(t *testing.T) {
	d := NewDisambiguator(nil)

	_, err := d.Disambiguate(nil, dto.PolicyAutoSingle)
	assert.ErrorIs(t, err, dto.ErrNoCandidateFound)

	decision, err := d.Disambiguate([]dto.DistanceCandidate{cand("5.2", 5.2, 0.9)}, dto.PolicyAutoSingle)
	require.NoError(t, err)
	require.False(t, decision.Pending())
	assert.Equal(t, "5.2", decision.Selected.RawMatch)

	decision, err = d.Disambiguate([]dto.DistanceCandidate{cand("5.2", 5.2, 0.9), cand("10", 10, 0.9)}, dto.PolicyAutoSingle)
	assert.ErrorIs(t, err, dto.ErrAmbiguousCandidates)
	assert.True(t, decision.Pending())
	assert.Len(t, decision.Options, 2)
}

func TestDisambiguatePromptUser(t *testing.T) {
	d := NewDisambiguator(HighestConfidenceThenFirst)

	decision, err := d.Disambiguate([]dto.DistanceCandidate{cand("7", 7, 0.9)}, dto.PolicyPromptUser)
	require.NoError(t, err)
	assert.Equal(t, "7", decision.Selected.RawMatch)

	decision, err = d.Disambiguate([]dto.DistanceCandidate{cand("5.2", 5.2, 0.4), cand("10", 10, 0.9)}, dto.PolicyPromptUser)
	require.NoError(t, err)
	assert.True(t, decision.Pending(), "prompt policy never applies the tie-breaker")
	assert.Len(t, decision.Options, 2)
}

func TestDisambiguateWithTieBreaker(t *testing.T) {
	d := NewDisambiguator(HighestConfidenceThenFirst)

	decision, err := d.Disambiguate([]dto.DistanceCandidate{cand("5.2", 5.2, 0.4), cand("10", 10, 0.9), cand("3", 3, 0.9)}, dto.PolicyAutoSingle)
	require.NoError(t, err)
	assert.Equal(t, "10", decision.Selected.RawMatch)

	decision, err = d.Disambiguate([]dto.DistanceCandidate{cand("5.2", 5.2, 0.5), cand("10", 10, 0.5)}, dto.PolicyAutoSingle)
	require.NoError(t, err)
	assert.Equal(t, "5.2", decision.Selected.RawMatch, "equal confidence keeps extraction order")
}

func TestDisambiguateTieBreakerCanDecline(t *testing.T) {
	never := TieBreakerFunc(func([]dto.DistanceCandidate) (dto.DistanceCandidate, bool) {
		return dto.DistanceCandidate{}, false
	})
	_, err := NewDisambiguator(never).Disambiguate([]dto.DistanceCandidate{cand("1", 1, 0), cand("2", 2, 0)}, dto.PolicyAutoSingle)
	assert.ErrorIs(t, err, dto.ErrAmbiguousCandidates)
}

func TestDisambiguateUnknownPolicy(t *testing.T) {
	_, err := NewDisambiguator(nil).Disambiguate([]dto.DistanceCandidate{cand("1", 1, 0)}, dto.SelectionPolicy("GUESS"))
	assert.Error(t, err)
}

func TestValidateSelection(t *testing.T) {
	options := []dto.DistanceCandidate{cand("5.2", 5.2, 0.9), cand("10", 10, 0.8)}

	c, err := ValidateSelection(options, "10")
	require.NoError(t, err)
	assert.Equal(t, 10.0, c.Value)

	_, err = ValidateSelection(options, "10.0")
	assert.ErrorIs(t, err, dto.ErrSelectionNotInCandidateSet)
}
