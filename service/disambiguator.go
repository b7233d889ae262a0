package service

import (
	"fmt"

	"github.com/Aashish23092/runlog-ocr/dto"
)

// TieBreaker picks one candidate out of several. It returns false when
// it cannot decide.
type TieBreaker interface {
	Break(candidates []dto.DistanceCandidate) (dto.DistanceCandidate, bool)
}

type TieBreakerFunc func(candidates []dto.DistanceCandidate) (dto.DistanceCandidate, bool)

func (f TieBreakerFunc) Break(candidates []dto.DistanceCandidate) (dto.DistanceCandidate, bool) {
	return f(candidates)
}

// HighestConfidenceThenFirst prefers the candidate with the highest OCR
// confidence; equal confidences fall back to extraction order.
var HighestConfidenceThenFirst = TieBreakerFunc(func(candidates []dto.DistanceCandidate) (dto.DistanceCandidate, bool) {
	if len(candidates) == 0 {
		return dto.DistanceCandidate{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Confidence > best.Confidence {
			best = c
		}
	}
	return best, true
})

// Decision is the outcome of disambiguation. Selected is nil while the
// choice is pending; Options then lists what the user may pick from.
type Decision struct {
	Selected *dto.DistanceCandidate
	Options  []dto.DistanceCandidate
}

func (d Decision) Pending() bool {
	return d.Selected == nil
}

// Disambiguator reduces a candidate list to a single value. With no
// TieBreaker, AUTO_SINGLE never guesses between several candidates.
type Disambiguator struct {
	TieBreaker TieBreaker
}

func NewDisambiguator(tb TieBreaker) *Disambiguator {
	return &Disambiguator{TieBreaker: tb}
}

func (d *Disambiguator) Disambiguate(candidates []dto.DistanceCandidate, policy dto.SelectionPolicy) (Decision, error) {
	if policy != dto.PolicyAutoSingle && policy != dto.PolicyPromptUser {
		return Decision{}, fmt.Errorf("unknown selection policy %q", policy)
	}
	switch len(candidates) {
	case 0:
		return Decision{}, dto.ErrNoCandidateFound
	case 1:
		c := candidates[0]
		return Decision{Selected: &c, Options: candidates}, nil
	}

	if policy == dto.PolicyPromptUser {
		return Decision{Options: candidates}, nil
	}
	if d.TieBreaker != nil {
		if c, ok := d.TieBreaker.Break(candidates); ok {
			return Decision{Selected: &c, Options: candidates}, nil
		}
	}
	return Decision{Options: candidates}, fmt.Errorf("%w: %d candidates", dto.ErrAmbiguousCandidates, len(candidates))
}

// ValidateSelection accepts rawMatch only if it names one of options.
func ValidateSelection(options []dto.DistanceCandidate, rawMatch string) (dto.DistanceCandidate, error) {
	for _, c := range options {
		if c.RawMatch == rawMatch {
			return c, nil
		}
	}
	return dto.DistanceCandidate{}, fmt.Errorf("%w: %q", dto.ErrSelectionNotInCandidateSet, rawMatch)
}
