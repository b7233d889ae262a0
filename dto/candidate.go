package dto

import (
	"fmt"
	"strconv"
	"strings"
)

type Unit string

const (
	UnitNone Unit = "NONE"
	UnitKM   Unit = "KM"
	UnitK    Unit = "K"
)

// ParseUnit maps a matched unit token to a Unit. Matching is case-insensitive.
func ParseUnit(token string) Unit {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "km":
		return UnitKM
	case "k":
		return UnitK
	default:
		return UnitNone
	}
}

type ExtractionMode string

const (
	// ModeAnyNumber accepts every integer or decimal token in the text.
	ModeAnyNumber ExtractionMode = "ANY_NUMBER"
	// ModeUnitSuffixed accepts only numbers directly followed by km or k.
	ModeUnitSuffixed ExtractionMode = "UNIT_SUFFIXED"
)

func ParseExtractionMode(s string) (ExtractionMode, error) {
	switch ExtractionMode(strings.ToUpper(strings.TrimSpace(s))) {
	case ModeAnyNumber:
		return ModeAnyNumber, nil
	case ModeUnitSuffixed:
		return ModeUnitSuffixed, nil
	}
	return "", fmt.Errorf("unknown extraction mode %q", s)
}

type SelectionPolicy string

const (
	// PolicyAutoSingle accepts a lone candidate and rejects ambiguity.
	PolicyAutoSingle SelectionPolicy = "AUTO_SINGLE"
	// PolicyPromptUser defers ambiguous results to an explicit choice.
	PolicyPromptUser SelectionPolicy = "PROMPT_USER"
)

func ParseSelectionPolicy(s string) (SelectionPolicy, error) {
	switch SelectionPolicy(strings.ToUpper(strings.TrimSpace(s))) {
	case PolicyAutoSingle:
		return PolicyAutoSingle, nil
	case PolicyPromptUser:
		return PolicyPromptUser, nil
	}
	return "", fmt.Errorf("unknown selection policy %q", s)
}

// DistanceCandidate is a numeric token that may be the distance run.
// RawMatch holds only the digits and decimal point that were matched;
// Value is always the parse of RawMatch.
type DistanceCandidate struct {
	RawMatch    string  `json:"raw_match"`
	Value       float64 `json:"value"`
	Unit        Unit    `json:"unit"`
	SourceIndex int     `json:"source_index"`
	Confidence  float64 `json:"confidence"`
}

// Canonical renders Value without trailing zeros, e.g. "05.20" -> "5.2".
func (c DistanceCandidate) Canonical() string {
	return strconv.FormatFloat(c.Value, 'f', -1, 64)
}
