package utils

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Aashish23092/runlog-ocr/dto"
	"github.com/Aashish23092/runlog-ocr/observe"
	"golang.org/x/text/unicode/norm"
)

var (
	// integer or decimal; a dangling "5." only ever yields "5"
	numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)
	// number, optional whitespace, then km or k ending at a word boundary
	unitSuffixedPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(km|k)\b`)
)

// DistanceExtractor turns recognized OCR fragments into distance candidates.
type DistanceExtractor struct {
	observer observe.Observer

	// SkipClockTokens drops ANY_NUMBER matches that are part of a time or
	// date such as 6:10 or 10/15.
	SkipClockTokens bool
}

func NewDistanceExtractor(observer observe.Observer) *DistanceExtractor {
	return &DistanceExtractor{observer: observe.OrNop(observer), SkipClockTokens: true}
}

// ExtractDistances runs a DistanceExtractor with default settings and no observer.
func ExtractDistances(fragments []dto.RecognizedFragment, mode dto.ExtractionMode) ([]dto.DistanceCandidate, error) {
	return NewDistanceExtractor(nil).Extract(context.Background(), fragments, mode)
}

// Extract scans fragments according to mode. Candidates are unique by raw
// match and kept in order of first appearance.
func (e *DistanceExtractor) Extract(ctx context.Context, fragments []dto.RecognizedFragment, mode dto.ExtractionMode) ([]dto.DistanceCandidate, error) {
	texts := make([]string, len(fragments))
	for i, f := range fragments {
		texts[i] = NormalizeOCRText(f.Text)
	}

	var found []dto.DistanceCandidate
	switch mode {
	case dto.ModeAnyNumber:
		found = e.scanAnyNumber(ctx, fragments, texts)
	case dto.ModeUnitSuffixed:
		found = e.scanUnitSuffixed(ctx, fragments, texts)
	default:
		return nil, fmt.Errorf("unknown extraction mode %q", mode)
	}

	seen := make(map[string]struct{}, len(found))
	out := make([]dto.DistanceCandidate, 0, len(found))
	for _, c := range found {
		if _, ok := seen[c.RawMatch]; ok {
			continue
		}
		seen[c.RawMatch] = struct{}{}
		out = append(out, c)
		cand := c
		e.observer.Observe(ctx, observe.Event{Kind: observe.EventCandidateFound, Mode: mode, Candidate: &cand})
	}
	return out, nil
}

func (e *DistanceExtractor) scanAnyNumber(ctx context.Context, fragments []dto.RecognizedFragment, texts []string) []dto.DistanceCandidate {
	joined := strings.Join(texts, "\n")

	// start offset of each fragment inside joined
	starts := make([]int, len(texts))
	off := 0
	for i, t := range texts {
		starts[i] = off
		off += len(t) + 1
	}

	var out []dto.DistanceCandidate
	for _, loc := range numberPattern.FindAllStringIndex(joined, -1) {
		raw := joined[loc[0]:loc[1]]
		if e.SkipClockTokens && isClockToken(joined, loc[0], loc[1]) {
			e.skip(ctx, dto.ModeAnyNumber, raw, "time or date notation")
			continue
		}
		idx := fragmentAt(starts, loc[0])
		c, ok := e.candidate(ctx, dto.ModeAnyNumber, raw, dto.UnitNone, idx, fragments)
		if ok {
			out = append(out, c)
		}
	}
	return out
}

func (e *DistanceExtractor) scanUnitSuffixed(ctx context.Context, fragments []dto.RecognizedFragment, texts []string) []dto.DistanceCandidate {
	var out []dto.DistanceCandidate
	for i, text := range texts {
		for _, m := range unitSuffixedPattern.FindAllStringSubmatchIndex(text, -1) {
			raw := text[m[2]:m[3]]
			if gluedToNumber(text, m[2]) {
				// tail of a longer token, e.g. the 10 in 6:10km
				e.skip(ctx, dto.ModeUnitSuffixed, raw, "number is not a standalone token")
				continue
			}
			c, ok := e.candidate(ctx, dto.ModeUnitSuffixed, raw, dto.ParseUnit(text[m[4]:m[5]]), i, fragments)
			if ok {
				out = append(out, c)
			}
		}
	}
	return out
}

func (e *DistanceExtractor) candidate(ctx context.Context, mode dto.ExtractionMode, raw string, unit dto.Unit, idx int, fragments []dto.RecognizedFragment) (dto.DistanceCandidate, bool) {
	value, err := ParseDistance(raw)
	if err != nil {
		e.skipErr(ctx, mode, raw, "unparseable number", err)
		return dto.DistanceCandidate{}, false
	}
	c := dto.DistanceCandidate{RawMatch: raw, Value: value, Unit: unit, SourceIndex: idx}
	if idx >= 0 && idx < len(fragments) {
		c.Confidence = dto.ClampConfidence(fragments[idx].Confidence)
	}
	return c, true
}

// skip reports a rejected match. reason must come from a fixed set since it
// is used as a metric label; per-match detail goes in err.
func (e *DistanceExtractor) skip(ctx context.Context, mode dto.ExtractionMode, raw, reason string) {
	e.skipErr(ctx, mode, raw, reason, nil)
}

func (e *DistanceExtractor) skipErr(ctx context.Context, mode dto.ExtractionMode, raw, reason string, err error) {
	e.observer.Observe(ctx, observe.Event{
		Kind:      observe.EventCandidateSkipped,
		Mode:      mode,
		Candidate: &dto.DistanceCandidate{RawMatch: raw},
		Reason:    reason,
		Err:       err,
	})
}

// ParseDistance parses a matched numeric token. Only finite, non-negative
// values are accepted.
func ParseDistance(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", raw, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative distance %q", raw)
	}
	return v, nil
}

// NormalizeOCRText folds compatibility characters (full-width digits,
// "ｋｍ") to ASCII and drops control characters other than whitespace.
func NormalizeOCRText(text string) string {
	normed := norm.NFKC.String(text)
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || r == ' ' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, normed)
}

func fragmentAt(starts []int, pos int) int {
	idx := 0
	for i, s := range starts {
		if s > pos {
			break
		}
		idx = i
	}
	return idx
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// gluedToNumber reports whether the match starting at start continues a
// longer number: a digit right before it, or '.' or ':' with a digit before
// that. "Distance:5.2km" is standalone, "6:10km" is not.
func gluedToNumber(text string, start int) bool {
	if start == 0 {
		return false
	}
	prev := text[start-1]
	if isDigit(prev) {
		return true
	}
	return (prev == '.' || prev == ':') && start >= 2 && isDigit(text[start-2])
}

// isClockToken reports whether text[start:end] is glued to another number
// by ':' or '/', as in 6:10, 05:32:10 or 10/15.
func isClockToken(text string, start, end int) bool {
	if start >= 2 && (text[start-1] == ':' || text[start-1] == '/') && isDigit(text[start-2]) {
		return true
	}
	if end+1 < len(text) && (text[end] == ':' || text[end] == '/') && isDigit(text[end+1]) {
		return true
	}
	return false
}
