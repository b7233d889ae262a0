// Package observe carries structured trace events out of the extraction,
// addressing and submission code.
package observe

import (
	"context"
	"log/slog"

	"github.com/Aashish23092/runlog-ocr/dto"
)

type EventKind string

const (
	EventCandidateFound     EventKind = "candidate_found"
	EventCandidateSkipped   EventKind = "candidate_skipped"
	EventCoordinateResolved EventKind = "coordinate_resolved"
	EventStateChanged       EventKind = "state_changed"
	EventFailure            EventKind = "failure"
)

// Event is a single trace record. Only the fields relevant to Kind are set.
type Event struct {
	Kind         EventKind
	SubmissionID string
	Mode         dto.ExtractionMode
	Candidate    *dto.DistanceCandidate
	Key          *dto.LogEntryKey
	Coordinate   *dto.SheetCoordinate
	From, To     string
	Reason       string
	Err          error
}

type Observer interface {
	Observe(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) Observe(ctx context.Context, ev Event) { f(ctx, ev) }

// Nop discards every event.
var Nop Observer = ObserverFunc(func(context.Context, Event) {})

// OrNop returns o, or Nop when o is nil.
func OrNop(o Observer) Observer {
	if o == nil {
		return Nop
	}
	return o
}

type multi []Observer

func (m multi) Observe(ctx context.Context, ev Event) {
	for _, o := range m {
		o.Observe(ctx, ev)
	}
}

// Multi fans an event out to every non-nil observer in order.
func Multi(observers ...Observer) Observer {
	var m multi
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	if len(m) == 0 {
		return Nop
	}
	return m
}

// SlogObserver writes events to a slog.Logger. Failures are logged at
// warn level, everything else at debug.
type SlogObserver struct {
	logger *slog.Logger
}

func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogObserver{logger: logger}
}

func (o *SlogObserver) Observe(ctx context.Context, ev Event) {
	attrs := []slog.Attr{slog.String("event", string(ev.Kind))}
	if ev.SubmissionID != "" {
		attrs = append(attrs, slog.String("submission_id", ev.SubmissionID))
	}
	if ev.Mode != "" {
		attrs = append(attrs, slog.String("mode", string(ev.Mode)))
	}
	if c := ev.Candidate; c != nil {
		attrs = append(attrs,
			slog.String("raw_match", c.RawMatch),
			slog.Float64("value", c.Value),
			slog.String("unit", string(c.Unit)),
			slog.Int("fragment", c.SourceIndex))
	}
	if k := ev.Key; k != nil {
		attrs = append(attrs, slog.String("user_id", k.UserID), slog.String("date", k.Date.String()))
	}
	if c := ev.Coordinate; c != nil {
		attrs = append(attrs, slog.Int("row", c.Row), slog.Int("column", c.Column))
	}
	if ev.From != "" || ev.To != "" {
		attrs = append(attrs, slog.String("from", ev.From), slog.String("to", ev.To))
	}
	if ev.Reason != "" {
		attrs = append(attrs, slog.String("reason", ev.Reason))
	}
	level := slog.LevelDebug
	if ev.Err != nil {
		attrs = append(attrs, slog.String("error", ev.Err.Error()), slog.String("code", dto.ErrorCode(ev.Err)))
		level = slog.LevelWarn
	}
	o.logger.LogAttrs(ctx, level, "runlog trace", attrs...)
}
