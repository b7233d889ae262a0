// Package metrics exposes Prometheus counters for running-log submissions.
package metrics

import (
	"context"
	"fmt"

	"github.com/Aashish23092/runlog-ocr/dto"
	"github.com/Aashish23092/runlog-ocr/observe"
	"github.com/prometheus/client_golang/prometheus"
)

// SubmissionMetrics counts trace events. It is an observe.Observer.
type SubmissionMetrics struct {
	CandidatesFound     *prometheus.CounterVec
	CandidatesSkipped   *prometheus.CounterVec
	CoordinatesResolved prometheus.Counter
	StateTransitions    *prometheus.CounterVec
	Failures            *prometheus.CounterVec
}

// NewSubmissionMetrics creates the counters and registers them.
func NewSubmissionMetrics(registerer prometheus.Registerer) (*SubmissionMetrics, error) {
	m := &SubmissionMetrics{
		CandidatesFound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "runlog_candidates_found_total",
			Help: "Distance candidates extracted, by extraction mode",
		}, []string{"mode"}),
		CandidatesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "runlog_candidates_skipped_total",
			Help: "Numeric matches rejected during extraction, by reason",
		}, []string{"reason"}),
		CoordinatesResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "runlog_coordinates_resolved_total",
			Help: "Sheet coordinates resolved for log entries",
		}),
		StateTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "runlog_submission_transitions_total",
			Help: "Submission state transitions, by target state",
		}, []string{"state"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "runlog_failures_total",
			Help: "Submission failures, by error code",
		}, []string{"code"}),
	}

	for _, c := range []prometheus.Collector{
		m.CandidatesFound, m.CandidatesSkipped, m.CoordinatesResolved, m.StateTransitions, m.Failures,
	} {
		if err := registerer.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register submission metrics: %w", err)
		}
	}
	return m, nil
}

func (m *SubmissionMetrics) Observe(_ context.Context, ev observe.Event) {
	switch ev.Kind {
	case observe.EventCandidateFound:
		m.CandidatesFound.WithLabelValues(string(ev.Mode)).Inc()
	case observe.EventCandidateSkipped:
		m.CandidatesSkipped.WithLabelValues(ev.Reason).Inc()
	case observe.EventCoordinateResolved:
		m.CoordinatesResolved.Inc()
	case observe.EventStateChanged:
		m.StateTransitions.WithLabelValues(ev.To).Inc()
	case observe.EventFailure:
		m.Failures.WithLabelValues(dto.ErrorCode(ev.Err)).Inc()
	}
}
