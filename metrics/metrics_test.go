package metrics

import (
	"context"
	"fmt"
	"testing"

	"github.com/Aashish23092/runlog-ocr/dto"
	"github.com/Aashish23092/runlog-ocr/observe"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionMetricsCountsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewSubmissionMetrics(reg)
	require.NoError(t, err)
	ctx := context.Background()

	m.Observe(ctx, observe.Event{Kind: observe.EventCandidateFound, Mode: dto.ModeUnitSuffixed})
	m.Observe(ctx, observe.Event{Kind: observe.EventCandidateFound, Mode: dto.ModeUnitSuffixed})
	m.Observe(ctx, observe.Event{Kind: observe.EventCandidateSkipped, Reason: "clock token"})
	m.Observe(ctx, observe.Event{Kind: observe.EventCoordinateResolved})
	m.Observe(ctx, observe.Event{Kind: observe.EventStateChanged, From: "RESOLVING_COORDINATE", To: "WRITE_SUCCESS"})
	m.Observe(ctx, observe.Event{Kind: observe.EventFailure, Err: fmt.Errorf("write: %w", dto.ErrUserNotFound)})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CandidatesFound.WithLabelValues("UNIT_SUFFIXED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CandidatesSkipped.WithLabelValues("clock token")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CoordinatesResolved))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StateTransitions.WithLabelValues("WRITE_SUCCESS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("USER_NOT_FOUND")))
}

func TestNewSubmissionMetricsRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewSubmissionMetrics(reg)
	require.NoError(t, err)

	_, err = NewSubmissionMetrics(reg)
	assert.Error(t, err)
}
