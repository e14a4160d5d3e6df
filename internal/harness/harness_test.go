package harness

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventscope/internal/processor"
)

func TestRun_Scenarios(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		s, err := LoadScenario(file)
		require.NoError(t, err, file)

		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "failures:\n%v", result.Errors)
		})
	}
}

func TestRun_RecordsRejections(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/rejections.yaml")
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Accepted)
	require.Len(t, result.Rejections, 6)

	rej, ok := result.Rejected(6)
	require.True(t, ok)
	assert.Equal(t, "teleport", rej.Kind)
	assert.Equal(t, processor.ErrCodeInvalidEventType, rej.Code)

	_, ok = result.Rejected(0)
	assert.False(t, ok)
}

func TestRun_FailingExpectation(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong
events:
  - {kind: node_create, ts: 0, id: A}
expect:
  - {type: log_length, count: 2}
  - {type: rejected, index: 0}
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "expect[0]")
	assert.Contains(t, result.Errors[0], "Expected: 2 events")
	assert.Contains(t, result.Errors[1], "expect[1]")
}

func TestRun_SessionTagsSynthesizedEvents(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: session
session: abc
events:
  - {kind: node_create, ts: 0, id: A}
  - {kind: edge_create, ts: 1, id: loop, tail: A, head: A}
  - {kind: node_delete, ts: 2, id: A}
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)

	var synthesized []string
	for _, ev := range result.Processor.Log().All() {
		if ev.Synthetic() {
			synthesized = append(synthesized, ev.Source())
		}
	}
	assert.Equal(t, []string{"synthesized by node_delete A (session abc)"}, synthesized)
}

func TestRun_WithMetrics(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/rejections.yaml")
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	result, err := Run(s, WithMetrics(processor.NewMetrics(reg)))
	require.NoError(t, err)
	require.True(t, result.Pass, "%v", result.Errors)

	// Unknown kinds are rejected before they reach the processor.
	expected := `
# HELP eventscope_events_rejected_total Events rejected by validation, by error code
# TYPE eventscope_events_rejected_total counter
eventscope_events_rejected_total{code="DUPLICATE_ID"} 1
eventscope_events_rejected_total{code="INVALID_PROPERTY"} 1
eventscope_events_rejected_total{code="TIMESTAMP_ORDER_VIOLATION"} 1
eventscope_events_rejected_total{code="UNKNOWN_ID"} 2
`
	assert.NoError(t, promtest.GatherAndCompare(reg, strings.NewReader(expected), "eventscope_events_rejected_total"))
}

func TestFeed_StoppedRunner(t *testing.T) {
	s, err := ParseScenario([]byte("name: stopped\nevents:\n  - {kind: node_create, ts: 0, id: A}\n"))
	require.NoError(t, err)

	r := NewRunner(s)
	r.Stop()

	_, err = Feed(context.Background(), r, s.Inputs())
	require.Error(t, err)
	assert.ErrorIs(t, err, processor.ErrRunnerStopped)
	assert.Contains(t, err.Error(), "event 0")
}

func TestFeedStrict_StopsAtFirstRejection(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/rejections.yaml")
	require.NoError(t, err)

	r := NewRunner(s)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	result, err := FeedStrict(ctx, r, s.Inputs())
	r.Stop()
	require.NoError(t, err)
	require.NoError(t, <-done)

	assert.Equal(t, 1, result.Accepted)
	require.Len(t, result.Rejections, 1)
	assert.Equal(t, 1, result.Rejections[0].Index)
	assert.Equal(t, processor.ErrCodeDuplicateID, result.Rejections[0].Code)
	assert.Equal(t, 1, result.Processor.Log().Len())
}
