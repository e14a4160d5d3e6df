package store

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventscope/internal/event"
	"github.com/roach88/eventscope/internal/eventlog"
	"github.com/roach88/eventscope/internal/interval"
	"github.com/roach88/eventscope/internal/processor"
)

func createTestMirror(t *testing.T) *Mirror {
	t.Helper()
	m, err := Open(slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func hdr(at event.Timestamp) event.Header {
	return event.Header{At: at, Origin: "test"}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	m := createTestMirror(t)
	ctx := context.Background()

	assert.NoError(t, m.verifyPragma(ctx, "foreign_keys", "1"))
	assert.NoError(t, m.verifyPragma(ctx, "journal_mode", "memory"))
}

func TestOpen_SchemaIsEmpty(t *testing.T) {
	m := createTestMirror(t)

	n, err := m.EventCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMirror_FollowsProcessor(t *testing.T) {
	m := createTestMirror(t)
	ctx := context.Background()

	log, index := eventlog.New(), interval.NewIndex()
	p := processor.New(log, index, processor.WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, m.Attach(ctx, log, index))

	for _, ev := range []event.Event{
		&event.NodeCreate{Header: hdr(0), ID: "A", Props: event.NewProps(event.P{Key: "color", Value: event.String("#f00")})},
		&event.NodeCreate{Header: hdr(1), ID: "B"},
		&event.EdgeCreate{Header: hdr(2), ID: "e1", Tail: "A", Head: "B", Directed: true},
		&event.ActivityStart{Header: hdr(3), Node: "A", ID: "act1"},
		&event.ActivityEnd{Header: hdr(4), Node: "A", ID: "act1"},
		&event.NodeDelete{Header: hdr(5), ID: "A"},
	} {
		require.NoError(t, p.Process(ev))
	}
	require.NoError(t, m.Err())

	n, err := m.EventCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	exists, err := m.Intervals(ctx, "node_exists")
	require.NoError(t, err)
	require.Len(t, exists, 2)
	assert.Equal(t, "A", exists[0].Subject)
	assert.Equal(t, int64(0), exists[0].StartTS)
	assert.Equal(t, int64(5), exists[0].EndTS.Int64)
	assert.False(t, exists[0].Pending)
	assert.Equal(t, "B", exists[1].Subject)
	assert.True(t, exists[1].Pending)
	assert.False(t, exists[1].EndTS.Valid)

	res, err := m.Query(ctx, `
		SELECT step, idx, kind, subject, synthetic FROM events WHERE ts = 5 ORDER BY idx
	`)
	require.NoError(t, err)
	assert.Equal(t, []string{"step", "idx", "kind", "subject", "synthetic"}, res.Columns)
	assert.Equal(t, [][]string{
		{"5", "0", "edge_delete", "e1", "1"},
		{"5", "1", "node_delete", "A", "0"},
	}, res.Rows)
}

func TestMirror_AttachBackfills(t *testing.T) {
	m := createTestMirror(t)
	ctx := context.Background()

	p := processor.New(nil, nil, processor.WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, p.Process(&event.NodeCreate{Header: hdr(0), ID: "A"}))
	require.NoError(t, p.Process(&event.MsgSend{Header: hdr(1), ID: "m", Node: "A"}))

	require.NoError(t, m.Attach(ctx, p.Log(), p.Index()))
	require.NoError(t, p.Process(&event.MsgRecv{Header: hdr(2), ID: "m", Node: "A"}))

	msgs, err := m.Intervals(ctx, "message_pass")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(1), msgs[0].StartTS)
	assert.Equal(t, int64(2), msgs[0].EndTS.Int64)

	res, err := m.Query(ctx, "SELECT props FROM events WHERE kind = 'node_create'")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"{}"}}, res.Rows)
}

func TestMirror_CloseDetaches(t *testing.T) {
	m, err := Open(nil)
	require.NoError(t, err)

	log := eventlog.New()
	index := interval.NewIndex()
	require.NoError(t, m.Attach(context.Background(), log, index))
	require.NoError(t, m.Close())

	// No listener left to write into the closed database.
	_, err = log.Append(&event.NodeCreate{Header: hdr(0), ID: "A"})
	require.NoError(t, err)
	assert.NoError(t, m.Err())
}

func TestMirror_QueryErrors(t *testing.T) {
	m := createTestMirror(t)

	_, err := m.Query(context.Background(), "SELECT * FROM nope")
	assert.Error(t, err)
}

func TestFormatCell(t *testing.T) {
	assert.Equal(t, "NULL", formatCell(nil))
	assert.Equal(t, "abc", formatCell([]byte("abc")))
	assert.Equal(t, "42", formatCell(int64(42)))
	assert.Equal(t, "0.5", formatCell(0.5))
	assert.Equal(t, "true", formatCell(true))
}
