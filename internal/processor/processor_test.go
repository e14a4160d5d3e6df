package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventscope/internal/event"
	"github.com/roach88/eventscope/internal/interval"
)

func TestProcessor_DeleteNodeScenario(t *testing.T) {
	p := newTestProcessor()

	mustProcess(t, p,
		&event.NodeCreate{Header: hdr(0), ID: "A", Props: color("#f00")},
		&event.NodeCreate{Header: hdr(1), ID: "B"},
		&event.EdgeCreate{Header: hdr(2), ID: "e1", Tail: "A", Head: "B", Directed: true},
		&event.ActivityStart{Header: hdr(3), Node: "A", ID: "act1"},
		&event.ActivityEnd{Header: hdr(4), Node: "A", ID: "act1"},
		&event.NodeDelete{Header: hdr(5), ID: "A"},
	)

	assert.Equal(t, 7, p.Log().Len())
	assert.Equal(t, []event.Kind{
		event.KindNodeCreate,
		event.KindNodeCreate,
		event.KindEdgeCreate,
		event.KindActivityStart,
		event.KindActivityEnd,
		event.KindEdgeDelete,
		event.KindNodeDelete,
	}, loggedKinds(p))

	// The synthesized EdgeDelete shares the NodeDelete's step, ahead of it.
	synth, ok := p.Log().Event(event.EventAt(5, 0))
	require.True(t, ok)
	assert.Equal(t, event.KindEdgeDelete, synth.Kind())
	assert.Equal(t, "e1", event.Subject(synth))
	assert.True(t, synth.Synthetic())
	assert.Equal(t, event.Timestamp(5), synth.Time())

	del, ok := p.Log().Event(event.EventAt(5, 1))
	require.True(t, ok)
	assert.Equal(t, event.KindNodeDelete, del.Kind())
	assert.False(t, del.Synthetic())

	assert.Equal(t, [2]event.Timestamp{0, 5}, span(only(t, p, interval.NodeExists, "A")))
	assert.Equal(t, [2]event.Timestamp{3, 4}, span(only(t, p, interval.NodeActivity, "A/act1")))
	assert.Equal(t, [2]event.Timestamp{0, 5}, span(only(t, p, interval.NodeColor, "A")))
	assert.True(t, only(t, p, interval.NodeExists, "B").Pending())

	assert.False(t, p.NodeLive("A"))
	assert.False(t, p.EdgeLive("e1"))
	assert.Equal(t, Stats{Nodes: 1}, p.Stats())
}

func TestProcessor_CascadeEndsActivitiesBeforeEdges(t *testing.T) {
	p := newTestProcessor()

	mustProcess(t, p,
		&event.NodeCreate{Header: hdr(0), ID: "A"},
		&event.NodeCreate{Header: hdr(0), ID: "B"},
		&event.EdgeCreate{Header: hdr(1), ID: "e2", Tail: "A", Head: "B"},
		&event.EdgeCreate{Header: hdr(1), ID: "e1", Tail: "A", Head: "B"},
		&event.EdgeCreate{Header: hdr(1), ID: "in", Tail: "B", Head: "A"},
		&event.ActivityStart{Header: hdr(2), Node: "A", ID: "y"},
		&event.ActivityStart{Header: hdr(2), Node: "A", ID: "x"},
		&event.NodeDelete{Header: hdr(9), ID: "A"},
	)

	var tail []string
	for pos, ev := range p.Log().All() {
		if pos.Step() == 3 {
			assert.Equal(t, event.Timestamp(9), ev.Time())
			tail = append(tail, ev.Kind().String()+":"+event.Subject(ev))
		}
	}

	// Commit order within each group; incoming edges are left alone.
	assert.Equal(t, []string{
		"activity_end:A/y",
		"activity_end:A/x",
		"edge_delete:e2",
		"edge_delete:e1",
		"node_delete:A",
	}, tail)
	assert.True(t, p.EdgeLive("in"))
}

func TestProcessor_SynthesizedSourceNamesCause(t *testing.T) {
	p := newTestProcessor()
	p.session = "s-1"

	mustProcess(t, p,
		&event.NodeCreate{Header: hdr(0), ID: "A"},
		&event.ActivityStart{Header: hdr(1), Node: "A", ID: "x"},
		&event.NodeDelete{Header: hdr(2), ID: "A"},
	)

	ev, ok := p.Log().Event(event.EventAt(2, 0))
	require.True(t, ok)
	assert.Equal(t, "synthesized by node_delete A (session s-1)", ev.Source())
}

func TestProcessor_Rejections(t *testing.T) {
	setup := []event.Event{
		&event.NodeCreate{Header: hdr(10), ID: "A"},
		&event.NodeCreate{Header: hdr(10), ID: "B"},
		&event.EdgeCreate{Header: hdr(10), ID: "e", Tail: "A", Head: "B"},
		&event.ActivityStart{Header: hdr(10), Node: "A", ID: "act"},
		&event.MsgSend{Header: hdr(10), ID: "m", Node: "A"},
	}
	bad := event.NewProps(event.P{Key: event.PropLevel, Value: event.Float(2)})

	tests := []struct {
		name string
		ev   event.Event
		code ErrorCode
	}{
		{"nil event", nil, ErrCodeInvalidEventType},
		{"nil node create", (*event.NodeCreate)(nil), ErrCodeInvalidEventType},
		{"nil msg recv", (*event.MsgRecv)(nil), ErrCodeInvalidEventType},
		{"out of order", &event.NodeCreate{Header: hdr(9), ID: "C"}, ErrCodeTimestampOrder},
		{"node twice", &event.NodeCreate{Header: hdr(11), ID: "A"}, ErrCodeDuplicateID},
		{"node bad props", &event.NodeCreate{Header: hdr(11), ID: "C", Props: bad}, ErrCodeInvalidProperty},
		{"delete unknown node", &event.NodeDelete{Header: hdr(11), ID: "Z"}, ErrCodeUnknownID},
		{"props unknown node", &event.NodeProps{Header: hdr(11), ID: "Z"}, ErrCodeUnknownID},
		{"props invalid", &event.NodeProps{Header: hdr(11), ID: "A", Props: bad}, ErrCodeInvalidProperty},
		{"edge twice", &event.EdgeCreate{Header: hdr(11), ID: "e", Tail: "A", Head: "B"}, ErrCodeDuplicateID},
		{"edge unknown tail", &event.EdgeCreate{Header: hdr(11), ID: "f", Tail: "Z", Head: "B"}, ErrCodeUnknownID},
		{"edge bad props", &event.EdgeCreate{Header: hdr(11), ID: "f", Tail: "A", Head: "B", Props: bad}, ErrCodeInvalidProperty},
		{"delete unknown edge", &event.EdgeDelete{Header: hdr(11), ID: "f"}, ErrCodeUnknownID},
		{"props unknown edge", &event.EdgeProps{Header: hdr(11), ID: "f"}, ErrCodeUnknownID},
		{"edge props invalid", &event.EdgeProps{Header: hdr(11), ID: "e", Props: bad}, ErrCodeInvalidProperty},
		{"activity unknown node", &event.ActivityStart{Header: hdr(11), Node: "Z", ID: "act"}, ErrCodeUnknownID},
		{"activity twice", &event.ActivityStart{Header: hdr(11), Node: "A", ID: "act"}, ErrCodeDuplicateID},
		{"activity bad props", &event.ActivityStart{Header: hdr(11), Node: "A", ID: "x", Props: bad}, ErrCodeInvalidProperty},
		{"end unknown node", &event.ActivityEnd{Header: hdr(11), Node: "Z", ID: "act"}, ErrCodeUnknownID},
		{"end not open", &event.ActivityEnd{Header: hdr(11), Node: "B", ID: "act"}, ErrCodeUnknownID},
		{"send twice", &event.MsgSend{Header: hdr(11), ID: "m", Node: "A"}, ErrCodeDuplicateID},
		{"send unknown node", &event.MsgSend{Header: hdr(11), ID: "n", Node: "Z"}, ErrCodeUnknownID},
		{"send unknown edge", &event.MsgSend{Header: hdr(11), ID: "n", Node: "A", Edge: "f"}, ErrCodeUnknownID},
		{"send bad props", &event.MsgSend{Header: hdr(11), ID: "n", Node: "A", Props: bad}, ErrCodeInvalidProperty},
		{"recv not pending", &event.MsgRecv{Header: hdr(11), ID: "n", Node: "B"}, ErrCodeUnknownID},
		{"recv unknown node", &event.MsgRecv{Header: hdr(11), ID: "m", Node: "Z"}, ErrCodeUnknownID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProcessor()
			mustProcess(t, p, setup...)
			before := snapshot(p)

			err := p.Process(tt.ev)
			require.Error(t, err)
			assert.Equal(t, tt.code, CodeOf(err), err.Error())
			assert.Equal(t, before, snapshot(p), "rejected event must not change state")
		})
	}
}

func TestProcessor_InvalidPropertyCarriesKey(t *testing.T) {
	p := newTestProcessor()

	err := p.Process(&event.NodeCreate{Header: hdr(0), ID: "A", Props: event.NewProps(
		event.P{Key: event.PropLabel, Value: event.String("<b>unclosed")},
	)})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, event.PropLabel, ve.Key)
	assert.NotEmpty(t, ve.Reason)
	assert.True(t, IsInvalidProperty(err))
}

func TestProcessor_TimestampViolationWrapsLogError(t *testing.T) {
	p := newTestProcessor()
	mustProcess(t, p, &event.NodeCreate{Header: hdr(5), ID: "A"})

	err := p.Process(&event.NodeDelete{Header: hdr(4), ID: "A"})
	require.True(t, IsTimestampOrder(err))
	assert.Contains(t, err.Error(), "precedes last committed 5")
	assert.True(t, p.NodeLive("A"))
}

func TestProcessor_EqualTimestampsAccepted(t *testing.T) {
	p := newTestProcessor()

	mustProcess(t, p,
		&event.NodeCreate{Header: hdr(3), ID: "A"},
		&event.NodeCreate{Header: hdr(3), ID: "B"},
		&event.NodeDelete{Header: hdr(3), ID: "A"},
	)
	assert.Equal(t, 1, p.Log().StepCount())
	assert.Equal(t, 3, p.Log().Len())
}

func TestProcessor_BackReferences(t *testing.T) {
	p := newTestProcessor()

	end := &event.ActivityEnd{Header: hdr(3), Node: "A", ID: "x"}
	recv := &event.MsgRecv{Header: hdr(4), ID: "m", Node: "B"}

	mustProcess(t, p,
		&event.NodeCreate{Header: hdr(0), ID: "A"},
		&event.NodeCreate{Header: hdr(0), ID: "B"},
		&event.ActivityStart{Header: hdr(1), Node: "A", ID: "x"},
		&event.MsgSend{Header: hdr(2), ID: "m", Node: "A"},
		end,
		recv,
	)

	assert.Equal(t, event.EventAt(1, 0), end.Start)
	assert.Equal(t, event.EventAt(2, 0), recv.Send)

	start, ok := p.Log().Event(end.Start)
	require.True(t, ok)
	assert.Equal(t, event.KindActivityStart, start.Kind())

	send, ok := p.Log().Event(recv.Send)
	require.True(t, ok)
	assert.Equal(t, event.KindMsgSend, send.Kind())

	assert.Equal(t, [2]event.Timestamp{2, 4}, span(only(t, p, interval.MessagePass, "m")))
}

func TestProcessor_RejectedEndKeepsBackReferenceUnset(t *testing.T) {
	p := newTestProcessor()
	mustProcess(t, p, &event.NodeCreate{Header: hdr(5), ID: "A"})

	end := &event.ActivityEnd{Header: hdr(6), Node: "A", ID: "x"}
	require.True(t, IsUnknownID(p.Process(end)))
	assert.False(t, end.Start.IsValid())
}

func TestProcessor_ColorIntervalsAreContiguous(t *testing.T) {
	p := newTestProcessor()

	mustProcess(t, p,
		&event.NodeCreate{Header: hdr(0), ID: "A"},
		&event.NodeProps{Header: hdr(1), ID: "A", Props: event.NewProps(event.P{Key: "weight", Value: event.Int(3)})},
		&event.NodeProps{Header: hdr(2), ID: "A", Props: color("red")},
		&event.NodeProps{Header: hdr(4), ID: "A", Props: color("#00ff00")},
		&event.NodeProps{Header: hdr(7), ID: "A", Props: color("blue")},
		&event.NodeDelete{Header: hdr(9), ID: "A"},
	)

	colors := p.Index().Intervals(interval.NodeColor)
	require.Len(t, colors, 3)
	assert.Equal(t, [2]event.Timestamp{2, 4}, span(colors[0]))
	assert.Equal(t, [2]event.Timestamp{4, 7}, span(colors[1]))
	assert.Equal(t, [2]event.Timestamp{7, 9}, span(colors[2]))
	for i := 1; i < len(colors); i++ {
		prevEnd, _ := colors[i-1].End()
		start, _ := colors[i].Start()
		assert.Equal(t, prevEnd, start, "color %d must start where %d ended", i, i-1)
	}
}

func TestProcessor_IDsCompareAfterNormalization(t *testing.T) {
	p := newTestProcessor()

	composed := "caf\u00e9"
	decomposed := "cafe\u0301"

	mustProcess(t, p, &event.NodeCreate{Header: hdr(0), ID: composed})

	err := p.Process(&event.NodeCreate{Header: hdr(1), ID: decomposed})
	assert.True(t, IsDuplicateID(err))
	assert.True(t, p.NodeLive(decomposed))

	mustProcess(t, p, &event.NodeDelete{Header: hdr(2), ID: decomposed})
	assert.False(t, p.NodeLive(composed))
}

func TestProcessor_IDsReusableAfterLifetime(t *testing.T) {
	p := newTestProcessor()

	mustProcess(t, p,
		&event.NodeCreate{Header: hdr(0), ID: "A"},
		&event.NodeDelete{Header: hdr(1), ID: "A"},
		&event.NodeCreate{Header: hdr(2), ID: "A"},
		&event.MsgSend{Header: hdr(3), ID: "m", Node: "A"},
		&event.MsgRecv{Header: hdr(4), ID: "m", Node: "A"},
		&event.MsgSend{Header: hdr(5), ID: "m", Node: "A"},
	)

	assert.Len(t, p.Index().Intervals(interval.NodeExists), 2)
	assert.Len(t, p.Index().Intervals(interval.MessagePass), 2)
	assert.True(t, p.MessagePending("m"))
}

func TestProcessor_EdgeDeleteAfterHeadDeleted(t *testing.T) {
	p := newTestProcessor()

	mustProcess(t, p,
		&event.NodeCreate{Header: hdr(0), ID: "A"},
		&event.NodeCreate{Header: hdr(0), ID: "B"},
		&event.EdgeCreate{Header: hdr(1), ID: "e", Tail: "A", Head: "B"},
		&event.NodeDelete{Header: hdr(2), ID: "B"},
		&event.EdgeProps{Header: hdr(3), ID: "e"},
		&event.EdgeDelete{Header: hdr(4), ID: "e"},
	)

	assert.False(t, p.EdgeLive("e"))
	assert.Equal(t, 6, p.Log().Len())
}

func TestProcessor_NodeHierarchy(t *testing.T) {
	nodes := &recordingNodes{}
	p := newTestProcessor(WithNodeHierarchy(nodes))

	mustProcess(t, p,
		&event.NodeCreate{Header: hdr(0), ID: "root"},
		&event.NodeCreate{Header: hdr(1), ID: "leaf", Props: event.NewProps(
			event.P{Key: "parent", Value: event.String("root")},
			event.P{Key: "hidden", Value: event.Bool(true)},
		)},
		&event.NodeDelete{Header: hdr(2), ID: "leaf"},
		// Already present in the hierarchy: not inserted again.
		&event.NodeCreate{Header: hdr(3), ID: "leaf"},
	)

	require.Len(t, nodes.rows, 2)
	assert.Equal(t, []Handle{nil, 0}, nodes.parents)
	assert.Equal(t, []bool{false, true}, nodes.hidden)
}

func TestProcessor_MessageHierarchy(t *testing.T) {
	msgs := &recordingMessages{}
	p := newTestProcessor(WithMessageHierarchy(msgs))

	mustProcess(t, p,
		&event.NodeCreate{Header: hdr(0), ID: "A"},
		&event.MsgSend{Header: hdr(1), ID: "req", Node: "A"},
		&event.MsgSend{Header: hdr(2), ID: "sub", Node: "A", Parent: "req"},
		&event.MsgRecv{Header: hdr(3), ID: "sub", Node: "A"},
	)

	require.Len(t, msgs.rows, 2)
	assert.Nil(t, msgs.rows[0].parent)
	assert.Equal(t, 0, msgs.rows[1].parent)
	assert.Equal(t, event.EventAt(2, 0), msgs.rows[1].send)
	assert.Equal(t, event.EventAt(3, 0), msgs.rows[1].recv)
	assert.False(t, msgs.rows[0].recv.IsValid())
}

// state is a comparable snapshot of everything Process may change.
type state struct {
	Log       []string
	Intervals []string
	Stats     Stats
}

func snapshot(p *Processor) state {
	var s state
	for pos, ev := range p.Log().All() {
		s.Log = append(s.Log, pos.String()+" "+ev.Kind().String()+" "+event.Subject(ev))
	}
	for c := interval.Category(0); c.Valid(); c++ {
		for _, iv := range p.Index().Intervals(c) {
			s.Intervals = append(s.Intervals, iv.String())
		}
	}
	s.Stats = p.Stats()
	return s
}
