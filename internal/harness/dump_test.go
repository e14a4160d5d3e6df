package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/eventscope/internal/event"
	"github.com/roach88/eventscope/internal/eventlog"
	"github.com/roach88/eventscope/internal/interval"
)

func TestDumpEvent(t *testing.T) {
	h := func(at event.Timestamp) event.Header { return event.Header{At: at, Origin: "t"} }
	pos := event.Position{}

	tests := []struct {
		name string
		ev   event.Event
		want string
	}{
		{
			name: "undirected edge",
			ev:   &event.EdgeCreate{Header: h(2), ID: "e", Tail: "A", Head: "B"},
			want: "none @2 edge_create e A--B",
		},
		{
			name: "message send",
			ev:   &event.MsgSend{Header: h(3), ID: "m", Node: "A", Edge: "e", Parent: "p"},
			want: "none @3 msg_send m from=A via=e parent=p",
		},
		{
			name: "message send without edge",
			ev:   &event.MsgSend{Header: h(3), ID: "m", Node: "A"},
			want: "none @3 msg_send m from=A",
		},
		{
			name: "props",
			ev:   &event.NodeProps{Header: h(4), ID: "A", Props: event.Props{"level": event.Float(0.5), "busy": event.Bool(true)}},
			want: `none @4 node_props A {"busy":true,"level":0.5}`,
		},
		{
			name: "synthetic",
			ev:   &event.EdgeDelete{Header: event.Header{At: 5, Origin: "synthesized by x", Generated: true}, ID: "e"},
			want: `none @5 edge_delete e synthetic="synthesized by x"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DumpEvent(pos, tt.ev))
		})
	}
}

func TestDump_Empty(t *testing.T) {
	assert.Equal(t, "# log\n# intervals\n", Dump(eventlog.New(), interval.NewIndex()))
}
