package processor

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/eventscope/internal/event"
	"github.com/roach88/eventscope/internal/interval"
)

func hdr(at event.Timestamp) event.Header {
	return event.Header{At: at, Origin: "test"}
}

func color(c string) event.Props {
	return event.NewProps(event.P{Key: event.PropColor, Value: event.String(c)})
}

func newTestProcessor(opts ...Option) *Processor {
	opts = append([]Option{WithLogger(slog.New(slog.DiscardHandler))}, opts...)
	return New(nil, nil, opts...)
}

func mustProcess(t *testing.T, p *Processor, evs ...event.Event) {
	t.Helper()
	for _, ev := range evs {
		require.NoError(t, p.Process(ev), "%s %s", ev.Kind(), event.Subject(ev))
	}
}

func loggedKinds(p *Processor) []event.Kind {
	var out []event.Kind
	for _, ev := range p.Log().All() {
		out = append(out, ev.Kind())
	}
	return out
}

// only returns the single interval of category about subject.
func only(t *testing.T, p *Processor, c interval.Category, subject string) *interval.Interval {
	t.Helper()
	var found []*interval.Interval
	for _, iv := range p.Index().Intervals(c) {
		if iv.Subject() == subject {
			found = append(found, iv)
		}
	}
	require.Len(t, found, 1, "%s intervals for %q", c, subject)
	return found[0]
}

func span(iv *interval.Interval) [2]event.Timestamp {
	return [2]event.Timestamp{iv.StartTime(), iv.EndTime()}
}

// recordingNodes is a NodeHierarchy that records every insert.
type recordingNodes struct {
	rows    map[string]int
	parents []Handle
	hidden  []bool
}

func (r *recordingNodes) IterForID(id string) (Handle, bool) {
	h, ok := r.rows[id]
	return h, ok
}

func (r *recordingNodes) InsertChild(parent Handle, id string, _ event.Props, hidden bool) Handle {
	if r.rows == nil {
		r.rows = make(map[string]int)
	}
	h := len(r.rows)
	r.rows[id] = h
	r.parents = append(r.parents, parent)
	r.hidden = append(r.hidden, hidden)
	return h
}

type msgRow struct {
	name   string
	parent Handle
	send   event.Position
	recv   event.Position
}

// recordingMessages is a MessageHierarchy backed by a slice of rows.
type recordingMessages struct {
	rows []*msgRow
}

func (r *recordingMessages) IterForName(name string) (Handle, bool) {
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].name == name {
			return i, true
		}
	}
	return nil, false
}

func (r *recordingMessages) AppendChild(parent Handle, name string) Handle {
	r.rows = append(r.rows, &msgRow{name: name, parent: parent})
	return len(r.rows) - 1
}

func (r *recordingMessages) SetSendEvent(h Handle, pos event.Position) {
	r.rows[h.(int)].send = pos
}

func (r *recordingMessages) SetRecvEvent(h Handle, pos event.Position) {
	r.rows[h.(int)].recv = pos
}
