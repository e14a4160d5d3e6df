package harness

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/eventscope/internal/event"
	"github.com/roach88/eventscope/internal/eventlog"
	"github.com/roach88/eventscope/internal/interval"
)

// Dump renders a log and index as text, one line per committed event
// followed by one line per interval. The output is stable for golden files.
func Dump(log *eventlog.Log, index *interval.Index) string {
	var buf strings.Builder

	buf.WriteString("# log\n")
	for pos, ev := range log.All() {
		buf.WriteString(DumpEvent(pos, ev))
		buf.WriteByte('\n')
	}

	buf.WriteString("# intervals\n")
	for _, c := range interval.Categories {
		for _, iv := range index.Intervals(c) {
			buf.WriteString(iv.String())
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// DumpEvent renders one committed event.
func DumpEvent(pos event.Position, ev event.Event) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s @%d %s %s", pos, int64(ev.Time()), ev.Kind(), event.Subject(ev))

	switch e := ev.(type) {
	case *event.EdgeCreate:
		arrow := "--"
		if e.Directed {
			arrow = "->"
		}
		fmt.Fprintf(&buf, " %s%s%s", e.Tail, arrow, e.Head)
	case *event.ActivityEnd:
		fmt.Fprintf(&buf, " start=%s", e.Start)
	case *event.MsgSend:
		fmt.Fprintf(&buf, " from=%s", e.Node)
		if e.Edge != "" {
			fmt.Fprintf(&buf, " via=%s", e.Edge)
		}
		if e.Parent != "" {
			fmt.Fprintf(&buf, " parent=%s", e.Parent)
		}
	case *event.MsgRecv:
		fmt.Fprintf(&buf, " to=%s send=%s", e.Node, e.Send)
	}

	if props := event.PropsOf(ev); len(props) > 0 {
		data, err := json.Marshal(props)
		if err != nil {
			data = []byte(err.Error())
		}
		fmt.Fprintf(&buf, " %s", data)
	}

	if ev.Synthetic() {
		fmt.Fprintf(&buf, " synthetic=%q", ev.Source())
	}

	return buf.String()
}
