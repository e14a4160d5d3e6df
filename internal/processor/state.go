package processor

import (
	"slices"

	"github.com/roach88/eventscope/internal/event"
	"github.com/roach88/eventscope/internal/interval"
)

// liveNode is the transient state of a node between NodeCreate and NodeDelete.
type liveNode struct {
	id         string // as spelled in the NodeCreate
	exists     *interval.Interval
	color      *interval.Interval // nil until a color is set
	activities map[string]*liveActivity
	edges      map[string]*liveEdge // outgoing, keyed by normalized edge id
}

type liveActivity struct {
	id       string // as spelled in the ActivityStart
	interval *interval.Interval
}

type liveEdge struct {
	create *event.EdgeCreate
	pos    event.Position
	tail   string // normalized tail node id
}

type liveMessage struct {
	interval *interval.Interval
	handle   Handle
}

func newLiveNode(id string) *liveNode {
	return &liveNode{
		id:         id,
		activities: make(map[string]*liveActivity),
		edges:      make(map[string]*liveEdge),
	}
}

// openActivities returns the node's open activities in start order.
func (n *liveNode) openActivities() []*liveActivity {
	out := make([]*liveActivity, 0, len(n.activities))
	for _, a := range n.activities {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b *liveActivity) int {
		pa, _ := a.interval.Start()
		pb, _ := b.interval.Start()
		return pa.Compare(pb)
	})
	return out
}

// outgoingEdges returns the node's outgoing edges in creation order.
func (n *liveNode) outgoingEdges() []*liveEdge {
	out := make([]*liveEdge, 0, len(n.edges))
	for _, e := range n.edges {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b *liveEdge) int {
		return a.pos.Compare(b.pos)
	})
	return out
}

// Stats counts live entities.
type Stats struct {
	Nodes      int
	Edges      int
	Activities int
	Messages   int
}
