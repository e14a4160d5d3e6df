package processor

import (
	"fmt"
	"log/slog"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/eventscope/internal/event"
	"github.com/roach88/eventscope/internal/eventlog"
	"github.com/roach88/eventscope/internal/interval"
)

// Processor validates events, commits them to a Log, and maintains the
// interval Index.
//
// Processor is NOT safe for concurrent use. Wrap it in a Runner to accept
// events from multiple goroutines.
type Processor struct {
	log    *eventlog.Log
	index  *interval.Index
	logger *slog.Logger

	metrics  *Metrics
	nodeTree NodeHierarchy
	msgTree  MessageHierarchy

	// session is stamped into the source of synthesized events.
	session string

	// Live entity state, keyed by NFC-normalized id.
	nodes    map[string]*liveNode
	edges    map[string]*liveEdge
	messages map[string]*liveMessage
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = l
	}
}

// WithMetrics records commits, rejections, and live entity counts.
func WithMetrics(m *Metrics) Option {
	return func(p *Processor) {
		p.metrics = m
	}
}

// WithNodeHierarchy mirrors created nodes into h.
func WithNodeHierarchy(h NodeHierarchy) Option {
	return func(p *Processor) {
		p.nodeTree = h
	}
}

// WithMessageHierarchy mirrors sent and received messages into h.
func WithMessageHierarchy(h MessageHierarchy) Option {
	return func(p *Processor) {
		p.msgTree = h
	}
}

// New creates a Processor writing to log and index. Either may be nil, in
// which case a fresh one is created.
func New(log *eventlog.Log, index *interval.Index, opts ...Option) *Processor {
	if log == nil {
		log = eventlog.New()
	}
	if index == nil {
		index = interval.NewIndex()
	}

	p := &Processor{
		log:      log,
		index:    index,
		logger:   slog.Default(),
		nodeTree: nopNodeHierarchy{},
		msgTree:  nopMessageHierarchy{},
		nodes:    make(map[string]*liveNode),
		edges:    make(map[string]*liveEdge),
		messages: make(map[string]*liveMessage),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Log returns the event log the processor commits to.
func (p *Processor) Log() *eventlog.Log {
	return p.log
}

// Index returns the interval index the processor maintains.
func (p *Processor) Index() *interval.Index {
	return p.index
}

// Stats returns the current live entity counts.
func (p *Processor) Stats() Stats {
	s := Stats{
		Nodes:    len(p.nodes),
		Edges:    len(p.edges),
		Messages: len(p.messages),
	}
	for _, n := range p.nodes {
		s.Activities += len(n.activities)
	}
	return s
}

// NodeLive reports whether node id currently exists.
func (p *Processor) NodeLive(id string) bool {
	_, ok := p.nodes[key(id)]
	return ok
}

// EdgeLive reports whether edge id currently exists.
func (p *Processor) EdgeLive(id string) bool {
	_, ok := p.edges[key(id)]
	return ok
}

// ActivityOpen reports whether activity id is open on node.
func (p *Processor) ActivityOpen(node, id string) bool {
	n, ok := p.nodes[key(node)]
	if !ok {
		return false
	}
	_, ok = n.activities[key(id)]
	return ok
}

// MessagePending reports whether message id has been sent but not received.
func (p *Processor) MessagePending(id string) bool {
	_, ok := p.messages[key(id)]
	return ok
}

// Process validates ev and, if it is acceptable, commits it.
//
// On failure Process returns a *ValidationError and nothing is changed.
// On success ev has been appended to the log, preceded by any compensating
// events it caused.
func (p *Processor) Process(ev event.Event) error {
	if err := p.process(ev); err != nil {
		p.metrics.observeReject(CodeOf(err))
		p.logger.Warn("event rejected",
			"code", CodeOf(err),
			"id", event.Subject(ev),
			"error", err,
		)
		return err
	}
	p.metrics.observeLive(p.Stats())
	return nil
}

// process dispatches to the per-kind handler. Every handler returns a
// *ValidationError before touching any state, or nil after applying ev.
func (p *Processor) process(ev event.Event) error {
	if event.IsNil(ev) || !ev.Kind().Valid() {
		return newInvalidEventType(ev)
	}

	if !p.log.Empty() {
		if last := p.log.LastTimestamp(); ev.Time() < last {
			return newTimestampOrderError(ev, last, &eventlog.OrderError{Last: last, Got: ev.Time()})
		}
	}

	switch e := ev.(type) {
	case *event.NodeCreate:
		return p.nodeCreate(e)
	case *event.NodeDelete:
		return p.nodeDelete(e)
	case *event.NodeProps:
		return p.nodeProps(e)
	case *event.EdgeCreate:
		return p.edgeCreate(e)
	case *event.EdgeDelete:
		return p.edgeDelete(e)
	case *event.EdgeProps:
		return p.edgeProps(e)
	case *event.ActivityStart:
		return p.activityStart(e)
	case *event.ActivityEnd:
		return p.activityEnd(e)
	case *event.MsgSend:
		return p.msgSend(e)
	case *event.MsgRecv:
		return p.msgRecv(e)
	default:
		return newInvalidEventType(ev)
	}
}

// commit appends ev to the log. It is the first mutation of every handler,
// so a failed append still leaves state untouched.
func (p *Processor) commit(ev event.Event) (event.Position, error) {
	pos, err := p.log.Append(ev)
	if err != nil {
		return event.Position{}, newTimestampOrderError(ev, p.log.LastTimestamp(), err)
	}

	p.metrics.observeCommit(ev)
	p.logger.Debug("event committed",
		"kind", ev.Kind(),
		"id", event.Subject(ev),
		"ts", ev.Time(),
		"position", pos,
		"synthesized", ev.Synthetic(),
	)
	return pos, nil
}

// synthesize processes a compensating event. Compensating events are
// derived from committed state, so a rejection is an internal bug.
func (p *Processor) synthesize(ev event.Event) {
	if err := p.process(ev); err != nil {
		panic(fmt.Sprintf("processor: synthesized %s %s rejected: %v", ev.Kind(), event.Subject(ev), err))
	}
}

func (p *Processor) synthHeader(cause event.Event) event.Header {
	origin := fmt.Sprintf("synthesized by %s %s", cause.Kind(), event.Subject(cause))
	if p.session != "" {
		origin += " (session " + p.session + ")"
	}
	return event.Header{At: cause.Time(), Origin: origin, Generated: true}
}

func (p *Processor) nodeCreate(e *event.NodeCreate) error {
	id := key(e.ID)
	if _, live := p.nodes[id]; live {
		return newDuplicateError(e.Kind(), "node", e.ID)
	}
	if err := e.Props.Validate(); err != nil {
		return newPropertyError(e.Kind(), e.ID, err)
	}

	pos, err := p.commit(e)
	if err != nil {
		return err
	}

	n := newLiveNode(e.ID)
	n.exists = p.index.Open(interval.NodeExists, id, pos, e.At)
	if e.Props.Has(event.PropColor) {
		n.color = p.index.Open(interval.NodeColor, id, pos, e.At)
	}
	p.nodes[id] = n

	if _, ok := p.nodeTree.IterForID(e.ID); !ok {
		var parent Handle
		if name, ok := e.Props.Str("parent"); ok {
			parent, _ = p.nodeTree.IterForID(name)
		}
		hidden, _ := e.Props.Flag("hidden")
		p.nodeTree.InsertChild(parent, e.ID, e.Props, hidden)
	}
	return nil
}

func (p *Processor) nodeDelete(e *event.NodeDelete) error {
	id := key(e.ID)
	n, live := p.nodes[id]
	if !live {
		return newUnknownError(e.Kind(), "node", e.ID)
	}

	activities := n.openActivities()
	edges := n.outgoingEdges()

	for _, act := range activities {
		p.synthesize(&event.ActivityEnd{
			Header: p.synthHeader(e),
			Node:   n.id,
			ID:     act.id,
		})
	}
	for _, edge := range edges {
		p.synthesize(&event.EdgeDelete{
			Header: p.synthHeader(e),
			ID:     edge.create.ID,
		})
	}

	pos, err := p.commit(e)
	if err != nil {
		if len(activities)+len(edges) > 0 {
			panic(fmt.Sprintf("processor: node_delete %s rejected after cascade: %v", e.ID, err))
		}
		return err
	}

	if n.color != nil {
		p.index.Close(n.color, pos, e.At)
	}
	p.index.Close(n.exists, pos, e.At)
	delete(p.nodes, id)

	if len(activities)+len(edges) > 0 {
		p.logger.Info("node deleted with cascade",
			"node", e.ID,
			"activities_ended", len(activities),
			"edges_deleted", len(edges),
			"session", p.session,
		)
	}
	return nil
}

func (p *Processor) nodeProps(e *event.NodeProps) error {
	n, live := p.nodes[key(e.ID)]
	if !live {
		return newUnknownError(e.Kind(), "node", e.ID)
	}
	if err := e.Props.Validate(); err != nil {
		return newPropertyError(e.Kind(), e.ID, err)
	}

	pos, err := p.commit(e)
	if err != nil {
		return err
	}

	if e.Props.Has(event.PropColor) {
		if n.color != nil {
			p.index.Close(n.color, pos, e.At)
		}
		n.color = p.index.Open(interval.NodeColor, key(e.ID), pos, e.At)
	}
	return nil
}

func (p *Processor) edgeCreate(e *event.EdgeCreate) error {
	id := key(e.ID)
	if _, live := p.edges[id]; live {
		return newDuplicateError(e.Kind(), "edge", e.ID)
	}
	tail, live := p.nodes[key(e.Tail)]
	if !live {
		return newUnknownError(e.Kind(), "node", e.Tail)
	}
	if err := e.Props.Validate(); err != nil {
		return newPropertyError(e.Kind(), e.ID, err)
	}

	pos, err := p.commit(e)
	if err != nil {
		return err
	}

	edge := &liveEdge{create: e, pos: pos, tail: key(e.Tail)}
	p.edges[id] = edge
	tail.edges[id] = edge
	return nil
}

func (p *Processor) edgeDelete(e *event.EdgeDelete) error {
	id := key(e.ID)
	edge, live := p.edges[id]
	if !live {
		return newUnknownError(e.Kind(), "edge", e.ID)
	}

	if _, err := p.commit(e); err != nil {
		return err
	}

	if tail, ok := p.nodes[edge.tail]; ok {
		delete(tail.edges, id)
	}
	delete(p.edges, id)
	return nil
}

func (p *Processor) edgeProps(e *event.EdgeProps) error {
	if _, live := p.edges[key(e.ID)]; !live {
		return newUnknownError(e.Kind(), "edge", e.ID)
	}
	if err := e.Props.Validate(); err != nil {
		return newPropertyError(e.Kind(), e.ID, err)
	}

	_, err := p.commit(e)
	return err
}

func (p *Processor) activityStart(e *event.ActivityStart) error {
	n, live := p.nodes[key(e.Node)]
	if !live {
		return newUnknownError(e.Kind(), "node", e.Node)
	}
	id := key(e.ID)
	if _, open := n.activities[id]; open {
		return newDuplicateError(e.Kind(), "activity", event.ActivityKey(e.Node, e.ID))
	}
	if err := e.Props.Validate(); err != nil {
		return newPropertyError(e.Kind(), event.ActivityKey(e.Node, e.ID), err)
	}

	pos, err := p.commit(e)
	if err != nil {
		return err
	}

	n.activities[id] = &liveActivity{
		id:       e.ID,
		interval: p.index.Open(interval.NodeActivity, event.ActivityKey(key(e.Node), id), pos, e.At),
	}
	return nil
}

func (p *Processor) activityEnd(e *event.ActivityEnd) error {
	n, live := p.nodes[key(e.Node)]
	if !live {
		return newUnknownError(e.Kind(), "node", e.Node)
	}
	id := key(e.ID)
	act, open := n.activities[id]
	if !open {
		return newUnknownError(e.Kind(), "activity", event.ActivityKey(e.Node, e.ID))
	}

	// The back-reference must be in place before the event is visible in
	// the log; committed events are never written again.
	prev := e.Start
	e.Start, _ = act.interval.Start()
	pos, err := p.commit(e)
	if err != nil {
		e.Start = prev
		return err
	}

	p.index.Close(act.interval, pos, e.At)
	delete(n.activities, id)
	return nil
}

func (p *Processor) msgSend(e *event.MsgSend) error {
	id := key(e.ID)
	if _, pending := p.messages[id]; pending {
		return newDuplicateError(e.Kind(), "message", e.ID)
	}
	if _, live := p.nodes[key(e.Node)]; !live {
		return newUnknownError(e.Kind(), "node", e.Node)
	}
	if e.Edge != "" {
		if _, live := p.edges[key(e.Edge)]; !live {
			return newUnknownError(e.Kind(), "edge", e.Edge)
		}
	}
	if err := e.Props.Validate(); err != nil {
		return newPropertyError(e.Kind(), e.ID, err)
	}

	pos, err := p.commit(e)
	if err != nil {
		return err
	}

	var parent Handle
	if e.Parent != "" {
		parent, _ = p.msgTree.IterForName(e.Parent)
	}
	h := p.msgTree.AppendChild(parent, e.ID)
	p.msgTree.SetSendEvent(h, pos)

	p.messages[id] = &liveMessage{
		interval: p.index.Open(interval.MessagePass, id, pos, e.At),
		handle:   h,
	}
	return nil
}

func (p *Processor) msgRecv(e *event.MsgRecv) error {
	id := key(e.ID)
	msg, pending := p.messages[id]
	if !pending {
		return newUnknownError(e.Kind(), "message", e.ID)
	}
	if _, live := p.nodes[key(e.Node)]; !live {
		return newUnknownError(e.Kind(), "node", e.Node)
	}

	prev := e.Send
	e.Send, _ = msg.interval.Start()
	pos, err := p.commit(e)
	if err != nil {
		e.Send = prev
		return err
	}

	p.index.Close(msg.interval, pos, e.At)
	p.msgTree.SetRecvEvent(msg.handle, pos)
	delete(p.messages, id)
	return nil
}

// key normalizes an entity id for live-state lookup.
func key(id string) string {
	return norm.NFC.String(id)
}
