package event

import (
	"fmt"
	"reflect"
)

// Kind identifies one of the closed set of event kinds.
type Kind int

const (
	KindNodeCreate Kind = iota + 1
	KindNodeDelete
	KindNodeProps
	KindEdgeCreate
	KindEdgeDelete
	KindEdgeProps
	KindActivityStart
	KindActivityEnd
	KindMsgSend
	KindMsgRecv
)

var kindNames = map[Kind]string{
	KindNodeCreate:    "node_create",
	KindNodeDelete:    "node_delete",
	KindNodeProps:     "node_props",
	KindEdgeCreate:    "edge_create",
	KindEdgeDelete:    "edge_delete",
	KindEdgeProps:     "edge_props",
	KindActivityStart: "activity_start",
	KindActivityEnd:   "activity_end",
	KindMsgSend:       "msg_send",
	KindMsgRecv:       "msg_recv",
}

// Kinds lists every kind in declaration order.
var Kinds = []Kind{
	KindNodeCreate, KindNodeDelete, KindNodeProps,
	KindEdgeCreate, KindEdgeDelete, KindEdgeProps,
	KindActivityStart, KindActivityEnd,
	KindMsgSend, KindMsgRecv,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind maps a snake_case kind name back to its Kind.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// Event is a sealed interface implemented by the ten event kinds.
type Event interface {
	Kind() Kind
	Time() Timestamp
	Source() string
	Synthetic() bool
	event() // Sealed
}

// Header carries the fields common to every event.
type Header struct {
	At     Timestamp
	Origin string // free-form description of where the event came from

	// Generated is set on compensating events produced by the processor.
	Generated bool
}

func (h Header) Time() Timestamp { return h.At }
func (h Header) Source() string  { return h.Origin }
func (h Header) Synthetic() bool { return h.Generated }
func (Header) event()            {}

// NodeCreate brings node ID into existence.
type NodeCreate struct {
	Header
	ID    string
	Props Props
}

func (*NodeCreate) Kind() Kind { return KindNodeCreate }

// NodeDelete removes node ID.
type NodeDelete struct {
	Header
	ID string
}

func (*NodeDelete) Kind() Kind { return KindNodeDelete }

// NodeProps updates properties of node ID.
type NodeProps struct {
	Header
	ID    string
	Props Props
}

func (*NodeProps) Kind() Kind { return KindNodeProps }

// EdgeCreate connects Tail to Head.
type EdgeCreate struct {
	Header
	ID       string
	Tail     string
	Head     string
	Directed bool
	Props    Props
}

func (*EdgeCreate) Kind() Kind { return KindEdgeCreate }

// EdgeDelete removes edge ID.
type EdgeDelete struct {
	Header
	ID string
}

func (*EdgeDelete) Kind() Kind { return KindEdgeDelete }

// EdgeProps updates properties of edge ID.
type EdgeProps struct {
	Header
	ID    string
	Props Props
}

func (*EdgeProps) Kind() Kind { return KindEdgeProps }

// ActivityStart opens activity ID on Node. Activity ids are scoped per node.
type ActivityStart struct {
	Header
	Node  string
	ID    string
	Props Props
}

func (*ActivityStart) Kind() Kind { return KindActivityStart }

// ActivityEnd closes activity ID on Node.
type ActivityEnd struct {
	Header
	Node string
	ID   string

	// Start is the position of the matching ActivityStart, set at commit.
	Start Position
}

func (*ActivityEnd) Kind() Kind { return KindActivityEnd }

// MsgSend records Node sending message ID, optionally along Edge and
// optionally as a child of message Parent.
type MsgSend struct {
	Header
	ID     string
	Node   string
	Edge   string // empty when the message is not bound to an edge
	Parent string // empty for a top-level message
	Props  Props
}

func (*MsgSend) Kind() Kind { return KindMsgSend }

// MsgRecv records Node receiving message ID.
type MsgRecv struct {
	Header
	ID   string
	Node string

	// Send is the position of the matching MsgSend, set at commit.
	Send Position
}

func (*MsgRecv) Kind() Kind { return KindMsgRecv }

// IsNil reports whether ev is nil or a nil pointer of one of the event
// kinds. Only Kind may be called on such an event.
func IsNil(ev Event) bool {
	if ev == nil {
		return true
	}
	v := reflect.ValueOf(ev)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// Subject returns the identifier an event is primarily about: the node,
// edge, or message id, or "node/activity" for activity events.
func Subject(ev Event) string {
	if IsNil(ev) {
		return ""
	}
	switch e := ev.(type) {
	case *NodeCreate:
		return e.ID
	case *NodeDelete:
		return e.ID
	case *NodeProps:
		return e.ID
	case *EdgeCreate:
		return e.ID
	case *EdgeDelete:
		return e.ID
	case *EdgeProps:
		return e.ID
	case *ActivityStart:
		return ActivityKey(e.Node, e.ID)
	case *ActivityEnd:
		return ActivityKey(e.Node, e.ID)
	case *MsgSend:
		return e.ID
	case *MsgRecv:
		return e.ID
	}
	return ""
}

// PropsOf returns the property bag carried by ev, or nil for kinds without one.
func PropsOf(ev Event) Props {
	if IsNil(ev) {
		return nil
	}
	switch e := ev.(type) {
	case *NodeCreate:
		return e.Props
	case *NodeProps:
		return e.Props
	case *EdgeCreate:
		return e.Props
	case *EdgeProps:
		return e.Props
	case *ActivityStart:
		return e.Props
	case *MsgSend:
		return e.Props
	}
	return nil
}

// ActivityKey joins a node id and an activity id into one subject string.
func ActivityKey(node, id string) string {
	return node + "/" + id
}
