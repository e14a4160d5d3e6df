package processor

import "github.com/roach88/eventscope/internal/event"

// Handle is an opaque row reference owned by a hierarchy collaborator.
// A nil Handle stands for the hierarchy root.
type Handle any

// NodeHierarchy mirrors nodes into a display tree. The processor calls
// InsertChild once per NodeCreate whose id is not already present.
type NodeHierarchy interface {
	IterForID(id string) (Handle, bool)
	InsertChild(parent Handle, id string, props event.Props, hidden bool) Handle
}

// MessageHierarchy mirrors messages into a display tree.
type MessageHierarchy interface {
	IterForName(name string) (Handle, bool)
	AppendChild(parent Handle, name string) Handle
	SetSendEvent(h Handle, pos event.Position)
	SetRecvEvent(h Handle, pos event.Position)
}

type nopNodeHierarchy struct{}

func (nopNodeHierarchy) IterForID(string) (Handle, bool) { return nil, false }

func (nopNodeHierarchy) InsertChild(Handle, string, event.Props, bool) Handle { return nil }

type nopMessageHierarchy struct{}

func (nopMessageHierarchy) IterForName(string) (Handle, bool) { return nil, false }

func (nopMessageHierarchy) AppendChild(Handle, string) Handle { return nil }

func (nopMessageHierarchy) SetSendEvent(Handle, event.Position) {}

func (nopMessageHierarchy) SetRecvEvent(Handle, event.Position) {}
