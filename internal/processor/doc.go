// Package processor implements the single mutation gateway of the system.
//
// A Processor validates one incoming event against transient live-entity
// state (which nodes, edges, activities, and messages currently exist),
// commits it to the event log, opens and closes intervals in the index, and
// synthesizes compensating events when a node is deleted.
//
// ARCHITECTURE:
//
// Validate, then apply:
// Every precondition is checked before anything is mutated. A rejected
// event returns a *ValidationError and leaves the log, the index, and the
// live state exactly as they were.
//
// Cascading deletes:
// Deleting a node first ends each of its open activities and deletes each
// of its outgoing edges, by synthesizing ActivityEnd and EdgeDelete events
// at the NodeDelete's timestamp and processing them recursively. They are
// committed immediately before the NodeDelete. A synthesized event is
// derived from committed state and must always validate; if it does not,
// the processor panics.
//
// Single writer:
// Processor is not synchronized. Its live-entity maps are read and written
// without locking, so Process must be called by one goroutine at a time.
// Runner enforces this: it owns a Processor and drains a FIFO queue of
// submitted events from exactly one goroutine.
//
// Identifiers are compared after Unicode NFC normalization, so canonically
// equivalent spellings name the same entity.
package processor
