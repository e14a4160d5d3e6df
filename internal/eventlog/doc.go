// Package eventlog implements the permanent, time-ordered event log.
//
// The log is an append-only sequence of Steps, each Step grouping the events
// that share one identical timestamp. Every committed event is addressed by a
// stable Position (step index, event index). Because nothing is ever moved or
// removed, a Position stays valid for the lifetime of the log.
//
// CONCURRENCY:
//
// A single mutex guards the steps and the cursor; reads and writes serialize
// on it. Change notifications are computed while the lock is held and
// dispatched only after it is released, so a listener may re-enter the log
// (for example to read the event that was just inserted) without deadlock.
//
// NAVIGATION:
//
// The log can also be walked as a two-level tree: the zero Position is the
// root, Steps are its children, and Events are the children of their Step.
// This mirrors the addressing contract of tree-shaped display consumers.
package eventlog
