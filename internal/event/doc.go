// Package event defines the typed, timestamped domain events that describe a
// distributed system's execution: node and edge lifecycle, property changes,
// activities, and message passing.
//
// Event is a sealed interface. Only the ten kinds declared in this package
// implement it, so a type switch over an Event is exhaustive.
//
// Events are immutable once committed to a log, with two exceptions set by the
// processor at commit time: ActivityEnd.Start and MsgRecv.Send, the
// back-references to the matching start and send events.
//
// Property bags (Props) are validated against a fixed schema:
//   - "label", "description": String holding well-formed rich-text markup
//   - "color": String parseable as a color
//   - "level": Float in (0.0, 1.0]
//
// Unrecognized keys are accepted unchecked.
package event
