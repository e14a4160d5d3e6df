// Package store mirrors an event log and its interval index into an
// in-memory SQLite database for ad-hoc inspection with SQL.
//
// The mirror is fed entirely by change notifications: it subscribes to the
// log's row-inserted notifications (re-entering the log to read the event
// that was just appended) and to the index's opened/closed notifications.
// It never writes to the log or the index.
//
// # Tables
//
//   - events: one row per committed event, keyed by (step, idx)
//   - intervals: one row per interval, end_ts NULL while pending
//
// # Database Configuration
//
//   - ":memory:" only: nothing is ever written to disk
//   - Single connection: an in-memory database is private to its connection
//   - foreign_keys=ON: intervals reference the events that open and close them
package store
