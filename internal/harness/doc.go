// Package harness runs YAML scenarios through the event processor and
// checks their expectations.
//
// A scenario is a list of input events plus a list of expectations about
// the resulting log and interval index. Each scenario runs against a fresh
// Processor behind a Runner, with a fixed session id so that synthesized
// events (whose source names the session) dump identically on every run.
//
// Scenario format:
//
//	name: delete-node-cascade
//	description: deleting a node ends its activities and edges
//	session: golden
//	events:
//	  - {kind: node_create, ts: 0, id: A, props: {color: "#f00"}}
//	  - {kind: node_create, ts: 1, id: B}
//	  - {kind: edge_create, ts: 2, id: e1, tail: A, head: B, directed: true}
//	  - {kind: node_delete, ts: 5, id: A}
//	expect:
//	  - {type: log_length, count: 5}
//	  - {type: interval, category: node_exists, subject: A, start: 0, end: 5}
//
// An event without ts is stamped one microsecond after the previous one.
// Property values keep their YAML type: write 0.5 or 1.0 for "level".
//
// Rejected events are not fatal: each is recorded with its input index and
// error code, and "rejected" expectations can assert on them.
package harness
