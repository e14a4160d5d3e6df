// Package interval indexes semantic time spans ("node N existed from t0 to
// t1") that reference positions in the event log, and answers range queries
// over them.
//
// Each category keeps two partitions: Point holds intervals that are still
// pending (start == end), Span holds closed ones. Every partition maintains
// two arrays of the same intervals, one sorted by start time and one by end
// time. Inserts append and mark the partition dirty; the next query re-sorts.
//
// LOOKUP:
//
// For a window [t0, t1] a Span partition is searched in three passes:
//  1. binary search the start-sorted array for intervals starting inside the window
//  2. binary search the end-sorted array for intervals ending inside the window
//  3. scan the cheaper of the start-array prefix (start < t0) or the
//     end-array suffix (end > t1) for intervals covering the whole window
//
// Results are deduplicated by identity. Pending intervals extend to the
// present, so a Point partition contributes every pending interval that
// starts at or before t1.
//
// CONCURRENCY:
//
// One mutex per (category, partition) pair. Each Interval also carries its
// own lock around its end, since consumers may read an interval while the
// processor closes it. Lock order is partition before interval.
package interval
