// Package lock serializes filesystem operations across process boundaries.
//
// The coordinator combines two mechanisms. An advisory lock-file protocol
// (atomic O_EXCL creation with stale-timestamp reclamation) gives exclusive
// access per lock target for any process sharing the storage root. On top of
// that, write-mode callers get optimistic conflict detection: the target's
// last-modified time is snapshotted before the lock is requested and compared
// again once the lock is held; any difference aborts the write before it runs.
//
// The lock itself makes no read/write distinction. Reads against the same
// target serialize just like writes; only the timestamp comparison is gated
// on mode. Locking is cooperative, not OS-enforced: a process that touches
// the tree directly bypasses it.
package lock
