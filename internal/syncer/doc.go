// Package syncer reconciles the local outbox with the remote authority.
//
// A Synchronizer performs one pass: it snapshots the outbox, sends it to the
// remote in consecutive fixed-size batches, applies last-writer-wins
// resolution to reported conflicts and acknowledges processed entries. A
// failing batch never aborts the rest of the pass.
//
// Passes must not overlap for a given store pair. Coordinator shares one
// in-flight pass among concurrent callers, and Worker schedules passes on an
// interval, on task change events and with capped exponential backoff.
package syncer
