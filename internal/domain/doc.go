// Package domain contains the core entities of the task service: tasks and the
// outbox entries that record every local mutation awaiting reconciliation with
// the remote authority. It is independent of storage and transport.
package domain
