// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic, allowing business rules to remain
// independent of specific database technologies or persistence details.
//
// Two stores back the sync engine: TaskStore holds task rows and OutboxStore
// holds the ordered queue of change intents that have not yet been
// acknowledged by the remote authority. Writes that must be atomic across
// both go through RunInTransaction.
package store
