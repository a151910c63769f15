// Package service contains the application-specific use cases and business
// logic. It orchestrates interactions between domain objects and repositories
// (defined in internal/store) to fulfill application features.
//
// TaskService is the only writer of local task state. Every mutation it
// performs commits the task row and exactly one outbox entry in a single
// transaction, then announces the change through an events.EventEmitter.
package service
