// Package authority implements the remote side of the synchronization
// protocol: it accepts batches of change intents, applies them to its own task
// store under last-writer-wins and reports a conflict, carrying its stored
// version, whenever it holds a strictly newer copy of a task.
//
// It is the reference remote used by `tasksync authority` and by end-to-end tests.
package authority
