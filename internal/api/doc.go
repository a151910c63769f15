// Package api serves the local HTTP interface: task CRUD under /api/tasks,
// a manual synchronization trigger and a health report. Handlers translate
// HTTP concerns to TaskService and syncer calls and map internal errors to
// status codes without leaking their details.
package api
