// Package events provides in-process notification of committed task changes.
//
// The task service emits a ChangeEvent after every mutation that appended an
// outbox entry. The sync worker registers as a handler and uses the events to
// schedule an early pass, so the service needs no knowledge of the worker.
package events
