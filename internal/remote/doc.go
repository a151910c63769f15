// Package remote speaks the batch synchronization protocol of the remote
// authority over HTTP/JSON.
//
// A batch is POSTed to {base}/tasks/batch as {"items": [...]} where each item
// carries the outbox entry ID as client_id. The authority answers with one
// processed item per client_id, either "ok" or "conflict" with the authority's
// current version of the task in resolved_data. Connectivity is probed with a
// HEAD request against the base URL.
package remote
