// Package server exposes a store over HTTP.
//
// Routes:
//
//	GET  /state?path=john.age     read the value at a path
//	PUT  /state?path=john.age     write the JSON request body at a path
//	GET  /watch?path=john         websocket stream of the value at a path
//	GET  /metrics                 Prometheus metrics, when a Gatherer is set
//	GET  /healthz                 liveness and subscriber counts
//
// The store engine is single-threaded. Server serializes every store access
// with one mutex, so subscriber callbacks run while that mutex is held and
// must not block: each websocket watcher gets a buffered send queue and is
// closed with CloseTryAgainLater when it falls behind.
//
// Each watch message is a JSON object:
//
//	{"watch":"<uuid>","path":"john","value":{...},"first":true}
package server
