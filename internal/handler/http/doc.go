// Package http exposes the sync engine's trigger surface over HTTP.
//
// Routes let a host application start a cycle, forward a remote change
// notification, report lifecycle transitions and read the engine status.
// Request tracing and access logging are applied to every route before the
// request reaches the service layer.
package http
