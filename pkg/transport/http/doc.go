// Package http serves the datagrep API over HTTP.
//
// The adapter routes JSON requests to schema inference, pipeline
// generation, storage, and sandboxed execution, and serializes the
// api package types on the wire. Server wraps http.Server with
// lifecycle management including graceful shutdown.
package http
