// Package api defines the wire types shared between the datagrep HTTP
// surface and the underlying services: pipeline definitions, source
// configurations, and the structured error taxonomy returned to callers.
package api
