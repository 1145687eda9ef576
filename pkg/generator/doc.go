// Package generator turns natural-language analytics requests into
// executable pipeline code by calling an OpenAI-compatible Chat
// Completions backend.
//
// The client speaks the chat completions wire format directly. Models
// are tried in the configured order; an overloaded model falls through
// to the next one, while network and rate-limit failures abort
// immediately.
package generator
