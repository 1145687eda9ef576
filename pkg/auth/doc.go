// Package auth provides pluggable service authentication for the
// datagrep HTTP API.
//
// Authenticators vote on each request: Granted (identity established),
// Denied (credentials present but invalid), or Skipped (credentials
// not of this authenticator's kind). A chain evaluates authenticators
// in order and stops at the first non-Skipped vote; when every
// authenticator skips, the chain's anonymous policy decides.
//
// Auth is implemented as HTTP middleware so the handlers stay free of
// credential handling. An optional per-subject rate limiter piggybacks
// on the authenticated identity.
package auth
