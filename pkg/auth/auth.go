package auth

import (
	"context"
	"errors"
	"net/http"
)

// Decision is an authenticator's vote on a request.
type Decision int

const (
	// Granted means credentials are valid and an identity was established.
	Granted Decision = iota

	// Denied means credentials are present but invalid. The request is
	// rejected without consulting further authenticators.
	Denied

	// Skipped means the request carries no credentials of this
	// authenticator's kind. The chain moves on to the next one.
	Skipped
)

// Result carries the outcome of an authentication attempt.
type Result struct {
	Decision Decision
	Identity *Identity // set only when Decision == Granted
	Err      error     // set only when Decision == Denied
}

// Identity is an authenticated caller.
type Identity struct {
	// Subject uniquely identifies the caller. Never empty for a
	// granted result.
	Subject string

	// Scopes lists the authorization scopes granted to the caller.
	Scopes []string
}

// Authenticator examines request credentials and votes.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) Result
}

// Sentinel errors.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrTooManyRequests = errors.New("rate limit exceeded")
)

// Chain evaluates authenticators in order and stops at the first
// Granted or Denied vote.
type Chain struct {
	// Authenticators are consulted left to right.
	Authenticators []Authenticator

	// AllowAnonymous grants an anonymous identity when every
	// authenticator skips. Leave false in production unless the
	// deployment runs with auth type "none".
	AllowAnonymous bool
}

// Authenticate runs the chain.
func (c *Chain) Authenticate(ctx context.Context, r *http.Request) Result {
	for _, a := range c.Authenticators {
		result := a.Authenticate(ctx, r)
		if result.Decision != Skipped {
			return result
		}
	}

	if c.AllowAnonymous {
		return Result{
			Decision: Granted,
			Identity: &Identity{Subject: "anonymous"},
		}
	}
	return Result{Decision: Denied, Err: ErrUnauthenticated}
}
