// Package apikey provides an API key authenticator that validates
// bearer tokens against configured keys using SHA-256 hashing and
// constant-time comparison.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/datagrep/datagrep/pkg/auth"
	"github.com/datagrep/datagrep/pkg/config"
)

type keyEntry struct {
	hash    [32]byte
	subject string
}

// Authenticator validates bearer tokens against a static key set.
type Authenticator struct {
	keys []keyEntry
}

// New creates an API key authenticator from configuration. Keys are
// hashed immediately; plaintext keys are not retained.
func New(entries []config.APIKeyConfig) *Authenticator {
	a := &Authenticator{}
	for _, e := range entries {
		subject := e.Subject
		if subject == "" {
			subject = "api-client"
		}
		a.keys = append(a.keys, keyEntry{
			hash:    sha256.Sum256([]byte(e.Key)),
			subject: subject,
		})
	}
	return a
}

// Authenticate extracts the bearer token and validates it. Skips when
// there is no bearer token to examine.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.Result {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return auth.Result{Decision: auth.Skipped}
	}

	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" {
		return auth.Result{Decision: auth.Denied, Err: auth.ErrUnauthenticated}
	}

	tokenHash := sha256.Sum256([]byte(token))
	for _, entry := range a.keys {
		if subtle.ConstantTimeCompare(tokenHash[:], entry.hash[:]) == 1 {
			return auth.Result{
				Decision: auth.Granted,
				Identity: &auth.Identity{Subject: entry.subject},
			}
		}
	}
	return auth.Result{Decision: auth.Denied, Err: auth.ErrUnauthenticated}
}
