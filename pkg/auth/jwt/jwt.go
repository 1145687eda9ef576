// Package jwt provides a JWT authenticator for HMAC-signed bearer
// tokens. The subject comes from the standard sub claim; scopes are
// read from a space-separated scope claim when present.
package jwt

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/datagrep/datagrep/pkg/auth"
)

// Authenticator validates HS256-signed bearer tokens against a shared
// secret.
type Authenticator struct {
	secret []byte
}

// New creates a JWT authenticator with the given signing secret.
func New(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Authenticate parses and verifies the bearer token. Skips when the
// bearer token is not shaped like a JWT so that API key authentication
// can claim it instead.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.Result {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return auth.Result{Decision: auth.Skipped}
	}
	raw := strings.TrimPrefix(header, "Bearer ")
	if strings.Count(raw, ".") != 2 {
		return auth.Result{Decision: auth.Skipped}
	}

	claims := jwtlib.MapClaims{}
	_, err := jwtlib.ParseWithClaims(raw, claims, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return a.secret, nil
	})
	if err != nil {
		return auth.Result{
			Decision: auth.Denied,
			Err:      fmt.Errorf("invalid token: %w", err),
		}
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return auth.Result{
			Decision: auth.Denied,
			Err:      fmt.Errorf("token is missing the sub claim"),
		}
	}

	identity := &auth.Identity{Subject: subject}
	if scope, ok := claims["scope"].(string); ok && scope != "" {
		identity.Scopes = strings.Fields(scope)
	}
	return auth.Result{Decision: auth.Granted, Identity: identity}
}
