package jwt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/datagrep/datagrep/pkg/auth"
)

const testSecret = "test-signing-secret"

func signToken(t *testing.T, secret string, claims jwtlib.MapClaims) string {
	t.Helper()
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func tokenRequest(t *testing.T, token string) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/api/execute", nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func TestAuthenticateValidToken(t *testing.T) {
	a := New(testSecret)
	token := signToken(t, testSecret, jwtlib.MapClaims{
		"sub":   "svc-a",
		"scope": "execute generate",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	result := a.Authenticate(context.Background(), tokenRequest(t, token))
	if result.Decision != auth.Granted {
		t.Fatalf("Decision = %v, want Granted (err: %v)", result.Decision, result.Err)
	}
	if result.Identity.Subject != "svc-a" {
		t.Errorf("Subject = %q, want svc-a", result.Identity.Subject)
	}
	if len(result.Identity.Scopes) != 2 || result.Identity.Scopes[0] != "execute" {
		t.Errorf("Scopes = %v, want [execute generate]", result.Identity.Scopes)
	}
}

func TestAuthenticateRejections(t *testing.T) {
	a := New(testSecret)

	expired := signToken(t, testSecret, jwtlib.MapClaims{
		"sub": "svc-a",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	wrongKey := signToken(t, "other-secret", jwtlib.MapClaims{
		"sub": "svc-a",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	noSubject := signToken(t, testSecret, jwtlib.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	for _, tt := range []struct {
		name  string
		token string
	}{
		{"expired", expired},
		{"wrong signing key", wrongKey},
		{"missing sub", noSubject},
	} {
		t.Run(tt.name, func(t *testing.T) {
			result := a.Authenticate(context.Background(), tokenRequest(t, tt.token))
			if result.Decision != auth.Denied {
				t.Errorf("Decision = %v, want Denied", result.Decision)
			}
			if result.Err == nil {
				t.Error("expected an error on the result")
			}
		})
	}
}

func TestAuthenticateSkipsNonJWT(t *testing.T) {
	a := New(testSecret)

	for _, tt := range []struct {
		name  string
		token string
	}{
		{"opaque api key", "plain-api-key"},
		{"no header", ""},
	} {
		t.Run(tt.name, func(t *testing.T) {
			result := a.Authenticate(context.Background(), tokenRequest(t, tt.token))
			if result.Decision != auth.Skipped {
				t.Errorf("Decision = %v, want Skipped", result.Decision)
			}
		})
	}
}
