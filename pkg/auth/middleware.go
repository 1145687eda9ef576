package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/datagrep/datagrep/pkg/api"
)

// DefaultBypassPaths lists endpoints that skip authentication.
var DefaultBypassPaths = []string{"/health", "/metrics"}

// Middleware creates HTTP middleware from a Chain and an optional
// Limiter. Requests to bypass paths pass through untouched; everything
// else must authenticate, and the established identity is injected
// into the request context.
func Middleware(chain *Chain, limiter Limiter, bypassPaths []string, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	bypass := make(map[string]bool, len(bypassPaths))
	for _, p := range bypassPaths {
		bypass[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bypass[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			result := chain.Authenticate(r.Context(), r)
			if result.Decision != Granted || result.Identity == nil {
				logger.Warn("authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", result.Err)
				writeAuthError(w, http.StatusUnauthorized,
					api.NewInvalidRequestError("", "authentication required"))
				return
			}
			if result.Identity.Subject == "" {
				logger.Error("authenticator returned identity with empty subject")
				writeAuthError(w, http.StatusInternalServerError,
					api.NewServerError("internal authentication error"))
				return
			}

			if limiter != nil {
				if err := limiter.Allow(r.Context(), result.Identity); err != nil {
					logger.Warn("rate limit exceeded", "subject", result.Identity.Subject)
					writeAuthError(w, http.StatusTooManyRequests,
						api.NewInvalidRequestError("", "rate limit exceeded"))
					return
				}
			}

			ctx := SetIdentity(r.Context(), result.Identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, apiErr *api.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr})
}
