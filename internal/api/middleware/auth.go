package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/daap14/turnstile/internal/api/response"
	"github.com/daap14/turnstile/internal/auth"
)

const identityKey contextKey = "identity"

// Authenticator resolves request credentials to identities.
type Authenticator interface {
	AuthenticateToken(ctx context.Context, token string) (*auth.Identity, error)
	AuthenticateAPIKey(ctx context.Context, rawKey string) (*auth.Identity, error)
}

// Auth is middleware that resolves the caller from an "Authorization: Bearer"
// token or, for scanner devices, an X-API-Key header. Every request is verified
// on its own; nothing is remembered between requests.
func Auth(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			var (
				identity *auth.Identity
				err      error
			)
			if token, ok := bearerToken(r); ok {
				identity, err = authenticator.AuthenticateToken(r.Context(), token)
			} else if rawKey := r.Header.Get("X-API-Key"); rawKey != "" {
				identity, err = authenticator.AuthenticateAPIKey(r.Context(), rawKey)
			} else {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Credentials are required", requestID)
				return
			}

			if err != nil {
				switch {
				case errors.Is(err, auth.ErrInvalidCredentials):
					response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired credentials", requestID)
				case errors.Is(err, auth.ErrInactiveUser), errors.Is(err, auth.ErrBannedUser):
					response.Err(w, http.StatusForbidden, "FORBIDDEN", "Account is disabled", requestID)
				default:
					response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Authentication failed", requestID)
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// GetIdentity retrieves the authenticated Identity from the request context.
func GetIdentity(ctx context.Context) *auth.Identity {
	if id, ok := ctx.Value(identityKey).(*auth.Identity); ok {
		return id
	}
	return nil
}
