package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daap14/turnstile/internal/auth"
)

type mockAuthenticator struct {
	tokenFn  func(ctx context.Context, token string) (*auth.Identity, error)
	apiKeyFn func(ctx context.Context, rawKey string) (*auth.Identity, error)
}

func (m *mockAuthenticator) AuthenticateToken(ctx context.Context, token string) (*auth.Identity, error) {
	if m.tokenFn != nil {
		return m.tokenFn(ctx, token)
	}
	return nil, auth.ErrInvalidCredentials
}

func (m *mockAuthenticator) AuthenticateAPIKey(ctx context.Context, rawKey string) (*auth.Identity, error) {
	if m.apiKeyFn != nil {
		return m.apiKeyFn(ctx, rawKey)
	}
	return nil, auth.ErrInvalidCredentials
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func parseErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error *struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	return env.Error.Code
}
