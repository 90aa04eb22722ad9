package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/daap14/turnstile/internal/api/middleware"
	"github.com/daap14/turnstile/internal/auth"
)

var (
	promoterIdentity = &auth.Identity{UserID: 1, Username: "promo", FullName: "Pro Moter", Role: auth.RolePromoter}
	scannerIdentity  = &auth.Identity{UserID: 2, Username: "scan", FullName: "Door Scanner", Role: auth.RoleScanner}
	adminIdentity    = &auth.Identity{UserID: 3, Username: "admin", FullName: "Administrator", Role: auth.RoleAdmin}
)

// makeChiRequest builds a request carrying chi URL params and, when identity is
// set, an authenticated caller.
func makeChiRequest(method, path string, body []byte, params map[string]string, identity *auth.Identity) (*http.Request, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Content-Type", "application/json")

	ctx := req.Context()
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	if identity != nil {
		ctx = middleware.WithIdentity(ctx, identity)
	}

	return req.WithContext(ctx), httptest.NewRecorder()
}

func parseEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "failed to parse response body")
	return env
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	env := parseEnvelope(t, w)
	errObj, ok := env["error"].(map[string]any)
	require.True(t, ok, "response has no error object: %s", w.Body.String())
	return errObj["code"].(string)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
