package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/auth"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/config"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/identity"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/metrics"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/user"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/user/usertest"
)

type testApp struct {
	store   *usertest.Store
	metrics *metrics.Metrics
	router  http.Handler
}

type testOptions struct {
	verifier  identity.Verifier
	db        Pinger
	rateLimit int
}

func newTestApp(t *testing.T, opts testOptions) *testApp {
	t.Helper()

	if opts.verifier == nil {
		opts.verifier = tokenVerifier(nil)
	}
	store := usertest.NewStore()
	m := metrics.New()
	svc := user.NewService(store, user.Options{
		LoginEventTimeout:  time.Second,
		LoginEventFailures: m.LoginEventFailures,
		Syncs:              m.UserSyncs,
	})
	cfg := config.Config{
		AllowedOrigins: []string{"*"},
		Auth: config.AuthConfig{
			RateLimitRequests: opts.rateLimit,
			RateLimitWindow:   time.Minute,
		},
	}
	router := NewRouter(cfg, Deps{
		Users:   svc,
		Auth:    auth.NewAuthenticator(opts.verifier, svc),
		DB:      opts.db,
		Metrics: m,
	})
	return &testApp{store: store, metrics: m, router: router}
}

// tokenVerifier accepts exactly the tokens in known.
func tokenVerifier(known map[string]identity.Identity) identity.Verifier {
	return identity.VerifierFunc(func(_ context.Context, token string) (identity.Identity, error) {
		id, ok := known[token]
		if !ok {
			return identity.Identity{}, identity.ErrInvalidToken
		}
		return id, nil
	})
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *string         `json:"error"`
}

func (a *testApp) do(t *testing.T, method, path string, body io.Reader, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var env testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

// requireFailure checks the status and a success=false envelope carrying message.
func requireFailure(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	env := decodeEnvelope(t, rec)
	require.False(t, env.Success)
	require.Equal(t, "null", string(env.Data))
	require.NotNil(t, env.Error)
	require.Equal(t, message, *env.Error)
}

// requireSuccess checks the status, a success=true envelope and decodes data into dst.
func requireSuccess(t *testing.T, rec *httptest.ResponseRecorder, status int, dst any) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	env := decodeEnvelope(t, rec)
	require.True(t, env.Success)
	require.Nil(t, env.Error)
	if dst != nil {
		require.NoError(t, json.Unmarshal(env.Data, dst))
	}
}

func strp(s string) *string { return &s }
