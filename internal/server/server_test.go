package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/porter/internal/auth"
	"github.com/golang-jwt/jwt/v5"
)

type fakeCredentials struct {
	cred  auth.Credential
	err   error
	calls int
}

func (f *fakeCredentials) Credential(context.Context) (auth.Credential, error) {
	f.calls++
	return f.cred, f.err
}

func testSigner(t *testing.T) *auth.DeveloperTokenSigner {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("failed to marshal key: %v", err)
	}

	signer, err := auth.NewDeveloperTokenSigner("TEAM123", "KEY456",
		pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), time.Hour)
	if err != nil {
		t.Fatalf("failed to create signer: %v", err)
	}
	return signer
}

func do(t *testing.T, h http.Handler, method, path string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	newServer := func(t *testing.T, apiKey string, creds CredentialSource) *Server {
		t.Helper()
		metrics := NewMetrics()
		tokens := NewTokenHandler(TokenHandlerOpts{
			Spotify: creds,
			Apple:   testSigner(t),
			Metrics: metrics,
			Now:     func() time.Time { return now },
		})
		return New(Opts{Host: "127.0.0.1", Port: 8089, APIKey: apiKey, Tokens: tokens, Metrics: metrics})
	}

	t.Run("Health", func(t *testing.T) {
		srv := newServer(t, "secret", nil)
		rec := do(t, srv, http.MethodGet, "/health", nil)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"ok"`) {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("HealthWrongMethod", func(t *testing.T) {
		srv := newServer(t, "", nil)
		rec := do(t, srv, http.MethodPost, "/health", nil)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rec.Code)
		}
		if got := rec.Header().Get("Allow"); got != http.MethodGet {
			t.Errorf("expected Allow GET, got %q", got)
		}
	})

	t.Run("Addr", func(t *testing.T) {
		srv := newServer(t, "", nil)
		if srv.Addr() != "127.0.0.1:8089" {
			t.Errorf("unexpected addr %q", srv.Addr())
		}
	})

	t.Run("SpotifyToken", func(t *testing.T) {
		creds := &fakeCredentials{cred: auth.Credential{Token: "app-token", ExpiresAt: now.Add(30 * time.Minute)}}
		srv := newServer(t, "", creds)
		rec := do(t, srv, http.MethodPost, "/token/spotify", nil)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var body SpotifyTokenResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if body.AccessToken != "app-token" {
			t.Errorf("expected app-token, got %q", body.AccessToken)
		}
		if body.ExpiresIn != 1800 {
			t.Errorf("expected expires_in 1800, got %d", body.ExpiresIn)
		}
		if body.TokenType != "Bearer" {
			t.Errorf("expected Bearer, got %q", body.TokenType)
		}
	})

	t.Run("SpotifyTokenWithoutExpiry", func(t *testing.T) {
		creds := &fakeCredentials{cred: auth.Credential{Token: "forever"}}
		rec := do(t, newServer(t, "", creds), http.MethodPost, "/token/spotify", nil)

		var body SpotifyTokenResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if body.ExpiresIn != 3600 {
			t.Errorf("expected default expires_in 3600, got %d", body.ExpiresIn)
		}
	})

	t.Run("SpotifyUpstreamFailure", func(t *testing.T) {
		creds := &fakeCredentials{err: errors.New("accounts service down")}
		rec := do(t, newServer(t, "", creds), http.MethodPost, "/token/spotify", nil)

		if rec.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", rec.Code)
		}
		if strings.Contains(rec.Body.String(), "accounts service down") {
			t.Error("upstream error detail should not leak to clients")
		}
	})

	t.Run("SpotifyNotConfigured", func(t *testing.T) {
		rec := do(t, newServer(t, "", nil), http.MethodPost, "/token/spotify", nil)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})

	t.Run("TokenRequiresPost", func(t *testing.T) {
		creds := &fakeCredentials{cred: auth.Credential{Token: "x"}}
		rec := do(t, newServer(t, "", creds), http.MethodGet, "/token/spotify", nil)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rec.Code)
		}
		if creds.calls != 0 {
			t.Errorf("credential source should not be called, got %d calls", creds.calls)
		}
	})

	t.Run("AppleToken", func(t *testing.T) {
		signer := testSigner(t)
		tokens := NewTokenHandler(TokenHandlerOpts{Apple: signer})
		srv := New(Opts{Tokens: tokens})

		rec := do(t, srv, http.MethodPost, "/token/apple", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var body AppleTokenResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}

		parsed, err := jwt.Parse(body.Token, func(*jwt.Token) (any, error) {
			return signer.PublicKey(), nil
		}, jwt.WithValidMethods([]string{"ES256"}))
		if err != nil {
			t.Fatalf("token does not verify: %v", err)
		}
		if parsed.Header["kid"] != "KEY456" {
			t.Errorf("expected kid KEY456, got %v", parsed.Header["kid"])
		}
		if iss, _ := parsed.Claims.GetIssuer(); iss != "TEAM123" {
			t.Errorf("expected iss TEAM123, got %q", iss)
		}
		if body.ExpiresAt.IsZero() {
			t.Error("expected expires_at")
		}
	})

	t.Run("AppleNotConfigured", func(t *testing.T) {
		srv := New(Opts{})
		rec := do(t, srv, http.MethodPost, "/token/apple", nil)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})
}

func TestRequireAPIKey(t *testing.T) {
	creds := &fakeCredentials{cred: auth.Credential{Token: "app-token"}}
	srv := New(Opts{
		APIKey: "s3cret",
		Tokens: NewTokenHandler(TokenHandlerOpts{Spotify: creds}),
	})

	tests := []struct {
		name   string
		header http.Header
		want   int
	}{
		{"Missing", nil, http.StatusUnauthorized},
		{"Wrong", http.Header{"X-Api-Key": {"nope"}}, http.StatusUnauthorized},
		{"Header", http.Header{"X-Api-Key": {"s3cret"}}, http.StatusOK},
		{"Bearer", http.Header{"Authorization": {"Bearer s3cret"}}, http.StatusOK},
		{"BasicScheme", http.Header{"Authorization": {"Basic s3cret"}}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/token/spotify", tt.header)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}

	t.Run("PublicRoutesSkipKey", func(t *testing.T) {
		rec := do(t, srv, http.MethodGet, "/health", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})
}

func TestMetrics(t *testing.T) {
	metrics := NewMetrics()
	creds := &fakeCredentials{cred: auth.Credential{Token: "app-token"}}
	srv := New(Opts{
		Metrics: metrics,
		Tokens:  NewTokenHandler(TokenHandlerOpts{Spotify: creds, Metrics: metrics}),
	})

	do(t, srv, http.MethodPost, "/token/spotify", nil)
	do(t, srv, http.MethodPost, "/token/apple", nil)

	rec := do(t, srv, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`porter_http_requests_total{method="POST",path="/token/spotify",status="200"} 1`,
		`porter_tokens_issued_total{platform="spotify"} 1`,
		`porter_token_failures_total{platform="apple"} 1`,
		`porter_http_request_duration_seconds_bucket`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestRecoverer(t *testing.T) {
	router := NewBasicRouter()
	router.Use(Recoverer(nil))
	router.Handle(http.MethodGet, "/boom", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := do(t, router, http.MethodGet, "/boom", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestBasicRouterMiddlewareOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	router := NewBasicRouter()
	router.Use(mark("first"), mark("second"))
	router.Handle(http.MethodGet, "/", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))

	do(t, router, http.MethodGet, "/", nil)

	if strings.Join(order, ",") != "first,second,handler" {
		t.Errorf("unexpected order: %v", order)
	}
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	srv := New(Opts{Host: "127.0.0.1", Port: 0})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
