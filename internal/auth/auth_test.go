package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/porter/internal/shared"
	"github.com/golang-jwt/jwt/v5"
)

type countingSource struct {
	calls atomic.Int32
	ttl   time.Duration
	now   func() time.Time
	err   error
	delay time.Duration
}

func (s *countingSource) Fetch(ctx context.Context) (Credential, error) {
	n := s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return Credential{}, s.err
	}
	cred := Credential{Token: "token-" + string(rune('0'+n))}
	if s.ttl > 0 {
		cred.ExpiresAt = s.now().Add(s.ttl)
	}
	return cred, nil
}

func TestCachingProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("Caches Valid Token", func(t *testing.T) {
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		src := &countingSource{ttl: time.Hour, now: func() time.Time { return now }}
		p := NewCachingProvider("spotify", src, ProviderOpts{Now: func() time.Time { return now }})

		first, err := p.Token(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		second, err := p.Token(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if first != second {
			t.Errorf("expected same token, got %s and %s", first, second)
		}
		if src.calls.Load() != 1 {
			t.Errorf("expected 1 fetch, got %d", src.calls.Load())
		}
	})

	t.Run("Refetches After Expiry", func(t *testing.T) {
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		clock := func() time.Time { return now }
		src := &countingSource{ttl: time.Minute, now: clock}
		p := NewCachingProvider("apple", src, ProviderOpts{Now: clock})

		first, _ := p.Token(ctx)
		now = now.Add(2 * time.Minute)
		second, err := p.Token(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if first == second {
			t.Error("expected a new token after expiry")
		}
		if src.calls.Load() != 2 {
			t.Errorf("expected 2 fetches, got %d", src.calls.Load())
		}
	})

	t.Run("Refresh Bypasses Cache", func(t *testing.T) {
		src := &countingSource{}
		p := NewCachingProvider("spotify", src, ProviderOpts{})

		first, _ := p.Token(ctx)
		second, err := p.Refresh(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if first == second {
			t.Error("expected refresh to return a new token")
		}

		third, _ := p.Token(ctx)
		if third != second {
			t.Errorf("expected cached refreshed token %s, got %s", second, third)
		}
	})

	t.Run("Wraps Fetch Failure", func(t *testing.T) {
		p := NewCachingProvider("spotify", &countingSource{err: errors.New("backend down")}, ProviderOpts{})

		_, err := p.Token(ctx)
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("Rejects Empty Token", func(t *testing.T) {
		src := SourceFunc(func(context.Context) (Credential, error) { return Credential{}, nil })
		p := NewCachingProvider("spotify", src, ProviderOpts{})

		if _, err := p.Token(ctx); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("Concurrent Callers Share One Fetch", func(t *testing.T) {
		src := &countingSource{delay: 50 * time.Millisecond}
		p := NewCachingProvider("spotify", src, ProviderOpts{})

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := p.Token(ctx); err != nil {
					t.Errorf("expected no error, got %v", err)
				}
			}()
		}
		wg.Wait()

		if src.calls.Load() != 1 {
			t.Errorf("expected 1 fetch, got %d", src.calls.Load())
		}
	})

	t.Run("Cancelled Caller Does Not Fail Shared Refresh", func(t *testing.T) {
		var calls atomic.Int32
		started := make(chan struct{})
		release := make(chan struct{})
		src := SourceFunc(func(ctx context.Context) (Credential, error) {
			if calls.Add(1) == 1 {
				close(started)
			}
			select {
			case <-ctx.Done():
				return Credential{}, ctx.Err()
			case <-release:
				return Credential{Token: "shared"}, nil
			}
		})
		p := NewCachingProvider("spotify", src, ProviderOpts{})

		ctxA, cancelA := context.WithCancel(ctx)
		errA := make(chan error, 1)
		go func() {
			_, err := p.Token(ctxA)
			errA <- err
		}()
		<-started

		type result struct {
			token string
			err   error
		}
		resB := make(chan result, 1)
		go func() {
			token, err := p.Token(context.Background())
			resB <- result{token, err}
		}()
		time.Sleep(50 * time.Millisecond)

		cancelA()
		if err := <-errA; !errors.Is(err, context.Canceled) {
			t.Errorf("expected the cancelled caller to get context.Canceled, got %v", err)
		}

		close(release)
		got := <-resB
		if got.err != nil {
			t.Fatalf("expected the live caller to get a token, got %v", got.err)
		}
		if got.token != "shared" {
			t.Errorf("expected token shared, got %q", got.token)
		}
		if calls.Load() != 1 {
			t.Errorf("expected 1 fetch, got %d", calls.Load())
		}
	})

	t.Run("Fetch Timeout Bounds Shared Refresh", func(t *testing.T) {
		src := SourceFunc(func(ctx context.Context) (Credential, error) {
			<-ctx.Done()
			return Credential{}, ctx.Err()
		})
		p := NewCachingProvider("apple", src, ProviderOpts{FetchTimeout: 20 * time.Millisecond})

		_, err := p.Token(context.Background())
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed after the fetch timeout, got %v", err)
		}
	})
}

func TestCredential(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		cred Credential
		want bool
	}{
		{"empty", Credential{}, false},
		{"no expiry", Credential{Token: "t"}, true},
		{"future", Credential{Token: "t", ExpiresAt: now.Add(time.Minute)}, true},
		{"past", Credential{Token: "t", ExpiresAt: now.Add(-time.Minute)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cred.Valid(now); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBackendBearerSource(t *testing.T) {
	t.Run("Fetches Token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("expected POST, got %s", r.Method)
			}
			if r.URL.Path != "/token/spotify" {
				t.Errorf("expected /token/spotify, got %s", r.URL.Path)
			}
			if r.Header.Get("X-API-Key") != "secret" {
				t.Errorf("expected api key header, got %q", r.Header.Get("X-API-Key"))
			}
			json.NewEncoder(w).Encode(map[string]any{"access_token": "abc", "expires_in": 3600})
		}))
		defer server.Close()

		src := NewBackendBearerSource(server.URL+"/", "spotify", "secret", nil)
		fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		src.now = func() time.Time { return fixed }

		cred, err := src.Fetch(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cred.Token != "abc" {
			t.Errorf("expected token abc, got %s", cred.Token)
		}
		if !cred.ExpiresAt.Equal(fixed.Add(time.Hour)) {
			t.Errorf("unexpected expiry %v", cred.ExpiresAt)
		}
	})

	t.Run("Non-2xx Is An Error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusInternalServerError)
		}))
		defer server.Close()

		if _, err := NewBackendBearerSource(server.URL, "spotify", "", nil).Fetch(context.Background()); err == nil {
			t.Error("expected error for 500 response")
		}
	})
}

func TestAppleSessionSource(t *testing.T) {
	signer := testSigner(t, time.Hour)
	token, exp, err := signer.Sign()
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"token": token})
	}))
	defer server.Close()

	cred, err := NewAppleSessionSource(server.URL, "", 12*time.Hour, nil).Fetch(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cred.Token != token {
		t.Error("expected backend token to be returned")
	}
	if cred.ExpiresAt.Unix() != exp.Unix() {
		t.Errorf("expected expiry from exp claim %v, got %v", exp, cred.ExpiresAt)
	}
}

func TestTokenExpiry(t *testing.T) {
	if _, ok := TokenExpiry("not-a-jwt"); ok {
		t.Error("expected no expiry for garbage input")
	}
}

func TestStaticSource(t *testing.T) {
	cred, err := StaticSource("user-token").Fetch(context.Background())
	if err != nil || cred.Token != "user-token" {
		t.Errorf("unexpected result %v, %v", cred, err)
	}
	if _, err := StaticSource("").Fetch(context.Background()); err == nil {
		t.Error("expected error for empty static token")
	}
}

func TestClientCredentialsSource(t *testing.T) {
	t.Run("Exchanges Credentials", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, secret, ok := r.BasicAuth()
			if !ok || id != "id" || secret != "secret" {
				t.Errorf("expected basic auth id/secret, got %s/%s", id, secret)
			}
			if err := r.ParseForm(); err != nil {
				t.Fatal(err)
			}
			if r.Form.Get("grant_type") != "client_credentials" {
				t.Errorf("unexpected grant type %q", r.Form.Get("grant_type"))
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"access_token": "app", "token_type": "Bearer", "expires_in": 3600})
		}))
		defer server.Close()

		cred, err := NewClientCredentialsSource("id", "secret", server.URL, server.Client()).Fetch(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cred.Token != "app" {
			t.Errorf("expected token app, got %s", cred.Token)
		}
		if cred.ExpiresAt.IsZero() {
			t.Error("expected expiry to be set")
		}
	})

	t.Run("Missing Credentials", func(t *testing.T) {
		if _, err := NewClientCredentialsSource("", "", "", nil).Fetch(context.Background()); err == nil {
			t.Error("expected error for missing credentials")
		}
	})
}

func TestDeveloperTokenSigner(t *testing.T) {
	signer := testSigner(t, 2*time.Hour)

	signed, exp, err := signer.Sign()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(signed, &claims, func(tok *jwt.Token) (any, error) {
		return signer.PublicKey(), nil
	}, jwt.WithValidMethods([]string{"ES256"}))
	if err != nil {
		t.Fatalf("failed to verify token: %v", err)
	}

	if parsed.Header["kid"] != "KEY123" {
		t.Errorf("expected kid KEY123, got %v", parsed.Header["kid"])
	}
	if claims.Issuer != "TEAM123" {
		t.Errorf("expected issuer TEAM123, got %s", claims.Issuer)
	}
	if claims.ExpiresAt.Unix() != exp.Unix() {
		t.Errorf("expected exp %v, got %v", exp, claims.ExpiresAt)
	}

	t.Run("Rejects Bad Key", func(t *testing.T) {
		if _, err := NewDeveloperTokenSigner("T", "K", []byte("not pem"), time.Hour); err == nil {
			t.Error("expected error for invalid key")
		}
	})

	t.Run("Requires Identifiers", func(t *testing.T) {
		if _, err := NewDeveloperTokenSigner("", "K", nil, time.Hour); err == nil {
			t.Error("expected error for empty team id")
		}
	})
}

func testSigner(t *testing.T, ttl time.Duration) *DeveloperTokenSigner {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("failed to marshal key: %v", err)
	}
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	signer, err := NewDeveloperTokenSigner("TEAM123", "KEY123", pemKey, ttl)
	if err != nil {
		t.Fatalf("failed to create signer: %v", err)
	}
	return signer
}
