package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const SpotifyTokenURL = "https://accounts.spotify.com/api/token"

// ClientCredentialsSource exchanges a client id and secret for an app token.
type ClientCredentialsSource struct {
	config     *clientcredentials.Config
	httpClient *http.Client
}

// NewClientCredentialsSource creates a source for the given token endpoint. An empty tokenURL uses Spotify's.
func NewClientCredentialsSource(clientID, clientSecret, tokenURL string, client *http.Client) *ClientCredentialsSource {
	if tokenURL == "" {
		tokenURL = SpotifyTokenURL
	}

	return &ClientCredentialsSource{
		config: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		httpClient: client,
	}
}

// Fetch performs the client_credentials grant.
func (s *ClientCredentialsSource) Fetch(ctx context.Context) (Credential, error) {
	if s.config.ClientID == "" || s.config.ClientSecret == "" {
		return Credential{}, fmt.Errorf("missing client_id or client_secret")
	}
	if s.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}

	tok, err := s.config.Token(ctx)
	if err != nil {
		return Credential{}, fmt.Errorf("client credentials exchange: %w", err)
	}
	return Credential{Token: tok.AccessToken, ExpiresAt: tok.Expiry}, nil
}

// BackendBearerSource asks the token backend for a destination bearer token.
//
// The backend responds with {"access_token": "...", "expires_in": 3600}.
type BackendBearerSource struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	now        func() time.Time
}

// NewBackendBearerSource creates a source for POST {baseURL}/token/{platform}.
func NewBackendBearerSource(baseURL, platform, apiKey string, client *http.Client) *BackendBearerSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &BackendBearerSource{
		endpoint:   strings.TrimRight(baseURL, "/") + "/token/" + platform,
		apiKey:     apiKey,
		httpClient: client,
		now:        time.Now,
	}
}

func (s *BackendBearerSource) Fetch(ctx context.Context) (Credential, error) {
	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := postBackend(ctx, s.httpClient, s.endpoint, s.apiKey, &body); err != nil {
		return Credential{}, err
	}

	cred := Credential{Token: body.AccessToken}
	if body.ExpiresIn > 0 {
		cred.ExpiresAt = s.now().Add(time.Duration(body.ExpiresIn) * time.Second)
	}
	return cred, nil
}

// AppleSessionSource asks the token backend for a signed MusicKit developer token.
//
// The backend responds with {"token": "<jwt>"}; the expiry comes from the token's exp claim.
type AppleSessionSource struct {
	endpoint   string
	apiKey     string
	fallback   time.Duration
	httpClient *http.Client
	now        func() time.Time
}

// NewAppleSessionSource creates a source for POST {baseURL}/token/apple.
//
// fallbackTTL is used when the token carries no exp claim.
func NewAppleSessionSource(baseURL, apiKey string, fallbackTTL time.Duration, client *http.Client) *AppleSessionSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &AppleSessionSource{
		endpoint:   strings.TrimRight(baseURL, "/") + "/token/apple",
		apiKey:     apiKey,
		fallback:   fallbackTTL,
		httpClient: client,
		now:        time.Now,
	}
}

func (s *AppleSessionSource) Fetch(ctx context.Context) (Credential, error) {
	var body struct {
		Token string `json:"token"`
	}
	if err := postBackend(ctx, s.httpClient, s.endpoint, s.apiKey, &body); err != nil {
		return Credential{}, err
	}

	cred := Credential{Token: body.Token}
	if exp, ok := TokenExpiry(body.Token); ok {
		cred.ExpiresAt = exp
	} else if s.fallback > 0 {
		cred.ExpiresAt = s.now().Add(s.fallback)
	}
	return cred, nil
}

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// StaticSource returns a fixed token that never expires, e.g. a user token from an external OAuth flow.
func StaticSource(token string) Source {
	return SourceFunc(func(context.Context) (Credential, error) {
		if token == "" {
			return Credential{}, fmt.Errorf("no token configured")
		}
		return Credential{Token: token}, nil
	})
}

func postBackend(ctx context.Context, client *http.Client, endpoint, apiKey string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("token backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("token backend error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}
	return nil
}
