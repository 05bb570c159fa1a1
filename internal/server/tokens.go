package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/porter/internal/auth"
	"github.com/desertthunder/porter/internal/shared"
)

const (
	spotifyTokenPath = "/token/spotify"
	appleTokenPath   = "/token/apple"
)

// CredentialSource yields a credential with its expiry. [auth.CachingProvider] satisfies it.
type CredentialSource interface {
	Credential(ctx context.Context) (auth.Credential, error)
}

// TokenSigner mints a signed developer token. [auth.DeveloperTokenSigner] satisfies it.
type TokenSigner interface {
	Sign() (string, time.Time, error)
}

// SpotifyTokenResponse is the body of POST /token/spotify.
type SpotifyTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// AppleTokenResponse is the body of POST /token/apple.
type AppleTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenHandlerOpts configures [NewTokenHandler]. A nil Spotify or Apple disables that endpoint with 503.
type TokenHandlerOpts struct {
	Spotify CredentialSource
	Apple   TokenSigner
	Metrics *Metrics
	Logger  *log.Logger
	Now     func() time.Time
}

// TokenHandler serves platform tokens to clients that must not hold the platform secrets.
type TokenHandler struct {
	spotify CredentialSource
	apple   TokenSigner
	metrics *Metrics
	logger  *log.Logger
	now     func() time.Time
}

// NewTokenHandler creates a [TokenHandler].
func NewTokenHandler(opts TokenHandlerOpts) *TokenHandler {
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &TokenHandler{
		spotify: opts.Spotify,
		apple:   opts.Apple,
		metrics: opts.Metrics,
		logger:  shared.WithLogger(opts.Logger, "handler", "tokens"),
		now:     opts.Now,
	}
}

// Metrics returns the collectors the handler reports to.
func (h *TokenHandler) Metrics() *Metrics {
	return h.metrics
}

// Routes returns the HTTP routes this handler serves.
func (h *TokenHandler) Routes() []string {
	return []string{spotifyTokenPath, appleTokenPath}
}

// ServeHTTP dispatches POST /token/spotify and POST /token/apple.
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	switch r.URL.Path {
	case spotifyTokenPath:
		h.spotifyToken(w, r)
	case appleTokenPath:
		h.appleToken(w)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *TokenHandler) spotifyToken(w http.ResponseWriter, r *http.Request) {
	const platform = "spotify"
	if h.spotify == nil {
		h.metrics.TokenFailed(platform)
		writeError(w, http.StatusServiceUnavailable, "spotify credentials not configured")
		return
	}

	cred, err := h.spotify.Credential(r.Context())
	if err != nil {
		h.logger.Error("failed to get Spotify token", "err", err)
		h.metrics.TokenFailed(platform)
		writeError(w, http.StatusBadGateway, "failed to get Spotify token")
		return
	}

	expiresIn := 3600
	if !cred.ExpiresAt.IsZero() {
		expiresIn = max(int(cred.ExpiresAt.Sub(h.now()).Seconds()), 0)
	}

	h.metrics.TokenIssued(platform)
	writeJSON(w, http.StatusOK, SpotifyTokenResponse{
		AccessToken: cred.Token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
	})
}

func (h *TokenHandler) appleToken(w http.ResponseWriter) {
	const platform = "apple"
	if h.apple == nil {
		h.metrics.TokenFailed(platform)
		writeError(w, http.StatusServiceUnavailable, "apple music key not configured")
		return
	}

	token, exp, err := h.apple.Sign()
	if err != nil {
		h.logger.Error("failed to sign Apple developer token", "err", err)
		h.metrics.TokenFailed(platform)
		writeError(w, http.StatusInternalServerError, "failed to sign developer token")
		return
	}

	h.metrics.TokenIssued(platform)
	writeJSON(w, http.StatusOK, AppleTokenResponse{Token: token, ExpiresAt: exp})
}
