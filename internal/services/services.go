// package services defines the destination [Adapter] contract and implements it for Spotify and Apple Music
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/porter/internal/auth"
	"github.com/desertthunder/porter/internal/models"
	"github.com/desertthunder/porter/internal/shared"
)

// Adapter is what the transfer engine needs from a destination platform.
type Adapter interface {
	// Name returns the display name of the platform (e.g., "Spotify", "Apple Music")
	Name() string

	Platform() models.Platform

	// CreatePlaylist creates an empty private playlist and returns its id.
	CreatePlaylist(ctx context.Context, name, description string) (string, error)

	// SearchTrack looks up the track in the destination catalog.
	//
	// A missing or non-matching result returns found=false with a nil error.
	SearchTrack(ctx context.Context, track models.Track) (id string, found bool, err error)

	// AddTracksBatch appends at most BatchSize ids to the playlist.
	AddTracksBatch(ctx context.Context, playlistID string, ids []string) error

	BatchSize() int
	DescriptionLimit() int
}

// Loader reads a playlist from a source platform.
type Loader interface {
	LoadPlaylist(ctx context.Context, id string) (*models.Playlist, error)
}

// Deps carries what adapters need to talk to their platform.
type Deps struct {
	Executor *Executor
	// Tokens supplies the bearer (Spotify access token, Apple developer token).
	Tokens auth.Provider
	// UserToken is the Apple Music-User-Token.
	UserToken string
	// Storefront is the Apple catalog region, e.g. "us".
	Storefront string
	// Market is the Spotify market for search.
	Market string
	// BaseURL overrides the platform API root.
	BaseURL string
	Logger  *log.Logger
}

// NewAdapter returns the adapter for p. Platforms without an implementation return [shared.ErrNotImplemented].
func NewAdapter(p models.Platform, deps Deps) (Adapter, error) {
	if deps.Executor == nil || deps.Tokens == nil {
		return nil, fmt.Errorf("%w: executor and token provider are required", shared.ErrMissingArgument)
	}

	switch p {
	case models.PlatformSpotify:
		return NewSpotifyAdapter(deps), nil
	case models.PlatformApple:
		a, err := NewAppleAdapter(deps)
		if err != nil {
			return nil, err
		}
		return a, nil
	case models.PlatformYouTube, models.PlatformDeezer, models.PlatformTidal, models.PlatformAmazon, models.PlatformSoundCloud:
		return nil, fmt.Errorf("%s: %w", p.DisplayName(), shared.ErrNotImplemented)
	default:
		return nil, fmt.Errorf("%w: unknown platform %q", shared.ErrInvalidArgument, p)
	}
}

// NewLoader returns the playlist loader for p.
func NewLoader(p models.Platform, deps Deps) (Loader, error) {
	a, err := NewAdapter(p, deps)
	if err != nil {
		return nil, err
	}
	l, ok := a.(Loader)
	if !ok {
		return nil, fmt.Errorf("%s loader: %w", p.DisplayName(), shared.ErrNotImplemented)
	}
	return l, nil
}

// joinURL appends path to base and encodes query.
func joinURL(base, path string, query url.Values) string {
	u := base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// newJSONRequest returns a [RequestBuilder] that sends body as JSON with a bearer token and the extra headers.
func newJSONRequest(method, endpoint string, body any, headers map[string]string) RequestBuilder {
	var payload []byte
	var encErr error
	if body != nil {
		payload, encErr = json.Marshal(body)
	}

	return func(ctx context.Context, token string) (*http.Request, error) {
		if encErr != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", encErr)
		}

		var r io.Reader
		if payload != nil {
			r = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, r)
		if err != nil {
			return nil, err
		}

		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req, nil
	}
}
