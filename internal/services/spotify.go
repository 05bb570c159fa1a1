// Spotify Web API implementation of [Adapter] and [Loader]
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/porter/internal/auth"
	"github.com/desertthunder/porter/internal/models"
	"github.com/desertthunder/porter/internal/shared"
)

const (
	SpotifyBaseURL          = "https://api.spotify.com/v1"
	SpotifyBatchSize        = 100
	SpotifyDescriptionLimit = 300
)

// SpotifyUser is the subset of the profile needed to create playlists.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyArtist represents a simplified artist object.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a simplified album object.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	URI        string          `json:"uri"`
	IsLocal    bool            `json:"is_local"`
}

// SpotifyPlaylistTrack represents a track within a playlist context. Track is nil for removed items.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPlaylistTracks is one page of playlist items.
type SpotifyPlaylistTracks struct {
	Items []SpotifyPlaylistTrack `json:"items"`
	Total int                    `json:"total"`
	Next  *string                `json:"next"`
}

// SpotifyPlaylist represents a full playlist object with its first page of tracks.
type SpotifyPlaylist struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Public      bool                  `json:"public"`
	Tracks      SpotifyPlaylistTracks `json:"tracks"`
	URI         string                `json:"uri"`
}

type spotifySearchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

// SpotifyAdapter implements [Adapter] and [Loader] against the Spotify Web API.
type SpotifyAdapter struct {
	baseURL  string
	market   string
	executor *Executor
	tokens   auth.Provider
	logger   *log.Logger

	mu     sync.Mutex
	userID string
}

// NewSpotifyAdapter creates a Spotify adapter. The token provider must yield a user token for playlist writes.
func NewSpotifyAdapter(deps Deps) *SpotifyAdapter {
	base := strings.TrimRight(deps.BaseURL, "/")
	if base == "" {
		base = SpotifyBaseURL
	}
	logger := deps.Logger
	if logger == nil {
		logger = shared.DiscardLogger()
	}

	return &SpotifyAdapter{
		baseURL:  base,
		market:   deps.Market,
		executor: deps.Executor,
		tokens:   deps.Tokens,
		logger:   shared.WithLogger(logger, "platform", models.PlatformSpotify),
	}
}

func (s *SpotifyAdapter) Name() string              { return models.PlatformSpotify.DisplayName() }
func (s *SpotifyAdapter) Platform() models.Platform { return models.PlatformSpotify }
func (s *SpotifyAdapter) BatchSize() int            { return SpotifyBatchSize }
func (s *SpotifyAdapter) DescriptionLimit() int     { return SpotifyDescriptionLimit }

// CurrentUser fetches the profile once and caches its id.
func (s *SpotifyAdapter) CurrentUser(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userID != "" {
		return s.userID, nil
	}

	var user SpotifyUser
	if err := s.executor.Do(ctx, s.tokens, s.request(http.MethodGet, s.baseURL+"/me", nil), &user); err != nil {
		return "", fmt.Errorf("failed to fetch current user: %w", err)
	}
	if user.ID == "" {
		return "", fmt.Errorf("%w: empty user id", shared.ErrNotAuthenticated)
	}

	s.userID = user.ID
	return s.userID, nil
}

// CreatePlaylist creates a private playlist owned by the current user.
func (s *SpotifyAdapter) CreatePlaylist(ctx context.Context, name, description string) (string, error) {
	userID, err := s.CurrentUser(ctx)
	if err != nil {
		return "", err
	}

	body := map[string]any{"name": name, "description": description, "public": false}
	endpoint := s.baseURL + "/users/" + url.PathEscape(userID) + "/playlists"

	var created struct {
		ID string `json:"id"`
	}
	if err := s.executor.Do(ctx, s.tokens, s.request(http.MethodPost, endpoint, body), &created); err != nil {
		return "", fmt.Errorf("failed to create playlist: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("failed to create playlist: empty id in response")
	}

	s.logger.Info("created playlist", "id", created.ID, "name", name)
	return created.ID, nil
}

// SearchTrack runs a field-filtered search and accepts the top result if its first artist matches.
//
// The returned id is the track URI, which is what [SpotifyAdapter.AddTracksBatch] expects.
func (s *SpotifyAdapter) SearchTrack(ctx context.Context, track models.Track) (string, bool, error) {
	q := url.Values{}
	q.Set("q", SpotifyQuery(track.Name, track.PrimaryArtist()))
	q.Set("type", "track")
	q.Set("limit", "1")
	if s.market != "" {
		q.Set("market", s.market)
	}

	var resp spotifySearchResponse
	if err := s.executor.Do(ctx, s.tokens, s.request(http.MethodGet, joinURL(s.baseURL, "/search", q), nil), &resp); err != nil {
		return "", false, err
	}

	if len(resp.Tracks.Items) == 0 {
		return "", false, nil
	}

	top := resp.Tracks.Items[0]
	if len(top.Artists) == 0 || !MatchesArtist(top.Artists[0].Name, track.PrimaryArtist()) {
		s.logger.Debug("top result rejected", "track", track.Name, "candidate", top.Name)
		return "", false, nil
	}

	uri := top.URI
	if uri == "" {
		uri = "spotify:track:" + top.ID
	}
	return uri, true, nil
}

// AddTracksBatch appends track URIs to the playlist.
func (s *SpotifyAdapter) AddTracksBatch(ctx context.Context, playlistID string, uris []string) error {
	if len(uris) == 0 {
		return nil
	}
	if len(uris) > SpotifyBatchSize {
		return fmt.Errorf("%w: %d tracks exceeds batch size %d", shared.ErrInvalidArgument, len(uris), SpotifyBatchSize)
	}

	endpoint := s.baseURL + "/playlists/" + url.PathEscape(playlistID) + "/tracks"
	return s.executor.Do(ctx, s.tokens, s.request(http.MethodPost, endpoint, map[string]any{"uris": uris}), nil)
}

// LoadPlaylist fetches a playlist and every page of its tracks.
//
// Local files and removed items are skipped.
func (s *SpotifyAdapter) LoadPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	var sp SpotifyPlaylist
	endpoint := s.baseURL + "/playlists/" + url.PathEscape(id)
	if err := s.executor.Do(ctx, s.tokens, s.request(http.MethodGet, endpoint, nil), &sp); err != nil {
		if shared.StatusCode(err) == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
		}
		return nil, fmt.Errorf("failed to load playlist: %w", err)
	}

	playlist := &models.Playlist{
		Name:        sp.Name,
		Description: html.UnescapeString(sp.Description),
		Source:      models.PlatformSpotify,
	}

	page := sp.Tracks
	for {
		playlist.Tracks = append(playlist.Tracks, s.normalize(page.Items)...)
		if page.Next == nil || *page.Next == "" {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next := *page.Next
		page = SpotifyPlaylistTracks{}
		if err := s.executor.Do(ctx, s.tokens, s.request(http.MethodGet, next, nil), &page); err != nil {
			return nil, fmt.Errorf("failed to load playlist tracks: %w", err)
		}
	}

	s.logger.Info("loaded playlist", "name", playlist.Name, "tracks", playlist.TotalTracks())
	return playlist, nil
}

func (s *SpotifyAdapter) normalize(items []SpotifyPlaylistTrack) []models.Track {
	tracks := make([]models.Track, 0, len(items))
	for _, item := range items {
		if item.Track == nil || item.Track.IsLocal {
			continue
		}

		artists := make([]models.Artist, 0, len(item.Track.Artists))
		for _, a := range item.Track.Artists {
			artists = append(artists, models.Artist{Name: a.Name, ID: a.ID})
		}

		t, err := models.NewTrack(item.Track.Name, artists, item.Track.Album.Name, item.Track.DurationMS)
		if err != nil {
			s.logger.Warn("skipping track", "name", item.Track.Name, "err", err)
			continue
		}
		tracks = append(tracks, t)
	}
	return tracks
}

func (s *SpotifyAdapter) request(method, endpoint string, body any) RequestBuilder {
	return newJSONRequest(method, endpoint, body, nil)
}
