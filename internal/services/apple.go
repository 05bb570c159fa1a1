// Apple Music API implementation of [Adapter] and [Loader]
//
// Response types based on https://developer.apple.com/documentation/applemusicapi
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/porter/internal/auth"
	"github.com/desertthunder/porter/internal/models"
	"github.com/desertthunder/porter/internal/shared"
)

const (
	AppleBaseURL          = "https://api.music.apple.com/v1"
	AppleBatchSize        = 20
	AppleDescriptionLimit = 255
	DefaultStorefront     = "us"
)

var storefrontPattern = regexp.MustCompile(`^[a-z]{2}$`)

// AppleSongAttributes holds the catalog fields used for matching and normalization.
type AppleSongAttributes struct {
	Name             string `json:"name"`
	ArtistName       string `json:"artistName"`
	AlbumName        string `json:"albumName"`
	DurationInMillis int    `json:"durationInMillis"`
}

// AppleSong is a catalog song resource.
type AppleSong struct {
	ID         string              `json:"id"`
	Type       string              `json:"type"`
	Attributes AppleSongAttributes `json:"attributes"`
}

// AppleSongs is a paginated relationship or search bucket of songs.
type AppleSongs struct {
	Data []AppleSong `json:"data"`
	Next string      `json:"next,omitempty"`
}

type appleDescription struct {
	Standard string `json:"standard"`
	Short    string `json:"short"`
}

// ApplePlaylist is a catalog playlist resource with its tracks relationship.
type ApplePlaylist struct {
	ID         string `json:"id"`
	Attributes struct {
		Name        string           `json:"name"`
		Description appleDescription `json:"description"`
	} `json:"attributes"`
	Relationships struct {
		Tracks AppleSongs `json:"tracks"`
	} `json:"relationships"`
}

type appleSearchResponse struct {
	Results struct {
		Songs AppleSongs `json:"songs"`
	} `json:"results"`
}

type appleResourceRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// AppleAdapter implements [Adapter] and [Loader] against the Apple Music API.
//
// Authorization carries the developer token from the provider; library calls also send Music-User-Token.
type AppleAdapter struct {
	baseURL    string
	storefront string
	userToken  string
	executor   *Executor
	tokens     auth.Provider
	logger     *log.Logger
}

// NewAppleAdapter creates an Apple Music adapter for the configured storefront.
func NewAppleAdapter(deps Deps) (*AppleAdapter, error) {
	sf := strings.ToLower(strings.TrimSpace(deps.Storefront))
	if sf == "" {
		sf = DefaultStorefront
	}
	if !storefrontPattern.MatchString(sf) {
		return nil, fmt.Errorf("%w: storefront %q", shared.ErrInvalidArgument, deps.Storefront)
	}

	base := strings.TrimRight(deps.BaseURL, "/")
	if base == "" {
		base = AppleBaseURL
	}
	logger := deps.Logger
	if logger == nil {
		logger = shared.DiscardLogger()
	}

	return &AppleAdapter{
		baseURL:    base,
		storefront: sf,
		userToken:  deps.UserToken,
		executor:   deps.Executor,
		tokens:     deps.Tokens,
		logger:     shared.WithLogger(logger, "platform", models.PlatformApple),
	}, nil
}

func (a *AppleAdapter) Name() string              { return models.PlatformApple.DisplayName() }
func (a *AppleAdapter) Platform() models.Platform { return models.PlatformApple }
func (a *AppleAdapter) BatchSize() int            { return AppleBatchSize }
func (a *AppleAdapter) DescriptionLimit() int     { return AppleDescriptionLimit }

// Storefront returns the catalog region.
func (a *AppleAdapter) Storefront() string { return a.storefront }

// CreatePlaylist creates a library playlist.
func (a *AppleAdapter) CreatePlaylist(ctx context.Context, name, description string) (string, error) {
	build, err := a.library(http.MethodPost, a.baseURL+"/me/library/playlists", map[string]any{
		"attributes": map[string]string{"name": name, "description": description},
	})
	if err != nil {
		return "", err
	}

	var created struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := a.executor.Do(ctx, a.tokens, build, &created); err != nil {
		return "", fmt.Errorf("failed to create playlist: %w", err)
	}
	if len(created.Data) == 0 || created.Data[0].ID == "" {
		return "", fmt.Errorf("failed to create playlist: empty id in response")
	}

	id := created.Data[0].ID
	a.logger.Info("created playlist", "id", id, "name", name)
	return id, nil
}

// SearchTrack searches the storefront catalog and accepts the top song if its artist matches.
func (a *AppleAdapter) SearchTrack(ctx context.Context, track models.Track) (string, bool, error) {
	q := url.Values{}
	q.Set("term", SearchTerm(track.Name, track.PrimaryArtist()))
	q.Set("types", "songs")
	q.Set("limit", "1")

	endpoint := joinURL(a.baseURL, "/catalog/"+a.storefront+"/search", q)

	var resp appleSearchResponse
	if err := a.executor.Do(ctx, a.tokens, a.catalog(http.MethodGet, endpoint), &resp); err != nil {
		return "", false, err
	}

	songs := resp.Results.Songs.Data
	if len(songs) == 0 {
		return "", false, nil
	}

	top := songs[0]
	if !MatchesArtist(top.Attributes.ArtistName, track.PrimaryArtist()) {
		a.logger.Debug("top result rejected", "track", track.Name, "candidate", top.Attributes.Name)
		return "", false, nil
	}
	return top.ID, true, nil
}

// AddTracksBatch adds catalog song ids to a library playlist.
func (a *AppleAdapter) AddTracksBatch(ctx context.Context, playlistID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) > AppleBatchSize {
		return fmt.Errorf("%w: %d tracks exceeds batch size %d", shared.ErrInvalidArgument, len(ids), AppleBatchSize)
	}

	data := make([]appleResourceRef, len(ids))
	for i, id := range ids {
		data[i] = appleResourceRef{ID: id, Type: "songs"}
	}

	endpoint := a.baseURL + "/me/library/playlists/" + url.PathEscape(playlistID) + "/tracks"
	build, err := a.library(http.MethodPost, endpoint, map[string]any{"data": data})
	if err != nil {
		return err
	}
	return a.executor.Do(ctx, a.tokens, build, nil)
}

// LoadPlaylist fetches a catalog playlist and follows the tracks relationship pagination.
func (a *AppleAdapter) LoadPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	q := url.Values{}
	q.Set("include", "tracks")
	endpoint := joinURL(a.baseURL, "/catalog/"+a.storefront+"/playlists/"+url.PathEscape(id), q)

	var resp struct {
		Data []ApplePlaylist `json:"data"`
	}
	if err := a.executor.Do(ctx, a.tokens, a.catalog(http.MethodGet, endpoint), &resp); err != nil {
		if shared.StatusCode(err) == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
		}
		return nil, fmt.Errorf("failed to load playlist: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}

	ap := resp.Data[0]
	desc := ap.Attributes.Description.Standard
	if desc == "" {
		desc = ap.Attributes.Description.Short
	}
	playlist := &models.Playlist{Name: ap.Attributes.Name, Description: desc, Source: models.PlatformApple}

	page := ap.Relationships.Tracks
	for {
		playlist.Tracks = append(playlist.Tracks, a.normalize(page.Data)...)
		if page.Next == "" {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next, err := a.resolve(page.Next)
		if err != nil {
			return nil, err
		}
		page = AppleSongs{}
		if err := a.executor.Do(ctx, a.tokens, a.catalog(http.MethodGet, next), &page); err != nil {
			return nil, fmt.Errorf("failed to load playlist tracks: %w", err)
		}
	}

	a.logger.Info("loaded playlist", "name", playlist.Name, "tracks", playlist.TotalTracks())
	return playlist, nil
}

func (a *AppleAdapter) normalize(songs []AppleSong) []models.Track {
	tracks := make([]models.Track, 0, len(songs))
	for _, s := range songs {
		attrs := s.Attributes
		t, err := models.NewTrack(attrs.Name, []models.Artist{{Name: attrs.ArtistName}}, attrs.AlbumName, attrs.DurationInMillis)
		if err != nil {
			a.logger.Warn("skipping track", "id", s.ID, "err", err)
			continue
		}
		tracks = append(tracks, t)
	}
	return tracks
}

// resolve turns a relationship "next" path like "/v1/catalog/us/playlists/pl.x/tracks?offset=100" into a URL.
func (a *AppleAdapter) resolve(next string) (string, error) {
	base, err := url.Parse(a.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	ref, err := url.Parse(next)
	if err != nil {
		return "", fmt.Errorf("invalid next link %q: %w", next, err)
	}
	return base.ResolveReference(ref).String(), nil
}

func (a *AppleAdapter) catalog(method, endpoint string) RequestBuilder {
	return newJSONRequest(method, endpoint, nil, nil)
}

func (a *AppleAdapter) library(method, endpoint string, body any) (RequestBuilder, error) {
	if a.userToken == "" {
		return nil, fmt.Errorf("%w: Apple Music user token", shared.ErrMissingCredentials)
	}
	return newJSONRequest(method, endpoint, body, map[string]string{"Music-User-Token": a.userToken}), nil
}
