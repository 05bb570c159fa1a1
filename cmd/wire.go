package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/porter/internal/auth"
	"github.com/desertthunder/porter/internal/models"
	"github.com/desertthunder/porter/internal/repositories"
	"github.com/desertthunder/porter/internal/services"
	"github.com/desertthunder/porter/internal/shared"
	"github.com/desertthunder/porter/internal/tasks"
)

// tokenRole separates reading a source playlist from writing to a destination.
type tokenRole int

const (
	roleSource tokenRole = iota
	roleDestination
)

// tokenSource picks where bearer tokens for p come from.
//
// Spotify reads use the client-credentials grant when a secret is configured locally, and Spotify writes use
// the configured user token. Everything else goes through the token backend.
func (r *Runner) tokenSource(p models.Platform, role tokenRole) (auth.Source, error) {
	creds := r.config.Credentials
	backend := r.config.Backend

	switch p {
	case models.PlatformSpotify:
		if role == roleSource && creds.Spotify.ClientID != "" && creds.Spotify.ClientSecret != "" {
			return auth.NewClientCredentialsSource(creds.Spotify.ClientID, creds.Spotify.ClientSecret, "", r.httpClient), nil
		}
		if role == roleDestination && creds.Spotify.UserToken != "" {
			return auth.StaticSource(creds.Spotify.UserToken), nil
		}
		return auth.NewBackendBearerSource(backend.URL, string(p), backend.APIKey, r.httpClient), nil
	case models.PlatformApple:
		return auth.NewAppleSessionSource(backend.URL, backend.APIKey, creds.Apple.TokenTTL(), r.httpClient), nil
	}
	return nil, fmt.Errorf("%s tokens: %w", p.DisplayName(), shared.ErrNotImplemented)
}

func (r *Runner) tokenProvider(p models.Platform, role tokenRole) (*auth.CachingProvider, error) {
	source, err := r.tokenSource(p, role)
	if err != nil {
		return nil, err
	}
	return auth.NewCachingProvider(string(p), source, auth.ProviderOpts{Logger: r.logger}), nil
}

func (r *Runner) deps(p models.Platform, role tokenRole, executor *services.Executor) (services.Deps, error) {
	tokens, err := r.tokenProvider(p, role)
	if err != nil {
		return services.Deps{}, err
	}

	return services.Deps{
		Executor:   executor,
		Tokens:     tokens,
		UserToken:  r.config.Credentials.Apple.UserToken,
		Storefront: r.config.Credentials.Apple.Storefront,
		Market:     r.config.Credentials.Spotify.Market,
		BaseURL:    r.baseURLs[p],
		Logger:     r.logger,
	}, nil
}

func (r *Runner) executor() *services.Executor {
	return services.NewExecutorFromConfig(r.config.Transfer, r.logger)
}

// loader builds the source playlist loader for p.
func (r *Runner) loader(p models.Platform, executor *services.Executor) (services.Loader, error) {
	deps, err := r.deps(p, roleSource, executor)
	if err != nil {
		return nil, err
	}
	return services.NewLoader(p, deps)
}

// adapter builds the destination adapter for p.
func (r *Runner) adapter(p models.Platform, executor *services.Executor) (services.Adapter, error) {
	deps, err := r.deps(p, roleDestination, executor)
	if err != nil {
		return nil, err
	}
	return services.NewAdapter(p, deps)
}

// engine builds a transfer engine backed by the session match cache. The returned func releases the cache.
func (r *Runner) engine() (*tasks.Engine, func(), error) {
	db, err := shared.OpenMatchCache(r.config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open match cache: %w", err)
	}

	cache := repositories.NewMatchCacheAdapter(repositories.NewMatchRepository(db))
	engine := tasks.NewEngine(tasks.EngineOpts{
		BatchDelay: r.config.Transfer.BatchDelay(),
		Cache:      cache,
		Logger:     r.logger,
	})

	return engine, func() {
		if err := db.Close(); err != nil {
			r.logger.Warn("failed to close match cache", "error", err)
		}
	}, nil
}

// loadPlaylist resolves a playlist URL and loads it from its platform.
func (r *Runner) loadPlaylist(ctx context.Context, rawURL string, executor *services.Executor) (*models.Playlist, error) {
	platform, id, err := services.ParsePlaylistURL(rawURL)
	if err != nil {
		return nil, err
	}

	loader, err := r.loader(platform, executor)
	if err != nil {
		return nil, err
	}

	r.logger.Info("loading playlist", "platform", platform, "id", id)
	playlist, err := loader.LoadPlaylist(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load playlist: %w", err)
	}
	return playlist, nil
}
