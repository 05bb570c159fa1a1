package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/porter/internal/auth"
	"github.com/desertthunder/porter/internal/models"
	"github.com/desertthunder/porter/internal/server"
	"github.com/desertthunder/porter/internal/shared"
	"github.com/urfave/cli/v3"
)

// Token fetches a destination token for the platform argument and prints it masked.
func (r *Runner) Token(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("platform")
	if name == "" {
		return fmt.Errorf("%w: platform (spotify or apple)", shared.ErrMissingArgument)
	}

	platform, err := models.ParsePlatform(name)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	provider, err := r.tokenProvider(platform, roleDestination)
	if err != nil {
		return err
	}

	cred, err := provider.Credential(ctx)
	if err != nil {
		return err
	}

	token := cred.Token
	if !cmd.Bool("show") {
		token = maskToken(token)
	}

	r.writePlain("✓ %s token: %s\n", platform.DisplayName(), token)
	if cred.ExpiresAt.IsZero() {
		return r.writePlain("Expires: never\n")
	}
	return r.writePlain("Expires: %s (in %s)\n", cred.ExpiresAt.Format(time.RFC3339), time.Until(cred.ExpiresAt).Round(time.Second))
}

func maskToken(token string) string {
	if len(token) <= 12 {
		return "****"
	}
	return token[:8] + "…" + token[len(token)-4:]
}

// Serve runs the token backend until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := int(cmd.Int("port")); port != 0 {
		cfg.Port = port
	}

	tokens, err := r.tokenHandler()
	if err != nil {
		return err
	}

	if cfg.APIKey == "" {
		r.logger.Warn("server.api_key is empty; token endpoints are open to anyone who can reach them")
	}

	srv := server.New(server.Opts{
		Host:    cfg.Host,
		Port:    cfg.Port,
		APIKey:  cfg.APIKey,
		Tokens:  tokens,
		Metrics: tokens.Metrics(),
		Logger:  r.logger,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.writePlain("Token backend listening on http://%s\n", srv.Addr())
	return srv.ListenAndServe(ctx)
}

// tokenHandler builds the backend's token endpoints from the credentials in config.
//
// Platforms without credentials are left unconfigured and answer 503.
func (r *Runner) tokenHandler() (*server.TokenHandler, error) {
	creds := r.config.Credentials
	opts := server.TokenHandlerOpts{Logger: r.logger}

	if creds.Spotify.ClientID != "" && creds.Spotify.ClientSecret != "" {
		source := auth.NewClientCredentialsSource(creds.Spotify.ClientID, creds.Spotify.ClientSecret, "", r.httpClient)
		opts.Spotify = auth.NewCachingProvider("spotify-app", source, auth.ProviderOpts{Logger: r.logger})
	} else {
		r.logger.Warn("spotify client credentials not configured; /token/spotify disabled")
	}

	if creds.Apple.TeamID != "" && creds.Apple.KeyID != "" && creds.Apple.PrivateKeyPath != "" {
		signer, err := auth.LoadDeveloperTokenSigner(creds.Apple.TeamID, creds.Apple.KeyID, creds.Apple.PrivateKeyPath, creds.Apple.TokenTTL())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
		}
		opts.Apple = signer
	} else {
		r.logger.Warn("apple music key not configured; /token/apple disabled")
	}

	return server.NewTokenHandler(opts), nil
}
