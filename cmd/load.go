package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/porter/internal/models"
	"github.com/desertthunder/porter/internal/shared"
	"github.com/urfave/cli/v3"
)

// Load prints a source playlist in normalized form.
func (r *Runner) Load(ctx context.Context, cmd *cli.Command) error {
	playlist, err := r.loadPlaylist(ctx, cmd.String("url"), r.executor())
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlist, true)
	}

	r.writePlainHeader(playlist.Name)
	r.writePlain("Source: %s\n", playlist.Source.DisplayName())
	if playlist.Description != "" {
		r.writePlain("Description: %s\n", playlist.Description)
	}
	r.writePlain("Tracks: %d (%s)\n\n", playlist.TotalTracks(), playlist.Duration())

	for i, track := range playlist.Tracks {
		r.writePlain("%3d. %s - %s [%s]\n", i+1, track.ArtistNames(), track.Name, track.FormattedDuration())
	}
	return nil
}

// Search looks up one track on the --to platform.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	platform, err := models.ParsePlatform(cmd.String("to"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	track, err := models.NewTrack(cmd.String("track"), []models.Artist{{Name: cmd.String("artist")}}, "", 0)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	adapter, err := r.adapter(platform, r.executor())
	if err != nil {
		return err
	}

	r.logger.Debug("searching", "platform", platform, "track", track.Name, "artist", track.PrimaryArtist())
	id, found, err := adapter.SearchTrack(ctx, track)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if !found {
		return r.writePlain("✗ %s by %s not found on %s\n", track.Name, track.PrimaryArtist(), adapter.Name())
	}
	return r.writePlain("✓ %s by %s found on %s: %s\n", track.Name, track.PrimaryArtist(), adapter.Name(), id)
}
