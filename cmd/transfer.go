package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/desertthunder/porter/internal/formatter"
	"github.com/desertthunder/porter/internal/models"
	"github.com/desertthunder/porter/internal/shared"
	"github.com/desertthunder/porter/internal/tasks"
	"github.com/desertthunder/porter/internal/ui"
	"github.com/urfave/cli/v3"
)

// Transfer loads the --url playlist and recreates it on the --to platform.
func (r *Runner) Transfer(ctx context.Context, cmd *cli.Command) error {
	dest, err := models.ParsePlatform(cmd.String("to"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	reportPath := cmd.String("report")
	format, err := reportFormat(cmd.String("format"), reportPath)
	if err != nil {
		return err
	}

	useTUI := cmd.Bool("tui")
	useBar := cmd.Bool("bar") && !useTUI
	if useTUI || useBar {
		restore, err := r.redirectLogs()
		if err != nil {
			return err
		}
		defer restore()
	}

	executor := r.executor()
	playlist, err := r.loadPlaylist(ctx, cmd.String("url"), executor)
	if err != nil {
		return err
	}

	adapter, err := r.adapter(dest, executor)
	if err != nil {
		return err
	}

	engine, release, err := r.engine()
	if err != nil {
		return err
	}
	defer release()

	run := func(ctx context.Context, reporter tasks.ProgressReporter) (*tasks.TransferResult, error) {
		return engine.Transfer(ctx, playlist, adapter, reporter)
	}

	var result *tasks.TransferResult
	if useTUI {
		result, err = r.transferTUI(ctx, playlist, dest, run)
		if err == nil && result == nil {
			return r.writePlain("Transfer cancelled\n")
		}
	} else if useBar {
		title := fmt.Sprintf("%s → %s", playlist.Name, dest.DisplayName())
		result, err = ui.RunProgress(ctx, title, run)
	} else {
		r.writePlain("Transferring '%s' (%d tracks) from %s to %s\n\n",
			playlist.Name, playlist.TotalTracks(), playlist.Source.DisplayName(), dest.DisplayName())
		result, err = run(ctx, tasks.ReporterFunc(r.printProgress))
	}
	if err != nil {
		return err
	}

	r.printSummary(result)

	if reportPath != "" || cmd.String("format") != "" {
		written, err := formatter.WriteReport(reportPath, format, result)
		if err != nil {
			return err
		}
		r.logger.Info("report written", "path", written, "format", format)
		r.writePlain("\nReport written to %s\n", written)
	}

	return nil
}

// reportFormat resolves --format, falling back to the --report extension and then plain text.
func reportFormat(flag, path string) (formatter.Format, error) {
	if flag != "" {
		return formatter.ParseFormat(flag)
	}
	if f, err := formatter.ParseFormat(filepath.Ext(path)); err == nil {
		return f, nil
	}
	return formatter.FormatText, nil
}

func (r *Runner) printProgress(update tasks.ProgressUpdate) {
	switch update.Phase {
	case tasks.Searching:
		r.writePlain("  [%d/%d] %s\n", update.Step, update.Total, update.Status)
	case tasks.Adding:
		r.writePlain("\n📝 %s\n", update.Status)
	case tasks.Complete:
		r.writePlain("\n✓ %s\n", update.Status)
	}
}

func (r *Runner) printSummary(result *tasks.TransferResult) {
	r.writePlain("\n")
	r.writePlainHeader("Transfer Complete!")
	r.writePlain("Playlist: %s\n", result.PlaylistName)
	r.writePlain("Destination: %s (%s)\n", result.Destination.DisplayName(), result.PlaylistID)
	r.writePlain("Matched: %d/%d (%.1f%%)\n", len(result.MatchedIDs), result.Total(), result.MatchPercentage())

	if len(result.NotFound) > 0 {
		r.writePlain("\nCould not find %d tracks:\n", len(result.NotFound))
		for _, track := range result.NotFound {
			r.writePlain("  - %s - %s\n", track.PrimaryArtist(), track.Name)
		}
	}
}
