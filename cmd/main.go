package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/porter/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	if err := newApp(runner).Run(context.Background(), os.Args); err != nil {
		os.Exit(handleError(logger, os.Stderr, err))
	}
}

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:     "porter",
		Usage:    "Move playlists between Spotify & Apple Music",
		Version:  "0.1.0",
		Flags:    globalFlags(),
		Before:   r.before,
		Commands: r.register(),
	}
}

// handleError logs the technical detail, prints a short message for the user and returns the exit code.
func handleError(logger *log.Logger, w io.Writer, err error) int {
	switch {
	case errors.Is(err, shared.ErrNotImplemented):
		logger.Warn("not implemented", "error", err)
		fmt.Fprintf(w, "Not implemented: %v\n", err)
		return 0
	case errors.Is(err, shared.ErrAuthFailed):
		logger.Error("authorization error", "error", err)
		fmt.Fprintln(w, "Error: failed to authorize")
	case errors.Is(err, shared.ErrPlaylistNotFound):
		logger.Error("playlist lookup failed", "error", err)
		fmt.Fprintln(w, "Error: playlist not found")
	case errors.Is(err, shared.ErrTransferFailed):
		logger.Error("transfer failed", "error", err)
		fmt.Fprintln(w, "Error: playlist transfer failed")
	default:
		logger.Error("application error", "error", err)
		fmt.Fprintf(w, "Error: %v\n", err)
	}
	return 1
}
