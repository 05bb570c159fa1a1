package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/porter/internal/models"
	"github.com/desertthunder/porter/internal/tasks"
	"github.com/desertthunder/porter/internal/ui"
)

// redirectLogs sends log output to a file while a bubbletea view owns the terminal.
//
// It must run before adapters and providers are built, since child loggers copy the writer.
func (r *Runner) redirectLogs() (restore func(), err error) {
	logPath := filepath.Join(os.TempDir(), "porter-tui.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open TUI log file: %w", err)
	}

	r.logger.SetOutput(logFile)
	return func() {
		r.logger.SetOutput(os.Stderr)
		logFile.Close()
	}, nil
}

// transferTUI runs the interactive preview, confirm and progress view.
func (r *Runner) transferTUI(ctx context.Context, playlist *models.Playlist, dest models.Platform, run ui.TransferFunc) (*tasks.TransferResult, error) {
	return ui.Run(ctx, playlist, dest, run)
}
