package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/porter/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the embedded example config to --path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("path")

	r.logger.Info("creating config file from template", "path", path)
	if err := shared.CreateConfigFile(path); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	r.writePlain("✓ Config written to %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set backend.url to your token backend, or run 'porter serve' with credentials filled in\n")
	r.writePlain("2. Set credentials.apple.user_token (or APPLE_MUSIC_USER_TOKEN) to write to Apple Music\n")
	r.writePlain("3. Run 'porter load --url <playlist url>' to check access\n")
	return nil
}
