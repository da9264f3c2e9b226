package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/wavelend/crosstide/internal/models"
	"github.com/wavelend/crosstide/internal/shared"
)

// Playlists lists playlists from either catalog.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureServices(ctx); err != nil {
		return err
	}

	var playlists []models.Playlist
	var label string
	var err error

	switch service := cmd.String("service"); service {
	case "spotify":
		label = r.source.Name()
		playlists, err = r.source.GetPlaylists(ctx)
	case "tidal":
		label = r.target.Name()
		playlists, err = r.target.GetPlaylists(ctx)
	default:
		return fmt.Errorf("%w: invalid service '%s' (must be 'spotify' or 'tidal')", shared.ErrInvalidInput, service)
	}
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, true)
	}

	r.writePlain("%s\n", styles.title.Render(fmt.Sprintf("%s playlists (%d)", label, len(playlists))))
	for i, pl := range playlists {
		r.writePlain("%d. %s", i+1, pl.Name)
		if pl.TrackCount > 0 {
			r.writePlain(" (%d tracks)", pl.TrackCount)
		}
		r.writePlain("  %s\n", styles.help.Render(pl.ID))
	}
	return nil
}

// playlistsCommand lists playlists from the configured services
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "List playlists from Spotify or Tidal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "service",
				Aliases: []string{"s"},
				Usage:   "Which service to list (spotify or tidal)",
				Value:   "spotify",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Playlists,
	}
}
