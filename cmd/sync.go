package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/wavelend/crosstide/internal/formatter"
	"github.com/wavelend/crosstide/internal/models"
	"github.com/wavelend/crosstide/internal/tasks"
)

// SyncPlaylist runs a full Spotify → Tidal sync for one playlist.
func (r *Runner) SyncPlaylist(ctx context.Context, cmd *cli.Command) error {
	sourceIDOrName := cmd.String("source")

	if err := r.ensureEngine(ctx); err != nil {
		return err
	}

	r.logger.Info("starting playlist sync", "source", sourceIDOrName)
	r.writePlain("%s\n", styles.title.Render("Syncing playlist: "+sourceIDOrName))

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := r.consumeProgress(progressCh)

	report, err := r.engine.Run(ctx, progressCh, sourceIDOrName)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	return r.finishReport(cmd, report)
}

// SyncAll syncs every Spotify playlist, minus the configured exclusions.
func (r *Runner) SyncAll(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureEngine(ctx); err != nil {
		return err
	}

	r.logger.Info("starting full library sync", "excluded", len(r.config.Sync.ExcludedPlaylists))
	r.writePlain("%s\n", styles.title.Render("Syncing all playlists"))

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := r.consumeProgress(progressCh)

	reports, err := r.engine.RunAll(ctx, progressCh, r.config.Sync.ExcludedPlaylists)
	close(progressCh)
	<-done

	for _, report := range reports {
		if ferr := r.finishReport(cmd, report); ferr != nil {
			return ferr
		}
	}
	return err
}

// SyncFavorites syncs liked songs into Tidal favorites, oldest first.
func (r *Runner) SyncFavorites(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureEngine(ctx); err != nil {
		return err
	}

	r.logger.Info("starting favorites sync")
	r.writePlain("%s\n", styles.title.Render("Syncing favorites"))

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := r.consumeProgress(progressCh)

	report, err := r.engine.SyncFavorites(ctx, progressCh)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	return r.finishReport(cmd, report)
}

// consumeProgress drains progress updates onto the output writer until the
// channel closes. The returned channel signals when draining is done.
func (r *Runner) consumeProgress(progressCh <-chan tasks.ProgressUpdate) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchSource, tasks.FetchTarget:
				r.writePlain("%s\n", update.Message)
			case tasks.PrePopulate:
				r.writePlain("%s\n", styles.help.Render(update.Message))
			case tasks.ResolveTracks:
				if update.Step == 0 {
					r.writePlain("\n%s\n", update.Message)
				} else {
					r.writePlain("   %s\n", update.Message)
				}
			case tasks.CreatePlaylist:
				r.writePlain("\n%s\n", styles.ok.Render(update.Message))
			case tasks.ApplyDiff:
				r.writePlain("   %s\n", update.Message)
			case tasks.SyncFavorites:
				r.writePlain("\n%s\n", update.Message)
			}
		}
	}()
	return done
}

// finishReport prints the styled summary and exports the report when the
// --export flag names a base path.
func (r *Runner) finishReport(cmd *cli.Command, report *models.SyncReport) error {
	r.writeSummary(report)

	if base := cmd.String("export"); base != "" {
		result, err := formatter.WriteReportExport(report, base)
		if err != nil {
			return err
		}
		r.writePlain("Report written to %s\n", result.ReportFile)
		if result.UnresolvedFile != "" {
			r.writePlain("Unresolved tracks written to %s\n", result.UnresolvedFile)
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, true)
	}
	return nil
}

func (r *Runner) writeSummary(report *models.SyncReport) {
	r.writePlain("\n%s\n", styles.title.Render("Sync complete: "+report.Playlist))
	r.writePlain("%s %d/%d tracks matched (%d from cache)\n",
		styles.ok.Render("✓"), report.MatchedCount, report.TotalTracks, report.CacheHits)
	r.writePlain("  Applied %d operations in %s\n",
		len(report.Applied), report.FinishedAt.Sub(report.StartedAt).Round(1e9))

	if report.NotFound > 0 {
		r.writePlain("%s %d tracks not found on Tidal\n", styles.warn.Render("!"), report.NotFound)
	}
	if report.Ambiguous > 0 {
		r.writePlain("%s %d tracks matched ambiguously and were skipped\n", styles.warn.Render("!"), report.Ambiguous)
	}
	if report.SearchErrors > 0 {
		r.writePlain("%s %d tracks failed to resolve due to search errors\n", styles.err.Render("✗"), report.SearchErrors)
	}

	if len(report.Unresolved) > 0 {
		r.writePlain("\nSongs not synced:\n")
		for i, track := range report.Unresolved {
			r.writePlain("  %d. %s - %s", i+1, track.PrimaryArtist(), track.Title)
			if track.Album != "" {
				r.writePlain(" (%s)", track.Album)
			}
			r.writePlain("\n")
		}
		r.writePlain("%s\n", styles.help.Render("Use --export to write the unresolved list to CSV."))
	}
}

// syncCommand handles playlist and favorites sync operations
func syncCommand(r *Runner) *cli.Command {
	exportFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "export",
			Aliases: []string{"o"},
			Usage:   "Base path for report export files",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Print the full report as JSON",
		},
	}

	return &cli.Command{
		Name:  "sync",
		Usage: "Sync playlists & favorites from Spotify to Tidal",
		Commands: []*cli.Command{
			{
				Name:  "playlist",
				Usage: "Sync one playlist by ID or name",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "source",
						Aliases:  []string{"s"},
						Usage:    "Source playlist name or ID",
						Required: true,
					},
				}, exportFlags...),
				Action: r.SyncPlaylist,
			},
			{
				Name:   "all",
				Usage:  "Sync every playlist (honors sync.excluded_playlists)",
				Flags:  exportFlags,
				Action: r.SyncAll,
			},
			{
				Name:    "favorites",
				Aliases: []string{"likes"},
				Usage:   "Sync liked songs to Tidal favorites",
				Flags:   exportFlags,
				Action:  r.SyncFavorites,
			},
		},
	}
}
