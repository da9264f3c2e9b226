package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// CacheStats prints counts of cached match outcomes by status.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureCache(); err != nil {
		return err
	}

	stats, err := r.cache.Stats()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(stats, true)
	}

	r.writePlain("%s\n", styles.title.Render("Match cache"))
	r.writePlain("Entries: %d\n", stats.Total)
	r.writePlain("  Matched: %d\n", stats.Matched)
	r.writePlain("  Not found: %d\n", stats.NotFound)
	r.writePlain("  Ambiguous: %d\n", stats.Ambiguous)
	return nil
}

// CacheClear deletes every cached match outcome.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureCache(); err != nil {
		return err
	}

	if err := r.cache.Clear(); err != nil {
		return err
	}

	r.logger.Info("match cache cleared")
	r.writePlain("%s Match cache cleared. The next sync re-resolves every track.\n", styles.ok.Render("✓"))
	return nil
}

// cacheCommand handles match cache inspection and maintenance
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and manage the match cache",
		Commands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Show cached match counts by status",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CacheStats,
			},
			{
				Name:   "clear",
				Usage:  "Delete all cached match outcomes",
				Action: r.CacheClear,
			},
		},
	}
}
