package main

import (
	"context"
	"errors"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/wavelend/crosstide/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	// .env is optional; credentials can also live in config.toml or the
	// environment proper.
	_ = godotenv.Load()

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config.toml, using defaults", "error", err)
		}
	}

	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: logger,
	})
	defer runner.Close()

	app := &cli.Command{
		Name:     "crosstide",
		Usage:    "Sync playlists & favorites from Spotify to Tidal",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrAuthFailed) {
			logger.Error("authentication failed; refresh your tokens and retry", "error", err)
			os.Exit(1)
		}
		logger.Fatalf("application error: %v", err)
	}
}
