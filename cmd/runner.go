package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/wavelend/crosstide/internal/repositories"
	"github.com/wavelend/crosstide/internal/services"
	"github.com/wavelend/crosstide/internal/shared"
	"github.com/wavelend/crosstide/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Services, the cache database and the engine are constructed lazily so
// commands that need no credentials (setup, config) work without them.
type Runner struct {
	config *shared.Config
	source services.SourceService
	target services.TargetService
	db     *sql.DB
	cache  *repositories.MatchCacheRepository
	engine *tasks.SyncEngine
	logger *log.Logger
	output io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Source, Target and Cache may be preset in tests to skip lazy construction.
type RunnerOpts struct {
	Config *shared.Config
	Source services.SourceService
	Target services.TargetService
	Cache  *repositories.MatchCacheRepository
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config: opts.Config,
		source: opts.Source,
		target: opts.Target,
		cache:  opts.Cache,
		logger: opts.Logger,
		output: opts.Output,
	}
}

// Close releases the cache database handle if one was opened.
func (r *Runner) Close() {
	if r.db != nil {
		r.db.Close()
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, configCommand, syncCommand, playlistsCommand, cacheCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// ensureServices constructs the catalog services from configured credentials.
func (r *Runner) ensureServices(ctx context.Context) error {
	if r.source == nil {
		svc, err := services.NewSpotifyService(ctx, r.config.Credentials.Spotify.AccessToken, r.logger)
		if err != nil {
			return err
		}
		r.source = svc
	}

	if r.target == nil {
		svc, err := services.NewTidalService(ctx, services.TidalOpts{
			AccessToken: r.config.Credentials.Tidal.AccessToken,
			UserID:      r.config.Credentials.Tidal.UserID,
			CountryCode: r.config.Credentials.Tidal.CountryCode,
			Logger:      r.logger,
		})
		if err != nil {
			return err
		}
		r.target = svc
	}

	return nil
}

// ensureCache opens the cache database, applying pending migrations.
func (r *Runner) ensureCache() error {
	if r.cache != nil {
		return nil
	}

	db, err := shared.NewDatabase(r.config.Cache.Path)
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Cache.MaxOpenConns, r.config.Cache.MaxIdleConns)

	if err := repositories.Migrate(db); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	r.cache = repositories.NewMatchCacheRepository(db)
	return nil
}

// ensureEngine wires services, cache, searcher and engine together.
func (r *Runner) ensureEngine(ctx context.Context) error {
	if r.engine != nil {
		return nil
	}
	if err := r.ensureServices(ctx); err != nil {
		return err
	}
	if err := r.ensureCache(); err != nil {
		return err
	}

	retry := tasks.DefaultRetryPolicy()
	retry.MaxAttempts = r.config.Sync.RetryAttempts

	searcher := tasks.NewRateLimitedSearcher(r.target, tasks.SearcherOpts{
		ConcurrentRequests: r.config.Sync.ConcurrentRequests,
		RequestsPerSecond:  r.config.Sync.RequestsPerSecond,
		Retry:              retry,
		Logger:             r.logger,
	})

	r.engine = tasks.NewSyncEngine(r.source, r.target, searcher, r.cache, tasks.EngineOpts{
		PreferQuality:          r.config.Sync.PreferQuality,
		ConcurrentRequests:     r.config.Sync.ConcurrentRequests,
		DurationTolerance:      r.config.Sync.DurationToleranceSeconds,
		MirrorFavoriteRemovals: r.config.Sync.MirrorFavoriteRemovals,
	}, r.logger)
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
