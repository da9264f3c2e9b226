package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/wavelend/crosstide/internal/models"
	"github.com/wavelend/crosstide/internal/services"
	"github.com/wavelend/crosstide/internal/shared"
)

// Default request limits against the target catalog.
const (
	DefaultConcurrentRequests = 10
	DefaultRequestsPerSecond  = 10.0
)

// Searcher is the engine's view of target-catalog search operations.
type Searcher interface {
	SearchTracks(ctx context.Context, query string) ([]models.Track, error)
	SearchAlbums(ctx context.Context, query string) ([]models.Album, error)
	GetAlbumTracks(ctx context.Context, albumID string) ([]models.Track, error)
}

// SearcherOpts contains tuning for a RateLimitedSearcher.
type SearcherOpts struct {
	ConcurrentRequests int     // max in-flight requests (default 10)
	RequestsPerSecond  float64 // sustained request rate (default 10)
	Retry              RetryPolicy
	Logger             *log.Logger
}

// RateLimitedSearcher wraps the target catalog's search operations behind
// a concurrency semaphore and a shared token bucket, so the two limits
// hold jointly no matter how many orchestration goroutines call in.
// Transient and rate-limit failures are retried with bounded backoff.
type RateLimitedSearcher struct {
	target  services.TargetService
	limiter *rate.Limiter
	sem     chan struct{}
	retry   RetryPolicy
	logger  *log.Logger
}

// NewRateLimitedSearcher creates a searcher over the given target service.
func NewRateLimitedSearcher(target services.TargetService, opts SearcherOpts) *RateLimitedSearcher {
	if opts.ConcurrentRequests <= 0 {
		opts.ConcurrentRequests = DefaultConcurrentRequests
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	burst := int(opts.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}

	return &RateLimitedSearcher{
		target:  target,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst),
		sem:     make(chan struct{}, opts.ConcurrentRequests),
		retry:   opts.Retry,
		logger:  shared.WithLogger(opts.Logger, "component", "searcher"),
	}
}

// SearchTracks searches the target catalog under both limits.
func (s *RateLimitedSearcher) SearchTracks(ctx context.Context, query string) ([]models.Track, error) {
	var tracks []models.Track
	err := s.guarded(ctx, "search_tracks", func(ctx context.Context) error {
		var err error
		tracks, err = s.target.SearchTracks(ctx, query)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tracks, nil
}

// SearchAlbums searches the target catalog for albums under both limits.
func (s *RateLimitedSearcher) SearchAlbums(ctx context.Context, query string) ([]models.Album, error) {
	var albums []models.Album
	err := s.guarded(ctx, "search_albums", func(ctx context.Context) error {
		var err error
		albums, err = s.target.SearchAlbums(ctx, query)
		return err
	})
	if err != nil {
		return nil, err
	}
	return albums, nil
}

// GetAlbumTracks fetches album tracks under both limits.
func (s *RateLimitedSearcher) GetAlbumTracks(ctx context.Context, albumID string) ([]models.Track, error) {
	var tracks []models.Track
	err := s.guarded(ctx, "get_album_tracks", func(ctx context.Context) error {
		var err error
		tracks, err = s.target.GetAlbumTracks(ctx, albumID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tracks, nil
}

// guarded runs fn holding a semaphore slot, taking a rate token before
// every attempt so retries also count against the sustained rate.
// Exhausted retries surface as [shared.ErrSearchFailed].
func (s *RateLimitedSearcher) guarded(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.sem }()

	err := s.retry.Do(ctx, s.logger, op, func(ctx context.Context) error {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		return fn(ctx)
	})
	if err == nil {
		return nil
	}
	if s.retry.Retryable(err) {
		return fmt.Errorf("%w: %s: %w", shared.ErrSearchFailed, op, err)
	}
	return err
}
