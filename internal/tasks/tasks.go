// package tasks implements sync orchestration between the source and
// target catalogs.
//
// The core abstraction is SyncEngine, which resolves each source track to
// a target track (cache first, then rate-limited search plus matching)
// and applies the resulting diff to the target playlist. Operations emit
// progress updates via channels for non-blocking status reporting.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/charmbracelet/log"

	"github.com/wavelend/crosstide/internal/match"
	"github.com/wavelend/crosstide/internal/models"
	"github.com/wavelend/crosstide/internal/services"
	"github.com/wavelend/crosstide/internal/shared"
)

// albumSimilarityThreshold is the minimum Jaro-Winkler similarity between
// simplified album titles for the album-assisted search stage to trust an
// album hit.
const albumSimilarityThreshold = 0.8

// MatchCache is the engine's view of the persistent match cache.
// This abstraction allows for easier testing and decoupling from the
// concrete SQLite repository.
type MatchCache interface {
	Lookup(fingerprint, mode string) (*models.CacheEntry, error)
	Store(fingerprint, mode string, result models.MatchResult) error
	Invalidate(fingerprint, mode string) error
}

// EngineOpts contains tuning options for the SyncEngine.
type EngineOpts struct {
	PreferQuality          bool
	ConcurrentRequests     int // lookup worker pool size, matches the searcher's limit
	DurationTolerance      int
	MirrorFavoriteRemovals bool
}

// SyncEngine orchestrates playlist and favorites sync.
//
// Matcher and MatchCache are invoked synchronously per track; the
// searcher is the only component performing concurrent I/O.
type SyncEngine struct {
	source   services.SourceService
	target   services.TargetService
	searcher Searcher
	cache    MatchCache
	matcher  match.Matcher
	opts     EngineOpts
	logger   *log.Logger

	albumSim *metrics.JaroWinkler
}

// NewSyncEngine creates a SyncEngine with the provided collaborators.
func NewSyncEngine(source services.SourceService, target services.TargetService, searcher Searcher, cache MatchCache, opts EngineOpts, logger *log.Logger) *SyncEngine {
	if opts.ConcurrentRequests <= 0 {
		opts.ConcurrentRequests = DefaultConcurrentRequests
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &SyncEngine{
		source:   source,
		target:   target,
		searcher: searcher,
		cache:    cache,
		matcher:  match.NewMatcher(opts.DurationTolerance),
		opts:     opts,
		logger:   shared.WithLogger(logger, "component", "engine"),
		albumSim: metrics.NewJaroWinkler(),
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *SyncEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// resolution pairs a source track with its match outcome. Exactly one of
// result/err is meaningful; err records a search failure, not a miss.
type resolution struct {
	track     models.Track
	result    models.MatchResult
	err       error
	fromCache bool
}

// Run syncs one source playlist to the same-named target playlist,
// creating it on the target when missing. The source playlist may be
// referenced by ID or by name.
func (e *SyncEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, sourceIDOrName string) (*models.SyncReport, error) {
	if e.source == nil || e.target == nil {
		return nil, fmt.Errorf("%w: catalog service not initialized", shared.ErrServiceUnavailable)
	}

	sourcePlaylist, err := e.findSourcePlaylist(ctx, sourceIDOrName)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, fetchSourceUpdate(sourcePlaylist.Name))
	sourceTracks, err := e.source.GetPlaylistTracks(ctx, sourcePlaylist.ID)
	if err != nil {
		return nil, err
	}
	if len(sourceTracks) == 0 {
		e.logger.Info("source playlist is empty, nothing to sync", "playlist", sourcePlaylist.Name)
		return &models.SyncReport{
			RunID:      shared.GenerateID(),
			Playlist:   sourcePlaylist.Name,
			StartedAt:  time.Now(),
			FinishedAt: time.Now(),
		}, nil
	}

	targetPlaylist, err := e.findOrCreateTargetPlaylist(ctx, progress, sourcePlaylist)
	if err != nil {
		return nil, err
	}

	return e.SyncPlaylist(ctx, progress, sourceTracks, targetPlaylist.ID, sourcePlaylist.Name)
}

// RunAll syncs every source playlist not on the exclusion list. A failure
// on one playlist is logged and does not stop the rest, unless it is an
// authentication failure, which ends the batch.
func (e *SyncEngine) RunAll(ctx context.Context, progress chan<- ProgressUpdate, excluded []string) ([]*models.SyncReport, error) {
	if e.source == nil || e.target == nil {
		return nil, fmt.Errorf("%w: catalog service not initialized", shared.ErrServiceUnavailable)
	}

	playlists, err := e.source.GetPlaylists(ctx)
	if err != nil {
		return nil, err
	}

	skip := make(map[string]struct{}, len(excluded))
	for _, id := range excluded {
		skip[id] = struct{}{}
	}

	var reports []*models.SyncReport
	for _, pl := range playlists {
		if _, ok := skip[pl.ID]; ok {
			e.logger.Info("skipping excluded playlist", "playlist", pl.Name)
			continue
		}

		report, err := e.Run(ctx, progress, pl.ID)
		if err != nil {
			if errors.Is(err, shared.ErrAuthFailed) || ctx.Err() != nil {
				return reports, err
			}
			e.logger.Error("playlist sync failed", "playlist", pl.Name, "err", err)
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// SyncPlaylist reconciles an ordered sequence of source tracks against a
// target playlist: resolve each source track to a target track ID, diff
// the resolved sequence against the playlist's current contents, and
// apply the diff. Per-track resolution failures never abort the run;
// only target mutation errors are fatal for this sync operation.
func (e *SyncEngine) SyncPlaylist(ctx context.Context, progress chan<- ProgressUpdate, sourceTracks []models.Track, targetPlaylistID, playlistName string) (*models.SyncReport, error) {
	if e.target == nil {
		return nil, fmt.Errorf("%w: target service not initialized", shared.ErrServiceUnavailable)
	}

	report := &models.SyncReport{
		RunID:       shared.GenerateID(),
		Playlist:    playlistName,
		TotalTracks: len(sourceTracks),
		StartedAt:   time.Now(),
	}
	logger := shared.WithLogger(e.logger, "run", report.RunID, "playlist", playlistName)

	e.sendProgress(progress, fetchTargetUpdate(playlistName))
	currentTracks, err := e.target.GetPlaylistTracks(ctx, targetPlaylistID)
	if err != nil {
		return report, err
	}

	// Seed the cache from what is already in the target playlist, so an
	// unchanged playlist costs zero searches.
	seeded := e.prePopulateCache(sourceTracks, currentTracks)
	e.sendProgress(progress, prePopulateUpdate(seeded, len(sourceTracks)))

	resolutions := e.resolveTracks(ctx, progress, sourceTracks)

	desired := e.collectResolved(logger, report, resolutions)

	currentIDs := make([]string, 0, len(currentTracks))
	for _, t := range currentTracks {
		currentIDs = append(currentIDs, t.ID)
	}

	diff := BuildPlaylistDiff(currentIDs, desired)
	if diff.Empty() {
		logger.Info("no changes to write to target playlist")
	} else if err := e.applyDiff(ctx, progress, targetPlaylistID, diff, report); err != nil {
		report.FinishedAt = time.Now()
		return report, err
	}

	report.FinishedAt = time.Now()
	logger.Info("playlist sync complete",
		"matched", report.MatchedCount,
		"not_found", report.NotFound,
		"ambiguous", report.Ambiguous,
		"search_errors", report.SearchErrors,
		"cache_hits", report.CacheHits,
		"applied_ops", len(report.Applied),
	)
	return report, nil
}

// resolveTracks resolves source tracks concurrently through a bounded
// worker pool. Results are collected into a slice keyed by source
// position, so the resolved sequence preserves source order no matter
// which lookups finish first. Progress reports the number of completed
// lookups, not source positions, so the counter never runs backwards.
func (e *SyncEngine) resolveTracks(ctx context.Context, progress chan<- ProgressUpdate, tracks []models.Track) []resolution {
	out := make([]resolution, len(tracks))

	jobs := make(chan int, len(tracks))
	for i := range tracks {
		jobs <- i
	}
	close(jobs)

	e.sendProgress(progress, resolveTrackUpdate(0, len(tracks), nil))

	var completed atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < e.opts.ConcurrentRequests; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					out[idx] = resolution{track: tracks[idx], err: ctx.Err()}
					continue
				}
				out[idx] = e.resolveOne(ctx, tracks[idx])
				e.sendProgress(progress, resolveTrackUpdate(int(completed.Add(1)), len(tracks), &tracks[idx]))
			}
		}()
	}
	wg.Wait()

	return out
}

// resolveOne resolves a single source track: cache lookup first, then an
// album-assisted search, then a standalone track search. Every search
// outcome (including not-found and ambiguous) is written back to the
// cache; search errors are not cached so a later run retries them.
func (e *SyncEngine) resolveOne(ctx context.Context, track models.Track) resolution {
	fp := match.Fingerprint(track)
	mode := match.Mode(e.opts.PreferQuality)

	if entry, err := e.cache.Lookup(fp, mode); err != nil {
		e.logger.Warn("cache lookup failed", "track", track.Title, "err", err)
	} else if entry != nil {
		return resolution{track: track, result: entry.Result, fromCache: true}
	}

	result, err := e.searchTrack(ctx, track)
	if err != nil {
		return resolution{track: track, err: err}
	}

	if cerr := e.cache.Store(fp, mode, result); cerr != nil {
		// Degrades to no cache benefit for this entry; the run continues.
		e.logger.Warn("cache write failed", "track", track.Title, "err", fmt.Errorf("%w: %v", shared.ErrCacheWrite, cerr))
	}

	return resolution{track: track, result: result}
}

// searchTrack performs the two-stage search for a source track on the
// target catalog.
func (e *SyncEngine) searchTrack(ctx context.Context, track models.Track) (models.MatchResult, error) {
	if result, ok := e.searchViaAlbum(ctx, track); ok {
		return result, nil
	}

	query := match.Simplify(track.Title) + " " + match.Simplify(track.PrimaryArtist())
	candidates, err := e.searcher.SearchTracks(ctx, query)
	if err != nil {
		return models.MatchResult{}, err
	}

	result := e.matcher.Match(track, candidates, e.opts.PreferQuality)
	if result.Status == models.StatusAmbiguous {
		e.logger.Warn("ambiguous match: multiple ISRC hits with conflicting durations",
			"track", track.Title, "artist", track.PrimaryArtist())
	}
	return result, nil
}

// searchViaAlbum tries to locate the source track through its album: find
// a sufficiently similar album on the target and probe the track at the
// source's track number. Errors here only disable the stage; the
// standalone search still runs. Auth failures are the exception and are
// returned through the standalone search path.
func (e *SyncEngine) searchViaAlbum(ctx context.Context, track models.Track) (models.MatchResult, bool) {
	if track.Album == "" || track.AlbumArtist == "" || track.TrackNumber <= 0 {
		return models.MatchResult{}, false
	}

	query := match.Simplify(track.Album) + " " + match.Simplify(track.AlbumArtist)
	albums, err := e.searcher.SearchAlbums(ctx, query)
	if err != nil {
		e.logger.Debug("album search failed, falling back to track search", "album", track.Album, "err", err)
		return models.MatchResult{}, false
	}

	for _, album := range albums {
		if album.NumTracks < track.TrackNumber {
			continue
		}
		if !e.albumSimilar(track, album) {
			continue
		}

		albumTracks, err := e.searcher.GetAlbumTracks(ctx, album.ID)
		if err != nil {
			e.logger.Debug("album tracks fetch failed", "album", album.Name, "err", err)
			continue
		}
		if len(albumTracks) < track.TrackNumber {
			continue
		}

		candidate := albumTracks[track.TrackNumber-1]
		result := e.matcher.Match(track, []models.Track{candidate}, e.opts.PreferQuality)
		if result.Matched() {
			return result, true
		}
	}
	return models.MatchResult{}, false
}

// albumSimilar compares simplified album titles with Jaro-Winkler
// similarity and requires an artist overlap.
func (e *SyncEngine) albumSimilar(track models.Track, album models.Album) bool {
	sim := strutil.Similarity(
		match.NormalizeTitle(track.Album),
		match.NormalizeTitle(album.Name),
		e.albumSim,
	)
	if sim < albumSimilarityThreshold {
		return false
	}
	return match.AnyArtistOverlap([]string{track.AlbumArtist}, album.Artists)
}

// prePopulateCache matches existing target playlist tracks against source
// tracks and records the pairs in the cache. Each target track is
// consumed at most once. Returns the number of entries seeded.
func (e *SyncEngine) prePopulateCache(sourceTracks, targetTracks []models.Track) int {
	mode := match.Mode(e.opts.PreferQuality)
	remaining := make([]models.Track, len(targetTracks))
	copy(remaining, targetTracks)

	seeded := 0
	for _, src := range sourceTracks {
		for i, cand := range remaining {
			result := e.matcher.Match(src, []models.Track{cand}, e.opts.PreferQuality)
			if !result.Matched() {
				continue
			}
			if err := e.cache.Store(match.Fingerprint(src), mode, result); err != nil {
				e.logger.Warn("cache write failed while seeding", "track", src.Title, "err", err)
			} else {
				seeded++
			}
			remaining = append(remaining[:i], remaining[i+1:]...)
			break
		}
	}
	return seeded
}

// collectResolved builds the resolved target-ID sequence in source order,
// skipping unresolved tracks and duplicate target IDs, and fills the
// report counters.
func (e *SyncEngine) collectResolved(logger *log.Logger, report *models.SyncReport, resolutions []resolution) []string {
	desired := make([]string, 0, len(resolutions))
	seen := make(map[string]struct{}, len(resolutions))

	for _, res := range resolutions {
		if res.fromCache {
			report.CacheHits++
		}

		switch {
		case res.err != nil:
			report.SearchErrors++
			report.Unresolved = append(report.Unresolved, res.track)
			logger.Error("track search failed", "track", res.track.Title, "artist", res.track.PrimaryArtist(), "err", res.err)
		case res.result.Matched():
			if _, dup := seen[res.result.TargetID]; dup {
				logger.Info("duplicate match ignored", "track", res.track.Title, "artist", res.track.PrimaryArtist())
				continue
			}
			report.MatchedCount++
			seen[res.result.TargetID] = struct{}{}
			desired = append(desired, res.result.TargetID)
		case res.result.Status == models.StatusAmbiguous:
			report.Ambiguous++
			report.Unresolved = append(report.Unresolved, res.track)
			logger.Warn("ambiguous match recorded", "track", res.track.Title, "artist", res.track.PrimaryArtist())
		default:
			report.NotFound++
			report.Unresolved = append(report.Unresolved, res.track)
			logger.Info("no match found", "track", res.track.Title, "artist", res.track.PrimaryArtist())
		}
	}
	return desired
}

// applyDiff applies playlist mutations in order. A mutation failure is
// fatal for this sync operation, since the destination playlist could not
// be written; already-applied operations stay applied and the next run
// re-derives the remainder from current target state.
func (e *SyncEngine) applyDiff(ctx context.Context, progress chan<- ProgressUpdate, playlistID string, diff models.PlaylistDiff, report *models.SyncReport) error {
	for i, op := range diff.Ops {
		e.sendProgress(progress, applyDiffUpdate(i+1, len(diff.Ops), op))

		var err error
		switch op.Kind {
		case models.OpInsert:
			err = e.target.AddTracks(ctx, playlistID, []string{op.TrackID}, op.Position)
		case models.OpRemove:
			err = e.target.RemoveTracks(ctx, playlistID, []string{op.TrackID})
		case models.OpMove:
			if err = e.target.RemoveTracks(ctx, playlistID, []string{op.TrackID}); err == nil {
				err = e.target.AddTracks(ctx, playlistID, []string{op.TrackID}, op.Position)
			}
		}
		if err != nil {
			return fmt.Errorf("%w: %s %s at %d: %v", shared.ErrMutationFailed, op.Kind, op.TrackID, op.Position, err)
		}
		report.Applied = append(report.Applied, op)
	}
	return nil
}

// findSourcePlaylist resolves a playlist reference by ID, falling back to
// a name lookup across the user's playlists.
func (e *SyncEngine) findSourcePlaylist(ctx context.Context, idOrName string) (*models.Playlist, error) {
	if pl, err := e.source.GetPlaylist(ctx, idOrName); err == nil {
		return pl, nil
	} else if errors.Is(err, shared.ErrAuthFailed) {
		return nil, err
	}

	playlists, err := e.source.GetPlaylists(ctx)
	if err != nil {
		return nil, err
	}
	for _, pl := range playlists {
		if pl.Name == idOrName {
			found := pl
			return &found, nil
		}
	}
	return nil, fmt.Errorf("%w: no source playlist with id or name '%s'", shared.ErrPlaylistNotFound, idOrName)
}

// findOrCreateTargetPlaylist picks the same-named target playlist, or
// creates one when none exists.
func (e *SyncEngine) findOrCreateTargetPlaylist(ctx context.Context, progress chan<- ProgressUpdate, source *models.Playlist) (*models.Playlist, error) {
	playlists, err := e.target.GetPlaylists(ctx)
	if err != nil {
		return nil, err
	}
	for _, pl := range playlists {
		if pl.Name == source.Name {
			found := pl
			return &found, nil
		}
	}

	e.logger.Info("no matching target playlist, creating", "name", source.Name)
	created, err := e.target.CreatePlaylist(ctx, source.Name, source.Description)
	if err != nil {
		return nil, fmt.Errorf("%w: create playlist: %v", shared.ErrMutationFailed, err)
	}
	e.sendProgress(progress, createPlaylistUpdate(created))
	return created, nil
}
