package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/wavelend/crosstide/internal/models"
	"github.com/wavelend/crosstide/internal/shared"
)

// SyncFavorites reconciles the user's source favorites into the target
// favorites collection, oldest first so the target's "date added" order
// mirrors the source. Tracks already favorited on the target are never
// re-added; removals only happen when MirrorFavoriteRemovals is set.
func (e *SyncEngine) SyncFavorites(ctx context.Context, progress chan<- ProgressUpdate) (*models.SyncReport, error) {
	if e.source == nil || e.target == nil {
		return nil, fmt.Errorf("%w: catalog service not initialized", shared.ErrServiceUnavailable)
	}

	report := &models.SyncReport{
		RunID:     shared.GenerateID(),
		Playlist:  "Favorites",
		StartedAt: time.Now(),
	}
	logger := shared.WithLogger(e.logger, "run", report.RunID, "collection", "favorites")

	e.sendProgress(progress, fetchSourceUpdate("Favorites"))
	sourceTracks, err := e.source.GetFavoriteTracks(ctx)
	if err != nil {
		return report, err
	}
	report.TotalTracks = len(sourceTracks)

	e.sendProgress(progress, fetchTargetUpdate("Favorites"))
	targetFavorites, err := e.target.GetFavoriteTracks(ctx)
	if err != nil {
		return report, err
	}

	seeded := e.prePopulateCache(sourceTracks, targetFavorites)
	e.sendProgress(progress, prePopulateUpdate(seeded, len(sourceTracks)))

	resolutions := e.resolveTracks(ctx, progress, sourceTracks)
	desired := e.collectResolved(logger, report, resolutions)

	existing := make(map[string]struct{}, len(targetFavorites))
	for _, t := range targetFavorites {
		existing[t.ID] = struct{}{}
	}

	var toAdd []string
	wanted := make(map[string]struct{}, len(desired))
	for _, id := range desired {
		wanted[id] = struct{}{}
		if _, ok := existing[id]; !ok {
			toAdd = append(toAdd, id)
		}
	}

	e.sendProgress(progress, favoritesUpdate(len(toAdd), len(desired)))

	if len(toAdd) > 0 {
		if err := e.target.AddFavorites(ctx, toAdd); err != nil {
			report.FinishedAt = time.Now()
			return report, fmt.Errorf("%w: add favorites: %v", shared.ErrMutationFailed, err)
		}
		for _, id := range toAdd {
			report.Applied = append(report.Applied, models.DiffOp{Kind: models.OpInsert, TrackID: id})
		}
	} else {
		logger.Info("favorites already in sync, no additions needed")
	}

	if e.opts.MirrorFavoriteRemovals {
		var toRemove []string
		for _, t := range targetFavorites {
			if _, ok := wanted[t.ID]; !ok {
				toRemove = append(toRemove, t.ID)
			}
		}
		if len(toRemove) > 0 {
			logger.Info("mirroring favorite removals", "count", len(toRemove))
			if err := e.target.RemoveFavorites(ctx, toRemove); err != nil {
				report.FinishedAt = time.Now()
				return report, fmt.Errorf("%w: remove favorites: %v", shared.ErrMutationFailed, err)
			}
			for _, id := range toRemove {
				report.Applied = append(report.Applied, models.DiffOp{Kind: models.OpRemove, TrackID: id})
			}
		}
	}

	report.FinishedAt = time.Now()
	logger.Info("favorites sync complete",
		"matched", report.MatchedCount,
		"added", len(toAdd),
		"not_found", report.NotFound,
		"cache_hits", report.CacheHits,
	)
	return report, nil
}
