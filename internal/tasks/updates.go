package tasks

import (
	"fmt"

	"github.com/wavelend/crosstide/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchSource Phase = iota
	FetchTarget
	PrePopulate
	ResolveTracks
	ApplyDiff
	CreatePlaylist
	SyncFavorites
)

func (p Phase) String() string {
	switch p {
	case FetchSource:
		return "fetch_source"
	case FetchTarget:
		return "fetch_target"
	case PrePopulate:
		return "pre_populate"
	case ResolveTracks:
		return "resolve_tracks"
	case ApplyDiff:
		return "apply_diff"
	case CreatePlaylist:
		return "create_playlist"
	case SyncFavorites:
		return "sync_favorites"
	default:
		return ""
	}
}

func fetchSourceUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Loading tracks from Spotify playlist '%s'...", name),
	}
}

func fetchTargetUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTarget,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Loading current tracks from Tidal playlist '%s'...", name),
	}
}

func prePopulateUpdate(matched, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PrePopulate,
		Step:    matched,
		Total:   total,
		Message: fmt.Sprintf("Matched %d/%d tracks from existing playlist contents", matched, total),
	}
}

func resolveTrackUpdate(step, total int, tr *models.Track) ProgressUpdate {
	if tr == nil {
		return ProgressUpdate{
			Phase:   ResolveTracks,
			Step:    step,
			Total:   total,
			Message: "Searching Tidal for unmatched tracks...",
		}
	}
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s", step, total, tr.PrimaryArtist(), tr.Title),
	}
}

func createPlaylistUpdate(pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", pl.Name, pl.ID),
		Data:    pl,
	}
}

func applyDiffUpdate(step, total int, op models.DiffOp) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ApplyDiff,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s track %s", step, total, op.Kind, op.TrackID),
	}
}

func favoritesUpdate(added, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SyncFavorites,
		Step:    added,
		Total:   total,
		Message: fmt.Sprintf("Adding %d new favorites (%d already present)", added, total-added),
	}
}
