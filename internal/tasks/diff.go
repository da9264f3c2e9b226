package tasks

import (
	"github.com/wavelend/crosstide/internal/models"
)

// BuildPlaylistDiff computes the ordered operations that transform the
// current target playlist sequence into the desired sequence. Desired IDs
// are assumed unique (the engine deduplicates while resolving); the
// current sequence may contain anything, including duplicates.
//
// Two identical sequences produce an empty diff, so an unchanged playlist
// re-syncs with zero mutations.
func BuildPlaylistDiff(current, desired []string) models.PlaylistDiff {
	var diff models.PlaylistDiff

	wanted := make(map[string]struct{}, len(desired))
	for _, id := range desired {
		wanted[id] = struct{}{}
	}

	// Drop tracks that no longer belong. Removal is addressed by track ID
	// and clears every copy at once, so each removed ID gets exactly one
	// Remove op, and a kept track with surplus duplicates is removed
	// entirely and reinserted by the walk below.
	working := make([]string, 0, len(current))
	kept := make(map[string]struct{}, len(current))
	removed := make(map[string]struct{}, len(current))
	for _, id := range current {
		_, keep := wanted[id]
		_, keptBefore := kept[id]
		_, removedBefore := removed[id]

		if keep && !keptBefore && !removedBefore {
			working = append(working, id)
			kept[id] = struct{}{}
			continue
		}
		if removedBefore {
			continue
		}

		removed[id] = struct{}{}
		diff.Ops = append(diff.Ops, models.DiffOp{Kind: models.OpRemove, TrackID: id})
		if keptBefore {
			if at := indexOf(working, id); at >= 0 {
				working = append(working[:at], working[at+1:]...)
			}
		}
	}

	// Walk the desired order; move a misplaced track forward or insert a
	// missing one at its position.
	for i, id := range desired {
		if i < len(working) && working[i] == id {
			continue
		}

		at := indexOf(working[min(i, len(working)):], id)
		if at >= 0 {
			at += i
			working = append(working[:at], working[at+1:]...)
			working = insertAt(working, i, id)
			diff.Ops = append(diff.Ops, models.DiffOp{Kind: models.OpMove, TrackID: id, Position: i})
		} else {
			working = insertAt(working, i, id)
			diff.Ops = append(diff.Ops, models.DiffOp{Kind: models.OpInsert, TrackID: id, Position: i})
		}
	}

	return diff
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func insertAt(ids []string, i int, id string) []string {
	if i >= len(ids) {
		return append(ids, id)
	}
	ids = append(ids, "")
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	return ids
}
