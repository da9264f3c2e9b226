package tasks

import (
	"testing"

	"github.com/wavelend/crosstide/internal/models"
)

// applyOps replays a diff against a sequence the way the target service
// would, so tests can assert the diff actually produces the desired order.
// Removal is by track ID and clears every copy, matching the endpoint.
func applyOps(current []string, diff models.PlaylistDiff) []string {
	out := append([]string(nil), current...)
	for _, op := range diff.Ops {
		switch op.Kind {
		case models.OpRemove:
			filtered := out[:0]
			for _, id := range out {
				if id != op.TrackID {
					filtered = append(filtered, id)
				}
			}
			out = filtered
		case models.OpInsert:
			out = insertAt(out, op.Position, op.TrackID)
		case models.OpMove:
			at := indexOf(out, op.TrackID)
			out = append(out[:at], out[at+1:]...)
			out = insertAt(out, op.Position, op.TrackID)
		}
	}
	return out
}

func TestBuildPlaylistDiff(t *testing.T) {
	tests := []struct {
		name    string
		current []string
		desired []string
		wantOps int
	}{
		{
			name:    "identical sequences produce empty diff",
			current: []string{"a", "b", "c"},
			desired: []string{"a", "b", "c"},
			wantOps: 0,
		},
		{
			name:    "empty current inserts everything",
			current: nil,
			desired: []string{"a", "b", "c"},
			wantOps: 3,
		},
		{
			name:    "empty desired removes everything",
			current: []string{"a", "b"},
			desired: nil,
			wantOps: 2,
		},
		{
			name:    "append to end",
			current: []string{"a", "b"},
			desired: []string{"a", "b", "c"},
			wantOps: 1,
		},
		{
			name:    "remove from middle",
			current: []string{"a", "x", "b"},
			desired: []string{"a", "b"},
			wantOps: 1,
		},
		{
			name:    "swap order",
			current: []string{"a", "b"},
			desired: []string{"b", "a"},
			wantOps: 1,
		},
		{
			// Removing the surplus copy clears both, so the kept copy is
			// reinserted rather than lost.
			name:    "duplicate of a kept track survives",
			current: []string{"a", "a", "b"},
			desired: []string{"a", "b"},
			wantOps: 2,
		},
		{
			name:    "duplicates of an unwanted track need one remove",
			current: []string{"x", "x", "a"},
			desired: []string{"a"},
			wantOps: 1,
		},
		{
			name:    "full rewrite",
			current: []string{"x", "y"},
			desired: []string{"a", "b", "c"},
			wantOps: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff := BuildPlaylistDiff(tt.current, tt.desired)

			if len(diff.Ops) != tt.wantOps {
				t.Errorf("BuildPlaylistDiff() produced %d ops %v, want %d", len(diff.Ops), diff.Ops, tt.wantOps)
			}

			got := applyOps(tt.current, diff)
			if len(got) != len(tt.desired) {
				t.Fatalf("applied diff = %v, want %v", got, tt.desired)
			}
			for i := range got {
				if got[i] != tt.desired[i] {
					t.Fatalf("applied diff = %v, want %v", got, tt.desired)
				}
			}
		})
	}
}

func TestBuildPlaylistDiff_Idempotent(t *testing.T) {
	current := []string{"a", "b", "c", "d"}
	desired := []string{"d", "b", "e"}

	diff := BuildPlaylistDiff(current, desired)
	after := applyOps(current, diff)

	again := BuildPlaylistDiff(after, desired)
	if !again.Empty() {
		t.Errorf("second diff after applying first = %v, want empty", again.Ops)
	}
}
