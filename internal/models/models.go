// package models defines the data model for the playlist sync service
package models

import (
	"time"
)

// Track represents a music track from either catalog, normalized at the
// service boundary. Identity is the catalog-assigned ID; tracks fetched
// from different services never share IDs.
type Track struct {
	ID          string
	Title       string
	Artists     []string // ordered, primary artist first
	Album       string
	AlbumArtist string
	TrackNumber int
	Duration    int    // Duration in seconds, 0 when unknown
	ISRC        string // International Standard Recording Code for matching
	Spatial     bool   // supports spatial/immersive audio playback
}

// PrimaryArtist returns the first listed artist, or an empty string.
func (t Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// FeaturedArtists returns all artists after the primary one.
func (t Track) FeaturedArtists() []string {
	if len(t.Artists) < 2 {
		return nil
	}
	return t.Artists[1:]
}

// Playlist represents a playlist from any service
type Playlist struct {
	ID          string
	Name        string
	Description string
	TrackCount  int
	Public      bool
}

// Album represents an album from the target catalog, used by the
// album-assisted search stage.
type Album struct {
	ID        string
	Name      string
	Artists   []string
	NumTracks int
}

// MatchStatus enumerates the outcome kinds of a track match attempt.
type MatchStatus int

const (
	StatusMatched MatchStatus = iota
	StatusNotFound
	StatusAmbiguous
)

func (s MatchStatus) String() string {
	switch s {
	case StatusMatched:
		return "matched"
	case StatusNotFound:
		return "not_found"
	case StatusAmbiguous:
		return "ambiguous"
	default:
		return ""
	}
}

// MatchCriterion records which matching tier produced a match.
type MatchCriterion int

const (
	CriterionNone MatchCriterion = iota
	CriterionISRC
	CriterionDurationNameArtist
	CriterionNameArtist
)

func (c MatchCriterion) String() string {
	switch c {
	case CriterionISRC:
		return "isrc"
	case CriterionDurationNameArtist:
		return "duration_name_artist"
	case CriterionNameArtist:
		return "name_artist"
	default:
		return "none"
	}
}

// MatchResult is the tagged outcome of matching one source track against
// the target catalog. TargetID is set only when Status is StatusMatched.
type MatchResult struct {
	Status    MatchStatus
	TargetID  string
	Criterion MatchCriterion
}

// Matched reports whether the result carries a usable target track ID.
func (r MatchResult) Matched() bool {
	return r.Status == StatusMatched && r.TargetID != ""
}

// MatchCandidate pairs a target track with its computed score and the
// criterion under which it passed.
type MatchCandidate struct {
	Track     Track
	Score     float64
	Criterion MatchCriterion
}

// CacheEntry is a persisted match outcome keyed by (Fingerprint, Mode).
// At most one entry exists per key; stores overwrite (last write wins).
type CacheEntry struct {
	Fingerprint string
	Mode        string
	Result      MatchResult
	Timestamp   time.Time
}

// DiffOpKind enumerates playlist mutation operations.
type DiffOpKind int

const (
	OpInsert DiffOpKind = iota
	OpRemove
	OpMove
)

func (k DiffOpKind) String() string {
	switch k {
	case OpInsert:
		return "insert"
	case OpRemove:
		return "remove"
	case OpMove:
		return "move"
	default:
		return ""
	}
}

// DiffOp is a single playlist mutation. Position is meaningful for
// OpInsert and OpMove and ignored for OpRemove.
type DiffOp struct {
	Kind     DiffOpKind
	TrackID  string
	Position int
}

// PlaylistDiff is the ordered operation list that transforms the current
// target playlist sequence into the resolved source sequence.
type PlaylistDiff struct {
	Ops []DiffOp
}

// Empty reports whether the diff contains no operations.
func (d PlaylistDiff) Empty() bool {
	return len(d.Ops) == 0
}

// SyncReport summarizes one sync operation for user visibility.
// A run completes with a report of successes and failures rather than
// all-or-nothing semantics.
type SyncReport struct {
	RunID        string
	Playlist     string // playlist name, or "Favorites"
	TotalTracks  int
	MatchedCount int
	NotFound     int
	Ambiguous    int
	SearchErrors int
	CacheHits    int
	Unresolved   []Track  // source tracks that could not be resolved
	Applied      []DiffOp // mutations applied to the target
	StartedAt    time.Time
	FinishedAt   time.Time
}
