// package match implements track matching between two music catalogs.
//
// Matching is a pure function over normalized metadata: no I/O, no
// shared state. Tiers are evaluated in strict priority order and the
// first tier with a passing candidate wins.
package match

import (
	"github.com/wavelend/crosstide/internal/models"
)

// Scores assigned per criterion, used for candidate ranking and reports.
const (
	scoreISRC     = 1.0
	scoreDuration = 0.8
	scoreName     = 0.6
	qualityBonus  = 0.05
)

// DefaultDurationTolerance is the maximum allowed difference in seconds
// between source and candidate durations.
const DefaultDurationTolerance = 2

// Matcher selects the best candidate target track for a source track.
type Matcher struct {
	// DurationTolerance is the maximum duration difference in seconds
	// accepted by the duration tier. Zero means DefaultDurationTolerance.
	DurationTolerance int
}

// NewMatcher creates a Matcher with the given duration tolerance.
func NewMatcher(tolerance int) Matcher {
	if tolerance <= 0 {
		tolerance = DefaultDurationTolerance
	}
	return Matcher{DurationTolerance: tolerance}
}

// Match scores candidates against the source track and returns the best
// match, evaluating tiers in strict priority order:
//
//  1. ISRC equality (normalized), an immediate match that bypasses all other checks.
//  2. duration within tolerance + title + artist.
//  3. title + artist, only when duration is missing on either side.
//
// When preferQuality is set, spatial-audio candidates rank first within a
// tier, but the preference never drops an otherwise-successful match.
// Ties are broken by search-result order so repeated runs are stable.
func (m Matcher) Match(source models.Track, candidates []models.Track, preferQuality bool) models.MatchResult {
	if len(candidates) == 0 {
		return models.MatchResult{Status: models.StatusNotFound}
	}

	if result, done := m.matchISRC(source, candidates, preferQuality); done {
		return result
	}

	if best := pick(m.durationTier(source, candidates), preferQuality); best != nil {
		return models.MatchResult{
			Status:    models.StatusMatched,
			TargetID:  best.Track.ID,
			Criterion: models.CriterionDurationNameArtist,
		}
	}

	if best := pick(m.nameTier(source, candidates), preferQuality); best != nil {
		return models.MatchResult{
			Status:    models.StatusMatched,
			TargetID:  best.Track.ID,
			Criterion: models.CriterionNameArtist,
		}
	}

	return models.MatchResult{Status: models.StatusNotFound}
}

// matchISRC evaluates tier 1. The second return value reports whether the
// tier produced a terminal outcome.
func (m Matcher) matchISRC(source models.Track, candidates []models.Track, preferQuality bool) (models.MatchResult, bool) {
	isrc := NormalizeISRC(source.ISRC)
	if isrc == "" {
		return models.MatchResult{}, false
	}

	var hits []models.MatchCandidate
	for _, cand := range candidates {
		if NormalizeISRC(cand.ISRC) == isrc {
			hits = append(hits, models.MatchCandidate{
				Track:     cand,
				Score:     scoreISRC + quality(cand, preferQuality),
				Criterion: models.CriterionISRC,
			})
		}
	}
	if len(hits) == 0 {
		return models.MatchResult{}, false
	}

	// Multiple tracks claiming the same ISRC with conflicting durations is
	// a catalog inconsistency the caller should log, not silently resolve.
	if len(hits) > 1 && m.durationsConflict(hits) {
		return models.MatchResult{Status: models.StatusAmbiguous, Criterion: models.CriterionISRC}, true
	}

	best := pick(hits, preferQuality)
	return models.MatchResult{
		Status:    models.StatusMatched,
		TargetID:  best.Track.ID,
		Criterion: models.CriterionISRC,
	}, true
}

// durationTier collects candidates passing duration + title + artist.
func (m Matcher) durationTier(source models.Track, candidates []models.Track) []models.MatchCandidate {
	if source.Duration <= 0 {
		return nil
	}
	var hits []models.MatchCandidate
	for _, cand := range candidates {
		if cand.Duration <= 0 {
			continue
		}
		if abs(cand.Duration-source.Duration) > m.tolerance() {
			continue
		}
		if !TitlesMatch(source.Title, cand.Title) || !ArtistsMatch(source, cand) {
			continue
		}
		hits = append(hits, models.MatchCandidate{
			Track:     cand,
			Score:     scoreDuration,
			Criterion: models.CriterionDurationNameArtist,
		})
	}
	return hits
}

// nameTier collects candidates passing title + artist where duration is
// missing on either side. It never overrides a duration-tier verdict:
// candidates with a known duration on both sides are excluded here.
func (m Matcher) nameTier(source models.Track, candidates []models.Track) []models.MatchCandidate {
	var hits []models.MatchCandidate
	for _, cand := range candidates {
		if source.Duration > 0 && cand.Duration > 0 {
			continue
		}
		if !TitlesMatch(source.Title, cand.Title) || !ArtistsMatch(source, cand) {
			continue
		}
		hits = append(hits, models.MatchCandidate{
			Track:     cand,
			Score:     scoreName,
			Criterion: models.CriterionNameArtist,
		})
	}
	return hits
}

// pick returns the best-ranked candidate, or nil if none pass. Quality
// preference promotes spatial candidates; within equal rank the first in
// search-result order wins, keeping the choice deterministic.
func pick(hits []models.MatchCandidate, preferQuality bool) *models.MatchCandidate {
	if len(hits) == 0 {
		return nil
	}
	if !preferQuality {
		return &hits[0]
	}
	for i := range hits {
		if hits[i].Track.Spatial {
			return &hits[i]
		}
	}
	// Preference never causes an otherwise-successful match to be dropped.
	return &hits[0]
}

func (m Matcher) durationsConflict(hits []models.MatchCandidate) bool {
	for i := range hits {
		for j := i + 1; j < len(hits); j++ {
			if abs(hits[i].Track.Duration-hits[j].Track.Duration) > m.tolerance() {
				return true
			}
		}
	}
	return false
}

func (m Matcher) tolerance() int {
	if m.DurationTolerance <= 0 {
		return DefaultDurationTolerance
	}
	return m.DurationTolerance
}

func quality(t models.Track, preferQuality bool) float64 {
	if preferQuality && t.Spatial {
		return qualityBonus
	}
	return 0
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
