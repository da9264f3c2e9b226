package match

import (
	"testing"

	"github.com/wavelend/crosstide/internal/models"
)

func track(id, title string, artists []string, duration int, isrc string) models.Track {
	return models.Track{ID: id, Title: title, Artists: artists, Duration: duration, ISRC: isrc}
}

func TestMatcher_Match(t *testing.T) {
	m := NewMatcher(2)

	tests := []struct {
		name          string
		source        models.Track
		candidates    []models.Track
		preferQuality bool
		wantStatus    models.MatchStatus
		wantID        string
		wantCriterion models.MatchCriterion
	}{
		{
			name:   "isrc wins despite different metadata",
			source: track("s1", "Let It Be", []string{"The Beatles"}, 243, "GBAYE0601690"),
			candidates: []models.Track{
				track("t1", "Let It Be - Remastered 2009", []string{"The Beatles"}, 512, "GBAYE0601690"),
			},
			wantStatus:    models.StatusMatched,
			wantID:        "t1",
			wantCriterion: models.CriterionISRC,
		},
		{
			name:   "isrc comparison is case and separator insensitive",
			source: track("s1", "Let It Be", []string{"The Beatles"}, 243, "gb-aye-06-01690"),
			candidates: []models.Track{
				track("t1", "Let It Be", []string{"The Beatles"}, 243, "GBAYE0601690"),
			},
			wantStatus:    models.StatusMatched,
			wantID:        "t1",
			wantCriterion: models.CriterionISRC,
		},
		{
			name:   "duration tier with missing featured credit",
			source: track("s1", "Good Days feat. Drake", []string{"SZA", "Drake"}, 279, ""),
			candidates: []models.Track{
				track("t1", "Good Days", []string{"SZA"}, 280, ""),
			},
			wantStatus:    models.StatusMatched,
			wantID:        "t1",
			wantCriterion: models.CriterionDurationNameArtist,
		},
		{
			name:   "duration outside tolerance fails",
			source: track("s1", "Good Days", []string{"SZA"}, 279, ""),
			candidates: []models.Track{
				track("t1", "Good Days", []string{"SZA"}, 285, ""),
			},
			wantStatus: models.StatusNotFound,
		},
		{
			name:   "name tier used when source duration missing",
			source: track("s1", "Nightcall", []string{"Kavinsky"}, 0, ""),
			candidates: []models.Track{
				track("t1", "Nightcall", []string{"Kavinsky"}, 258, ""),
			},
			wantStatus:    models.StatusMatched,
			wantID:        "t1",
			wantCriterion: models.CriterionNameArtist,
		},
		{
			name:   "name tier skipped when both durations known",
			source: track("s1", "Nightcall", []string{"Kavinsky"}, 200, ""),
			candidates: []models.Track{
				track("t1", "Nightcall", []string{"Kavinsky"}, 258, ""),
			},
			wantStatus: models.StatusNotFound,
		},
		{
			name:   "multiple isrc hits with conflicting durations are ambiguous",
			source: track("s1", "Let It Be", []string{"The Beatles"}, 243, "GBAYE0601690"),
			candidates: []models.Track{
				track("t1", "Let It Be", []string{"The Beatles"}, 243, "GBAYE0601690"),
				track("t2", "Let It Be (Anthology Version)", []string{"The Beatles"}, 300, "GBAYE0601690"),
			},
			wantStatus:    models.StatusAmbiguous,
			wantCriterion: models.CriterionISRC,
		},
		{
			name:   "multiple isrc hits with agreeing durations pick first",
			source: track("s1", "Let It Be", []string{"The Beatles"}, 243, "GBAYE0601690"),
			candidates: []models.Track{
				track("t1", "Let It Be", []string{"The Beatles"}, 243, "GBAYE0601690"),
				track("t2", "Let It Be", []string{"The Beatles"}, 244, "GBAYE0601690"),
			},
			wantStatus:    models.StatusMatched,
			wantID:        "t1",
			wantCriterion: models.CriterionISRC,
		},
		{
			name:       "no candidates",
			source:     track("s1", "Let It Be", []string{"The Beatles"}, 243, ""),
			candidates: nil,
			wantStatus: models.StatusNotFound,
		},
		{
			name:   "remix never matches the original",
			source: track("s1", "Around the World (Remix)", []string{"Daft Punk"}, 220, ""),
			candidates: []models.Track{
				track("t1", "Around the World", []string{"Daft Punk"}, 220, ""),
			},
			wantStatus: models.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Match(tt.source, tt.candidates, tt.preferQuality)
			if got.Status != tt.wantStatus {
				t.Fatalf("Match() status = %v, want %v", got.Status, tt.wantStatus)
			}
			if got.TargetID != tt.wantID {
				t.Errorf("Match() target = %q, want %q", got.TargetID, tt.wantID)
			}
			if tt.wantCriterion != models.CriterionNone && got.Criterion != tt.wantCriterion {
				t.Errorf("Match() criterion = %v, want %v", got.Criterion, tt.wantCriterion)
			}
		})
	}
}

func TestMatcher_PreferQuality(t *testing.T) {
	m := NewMatcher(2)
	source := track("s1", "Nightcall", []string{"Kavinsky"}, 258, "")

	standard := track("t1", "Nightcall", []string{"Kavinsky"}, 258, "")
	spatial := track("t2", "Nightcall", []string{"Kavinsky"}, 258, "")
	spatial.Spatial = true

	t.Run("spatial candidate promoted", func(t *testing.T) {
		got := m.Match(source, []models.Track{standard, spatial}, true)
		if !got.Matched() || got.TargetID != "t2" {
			t.Errorf("Match() = %+v, want spatial track t2", got)
		}
	})

	t.Run("order preserved without preference", func(t *testing.T) {
		got := m.Match(source, []models.Track{standard, spatial}, false)
		if !got.Matched() || got.TargetID != "t1" {
			t.Errorf("Match() = %+v, want first result t1", got)
		}
	})

	t.Run("preference never drops a standard-only match", func(t *testing.T) {
		got := m.Match(source, []models.Track{standard}, true)
		if !got.Matched() || got.TargetID != "t1" {
			t.Errorf("Match() = %+v, want t1 even with quality preference", got)
		}
	})
}

func TestFingerprint(t *testing.T) {
	a := track("s1", "Let It Be - Remastered 2009", []string{"The Beatles"}, 243, "gb-aye-06-01690")
	b := track("other-id", "let it be", []string{"the beatles"}, 243, "GBAYE0601690")

	if Fingerprint(a) != Fingerprint(b) {
		t.Error("expected normalized variants to share a fingerprint")
	}

	c := b
	c.Duration = 250
	if Fingerprint(b) == Fingerprint(c) {
		t.Error("expected duration change to alter the fingerprint")
	}
}

func TestMode(t *testing.T) {
	if Mode(false) != ModeStandard {
		t.Errorf("Mode(false) = %q, want %q", Mode(false), ModeStandard)
	}
	if Mode(true) != ModeQuality {
		t.Errorf("Mode(true) = %q, want %q", Mode(true), ModeQuality)
	}
}
