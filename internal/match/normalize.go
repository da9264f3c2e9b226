package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/wavelend/crosstide/internal/models"
)

// Fold lowercases s and strips diacritics so "Beyoncé" and "beyonce"
// compare equal. The transformer chain carries per-use state, so each
// call builds its own; Fold is called from concurrent resolver workers.
func Fold(s string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(fold, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// Simplify takes only the first part of a string before any hyphen
// separator or bracket, dropping version suffixes like "(Remastered)",
// "[Live at Wembley]" or "- 2011 Mix".
func Simplify(s string) string {
	if i := strings.Index(s, " - "); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexAny(s, "(["); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// stripFeat removes a trailing "feat." clause from a simplified title.
func stripFeat(s string) string {
	for _, marker := range []string{"feat.", "ft.", "featuring"} {
		if i := strings.Index(s, marker); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

// NormalizeTitle produces the canonical fingerprint form of a track title:
// folded, simplified, feat-stripped, punctuation removed, spaces collapsed.
func NormalizeTitle(title string) string {
	s := stripFeat(Simplify(Fold(title)))
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace && b.Len() > 0 {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// NormalizeISRC uppercases an ISRC and strips separators so
// "gb-aye-06-01690" and "GBAYE0601690" compare equal.
func NormalizeISRC(isrc string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(isrc) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeArtist produces the canonical form of a single artist name.
func NormalizeArtist(name string) string {
	return Simplify(Fold(name))
}

// SplitArtistName breaks a combined credit like "A & B" or "A, B" into
// individual artist names.
func SplitArtistName(name string) []string {
	var parts []string
	switch {
	case strings.Contains(name, "&"):
		parts = strings.Split(name, "&")
	case strings.Contains(name, ","):
		parts = strings.Split(name, ",")
	default:
		parts = []string{name}
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// artistSet expands a credit list into a set of normalized artist names.
func artistSet(names []string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, name := range names {
		for _, part := range SplitArtistName(name) {
			if n := NormalizeArtist(part); n != "" {
				set[n] = struct{}{}
			}
		}
	}
	return set
}

// variantMarkers are version markers that must agree on both sides: a
// remix only matches a remix, an instrumental only an instrumental.
var variantMarkers = []string{"instrumental", "acapella", "remix"}

// TitlesMatch reports whether a source title and a candidate title refer
// to the same recording. Version suffixes are stripped before comparing,
// but variant markers present on only one side veto the match.
func TitlesMatch(source, candidate string) bool {
	src := Fold(source)
	cand := Fold(candidate)

	for _, marker := range variantMarkers {
		if strings.Contains(src, marker) != strings.Contains(cand, marker) {
			return false
		}
	}

	simpleSrc := stripFeat(Simplify(src))
	if simpleSrc == "" {
		return false
	}
	if strings.Contains(cand, simpleSrc) {
		return true
	}
	return NormalizeTitle(source) == NormalizeTitle(candidate)
}

// ArtistsMatch reports whether the candidate's credits are compatible
// with the source's. The primary artist must match; featured artists are
// compared as sets and tolerate partial overlap, so a missing or extra
// guest credit does not veto the match.
func ArtistsMatch(source, candidate models.Track) bool {
	srcPrimary := artistSet(source.Artists[:min(1, len(source.Artists))])
	candPrimary := artistSet(candidate.Artists[:min(1, len(candidate.Artists))])
	if !intersects(srcPrimary, candPrimary) {
		return false
	}

	srcFeat := artistSet(source.FeaturedArtists())
	candFeat := artistSet(candidate.FeaturedArtists())
	if len(srcFeat) == 0 || len(candFeat) == 0 {
		return true
	}
	return intersects(srcFeat, candFeat)
}

// AnyArtistOverlap reports whether two credit lists share at least one
// normalized artist name.
func AnyArtistOverlap(a, b []string) bool {
	return intersects(artistSet(a), artistSet(b))
}

func intersects(a, b map[string]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}
