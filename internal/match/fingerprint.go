package match

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/wavelend/crosstide/internal/models"
)

// Search modes under which cached results are recorded. A negative
// result cached under one mode must not satisfy a lookup under another,
// since quality preference can change the true outcome.
const (
	ModeStandard = "standard"
	ModeQuality  = "quality"
)

// Mode maps the quality-preference flag to the cache search mode.
func Mode(preferQuality bool) string {
	if preferQuality {
		return ModeQuality
	}
	return ModeStandard
}

// Fingerprint derives a deterministic cache key from a source track's
// identifying metadata. Only fields that affect matching participate, so
// unrelated metadata edits on the source do not invalidate cache entries.
func Fingerprint(t models.Track) string {
	payload := fmt.Sprintf("%s|%s|%d|%s",
		NormalizeTitle(t.Title),
		NormalizeArtist(t.PrimaryArtist()),
		t.Duration,
		NormalizeISRC(t.ISRC),
	)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
