// package services defines interfaces for the two music catalogs
//
// Spotify is the source of truth; Tidal is the sync target. Both are
// assumed already authenticated: token refresh happens outside this
// program. Raw API payloads never leave this package; every response is
// validated into a models value at the boundary.
package services

import (
	"context"

	"github.com/wavelend/crosstide/internal/models"
)

// SourceService reads the canonical playlists and favorites.
type SourceService interface {
	// GetPlaylists retrieves all playlists owned by the authenticated user.
	GetPlaylists(ctx context.Context) ([]models.Playlist, error)

	// GetPlaylist retrieves a specific playlist by ID.
	GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error)

	// GetPlaylistTracks retrieves a playlist's tracks in playlist order.
	GetPlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error)

	// GetFavoriteTracks retrieves the user's liked tracks, oldest first.
	GetFavoriteTracks(ctx context.Context) ([]models.Track, error)

	// Name returns the name of the service (e.g. "Spotify")
	Name() string
}

// TargetService searches and mutates the catalog being synced to.
type TargetService interface {
	// SearchTracks searches the catalog for tracks matching the query.
	// Results come back in the catalog's relevance order, which matching
	// uses as the deterministic tie-break.
	SearchTracks(ctx context.Context, query string) ([]models.Track, error)

	// SearchAlbums searches the catalog for albums matching the query.
	SearchAlbums(ctx context.Context, query string) ([]models.Album, error)

	// GetAlbumTracks retrieves an album's tracks in album order.
	GetAlbumTracks(ctx context.Context, albumID string) ([]models.Track, error)

	// GetPlaylists retrieves the user's playlists.
	GetPlaylists(ctx context.Context) ([]models.Playlist, error)

	// CreatePlaylist creates an empty playlist and returns it.
	CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error)

	// GetPlaylistTracks retrieves a playlist's current tracks in order.
	GetPlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error)

	// AddTracks inserts tracks into a playlist at the given position.
	// Position -1 appends.
	AddTracks(ctx context.Context, playlistID string, trackIDs []string, position int) error

	// RemoveTracks removes tracks from a playlist by ID.
	RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error

	// GetFavoriteTracks retrieves the user's favorite tracks.
	GetFavoriteTracks(ctx context.Context) ([]models.Track, error)

	// AddFavorites adds tracks to the user's favorites.
	AddFavorites(ctx context.Context, trackIDs []string) error

	// RemoveFavorites removes tracks from the user's favorites.
	RemoveFavorites(ctx context.Context, trackIDs []string) error

	// Name returns the name of the service (e.g. "Tidal")
	Name() string
}
