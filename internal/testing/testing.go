// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/wavelend/crosstide/internal/models"
)

// MockSource is a configurable test double for [services.SourceService].
// Unset function fields return empty results.
type MockSource struct {
	GetPlaylistsFunc      func(ctx context.Context) ([]models.Playlist, error)
	GetPlaylistFunc       func(ctx context.Context, playlistID string) (*models.Playlist, error)
	GetPlaylistTracksFunc func(ctx context.Context, playlistID string) ([]models.Track, error)
	GetFavoriteTracksFunc func(ctx context.Context) ([]models.Track, error)
}

func (m *MockSource) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	if m.GetPlaylistsFunc != nil {
		return m.GetPlaylistsFunc(ctx)
	}
	return []models.Playlist{}, nil
}

func (m *MockSource) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	if m.GetPlaylistFunc != nil {
		return m.GetPlaylistFunc(ctx, playlistID)
	}
	return &models.Playlist{ID: playlistID}, nil
}

func (m *MockSource) GetPlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	if m.GetPlaylistTracksFunc != nil {
		return m.GetPlaylistTracksFunc(ctx, playlistID)
	}
	return []models.Track{}, nil
}

func (m *MockSource) GetFavoriteTracks(ctx context.Context) ([]models.Track, error) {
	if m.GetFavoriteTracksFunc != nil {
		return m.GetFavoriteTracksFunc(ctx)
	}
	return []models.Track{}, nil
}

func (m *MockSource) Name() string { return "mock-source" }

// MockTarget is a configurable test double for [services.TargetService].
// Mutation calls are recorded so tests can assert on what was written.
type MockTarget struct {
	SearchTracksFunc      func(ctx context.Context, query string) ([]models.Track, error)
	SearchAlbumsFunc      func(ctx context.Context, query string) ([]models.Album, error)
	GetAlbumTracksFunc    func(ctx context.Context, albumID string) ([]models.Track, error)
	GetPlaylistsFunc      func(ctx context.Context) ([]models.Playlist, error)
	CreatePlaylistFunc    func(ctx context.Context, name, description string) (*models.Playlist, error)
	GetPlaylistTracksFunc func(ctx context.Context, playlistID string) ([]models.Track, error)
	AddTracksFunc         func(ctx context.Context, playlistID string, trackIDs []string, position int) error
	RemoveTracksFunc      func(ctx context.Context, playlistID string, trackIDs []string) error
	GetFavoriteTracksFunc func(ctx context.Context) ([]models.Track, error)
	AddFavoritesFunc      func(ctx context.Context, trackIDs []string) error
	RemoveFavoritesFunc   func(ctx context.Context, trackIDs []string) error

	AddedTracks      []MutationCall
	RemovedTracks    []MutationCall
	AddedFavorites   [][]string
	RemovedFavorites [][]string
}

// MutationCall records one playlist mutation received by the mock.
type MutationCall struct {
	PlaylistID string
	TrackIDs   []string
	Position   int
}

func (m *MockTarget) SearchTracks(ctx context.Context, query string) ([]models.Track, error) {
	if m.SearchTracksFunc != nil {
		return m.SearchTracksFunc(ctx, query)
	}
	return []models.Track{}, nil
}

func (m *MockTarget) SearchAlbums(ctx context.Context, query string) ([]models.Album, error) {
	if m.SearchAlbumsFunc != nil {
		return m.SearchAlbumsFunc(ctx, query)
	}
	return []models.Album{}, nil
}

func (m *MockTarget) GetAlbumTracks(ctx context.Context, albumID string) ([]models.Track, error) {
	if m.GetAlbumTracksFunc != nil {
		return m.GetAlbumTracksFunc(ctx, albumID)
	}
	return []models.Track{}, nil
}

func (m *MockTarget) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	if m.GetPlaylistsFunc != nil {
		return m.GetPlaylistsFunc(ctx)
	}
	return []models.Playlist{}, nil
}

func (m *MockTarget) CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	if m.CreatePlaylistFunc != nil {
		return m.CreatePlaylistFunc(ctx, name, description)
	}
	return &models.Playlist{ID: "created", Name: name, Description: description}, nil
}

func (m *MockTarget) GetPlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	if m.GetPlaylistTracksFunc != nil {
		return m.GetPlaylistTracksFunc(ctx, playlistID)
	}
	return []models.Track{}, nil
}

func (m *MockTarget) AddTracks(ctx context.Context, playlistID string, trackIDs []string, position int) error {
	m.AddedTracks = append(m.AddedTracks, MutationCall{PlaylistID: playlistID, TrackIDs: trackIDs, Position: position})
	if m.AddTracksFunc != nil {
		return m.AddTracksFunc(ctx, playlistID, trackIDs, position)
	}
	return nil
}

func (m *MockTarget) RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	m.RemovedTracks = append(m.RemovedTracks, MutationCall{PlaylistID: playlistID, TrackIDs: trackIDs})
	if m.RemoveTracksFunc != nil {
		return m.RemoveTracksFunc(ctx, playlistID, trackIDs)
	}
	return nil
}

func (m *MockTarget) GetFavoriteTracks(ctx context.Context) ([]models.Track, error) {
	if m.GetFavoriteTracksFunc != nil {
		return m.GetFavoriteTracksFunc(ctx)
	}
	return []models.Track{}, nil
}

func (m *MockTarget) AddFavorites(ctx context.Context, trackIDs []string) error {
	m.AddedFavorites = append(m.AddedFavorites, trackIDs)
	if m.AddFavoritesFunc != nil {
		return m.AddFavoritesFunc(ctx, trackIDs)
	}
	return nil
}

func (m *MockTarget) RemoveFavorites(ctx context.Context, trackIDs []string) error {
	m.RemovedFavorites = append(m.RemovedFavorites, trackIDs)
	if m.RemoveFavoritesFunc != nil {
		return m.RemoveFavoritesFunc(ctx, trackIDs)
	}
	return nil
}

func (m *MockTarget) Name() string { return "mock-target" }

// MemoryCache is an in-memory test double for the engine's match cache.
// Safe for concurrent use, since the engine drives the cache from its
// resolver worker pool.
type MemoryCache struct {
	mu      sync.Mutex
	Entries map[string]models.MatchResult
	FailOn  string // fingerprint whose Store calls fail
	Lookups int
	Stores  int
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{Entries: map[string]models.MatchResult{}}
}

func (c *MemoryCache) Lookup(fingerprint, mode string) (*models.CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Lookups++
	result, ok := c.Entries[fingerprint+"|"+mode]
	if !ok {
		return nil, nil
	}
	return &models.CacheEntry{Fingerprint: fingerprint, Mode: mode, Result: result}, nil
}

func (c *MemoryCache) Store(fingerprint, mode string, result models.MatchResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Stores++
	if c.FailOn != "" && c.FailOn == fingerprint {
		return errors.New("store failed")
	}
	c.Entries[fingerprint+"|"+mode] = result
	return nil
}

func (c *MemoryCache) Invalidate(fingerprint, mode string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.Entries, fingerprint+"|"+mode)
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
