package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wavelend/crosstide/internal/shared"
)

func testTidal(t *testing.T, handler http.HandlerFunc) *TidalService {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewTidalService(context.Background(), TidalOpts{
		BaseURL:     server.URL,
		HTTPClient:  server.Client(),
		UserID:      "42",
		CountryCode: "US",
		Logger:      shared.NewLogger(&strings.Builder{}),
	})
	if err != nil {
		t.Fatalf("NewTidalService() error = %v", err)
	}
	return svc
}

func TestNewTidalService_RequiresCredentials(t *testing.T) {
	if _, err := NewTidalService(context.Background(), TidalOpts{UserID: "42"}); !errors.Is(err, shared.ErrMissingCredentials) {
		t.Errorf("missing token error = %v, want ErrMissingCredentials", err)
	}
	if _, err := NewTidalService(context.Background(), TidalOpts{AccessToken: "tok"}); !errors.Is(err, shared.ErrMissingCredentials) {
		t.Errorf("missing user id error = %v, want ErrMissingCredentials", err)
	}
}

func TestTidalService_SearchTracks(t *testing.T) {
	svc := testTidal(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/tracks" {
			t.Errorf("path = %s, want /search/tracks", r.URL.Path)
		}
		if got := r.URL.Query().Get("countryCode"); got != "US" {
			t.Errorf("countryCode = %q, want US", got)
		}
		if got := r.URL.Query().Get("query"); got != "nightcall kavinsky" {
			t.Errorf("query = %q", got)
		}

		w.Write([]byte(`{
			"tracks": {
				"items": [
					{
						"id": 101,
						"title": "Nightcall",
						"duration": 258,
						"isrc": "FR2PY1000023",
						"trackNumber": 2,
						"streamReady": true,
						"audioQuality": "LOSSLESS",
						"artists": [{"id": 1, "name": "Kavinsky"}],
						"album": {"id": 7, "title": "OutRun", "numberOfTracks": 13, "artists": [{"id": 1, "name": "Kavinsky"}]}
					},
					{
						"id": 102,
						"title": "Nightcall (Unreleased)",
						"duration": 258,
						"streamReady": false,
						"artists": [{"id": 1, "name": "Kavinsky"}]
					},
					{
						"id": 103,
						"title": "Nightcall",
						"version": "Live",
						"duration": 260,
						"streamReady": true,
						"audioModes": ["DOLBY_ATMOS"],
						"artists": [{"id": 1, "name": "Kavinsky"}]
					}
				],
				"limit": 50, "offset": 0, "totalNumberOfItems": 3
			}
		}`))
	})

	tracks, err := svc.SearchTracks(context.Background(), "nightcall kavinsky")
	if err != nil {
		t.Fatalf("SearchTracks() error = %v", err)
	}

	// The non-streamable track is dropped at the boundary.
	if len(tracks) != 2 {
		t.Fatalf("SearchTracks() returned %d tracks, want 2", len(tracks))
	}

	first := tracks[0]
	if first.ID != "101" || first.Title != "Nightcall" || first.Duration != 258 || first.ISRC != "FR2PY1000023" {
		t.Errorf("first track = %+v", first)
	}
	if first.Album != "OutRun" || first.AlbumArtist != "Kavinsky" || first.TrackNumber != 2 {
		t.Errorf("first track album fields = %+v", first)
	}
	if first.Spatial {
		t.Error("lossless-only track marked spatial")
	}

	second := tracks[1]
	if second.Title != "Nightcall (Live)" {
		t.Errorf("versioned title = %q, want version suffix", second.Title)
	}
	if !second.Spatial {
		t.Error("Dolby Atmos track not marked spatial")
	}
}

func TestTidalService_SearchAlbums(t *testing.T) {
	svc := testTidal(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/albums" {
			t.Errorf("path = %s, want /search/albums", r.URL.Path)
		}
		w.Write([]byte(`{
			"albums": {
				"items": [
					{"id": 7, "title": "OutRun", "numberOfTracks": 13, "artists": [{"id": 1, "name": "Kavinsky"}]}
				],
				"limit": 20, "offset": 0, "totalNumberOfItems": 1
			}
		}`))
	})

	albums, err := svc.SearchAlbums(context.Background(), "outrun")
	if err != nil {
		t.Fatalf("SearchAlbums() error = %v", err)
	}
	if len(albums) != 1 {
		t.Fatalf("SearchAlbums() returned %d albums, want 1", len(albums))
	}
	if albums[0].ID != "7" || albums[0].Name != "OutRun" || albums[0].NumTracks != 13 {
		t.Errorf("album = %+v", albums[0])
	}
}

func TestTidalService_GetPlaylistsPaginates(t *testing.T) {
	calls := 0
	svc := testTidal(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch r.URL.Query().Get("offset") {
		case "0":
			w.Write([]byte(`{"items": [{"uuid": "pl-1", "title": "First", "numberOfTracks": 3}], "limit": 100, "offset": 0, "totalNumberOfItems": 2}`))
		default:
			w.Write([]byte(`{"items": [{"uuid": "pl-2", "title": "Second"}], "limit": 100, "offset": 100, "totalNumberOfItems": 2}`))
		}
	})

	playlists, err := svc.GetPlaylists(context.Background())
	if err != nil {
		t.Fatalf("GetPlaylists() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("made %d requests, want 2 pages", calls)
	}
	if len(playlists) != 2 || playlists[0].ID != "pl-1" || playlists[1].ID != "pl-2" {
		t.Errorf("playlists = %+v", playlists)
	}
}

func TestTidalService_AddTracks(t *testing.T) {
	svc := testTidal(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/playlists/pl-1/tracks" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm() error = %v", err)
		}
		if got := r.PostForm.Get("trackIds"); got != "1,2,3" {
			t.Errorf("trackIds = %q, want 1,2,3", got)
		}
		if got := r.PostForm.Get("toIndex"); got != "0" {
			t.Errorf("toIndex = %q, want 0", got)
		}
		if got := r.PostForm.Get("onArtifactNotFound"); got != "SKIP" {
			t.Errorf("onArtifactNotFound = %q, want SKIP", got)
		}
		w.WriteHeader(http.StatusOK)
	})

	if err := svc.AddTracks(context.Background(), "pl-1", []string{"1", "2", "3"}, 0); err != nil {
		t.Fatalf("AddTracks() error = %v", err)
	}

	// An empty ID list makes no request at all.
	if err := svc.AddTracks(context.Background(), "pl-1", nil, 0); err != nil {
		t.Errorf("AddTracks(empty) error = %v", err)
	}
}

func TestTidalService_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"unauthorized", http.StatusUnauthorized, shared.ErrAuthFailed},
		{"forbidden", http.StatusForbidden, shared.ErrAuthFailed},
		{"rate limited", http.StatusTooManyRequests, shared.ErrRateLimited},
		{"not found", http.StatusNotFound, shared.ErrPlaylistNotFound},
		{"server error", http.StatusInternalServerError, shared.ErrTransient},
		{"bad request", http.StatusBadRequest, shared.ErrAPIRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testTidal(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"userMessage": "nope"}`))
			})

			_, err := svc.SearchTracks(context.Background(), "query")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("SearchTracks() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTidalService_RemoveFavorites(t *testing.T) {
	var paths []string
	svc := testTidal(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s, want DELETE", r.Method)
		}
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	if err := svc.RemoveFavorites(context.Background(), []string{"9", "10"}); err != nil {
		t.Fatalf("RemoveFavorites() error = %v", err)
	}

	want := []string{"/users/42/favorites/tracks/9", "/users/42/favorites/tracks/10"}
	if len(paths) != 2 || paths[0] != want[0] || paths[1] != want[1] {
		t.Errorf("paths = %v, want %v", paths, want)
	}
}

func TestTidalService_GetFavoriteTracks(t *testing.T) {
	svc := testTidal(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/42/favorites/tracks" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"items": [
				{"item": {"id": 201, "title": "Favorite One", "duration": 180, "streamReady": true, "artists": [{"id": 1, "name": "Artist"}]}}
			],
			"limit": 100, "offset": 0, "totalNumberOfItems": 1
		}`))
	})

	tracks, err := svc.GetFavoriteTracks(context.Background())
	if err != nil {
		t.Fatalf("GetFavoriteTracks() error = %v", err)
	}
	if len(tracks) != 1 || tracks[0].ID != "201" || tracks[0].Title != "Favorite One" {
		t.Errorf("tracks = %+v", tracks)
	}
}
