// Tidal API implementation of [TargetService]
//
// Response types based on the api.tidal.com/v1 endpoints.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/wavelend/crosstide/internal/models"
	"github.com/wavelend/crosstide/internal/shared"
)

const (
	tidalBaseURL   = "https://api.tidal.com/v1"
	tidalPageLimit = 100
)

// tidalArtist represents an artist in a Tidal API response.
type tidalArtist struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// tidalAlbum represents an album in a Tidal API response.
type tidalAlbum struct {
	ID             int           `json:"id"`
	Title          string        `json:"title"`
	NumberOfTracks int           `json:"numberOfTracks"`
	Artists        []tidalArtist `json:"artists"`
}

// tidalTrack represents a track in a Tidal API response.
type tidalTrack struct {
	ID           int           `json:"id"`
	Title        string        `json:"title"`
	Version      *string       `json:"version"`
	Duration     int           `json:"duration"`
	ISRC         string        `json:"isrc"`
	TrackNumber  int           `json:"trackNumber"`
	StreamReady  bool          `json:"streamReady"`
	AudioQuality string        `json:"audioQuality"`
	AudioModes   []string      `json:"audioModes"`
	Artists      []tidalArtist `json:"artists"`
	Album        tidalAlbum    `json:"album"`
}

// tidalPlaylist represents a playlist in a Tidal API response.
type tidalPlaylist struct {
	UUID           string `json:"uuid"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	NumberOfTracks int    `json:"numberOfTracks"`
	PublicPlaylist bool   `json:"publicPlaylist"`
}

type tidalPage[T any] struct {
	Items        []T `json:"items"`
	Limit        int `json:"limit"`
	Offset       int `json:"offset"`
	TotalResults int `json:"totalNumberOfItems"`
}

type tidalTrackSearch struct {
	Tracks tidalPage[tidalTrack] `json:"tracks"`
}

type tidalAlbumSearch struct {
	Albums tidalPage[tidalAlbum] `json:"albums"`
}

type tidalError struct {
	Status      int    `json:"status"`
	SubStatus   int    `json:"subStatus"`
	UserMessage string `json:"userMessage"`
}

// TidalService implements TargetService over the Tidal API.
type TidalService struct {
	baseURL     string
	httpClient  *http.Client
	userID      string
	countryCode string
	logger      *log.Logger
}

// TidalOpts contains configuration for creating a TidalService.
type TidalOpts struct {
	AccessToken string
	UserID      string
	CountryCode string
	BaseURL     string       // defaults to the public API, overridable for tests
	HTTPClient  *http.Client // defaults to an oauth2 client using AccessToken
	Logger      *log.Logger
}

// NewTidalService creates a TidalService from an already-issued session.
func NewTidalService(ctx context.Context, opts TidalOpts) (*TidalService, error) {
	if opts.AccessToken == "" && opts.HTTPClient == nil {
		return nil, fmt.Errorf("%w: tidal access token", shared.ErrMissingCredentials)
	}
	if opts.UserID == "" {
		return nil, fmt.Errorf("%w: tidal user id", shared.ErrMissingCredentials)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = tidalBaseURL
	}
	if opts.CountryCode == "" {
		opts.CountryCode = "US"
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.AccessToken}))
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &TidalService{
		baseURL:     opts.BaseURL,
		httpClient:  opts.HTTPClient,
		userID:      opts.UserID,
		countryCode: opts.CountryCode,
		logger:      shared.WithLogger(opts.Logger, "service", "tidal"),
	}, nil
}

// Name returns the service name.
func (s *TidalService) Name() string { return "Tidal" }

// SearchTracks searches the catalog for tracks, preserving the API's
// relevance ordering. Tracks that are not streamable are dropped at the
// boundary so matching never selects an unplayable candidate.
func (s *TidalService) SearchTracks(ctx context.Context, query string) ([]models.Track, error) {
	params := url.Values{"query": {query}, "limit": {"50"}, "types": {"TRACKS"}}

	var result tidalTrackSearch
	if err := s.get(ctx, "/search/tracks", params, &result); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(result.Tracks.Items))
	for _, item := range result.Tracks.Items {
		if t, ok := mapTidalTrack(item); ok {
			tracks = append(tracks, t)
		}
	}
	s.logger.Debug("search complete", "query", query, "results", len(tracks))
	return tracks, nil
}

// SearchAlbums searches the catalog for albums.
func (s *TidalService) SearchAlbums(ctx context.Context, query string) ([]models.Album, error) {
	params := url.Values{"query": {query}, "limit": {"20"}, "types": {"ALBUMS"}}

	var result tidalAlbumSearch
	if err := s.get(ctx, "/search/albums", params, &result); err != nil {
		return nil, err
	}

	albums := make([]models.Album, 0, len(result.Albums.Items))
	for _, item := range result.Albums.Items {
		albums = append(albums, mapTidalAlbum(item))
	}
	return albums, nil
}

// GetAlbumTracks retrieves an album's tracks in album order.
func (s *TidalService) GetAlbumTracks(ctx context.Context, albumID string) ([]models.Track, error) {
	var page tidalPage[tidalTrack]
	if err := s.get(ctx, "/albums/"+albumID+"/tracks", url.Values{"limit": {"100"}}, &page); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(page.Items))
	for _, item := range page.Items {
		if t, ok := mapTidalTrack(item); ok {
			tracks = append(tracks, t)
		}
	}
	return tracks, nil
}

// GetPlaylists retrieves the user's playlists.
func (s *TidalService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	for offset := 0; ; offset += tidalPageLimit {
		params := url.Values{
			"limit":  {strconv.Itoa(tidalPageLimit)},
			"offset": {strconv.Itoa(offset)},
		}
		var page tidalPage[tidalPlaylist]
		if err := s.get(ctx, "/users/"+s.userID+"/playlists", params, &page); err != nil {
			return nil, err
		}
		for _, pl := range page.Items {
			playlists = append(playlists, models.Playlist{
				ID:          pl.UUID,
				Name:        pl.Title,
				Description: pl.Description,
				TrackCount:  pl.NumberOfTracks,
				Public:      pl.PublicPlaylist,
			})
		}
		if offset+len(page.Items) >= page.TotalResults || len(page.Items) == 0 {
			break
		}
	}
	return playlists, nil
}

// CreatePlaylist creates an empty playlist for the user.
func (s *TidalService) CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	form := url.Values{"title": {name}, "description": {description}}

	var created tidalPlaylist
	if err := s.do(ctx, http.MethodPost, "/users/"+s.userID+"/playlists", nil, form, &created); err != nil {
		return nil, err
	}

	s.logger.Info("created playlist", "name", name, "id", created.UUID)
	return &models.Playlist{
		ID:          created.UUID,
		Name:        created.Title,
		Description: created.Description,
		Public:      created.PublicPlaylist,
	}, nil
}

// GetPlaylistTracks retrieves a playlist's tracks in order, following
// pagination.
func (s *TidalService) GetPlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	var tracks []models.Track
	for offset := 0; ; offset += tidalPageLimit {
		params := url.Values{
			"limit":  {strconv.Itoa(tidalPageLimit)},
			"offset": {strconv.Itoa(offset)},
		}
		var page tidalPage[tidalTrack]
		if err := s.get(ctx, "/playlists/"+playlistID+"/tracks", params, &page); err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			if t, ok := mapTidalTrack(item); ok {
				tracks = append(tracks, t)
			}
		}
		if offset+len(page.Items) >= page.TotalResults || len(page.Items) == 0 {
			break
		}
	}
	return tracks, nil
}

// AddTracks inserts tracks into a playlist. Position -1 appends.
func (s *TidalService) AddTracks(ctx context.Context, playlistID string, trackIDs []string, position int) error {
	if len(trackIDs) == 0 {
		return nil
	}
	form := url.Values{
		"trackIds":           {strings.Join(trackIDs, ",")},
		"onArtifactNotFound": {"SKIP"},
	}
	if position >= 0 {
		form.Set("toIndex", strconv.Itoa(position))
	}
	if err := s.do(ctx, http.MethodPost, "/playlists/"+playlistID+"/tracks", nil, form, nil); err != nil {
		return fmt.Errorf("%w: add tracks: %v", shared.ErrMutationFailed, err)
	}
	return nil
}

// RemoveTracks removes tracks from a playlist by track ID.
func (s *TidalService) RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}
	params := url.Values{"trackIds": {strings.Join(trackIDs, ",")}}
	if err := s.do(ctx, http.MethodDelete, "/playlists/"+playlistID+"/tracks", params, nil, nil); err != nil {
		return fmt.Errorf("%w: remove tracks: %v", shared.ErrMutationFailed, err)
	}
	return nil
}

// GetFavoriteTracks retrieves the user's favorite tracks.
func (s *TidalService) GetFavoriteTracks(ctx context.Context) ([]models.Track, error) {
	var tracks []models.Track
	for offset := 0; ; offset += tidalPageLimit {
		params := url.Values{
			"limit":  {strconv.Itoa(tidalPageLimit)},
			"offset": {strconv.Itoa(offset)},
			"order":  {"DATE"},
		}
		var page tidalPage[struct {
			Item tidalTrack `json:"item"`
		}]
		if err := s.get(ctx, "/users/"+s.userID+"/favorites/tracks", params, &page); err != nil {
			return nil, err
		}
		for _, wrapped := range page.Items {
			if t, ok := mapTidalTrack(wrapped.Item); ok {
				tracks = append(tracks, t)
			}
		}
		if offset+len(page.Items) >= page.TotalResults || len(page.Items) == 0 {
			break
		}
	}
	return tracks, nil
}

// AddFavorites adds tracks to the user's favorites.
func (s *TidalService) AddFavorites(ctx context.Context, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}
	form := url.Values{"trackIds": {strings.Join(trackIDs, ",")}}
	if err := s.do(ctx, http.MethodPost, "/users/"+s.userID+"/favorites/tracks", nil, form, nil); err != nil {
		return fmt.Errorf("%w: add favorites: %v", shared.ErrMutationFailed, err)
	}
	return nil
}

// RemoveFavorites removes tracks from the user's favorites one at a time;
// the API has no bulk delete.
func (s *TidalService) RemoveFavorites(ctx context.Context, trackIDs []string) error {
	for _, id := range trackIDs {
		if err := s.do(ctx, http.MethodDelete, "/users/"+s.userID+"/favorites/tracks/"+id, nil, nil, nil); err != nil {
			return fmt.Errorf("%w: remove favorite %s: %v", shared.ErrMutationFailed, id, err)
		}
	}
	return nil
}

// get performs a GET request and decodes the JSON response into out.
func (s *TidalService) get(ctx context.Context, path string, params url.Values, out any) error {
	return s.do(ctx, http.MethodGet, path, params, nil, out)
}

// do performs an HTTP request against the API, mapping failure status
// codes onto the shared error taxonomy.
func (s *TidalService) do(ctx context.Context, method, path string, params, form url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("countryCode", s.countryCode)

	endpoint := s.baseURL + path + "?" + params.Encode()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", shared.ErrTransient, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return s.mapStatus(resp, method, path)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", shared.ErrAPIRequest, method, path, err)
	}
	return nil
}

// mapStatus converts an error response into the shared taxonomy.
func (s *TidalService) mapStatus(resp *http.Response, method, path string) error {
	var apiErr tidalError
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	json.Unmarshal(raw, &apiErr)

	msg := apiErr.UserMessage
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s %s: %s", shared.ErrAuthFailed, method, path, msg)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s %s: %s", shared.ErrRateLimited, method, path, msg)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s: %s", shared.ErrPlaylistNotFound, method, path, msg)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s %s: status %d: %s", shared.ErrTransient, method, path, resp.StatusCode, msg)
	default:
		return fmt.Errorf("%w: %s %s: status %d: %s", shared.ErrAPIRequest, method, path, resp.StatusCode, msg)
	}
}

// mapTidalTrack validates a raw API track into the normalized model.
// Non-streamable tracks are dropped so they never become candidates.
func mapTidalTrack(t tidalTrack) (models.Track, bool) {
	if t.ID == 0 || t.Title == "" || !t.StreamReady {
		return models.Track{}, false
	}

	title := t.Title
	if t.Version != nil && *t.Version != "" {
		title = title + " (" + *t.Version + ")"
	}

	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}

	albumArtist := ""
	if len(t.Album.Artists) > 0 {
		albumArtist = t.Album.Artists[0].Name
	}

	return models.Track{
		ID:          strconv.Itoa(t.ID),
		Title:       title,
		Artists:     artists,
		Album:       t.Album.Title,
		AlbumArtist: albumArtist,
		TrackNumber: t.TrackNumber,
		Duration:    t.Duration,
		ISRC:        t.ISRC,
		Spatial:     isSpatial(t),
	}, true
}

func mapTidalAlbum(a tidalAlbum) models.Album {
	artists := make([]string, 0, len(a.Artists))
	for _, artist := range a.Artists {
		artists = append(artists, artist.Name)
	}
	return models.Album{
		ID:        strconv.Itoa(a.ID),
		Name:      a.Title,
		Artists:   artists,
		NumTracks: a.NumberOfTracks,
	}
}

func isSpatial(t tidalTrack) bool {
	for _, mode := range t.AudioModes {
		if mode == "DOLBY_ATMOS" || mode == "SONY_360RA" {
			return true
		}
	}
	return t.AudioQuality == "HI_RES" || t.AudioQuality == "HI_RES_LOSSLESS"
}
