// Spotify implementation of [SourceService] built on the zmb3 client library.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/wavelend/crosstide/internal/models"
	"github.com/wavelend/crosstide/internal/shared"
)

// SpotifyService implements SourceService over the Spotify Web API.
type SpotifyService struct {
	client *spotify.Client
	logger *log.Logger
}

// NewSpotifyService creates a SpotifyService from an already-issued access
// token. Token refresh is out of scope; an expired token surfaces as
// [shared.ErrAuthFailed] on the first call.
func NewSpotifyService(ctx context.Context, accessToken string, logger *log.Logger) (*SpotifyService, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("%w: spotify access token", shared.ErrMissingCredentials)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	return &SpotifyService{
		client: spotify.New(httpClient),
		logger: shared.WithLogger(logger, "service", "spotify"),
	}, nil
}

// NewSpotifyServiceWithClient creates a SpotifyService over a caller-supplied
// HTTP client, used by tests to point the client at a fake server.
func NewSpotifyServiceWithClient(httpClient *http.Client, logger *log.Logger, opts ...spotify.ClientOption) *SpotifyService {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SpotifyService{
		client: spotify.New(httpClient, opts...),
		logger: shared.WithLogger(logger, "service", "spotify"),
	}
}

// Name returns the service name.
func (s *SpotifyService) Name() string { return "Spotify" }

// GetPlaylists retrieves all playlists owned by the current user,
// following pagination to the end.
func (s *SpotifyService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	page, err := s.client.CurrentUsersPlaylists(ctx)
	if err != nil {
		return nil, s.wrapErr("get playlists", err)
	}

	user, err := s.client.CurrentUser(ctx)
	if err != nil {
		return nil, s.wrapErr("get current user", err)
	}

	var playlists []models.Playlist
	for {
		for _, pl := range page.Playlists {
			if pl.Owner.ID != user.ID {
				continue
			}
			playlists = append(playlists, models.Playlist{
				ID:         string(pl.ID),
				Name:       pl.Name,
				TrackCount: int(pl.Tracks.Total),
				Public:     pl.IsPublic,
			})
		}
		err = s.client.NextPage(ctx, page)
		if err == spotify.ErrNoMorePages {
			break
		}
		if err != nil {
			return nil, s.wrapErr("get playlists page", err)
		}
	}

	s.logger.Debug("fetched playlists", "count", len(playlists))
	return playlists, nil
}

// GetPlaylist retrieves a single playlist by ID.
func (s *SpotifyService) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	pl, err := s.client.GetPlaylist(ctx, spotify.ID(playlistID))
	if err != nil {
		return nil, s.wrapErr("get playlist", err)
	}
	return &models.Playlist{
		ID:          string(pl.ID),
		Name:        pl.Name,
		Description: pl.Description,
		TrackCount:  int(pl.Tracks.Total),
		Public:      pl.IsPublic,
	}, nil
}

// GetPlaylistTracks retrieves every track in a playlist, in playlist
// order, following pagination. Episodes and local files are skipped.
func (s *SpotifyService) GetPlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	page, err := s.client.GetPlaylistItems(ctx, spotify.ID(playlistID))
	if err != nil {
		return nil, s.wrapErr("get playlist tracks", err)
	}

	var tracks []models.Track
	for {
		for _, item := range page.Items {
			if item.Track.Track == nil {
				continue
			}
			if t, ok := s.mapTrack(item.Track.Track); ok {
				tracks = append(tracks, t)
			}
		}
		err = s.client.NextPage(ctx, page)
		if err == spotify.ErrNoMorePages {
			break
		}
		if err != nil {
			return nil, s.wrapErr("get playlist tracks page", err)
		}
	}

	s.logger.Debug("fetched playlist tracks", "playlist", playlistID, "count", len(tracks))
	return tracks, nil
}

// GetFavoriteTracks retrieves the user's saved tracks. Spotify returns
// them newest first; they are reversed so favorites apply oldest first.
func (s *SpotifyService) GetFavoriteTracks(ctx context.Context) ([]models.Track, error) {
	page, err := s.client.CurrentUsersTracks(ctx)
	if err != nil {
		return nil, s.wrapErr("get favorites", err)
	}

	var tracks []models.Track
	for {
		for _, saved := range page.Tracks {
			if t, ok := s.mapTrack(&saved.FullTrack); ok {
				tracks = append(tracks, t)
			}
		}
		err = s.client.NextPage(ctx, page)
		if err == spotify.ErrNoMorePages {
			break
		}
		if err != nil {
			return nil, s.wrapErr("get favorites page", err)
		}
	}

	for i, j := 0, len(tracks)-1; i < j; i, j = i+1, j-1 {
		tracks[i], tracks[j] = tracks[j], tracks[i]
	}

	s.logger.Debug("fetched favorites", "count", len(tracks))
	return tracks, nil
}

// mapTrack validates a raw Spotify track into the normalized model.
// Tracks without an ID or title are dropped at the boundary.
func (s *SpotifyService) mapTrack(ft *spotify.FullTrack) (models.Track, bool) {
	if ft.ID == "" || ft.Name == "" || len(ft.Artists) == 0 {
		return models.Track{}, false
	}

	artists := make([]string, 0, len(ft.Artists))
	for _, a := range ft.Artists {
		artists = append(artists, a.Name)
	}

	albumArtist := ""
	if len(ft.Album.Artists) > 0 {
		albumArtist = ft.Album.Artists[0].Name
	}

	return models.Track{
		ID:          string(ft.ID),
		Title:       ft.Name,
		Artists:     artists,
		Album:       ft.Album.Name,
		AlbumArtist: albumArtist,
		TrackNumber: int(ft.TrackNumber),
		Duration:    int(ft.Duration) / 1000,
		ISRC:        ft.ExternalIDs["isrc"],
	}, true
}

// wrapErr maps zmb3 client errors onto the shared taxonomy.
func (s *SpotifyService) wrapErr(op string, err error) error {
	var spErr spotify.Error
	if errors.As(err, &spErr) {
		switch {
		case spErr.Status == http.StatusUnauthorized || spErr.Status == http.StatusForbidden:
			return fmt.Errorf("%w: %s: %v", shared.ErrAuthFailed, op, err)
		case spErr.Status == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s: %v", shared.ErrRateLimited, op, err)
		case spErr.Status >= 500:
			return fmt.Errorf("%w: %s: %v", shared.ErrTransient, op, err)
		}
	}
	return fmt.Errorf("%w: %s: %v", shared.ErrAPIRequest, op, err)
}
