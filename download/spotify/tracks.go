package spotify

import (
	"context"
	"fmt"
	"log"

	"github.com/sv4u/spotigo"
)

// trackURL returns the web URL of a track, building one from the ID when absent.
func trackURL(id string, urls *spotigo.ExternalURLs) string {
	if urls != nil && urls.Spotify != "" {
		return urls.Spotify
	}
	if id == "" {
		return ""
	}
	return "https://open.spotify.com/track/" + id
}

// playlistItemURL extracts the URL from a playlist entry, skipping local files.
func playlistItemURL(item spotigo.PlaylistTrack) string {
	switch t := item.Track.(type) {
	case *spotigo.Track:
		if t == nil || t.IsLocal {
			return ""
		}
		return trackURL(t.ID, t.ExternalURLs)
	case spotigo.Track:
		if t.IsLocal {
			return ""
		}
		return trackURL(t.ID, t.ExternalURLs)
	case *spotigo.SimplifiedTrack:
		if t == nil || t.IsLocal {
			return ""
		}
		return trackURL(t.ID, t.ExternalURLs)
	case spotigo.SimplifiedTrack:
		if t.IsLocal {
			return ""
		}
		return trackURL(t.ID, t.ExternalURLs)
	}
	return ""
}

// PlaylistTrackURLs returns the playlist name and the URLs of its tracks in playlist order.
func (c *SpotifyClient) PlaylistTrackURLs(ctx context.Context, playlistIDOrURL string) (string, []string, error) {
	playlist, err := c.GetPlaylist(ctx, playlistIDOrURL)
	if err != nil {
		return "", nil, err
	}
	playlistID, err := spotigo.GetID(playlistIDOrURL, "playlist")
	if err != nil {
		return "", nil, fmt.Errorf("invalid playlist ID/URL: %w", err)
	}

	if err := c.rateLimiter.WaitIfNeeded(ctx); err != nil {
		return "", nil, err
	}
	page, err := c.client.PlaylistTracks(ctx, playlistID, nil)
	if err != nil {
		return "", nil, c.handleError(err)
	}

	var urls []string
	for page != nil {
		for _, item := range page.Items {
			if u := playlistItemURL(item); u != "" {
				urls = append(urls, u)
			}
		}
		if page.GetNext() == nil {
			break
		}
		if page, err = nextPage[spotigo.PlaylistTrack](ctx, c, page); err != nil {
			return "", nil, fmt.Errorf("failed to paginate playlist tracks: %w", err)
		}
	}

	log.Printf("INFO: playlist_enumerated playlist_id=%s name=%s tracks=%d", playlistID, playlist.Name, len(urls))
	return playlist.Name, urls, nil
}

// AlbumTrackURLs returns the album name and the URLs of its tracks in album order.
func (c *SpotifyClient) AlbumTrackURLs(ctx context.Context, albumIDOrURL string) (string, []string, error) {
	album, err := c.GetAlbum(ctx, albumIDOrURL)
	if err != nil {
		return "", nil, err
	}
	urls, err := c.albumTracks(ctx, album)
	if err != nil {
		return "", nil, err
	}
	log.Printf("INFO: album_enumerated album_id=%s name=%s tracks=%d", album.ID, album.Name, len(urls))
	return album.Name, urls, nil
}

func (c *SpotifyClient) albumTracks(ctx context.Context, album *spotigo.Album) ([]string, error) {
	page := album.Tracks
	var urls []string
	var err error
	for page != nil {
		for _, track := range page.Items {
			if u := trackURL(track.ID, track.ExternalURLs); u != "" {
				urls = append(urls, u)
			}
		}
		if page.GetNext() == nil {
			break
		}
		if page, err = nextPage[spotigo.SimplifiedTrack](ctx, c, page); err != nil {
			return nil, fmt.Errorf("failed to paginate album tracks: %w", err)
		}
	}
	return urls, nil
}

// ArtistAlbumTrackURLs returns the artist name and the track URLs of every album and single
// by the artist. Compilations and "appears on" releases are excluded.
func (c *SpotifyClient) ArtistAlbumTrackURLs(ctx context.Context, artistIDOrURL string) (string, []string, error) {
	artist, err := c.GetArtist(ctx, artistIDOrURL)
	if err != nil {
		return "", nil, err
	}

	if err := c.rateLimiter.WaitIfNeeded(ctx); err != nil {
		return "", nil, err
	}
	page, err := c.client.ArtistAlbums(ctx, artist.ID, &spotigo.ArtistAlbumsOptions{
		IncludeGroups: []string{"album", "single"},
		Limit:         50,
	})
	if err != nil {
		return "", nil, c.handleError(err)
	}

	var albums []spotigo.SimplifiedAlbum
	for page != nil {
		albums = append(albums, page.Items...)
		if page.GetNext() == nil {
			break
		}
		if page, err = nextPage[spotigo.SimplifiedAlbum](ctx, c, page); err != nil {
			return "", nil, fmt.Errorf("failed to paginate artist albums: %w", err)
		}
	}

	var urls []string
	for _, simplified := range albums {
		album, err := c.GetAlbum(ctx, simplified.ID)
		if err != nil {
			log.Printf("WARN: artist_album_fetch_failed artist_id=%s album_id=%s error=%v", artist.ID, simplified.ID, err)
			continue
		}
		tracks, err := c.albumTracks(ctx, album)
		if err != nil {
			return "", nil, err
		}
		urls = append(urls, tracks...)
	}

	log.Printf("INFO: artist_enumerated artist_id=%s name=%s albums=%d tracks=%d", artist.ID, artist.Name, len(albums), len(urls))
	return artist.Name, urls, nil
}
