package spotify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/sv4u/spotigo"
)

// Config holds configuration for the Spotify client wrapper.
type Config struct {
	// Spotify API credentials
	ClientID     string
	ClientSecret string

	// Response cache
	CacheMaxSize int
	CacheTTL     int

	// Proactive rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   float64
}

// SpotifyClient wraps spotigo.Client with response caching and proactive rate limiting.
// One client is built per run and handed to every component that needs catalog access.
type SpotifyClient struct {
	client      *spotigo.Client
	cache       *TTLCache
	rateLimiter *RateLimiter
}

// NewSpotifyClient authenticates with client credentials and returns a client wrapper.
func NewSpotifyClient(config *Config) (*SpotifyClient, error) {
	auth, err := spotigo.NewClientCredentials(config.ClientID, config.ClientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth: %w", err)
	}

	client, err := spotigo.NewClient(auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create spotigo client: %w", err)
	}

	return &SpotifyClient{
		client:      client,
		cache:       NewTTLCache(config.CacheMaxSize, config.CacheTTL),
		rateLimiter: NewRateLimiter(config.RateLimitEnabled, config.RateLimitRequests, config.RateLimitWindow),
	}, nil
}

// CacheStats returns the response cache counters.
func (c *SpotifyClient) CacheStats() CacheStats {
	return c.cache.Stats()
}

// IsSpotifyURL reports whether s looks like a Spotify web URL or URI.
func IsSpotifyURL(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "spotify:") || strings.Contains(s, "open.spotify.com/")
}

// handleError converts spotigo errors into RateLimitError or SpotifyError.
func (c *SpotifyClient) handleError(err error) error {
	if err == nil {
		return nil
	}
	if isRateLimitError(err) {
		retryAfter := 1
		var ra interface{ RetryAfter() int }
		if errors.As(err, &ra) && ra.RetryAfter() > 0 {
			retryAfter = ra.RetryAfter()
		}
		log.Printf("WARN: spotify_rate_limited retry_after=%d", retryAfter)
		return &RateLimitError{RetryAfter: retryAfter, Original: err}
	}
	return &SpotifyError{Message: "Spotify API error", Original: err}
}

// isRateLimitError checks if an error is a rate limit error (HTTP 429).
func isRateLimitError(err error) bool {
	var httpErr interface{ StatusCode() int }
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode() == http.StatusTooManyRequests
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

// cached runs fetch once per key within the cache TTL, rate limiting real requests.
func cached[T any](ctx context.Context, c *SpotifyClient, key string, fetch func() (T, error)) (T, error) {
	if v, ok := c.cache.Get(key).(T); ok {
		return v, nil
	}
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if err := c.rateLimiter.WaitIfNeeded(ctx); err != nil {
		return zero, err
	}
	v, err := fetch()
	if err != nil {
		return zero, c.handleError(err)
	}
	c.cache.Set(key, v)
	return v, nil
}

// GetTrack retrieves track metadata (cached).
func (c *SpotifyClient) GetTrack(ctx context.Context, trackIDOrURL string) (*spotigo.Track, error) {
	trackID, err := spotigo.GetID(trackIDOrURL, "track")
	if err != nil {
		return nil, fmt.Errorf("invalid track ID/URL: %w", err)
	}
	return cached(ctx, c, "track:"+trackID, func() (*spotigo.Track, error) {
		return c.client.Track(ctx, trackIDOrURL)
	})
}

// GetAlbum retrieves album metadata (cached).
func (c *SpotifyClient) GetAlbum(ctx context.Context, albumIDOrURL string) (*spotigo.Album, error) {
	albumID, err := spotigo.GetID(albumIDOrURL, "album")
	if err != nil {
		return nil, fmt.Errorf("invalid album ID/URL: %w", err)
	}
	return cached(ctx, c, "album:"+albumID, func() (*spotigo.Album, error) {
		return c.client.Album(ctx, albumIDOrURL)
	})
}

// GetArtist retrieves artist metadata (cached).
func (c *SpotifyClient) GetArtist(ctx context.Context, artistIDOrURL string) (*spotigo.Artist, error) {
	artistID, err := spotigo.GetID(artistIDOrURL, "artist")
	if err != nil {
		return nil, fmt.Errorf("invalid artist ID/URL: %w", err)
	}
	return cached(ctx, c, "artist:"+artistID, func() (*spotigo.Artist, error) {
		return c.client.Artist(ctx, artistIDOrURL)
	})
}

// GetPlaylist retrieves playlist metadata (cached).
func (c *SpotifyClient) GetPlaylist(ctx context.Context, playlistIDOrURL string) (*spotigo.Playlist, error) {
	playlistID, err := spotigo.GetID(playlistIDOrURL, "playlist")
	if err != nil {
		return nil, fmt.Errorf("invalid playlist ID/URL: %w", err)
	}
	return cached(ctx, c, "playlist:"+playlistID, func() (*spotigo.Playlist, error) {
		return c.client.Playlist(ctx, playlistIDOrURL, nil)
	})
}

// SearchTrack returns the best catalog track for a free-text query.
// A result whose artist appears in the query is preferred over the first hit.
func (c *SpotifyClient) SearchTrack(ctx context.Context, query string) (*spotigo.Track, error) {
	response, err := cached(ctx, c, "search:track:"+strings.ToLower(query), func() (*spotigo.SearchResponse, error) {
		return c.client.Search(ctx, query, "track", nil)
	})
	if err != nil {
		return nil, err
	}
	if response == nil || response.Tracks == nil || len(response.Tracks.Items) == 0 {
		return nil, nil
	}

	lowered := strings.ToLower(query)
	for i := range response.Tracks.Items {
		track := &response.Tracks.Items[i]
		for _, artist := range track.Artists {
			if artist.Name != "" && strings.Contains(lowered, strings.ToLower(artist.Name)) {
				return track, nil
			}
		}
	}
	return &response.Tracks.Items[0], nil
}

// nextPage fetches the next page of a paging object with rate limiting.
func nextPage[T any](ctx context.Context, c *SpotifyClient, paging interface{ GetNext() *string }) (*spotigo.Paging[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled during pagination: %w", err)
	}
	if err := c.rateLimiter.WaitIfNeeded(ctx); err != nil {
		return nil, err
	}
	page, err := spotigo.NextGeneric[T](c.client, ctx, paging)
	if err != nil {
		return nil, c.handleError(err)
	}
	return page, nil
}
