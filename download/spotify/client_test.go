package spotify

import (
	"errors"
	"testing"

	"github.com/sv4u/spotigo"
)

func TestIsSpotifyURL(t *testing.T) {
	tests := map[string]bool{
		"https://open.spotify.com/track/2DGa7iaidT5s0qnINlwMjJ": true,
		"spotify:track:2DGa7iaidT5s0qnINlwMjJ":                  true,
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ":           false,
		"Tame Impala - Borderline":                              false,
	}
	for in, want := range tests {
		if got := IsSpotifyURL(in); got != want {
			t.Errorf("IsSpotifyURL(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestHandleError(t *testing.T) {
	c := &SpotifyClient{}

	var rl *RateLimitError
	if err := c.handleError(errors.New("HTTP 429 Too Many Requests")); !errors.As(err, &rl) {
		t.Errorf("handleError(429) = %T, want *RateLimitError", err)
	}

	var se *SpotifyError
	if err := c.handleError(errors.New("404 non existing id")); !errors.As(err, &se) {
		t.Errorf("handleError(404) = %T, want *SpotifyError", err)
	}

	if c.handleError(nil) != nil {
		t.Error("handleError(nil) should be nil")
	}
}

func TestTrackURL(t *testing.T) {
	if got := trackURL("abc", &spotigo.ExternalURLs{Spotify: "https://open.spotify.com/track/abc"}); got != "https://open.spotify.com/track/abc" {
		t.Errorf("trackURL with external URL = %q", got)
	}
	if got := trackURL("abc", nil); got != "https://open.spotify.com/track/abc" {
		t.Errorf("trackURL from ID = %q", got)
	}
	if got := trackURL("", nil); got != "" {
		t.Errorf("trackURL without ID = %q, want empty", got)
	}
}

func TestPlaylistItemURL(t *testing.T) {
	items := []struct {
		item spotigo.PlaylistTrack
		want string
	}{
		{spotigo.PlaylistTrack{Track: &spotigo.Track{ID: "t1"}}, "https://open.spotify.com/track/t1"},
		{spotigo.PlaylistTrack{Track: &spotigo.Track{ID: "t2", IsLocal: true}}, ""},
		{spotigo.PlaylistTrack{Track: spotigo.SimplifiedTrack{ID: "t3"}}, "https://open.spotify.com/track/t3"},
		{spotigo.PlaylistTrack{Track: nil}, ""},
	}
	for i, tt := range items {
		if got := playlistItemURL(tt.item); got != tt.want {
			t.Errorf("item %d: playlistItemURL = %q, want %q", i, got, tt.want)
		}
	}
}
