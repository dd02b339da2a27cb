package metadata

import (
	"strings"
	"time"
)

// TrackMetadata is the merged catalog and stream description of one track.
// It is built once and treated as read-only; WithLyrics returns a copy.
type TrackMetadata struct {
	Title       string
	Artists     []string
	Album       string
	AlbumArtist string
	DiscNumber  int
	DiscTotal   int
	TrackNumber int
	TrackTotal  int
	ReleaseDate string
	Genre       string
	Publisher   string
	Copyright   string
	ISRC        string
	CoverURL    string
	Lyrics      string
	Explicit    bool

	// Encoding is the native container of the selected stream.
	Encoding string
	Duration time.Duration

	TrackID    string
	SourceURL  string
	CatalogURL string
}

// Artist returns the primary artist.
func (m *TrackMetadata) Artist() string {
	if len(m.Artists) == 0 {
		return ""
	}
	return m.Artists[0]
}

// JoinedArtists returns all artists separated by sep.
func (m *TrackMetadata) JoinedArtists(sep string) string {
	return strings.Join(m.Artists, sep)
}

// Year returns the four-digit year of the release date, if any.
func (m *TrackMetadata) Year() string {
	if len(m.ReleaseDate) < 4 {
		return ""
	}
	return m.ReleaseDate[:4]
}

// WithLyrics returns a copy of m carrying lyrics.
func (m *TrackMetadata) WithLyrics(lyrics string) *TrackMetadata {
	c := *m
	c.Artists = append([]string(nil), m.Artists...)
	c.Lyrics = lyrics
	return &c
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
