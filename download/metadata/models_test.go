package metadata

import "testing"

func TestTrackMetadata_Accessors(t *testing.T) {
	meta := &TrackMetadata{Title: "Song", Artists: []string{"A", "B"}, ReleaseDate: "2019-05-03"}
	if meta.Artist() != "A" {
		t.Errorf("Artist() = %q", meta.Artist())
	}
	if meta.JoinedArtists(", ") != "A, B" {
		t.Errorf("JoinedArtists() = %q", meta.JoinedArtists(", "))
	}
	if meta.Year() != "2019" {
		t.Errorf("Year() = %q", meta.Year())
	}
	if (&TrackMetadata{ReleaseDate: "19"}).Year() != "" {
		t.Error("Expected empty year for short date")
	}
	if (&TrackMetadata{}).Artist() != "" {
		t.Error("Expected empty artist")
	}
}

func TestTrackMetadata_WithLyrics(t *testing.T) {
	meta := &TrackMetadata{Title: "Song", Artists: []string{"A"}}
	withLyrics := meta.WithLyrics("la la")

	if meta.Lyrics != "" {
		t.Error("WithLyrics() mutated the original")
	}
	if withLyrics.Lyrics != "la la" || withLyrics.Title != "Song" {
		t.Errorf("Unexpected copy %+v", withLyrics)
	}
	withLyrics.Artists[0] = "changed"
	if meta.Artists[0] != "A" {
		t.Error("WithLyrics() shares the artists slice")
	}
}
