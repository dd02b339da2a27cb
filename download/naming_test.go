package download

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sv4u/trackdl/download/metadata"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Song", "Song"},
		{"AC/DC", "AC_DC"},
		{`What? "Now": <1|2>`, "What_ _Now__ _1_2_"},
		{"../../etc", "____etc"},
		{" .hidden. ", "hidden"},
		{"", "_"},
		{"...", "_"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFilename_LongMultiByteName(t *testing.T) {
	// 128 two-byte runes; a byte cut at 255 would split the last one.
	got := SanitizeFilename(strings.Repeat("é", 128))
	if !utf8.ValidString(got) {
		t.Fatalf("SanitizeFilename() returned invalid UTF-8: %q", got)
	}
	if want := strings.Repeat("é", 127); got != want {
		t.Errorf("SanitizeFilename() = %q (%d bytes), want %d runes of é", got, len(got), 127)
	}
}

func TestSanitizeNoSpaces(t *testing.T) {
	if got := SanitizeNoSpaces("Daft  Punk\tLive"); got != "Daft_Punk_Live" {
		t.Errorf("SanitizeNoSpaces() = %q", got)
	}
}

func TestFormatOutput(t *testing.T) {
	meta := &metadata.TrackMetadata{
		Title:       "Around the World",
		Artists:     []string{"Daft Punk"},
		Album:       "Homework",
		Genre:       "french house",
		DiscNumber:  1,
		TrackNumber: 7,
		TrackTotal:  16,
		ReleaseDate: "1997-01-20",
		TrackID:     "1pKYYY0dkg23sQQXi0Q5zN",
	}

	tests := []struct {
		name     string
		template string
		sanitize Sanitizer
		want     string
	}{
		{"default", "{artist} - {track-name}.{output-ext}", nil, "Daft Punk - Around the World.mp3"},
		{"directories", "{album-artist}/{album}/{disc-number}-{track-number} {title}.{output-ext}", nil,
			"Daft Punk/Homework/01-07 Around the World.mp3"},
		{"dates", "{year} {original-date} {genre} {total-tracks} {track-id}", nil,
			"1997 1997-01-20 french house 16 1pKYYY0dkg23sQQXi0Q5zN"},
		{"no spaces", "{artist} - {title}.{output-ext}", SanitizeNoSpaces, "Daft_Punk - Around_the_World.mp3"},
		{"stdout", "-", nil, "-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatOutput(tt.template, meta, "mp3", tt.sanitize); got != tt.want {
				t.Errorf("FormatOutput() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatOutput_SlashInValue(t *testing.T) {
	meta := &metadata.TrackMetadata{Title: "Back In Black", Artists: []string{"AC/DC"}}
	if got := FormatOutput("{artist} - {title}.{output-ext}", meta, "m4a", nil); got != "AC_DC - Back In Black.m4a" {
		t.Errorf("FormatOutput() = %q", got)
	}
}
