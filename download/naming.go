package download

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sv4u/trackdl/download/metadata"
)

// Sanitizer cleans one template value so it can be used as part of a file name.
type Sanitizer func(string) string

const maxNameLen = 255

var whitespace = regexp.MustCompile(`\s+`)

// SanitizeFilename replaces characters that are invalid in file names on common
// filesystems and strips directory traversal sequences.
func SanitizeFilename(name string) string {
	if len(name) > maxNameLen {
		cut := maxNameLen
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut]
	}

	sanitized := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`/\:*?"<>|`, r) || r < 0x20 {
			return '_'
		}
		return r
	}, name)
	sanitized = strings.ReplaceAll(sanitized, "..", "_")

	// Leading and trailing dots and spaces break on Windows.
	sanitized = strings.Trim(sanitized, ". ")
	if sanitized == "" {
		return "_"
	}
	return sanitized
}

// SanitizeNoSpaces applies SanitizeFilename and collapses whitespace runs to underscores.
func SanitizeNoSpaces(name string) string {
	return whitespace.ReplaceAllString(SanitizeFilename(name), "_")
}

// FormatOutput expands the output template for one track. Every substituted value
// is passed through sanitize; separators written in the template itself are kept.
// A template of "-" means standard output and is returned unchanged.
func FormatOutput(template string, meta *metadata.TrackMetadata, ext string, sanitize Sanitizer) string {
	if template == "-" {
		return template
	}
	if sanitize == nil {
		sanitize = SanitizeFilename
	}

	number := func(n int) string {
		if n <= 0 {
			return "00"
		}
		return fmt.Sprintf("%02d", n)
	}
	albumArtist := meta.AlbumArtist
	if albumArtist == "" {
		albumArtist = meta.Artist()
	}

	values := map[string]string{
		"{track-name}":    meta.Title,
		"{title}":         meta.Title,
		"{artist}":        meta.Artist(),
		"{album}":         meta.Album,
		"{album-artist}":  albumArtist,
		"{genre}":         meta.Genre,
		"{disc-number}":   number(meta.DiscNumber),
		"{track-number}":  number(meta.TrackNumber),
		"{total-tracks}":  number(meta.TrackTotal),
		"{year}":          meta.Year(),
		"{original-date}": meta.ReleaseDate,
		"{track-id}":      meta.TrackID,
	}

	pairs := make([]string, 0, 2*len(values)+2)
	for placeholder, value := range values {
		pairs = append(pairs, placeholder, sanitize(value))
	}
	pairs = append(pairs, "{output-ext}", ext)
	return strings.NewReplacer(pairs...).Replace(template)
}
