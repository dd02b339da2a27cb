package plan

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// M3UEntry is one resolved track in an extended M3U playlist.
type M3UEntry struct {
	Title    string
	Duration time.Duration
	URL      string
}

// M3UWriter writes an extended M3U playlist incrementally.
type M3UWriter struct {
	w io.Writer
}

// NewM3UWriter writes the #EXTM3U header to w.
func NewM3UWriter(w io.Writer) (*M3UWriter, error) {
	if _, err := io.WriteString(w, "#EXTM3U\n\n"); err != nil {
		return nil, fmt.Errorf("failed to write m3u header: %w", err)
	}
	return &M3UWriter{w: w}, nil
}

// Write appends one #EXTINF entry.
func (m *M3UWriter) Write(entry M3UEntry) error {
	title := strings.NewReplacer("\n", " ", "\r", " ").Replace(entry.Title)
	secs := int(entry.Duration.Round(time.Second) / time.Second)
	if _, err := fmt.Fprintf(m.w, "#EXTINF:%d,%s\n%s\n", secs, title, entry.URL); err != nil {
		return fmt.Errorf("failed to write m3u entry: %w", err)
	}
	return nil
}
