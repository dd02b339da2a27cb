package metadata

import "fmt"

// MetadataError represents a metadata embedding error.
type MetadataError struct {
	Message  string
	Original error
}

func (e *MetadataError) Error() string {
	if e.Original != nil {
		return fmt.Sprintf("Metadata error: %s: %v", e.Message, e.Original)
	}
	return fmt.Sprintf("Metadata error: %s", e.Message)
}

func (e *MetadataError) Unwrap() error {
	return e.Original
}

// MetadataNotFoundError is returned when the catalog has no entry for a track reference.
type MetadataNotFoundError struct {
	Query    string
	Original error
}

func (e *MetadataNotFoundError) Error() string {
	if e.Original != nil {
		return fmt.Sprintf("Metadata not found for %s: %v", e.Query, e.Original)
	}
	return fmt.Sprintf("Metadata not found for %s", e.Query)
}

func (e *MetadataNotFoundError) Unwrap() error {
	return e.Original
}

// LyricsNotFoundError is returned when no lyrics provider has the track.
type LyricsNotFoundError struct {
	Artist string
	Title  string
}

func (e *LyricsNotFoundError) Error() string {
	return fmt.Sprintf("Lyrics not found for %s - %s", e.Artist, e.Title)
}

// UnsupportedContainerError is returned for encodings without a tag writer.
// The file is still usable, just untagged.
type UnsupportedContainerError struct {
	Encoding string
}

func (e *UnsupportedContainerError) Error() string {
	return fmt.Sprintf("Tagging not supported for container: %s", e.Encoding)
}
