package metadata

import (
	"strconv"
	"strings"
)

// CoverArt is image data ready to embed.
type CoverArt struct {
	Data     []byte
	MimeType string
}

// TagWriter writes and reads back tags for one container family.
type TagWriter interface {
	Write(path string, meta *TrackMetadata, cover *CoverArt) error
	Title(path string) (string, error)
}

// WriterFor picks the tag writer for a target encoding.
func WriterFor(encoding string) (TagWriter, error) {
	switch strings.ToLower(encoding) {
	case "mp3":
		return ID3Writer{}, nil
	case "m4a", "mp4":
		return MP4Writer{}, nil
	}
	return nil, &UnsupportedContainerError{Encoding: encoding}
}

// numberPair formats "n/total", or "n" when the total is unknown.
func numberPair(n, total int) string {
	if n <= 0 {
		return ""
	}
	if total > 0 {
		return strconv.Itoa(n) + "/" + strconv.Itoa(total)
	}
	return strconv.Itoa(n)
}
