package metadata

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

// Embedder writes TrackMetadata into finished audio files.
type Embedder struct {
	client *http.Client
}

// NewEmbedder creates an embedder whose cover downloads time out after 10 seconds.
func NewEmbedder() *Embedder {
	return &Embedder{client: &http.Client{Timeout: 10 * time.Second}}
}

// Embed tags the file at path. Unsupported encodings return UnsupportedContainerError
// and leave the file untouched. A failed cover download is logged and tagging continues.
func (e *Embedder) Embed(ctx context.Context, path, encoding string, meta *TrackMetadata) error {
	log.Printf("INFO: metadata_embed_start file=%s track=%s artist=%s", path, meta.Title, meta.Artist())

	if err := ctx.Err(); err != nil {
		return &MetadataError{Message: fmt.Sprintf("Context cancelled: %v", err), Original: err}
	}

	writer, err := WriterFor(encoding)
	if err != nil {
		log.Printf("WARN: metadata_embed_unsupported_format file=%s format=%s", path, encoding)
		return err
	}

	if _, err := os.Stat(path); err != nil {
		log.Printf("ERROR: metadata_embed_failed file=%s error=file_not_found: %v", path, err)
		return &MetadataError{Message: fmt.Sprintf("File not found: %s", path), Original: err}
	}

	var cover *CoverArt
	if meta.CoverURL != "" {
		cover, err = FetchCover(ctx, e.client, meta.CoverURL)
		if err != nil {
			log.Printf("WARN: cover_art_download_failed file=%s cover_url=%s error=%v", path, meta.CoverURL, err)
			cover = nil
		}
	}

	if err := writer.Write(path, meta, cover); err != nil {
		log.Printf("ERROR: metadata_embed_failed file=%s track=%s error=%v", path, meta.Title, err)
		return err
	}

	log.Printf("INFO: metadata_embed_complete file=%s track=%s artist=%s", path, meta.Title, meta.Artist())
	return nil
}

// Compare reports whether the file at path already carries title as its title tag.
func Compare(path, encoding, title string) (bool, error) {
	writer, err := WriterFor(encoding)
	if err != nil {
		return false, err
	}
	got, err := writer.Title(path)
	if err != nil {
		return false, err
	}
	return got == title, nil
}
