package metadata

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// maxCoverSize bounds the longest edge of embedded art.
const maxCoverSize = 1000

// FetchCover downloads cover art and normalizes it for embedding.
func FetchCover(ctx context.Context, client *http.Client, url string) (*CoverArt, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download cover art: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download cover art: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read cover art: %w", err)
	}
	return NormalizeCover(data)
}

// NormalizeCover converts art to JPEG, scaling it down when it is larger than maxCoverSize.
// JPEG input within bounds is returned unchanged.
func NormalizeCover(data []byte) (*CoverArt, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode cover art: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if format == "jpeg" && width <= maxCoverSize && height <= maxCoverSize {
		return &CoverArt{Data: data, MimeType: "image/jpeg"}, nil
	}

	if width > maxCoverSize || height > maxCoverSize {
		if width >= height {
			height = height * maxCoverSize / width
			width = maxCoverSize
		} else {
			width = width * maxCoverSize / height
			height = maxCoverSize
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode cover art: %w", err)
	}
	return &CoverArt{Data: buf.Bytes(), MimeType: "image/jpeg"}, nil
}
