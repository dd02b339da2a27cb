package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/samber/lo"
)

// Stream is a selected, downloadable audio source.
type Stream struct {
	ID           string
	Title        string
	Author       string
	URL          string
	Duration     time.Duration
	ThumbnailURL string
	// Encoding is the native container of the chosen format (m4a, webm).
	Encoding string
	// Available lists the native containers offered by the video.
	Available []string

	open func(ctx context.Context) (io.ReadCloser, error)
}

// NewStream builds a stream backed by open. Used by resolvers and test fakes.
func NewStream(result SearchResult, encoding string, open func(ctx context.Context) (io.ReadCloser, error)) *Stream {
	return &Stream{
		ID:        result.ID,
		Title:     result.Title,
		Author:    result.Uploader,
		URL:       result.URL,
		Duration:  result.Duration,
		Encoding:  encoding,
		Available: []string{encoding},
		open:      open,
	}
}

// Encodings returns the native containers the video offers.
func (s *Stream) Encodings() []string {
	return s.Available
}

// Open starts downloading the stream bytes.
func (s *Stream) Open(ctx context.Context) (io.ReadCloser, error) {
	if s.open == nil {
		return nil, fmt.Errorf("stream %s has no source", s.ID)
	}
	return s.open(ctx)
}

// Result returns the stream as a search result.
func (s *Stream) Result() SearchResult {
	return SearchResult{ID: s.ID, Title: s.Title, Uploader: s.Author, Duration: s.Duration, URL: s.URL}
}

// Resolver turns a video URL into a stream.
type Resolver interface {
	Resolve(ctx context.Context, url string) (*Stream, error)
}

// YouTubeResolver resolves videos and their audio formats through the YouTube player API.
type YouTubeResolver struct {
	client *youtube.Client
	// Quality is best or worst.
	Quality string
	// InputExt restricts the native container: m4a, webm, or automatic.
	InputExt string
}

// NewYouTubeResolver creates a resolver. timeout bounds the wait for response headers only,
// so a slow but progressing stream download is not cut off.
func NewYouTubeResolver(quality, inputExt string, timeout time.Duration) *YouTubeResolver {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
	return &YouTubeResolver{
		client:   &youtube.Client{HTTPClient: &http.Client{Transport: transport}},
		Quality:  quality,
		InputExt: inputExt,
	}
}

// IsYouTubeURL reports whether s points at a YouTube video.
func IsYouTubeURL(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Contains(s, "youtube.com/") || strings.Contains(s, "youtu.be/")
}

// Resolve fetches video metadata and picks an audio-only format.
func (r *YouTubeResolver) Resolve(ctx context.Context, url string) (*Stream, error) {
	video, err := r.client.GetVideoContext(ctx, url)
	if err != nil {
		return nil, classifyVideoError(url, err)
	}

	formats := audioFormats(video.Formats)
	format, err := pickFormat(formats, r.Quality, r.InputExt)
	if err != nil {
		return nil, &UnavailableError{URL: url, Original: err}
	}

	stream := &Stream{
		ID:        video.ID,
		Title:     video.Title,
		Author:    video.Author,
		URL:       fmt.Sprintf(videoURLTemplate, video.ID),
		Duration:  video.Duration,
		Encoding:  encodingForMime(format.MimeType),
		Available: lo.Uniq(lo.Map(formats, func(f youtube.Format, _ int) string { return encodingForMime(f.MimeType) })),
	}
	if n := len(video.Thumbnails); n > 0 {
		stream.ThumbnailURL = video.Thumbnails[n-1].URL
	}

	client := r.client
	stream.open = func(ctx context.Context) (io.ReadCloser, error) {
		body, _, err := client.GetStreamContext(ctx, video, format)
		if err != nil {
			return nil, &NetworkError{Message: "failed to start stream", Original: err}
		}
		return body, nil
	}

	log.Printf("INFO: stream_resolved id=%s itag=%d encoding=%s bitrate=%d", video.ID, format.ItagNo, stream.Encoding, bitrate(format))
	return stream, nil
}

// classifyVideoError separates unplayable videos from transport failures.
func classifyVideoError(url string, err error) error {
	switch {
	case errors.Is(err, youtube.ErrLoginRequired),
		errors.Is(err, youtube.ErrVideoPrivate),
		errors.Is(err, youtube.ErrNotPlayableInEmbed),
		errors.Is(err, youtube.ErrInvalidCharactersInVideoID),
		errors.Is(err, youtube.ErrVideoIDMinLength):
		return &UnavailableError{URL: url, Original: err}
	}
	var statusErr *youtube.ErrPlayabiltyStatus
	if errors.As(err, &statusErr) {
		return &UnavailableError{URL: url, Original: err}
	}
	return &NetworkError{Message: "failed to fetch video " + url, Original: err}
}

// audioFormats keeps audio-only formats.
func audioFormats(formats youtube.FormatList) []youtube.Format {
	return lo.Filter(formats.WithAudioChannels(), func(f youtube.Format, _ int) bool {
		return strings.HasPrefix(f.MimeType, "audio/")
	})
}

func bitrate(f *youtube.Format) int {
	if f.Bitrate > 0 {
		return f.Bitrate
	}
	return f.AverageBitrate
}

// encodingForMime maps a MIME type like `audio/mp4; codecs="mp4a.40.2"` to a container extension.
func encodingForMime(mime string) string {
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	_, sub, ok := strings.Cut(strings.TrimSpace(mime), "/")
	if !ok {
		return "bin"
	}
	if sub == "mp4" {
		return "m4a"
	}
	return sub
}

// pickFormat chooses a format by container preference and quality.
func pickFormat(formats []youtube.Format, quality, inputExt string) (*youtube.Format, error) {
	ext := strings.ToLower(strings.TrimSpace(inputExt))
	candidates := formats
	if ext != "" && ext != "automatic" {
		candidates = lo.Filter(formats, func(f youtube.Format, _ int) bool {
			return encodingForMime(f.MimeType) == ext
		})
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no audio formats with container %q", ext)
	}

	worst := strings.EqualFold(quality, "worst")
	best := 0
	for i := range candidates {
		br, cur := bitrate(&candidates[i]), bitrate(&candidates[best])
		if (worst && br < cur) || (!worst && br > cur) {
			best = i
		}
	}
	return &candidates[best], nil
}
