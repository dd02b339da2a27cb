package audio

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kkdai/youtube/v2"
)

func TestEncodingForMime(t *testing.T) {
	tests := []struct {
		mime string
		want string
	}{
		{`audio/mp4; codecs="mp4a.40.2"`, "m4a"},
		{`audio/webm; codecs="opus"`, "webm"},
		{"video/3gpp", "3gpp"},
		{"garbage", "bin"},
	}
	for _, tt := range tests {
		if got := encodingForMime(tt.mime); got != tt.want {
			t.Errorf("encodingForMime(%q) = %q, want %q", tt.mime, got, tt.want)
		}
	}
}

func TestPickFormat(t *testing.T) {
	formats := []youtube.Format{
		{ItagNo: 139, MimeType: `audio/mp4; codecs="mp4a.40.5"`, Bitrate: 48000, AudioChannels: 2},
		{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, Bitrate: 130000, AudioChannels: 2},
		{ItagNo: 251, MimeType: `audio/webm; codecs="opus"`, Bitrate: 160000, AudioChannels: 2},
		{ItagNo: 249, MimeType: `audio/webm; codecs="opus"`, AverageBitrate: 50000, AudioChannels: 2},
	}

	tests := []struct {
		name     string
		quality  string
		inputExt string
		wantItag int
	}{
		{"best automatic", "best", "automatic", 251},
		{"worst automatic", "worst", "", 139},
		{"best m4a", "best", "m4a", 140},
		{"worst webm", "worst", "webm", 249},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := pickFormat(formats, tt.quality, tt.inputExt)
			if err != nil {
				t.Fatalf("pickFormat() failed: %v", err)
			}
			if f.ItagNo != tt.wantItag {
				t.Errorf("pickFormat() itag = %d, want %d", f.ItagNo, tt.wantItag)
			}
		})
	}

	if _, err := pickFormat(formats, "best", "ogg"); err == nil {
		t.Error("Expected error for unavailable container")
	}
}

func TestAudioFormats(t *testing.T) {
	formats := youtube.FormatList{
		{ItagNo: 18, MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, AudioChannels: 2},
		{ItagNo: 137, MimeType: `video/mp4; codecs="avc1.640028"`},
		{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, AudioChannels: 2},
	}
	got := audioFormats(formats)
	if len(got) != 1 || got[0].ItagNo != 140 {
		t.Errorf("audioFormats() = %+v, want only itag 140", got)
	}
}

func TestIsYouTubeURL(t *testing.T) {
	tests := map[string]bool{
		"https://www.youtube.com/watch?v=abc": true,
		"https://youtu.be/abc":                true,
		"https://music.youtube.com/watch?v=x": true,
		"https://open.spotify.com/track/abc":  false,
		"Artist - Song":                       false,
	}
	for in, want := range tests {
		if got := IsYouTubeURL(in); got != want {
			t.Errorf("IsYouTubeURL(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestClassifyVideoError(t *testing.T) {
	var unavailable *UnavailableError
	if err := classifyVideoError("u", youtube.ErrVideoPrivate); !errors.As(err, &unavailable) {
		t.Errorf("Expected UnavailableError for private video, got %T", err)
	}

	var netErr *NetworkError
	if err := classifyVideoError("u", errors.New("connection reset")); !errors.As(err, &netErr) {
		t.Errorf("Expected NetworkError for transport failure, got %T", err)
	}
}

func TestStream_Open(t *testing.T) {
	s := NewStream(SearchResult{ID: "id"}, "m4a", func(ctx context.Context) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("bytes")), nil
	})
	body, err := s.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	data, _ := io.ReadAll(body)
	if string(data) != "bytes" {
		t.Errorf("Open() read %q", data)
	}
	if got := s.Encodings(); len(got) != 1 || got[0] != "m4a" {
		t.Errorf("Encodings() = %v", got)
	}

	if _, err := (&Stream{ID: "empty"}).Open(context.Background()); err == nil {
		t.Error("Expected error for stream without source")
	}
}
