package download

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sv4u/trackdl/download/audio"
	"github.com/sv4u/trackdl/download/config"
	"github.com/sv4u/trackdl/download/metadata"
	"github.com/sv4u/trackdl/download/transcode"
)

// fakeAudio starts with an MPEG frame sync so it passes for an mp3 payload.
const fakeAudio = "\xff\xfb\x90\x00"

type fakeSelector struct {
	streams map[string]*audio.Stream
	calls   []audio.Query
}

func (f *fakeSelector) Select(ctx context.Context, q audio.Query) (*audio.Stream, error) {
	f.calls = append(f.calls, q)
	if s, ok := f.streams[q.Text]; ok {
		return s, nil
	}
	return nil, &audio.NoMatchFoundError{Query: q.Text}
}

func testStream(artist, title string) *audio.Stream {
	id := strings.ReplaceAll(strings.ToLower(title), " ", "")
	result := audio.SearchResult{
		ID:       id,
		Title:    artist + " - " + title,
		Uploader: artist,
		Duration: 3 * time.Minute,
		URL:      "https://www.youtube.com/watch?v=" + id,
	}
	return audio.NewStream(result, "m4a", func(ctx context.Context) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("audio for " + title)), nil
	})
}

type fakeTranscoder struct {
	preflightErr error
	// fail is consumed one entry per Encode/Copy call; the output is written before failing.
	fail       []error
	outputs    []string
	encodings  []string
	preflights int
	stdout     bytes.Buffer
	// refuseExisting fails like ffmpeg without -y when the output is already there.
	refuseExisting bool
}

func (f *fakeTranscoder) Preflight(ctx context.Context) error {
	f.preflights++
	return f.preflightErr
}

func (f *fakeTranscoder) Encode(ctx context.Context, src transcode.Source, output, encoding string) error {
	f.outputs = append(f.outputs, output)
	f.encodings = append(f.encodings, encoding)
	if f.refuseExisting && output != "-" {
		if _, err := os.Stat(output); err == nil {
			return &transcode.TranscodeFailedError{Command: "ffmpeg -i - " + output, Original: errors.New("exit status 1")}
		}
	}

	body, err := src.Open(ctx)
	if err != nil {
		return &transcode.NetworkError{Message: "failed to open stream", Original: err}
	}
	data, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		return &transcode.NetworkError{Message: "stream interrupted", Original: err}
	}

	payload := append([]byte(fakeAudio), data...)
	if output == "-" {
		f.stdout.Write(payload)
	} else if err := os.WriteFile(output, payload, 0644); err != nil {
		return &transcode.IOError{Path: output, Original: err}
	}

	if len(f.fail) > 0 {
		err := f.fail[0]
		f.fail = f.fail[1:]
		return err
	}
	return nil
}

func (f *fakeTranscoder) Copy(ctx context.Context, src transcode.Source, output string) error {
	return f.Encode(ctx, src, output, "copy")
}

type recordingTagger struct {
	inner Tagger
	err   error

	paths        []string
	encodings    []string
	lyrics       []string
	finalExisted []bool
}

func (r *recordingTagger) Embed(ctx context.Context, path, encoding string, meta *metadata.TrackMetadata) error {
	r.paths = append(r.paths, path)
	r.encodings = append(r.encodings, encoding)
	r.lyrics = append(r.lyrics, meta.Lyrics)
	_, statErr := os.Stat(strings.TrimSuffix(path, ".temp"))
	r.finalExisted = append(r.finalExisted, statErr == nil)
	if r.err != nil {
		return r.err
	}
	if r.inner != nil {
		return r.inner.Embed(ctx, path, encoding, meta)
	}
	return nil
}

type fakeLyrics struct {
	text  string
	calls int
}

func (f *fakeLyrics) Name() string { return "fake" }

func (f *fakeLyrics) Lyrics(ctx context.Context, artist, title string, duration time.Duration) (string, error) {
	f.calls++
	return f.text, nil
}

type fakePrompter struct {
	answer bool
	asked  []string
}

func (f *fakePrompter) ConfirmOverwrite(path string) (bool, error) {
	f.asked = append(f.asked, path)
	return f.answer, nil
}

type harness struct {
	dir        string
	selector   *fakeSelector
	transcoder *fakeTranscoder
	tagger     *recordingTagger
	lyrics     *fakeLyrics
}

// newHarness builds an orchestrator writing under a temp dir. Streams are registered
// for "Artist - Title" queries.
func newHarness(t *testing.T, options Options, queries ...string) (*Orchestrator, *harness) {
	t.Helper()
	h := &harness{
		dir:        t.TempDir(),
		selector:   &fakeSelector{streams: map[string]*audio.Stream{}},
		transcoder: &fakeTranscoder{},
		tagger:     &recordingTagger{inner: metadata.NewEmbedder()},
		lyrics:     &fakeLyrics{text: "la la la"},
	}
	for _, q := range queries {
		artist, title, _ := strings.Cut(q, " - ")
		h.selector.streams[q] = testStream(artist, title)
	}
	if options.Output == "" {
		options.Output = filepath.Join(h.dir, config.DefaultOutput)
	}
	if options.Lyrics == nil {
		options.Lyrics = metadata.LyricsChain{h.lyrics}
	}
	assembler := metadata.NewAssembler(nil, options.NoMetadata)
	return NewOrchestrator(options, h.selector, assembler, h.transcoder, h.tagger), h
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestDownloadTrack_ProducesTaggedFile(t *testing.T) {
	orch, h := newHarness(t, Options{Format: "mp3"}, "Daft Punk - One More Time")

	result, err := orch.DownloadTrack(context.Background(), "Daft Punk - One More Time")
	if err != nil {
		t.Fatalf("DownloadTrack() failed: %v", err)
	}

	want := filepath.Join(h.dir, "Daft Punk - One More Time.mp3")
	if result.Path != want {
		t.Errorf("Expected path %s, got %s", want, result.Path)
	}
	if result.Status != StatusDownloaded || !result.Tagged {
		t.Errorf("Expected tagged download, got status=%s tagged=%t", result.Status, result.Tagged)
	}
	if names := listDir(t, h.dir); len(names) != 1 {
		t.Errorf("Expected only the final file, got %v", names)
	}

	same, err := metadata.Compare(want, "mp3", "One More Time")
	if err != nil {
		t.Fatalf("Compare() failed: %v", err)
	}
	if !same {
		t.Error("Expected the title tag to be written")
	}
	if h.tagger.lyrics[0] != "la la la" {
		t.Errorf("Expected lyrics to be joined before embedding, got %q", h.tagger.lyrics[0])
	}
	if h.transcoder.outputs[0] != want+".temp" {
		t.Errorf("Expected encode to the temp path, got %s", h.transcoder.outputs[0])
	}
	if h.transcoder.preflights != 1 {
		t.Errorf("Expected preflight before encoding, got %d calls", h.transcoder.preflights)
	}
}

func TestDownloadTrack_FinalAbsentUntilEmbedded(t *testing.T) {
	orch, h := newHarness(t, Options{Format: "mp3"}, "Artist - Song")

	if _, err := orch.DownloadTrack(context.Background(), "Artist - Song"); err != nil {
		t.Fatalf("DownloadTrack() failed: %v", err)
	}
	if len(h.tagger.finalExisted) != 1 {
		t.Fatalf("Expected one embed call, got %d", len(h.tagger.finalExisted))
	}
	if h.tagger.finalExisted[0] {
		t.Error("Final path existed while the file was still being tagged")
	}
	if !strings.HasSuffix(h.tagger.paths[0], ".temp") {
		t.Errorf("Expected tagging on the temp file, got %s", h.tagger.paths[0])
	}
}

func TestDownloadTrack_FailureRemovesTemp(t *testing.T) {
	tests := []struct {
		name      string
		encodeErr error
		embedErr  error
		wantState TrackState
		transient bool
	}{
		{
			name:      "transcode failed",
			encodeErr: &transcode.TranscodeFailedError{Command: "ffmpeg", Output: "boom", Original: errors.New("exit status 1")},
			wantState: StateTranscoding,
		},
		{
			name:      "stream interrupted",
			encodeErr: &transcode.NetworkError{Message: "stream interrupted", Original: io.ErrUnexpectedEOF},
			wantState: StateTranscoding,
			transient: true,
		},
		{
			name:      "embed failed",
			embedErr:  &metadata.MetadataError{Message: "write failed"},
			wantState: StateEmbedding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orch, h := newHarness(t, Options{Format: "mp3"}, "Artist - Song")
			if tt.encodeErr != nil {
				h.transcoder.fail = []error{tt.encodeErr}
			}
			h.tagger.err = tt.embedErr

			_, err := orch.DownloadTrack(context.Background(), "Artist - Song")
			var trackErr *TrackError
			if !errors.As(err, &trackErr) {
				t.Fatalf("Expected TrackError, got %T (%v)", err, err)
			}
			if trackErr.State != tt.wantState {
				t.Errorf("Expected failure in state %s, got %s", tt.wantState, trackErr.State)
			}
			if IsTransient(err) != tt.transient {
				t.Errorf("Expected transient=%t for %v", tt.transient, err)
			}
			if names := listDir(t, h.dir); len(names) != 0 {
				t.Errorf("Expected no files after failure, got %v", names)
			}
		})
	}
}

func TestDownloadTrack_ReplacesLeftoverTemp(t *testing.T) {
	orch, h := newHarness(t, Options{Format: "mp3"}, "Artist - Song")
	h.transcoder.refuseExisting = true
	final := filepath.Join(h.dir, "Artist - Song.mp3")
	if err := os.WriteFile(final+".temp", []byte("half a song"), 0644); err != nil {
		t.Fatalf("Failed to write leftover temp: %v", err)
	}

	result, err := orch.DownloadTrack(context.Background(), "Artist - Song")
	if err != nil {
		t.Fatalf("DownloadTrack() failed: %v", err)
	}
	if result.Path != final {
		t.Errorf("Expected path %s, got %s", final, result.Path)
	}
	data, err := os.ReadFile(final)
	if err != nil {
		t.Fatalf("Final file missing: %v", err)
	}
	if strings.Contains(string(data), "half a song") {
		t.Error("Final file still holds the leftover temp content")
	}
	if _, err := os.Stat(final + ".temp"); !os.IsNotExist(err) {
		t.Errorf("Expected temp file to be gone, stat error = %v", err)
	}
}

func TestDownloadTrack_NoMatch(t *testing.T) {
	orch, h := newHarness(t, Options{})

	_, err := orch.DownloadTrack(context.Background(), "Nobody - Nothing")
	var noMatch *audio.NoMatchFoundError
	if !errors.As(err, &noMatch) {
		t.Fatalf("Expected NoMatchFoundError, got %v", err)
	}
	var trackErr *TrackError
	if !errors.As(err, &trackErr) || trackErr.State != StateMatchFailed {
		t.Errorf("Expected a match_failed TrackError, got %v", err)
	}
	if IsTransient(err) {
		t.Error("No match must not be retried")
	}
	if len(h.transcoder.outputs) != 0 {
		t.Error("Expected no download after a failed match")
	}
}

func TestDownloadTrack_BlankQuery(t *testing.T) {
	orch, _ := newHarness(t, Options{})
	_, err := orch.DownloadTrack(context.Background(), "   ")
	var invalid *InvalidQueryError
	if !errors.As(err, &invalid) {
		t.Errorf("Expected InvalidQueryError, got %v", err)
	}
}

func TestDownloadTrack_SkipExisting(t *testing.T) {
	orch, h := newHarness(t, Options{Format: "mp3"}, "Artist - Song")
	existing := filepath.Join(h.dir, "Artist - Song.mp3")
	original := []byte("existing file contents")
	if err := os.WriteFile(existing, original, 0644); err != nil {
		t.Fatalf("Failed to write existing file: %v", err)
	}

	result, err := orch.DownloadTrack(context.Background(), "Artist - Song")
	if err != nil {
		t.Fatalf("DownloadTrack() failed: %v", err)
	}
	if result.Status != StatusSkipped {
		t.Errorf("Expected skipped, got %s", result.Status)
	}
	if len(h.transcoder.outputs) != 0 {
		t.Error("Expected no download for an existing file")
	}
	got, err := os.ReadFile(existing)
	if err != nil {
		t.Fatalf("Failed to read existing file: %v", err)
	}
	if !bytes.Equal(got, original) {
		t.Error("Existing file was modified")
	}
}

func TestDownloadTrack_OverwritePolicies(t *testing.T) {
	tests := []struct {
		name        string
		mode        config.OverwriteMode
		answer      bool
		wantStatus  Status
		wantAsked   bool
		wantReplace bool
	}{
		{"force", config.OverwriteForce, false, StatusDownloaded, false, true},
		{"prompt accepted", config.OverwritePrompt, true, StatusDownloaded, true, true},
		{"prompt declined", config.OverwritePrompt, false, StatusSkipped, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompter := &fakePrompter{answer: tt.answer}
			orch, h := newHarness(t, Options{Format: "mp3", Overwrite: tt.mode, Prompter: prompter}, "Artist - Song")
			existing := filepath.Join(h.dir, "Artist - Song.mp3")
			if err := os.WriteFile(existing, []byte("old"), 0644); err != nil {
				t.Fatalf("Failed to write existing file: %v", err)
			}

			result, err := orch.DownloadTrack(context.Background(), "Artist - Song")
			if err != nil {
				t.Fatalf("DownloadTrack() failed: %v", err)
			}
			if result.Status != tt.wantStatus {
				t.Errorf("Expected status %s, got %s", tt.wantStatus, result.Status)
			}
			if (len(prompter.asked) > 0) != tt.wantAsked {
				t.Errorf("Expected asked=%t, got %v", tt.wantAsked, prompter.asked)
			}
			got, _ := os.ReadFile(existing)
			if replaced := string(got) != "old"; replaced != tt.wantReplace {
				t.Errorf("Expected replaced=%t", tt.wantReplace)
			}
		})
	}
}

func TestDownloadTrack_DryRun(t *testing.T) {
	orch, h := newHarness(t, Options{Format: "mp3", DryRun: true}, "Artist - Song")

	result, err := orch.DownloadTrack(context.Background(), "Artist - Song")
	if err != nil {
		t.Fatalf("DownloadTrack() failed: %v", err)
	}
	if result.Status != StatusDryRun {
		t.Errorf("Expected dry run, got %s", result.Status)
	}
	if result.Path != filepath.Join(h.dir, "Artist - Song.mp3") {
		t.Errorf("Expected the computed path, got %s", result.Path)
	}
	if len(h.transcoder.outputs) != 0 || h.transcoder.preflights != 0 {
		t.Error("Expected dry run to stop before download")
	}
	if names := listDir(t, h.dir); len(names) != 0 {
		t.Errorf("Expected no files, got %v", names)
	}
}

func TestDownloadTrack_Stdout(t *testing.T) {
	orch, h := newHarness(t, Options{Format: "mp3", Output: "-"}, "Artist - Song")

	result, err := orch.DownloadTrack(context.Background(), "Artist - Song")
	if err != nil {
		t.Fatalf("DownloadTrack() failed: %v", err)
	}
	if result.Path != "-" || result.Tagged {
		t.Errorf("Expected untagged stdout result, got %+v", result)
	}
	if h.transcoder.outputs[0] != "-" {
		t.Errorf("Expected encode straight to stdout, got %s", h.transcoder.outputs[0])
	}
	if !strings.Contains(h.transcoder.stdout.String(), "audio for Song") {
		t.Error("Expected stream bytes on stdout")
	}
	if len(h.tagger.paths) != 0 || h.lyrics.calls != 0 {
		t.Error("Expected no tagging or lyrics for stdout output")
	}
}

func TestDownloadTrack_NoEncode(t *testing.T) {
	orch, h := newHarness(t, Options{Format: "mp3", NoEncode: true}, "Artist - Song")
	h.tagger.inner = nil

	result, err := orch.DownloadTrack(context.Background(), "Artist - Song")
	if err != nil {
		t.Fatalf("DownloadTrack() failed: %v", err)
	}
	if filepath.Ext(result.Path) != ".m4a" {
		t.Errorf("Expected the native container extension, got %s", result.Path)
	}
	if h.transcoder.encodings[0] != "copy" {
		t.Errorf("Expected a straight copy, got %s", h.transcoder.encodings[0])
	}
	if h.transcoder.preflights != 0 {
		t.Error("Expected no transcoder preflight in no-encode mode")
	}
	if h.tagger.encodings[0] != "m4a" {
		t.Errorf("Expected tagging as m4a, got %s", h.tagger.encodings[0])
	}
}

func TestDownloadTrack_NoMetadata(t *testing.T) {
	orch, h := newHarness(t, Options{Format: "mp3", NoMetadata: true}, "Artist - Song")

	result, err := orch.DownloadTrack(context.Background(), "Artist - Song")
	if err != nil {
		t.Fatalf("DownloadTrack() failed: %v", err)
	}
	if result.Tagged || len(h.tagger.paths) != 0 {
		t.Error("Expected no tagging in no-metadata mode")
	}
	if h.lyrics.calls != 0 {
		t.Error("Expected no lyrics lookup in no-metadata mode")
	}
	if _, err := os.Stat(result.Path); err != nil {
		t.Errorf("Expected final file: %v", err)
	}
}

func TestDownloadTrack_UnsupportedContainerStillDownloads(t *testing.T) {
	orch, h := newHarness(t, Options{Format: "flac"}, "Artist - Song")

	result, err := orch.DownloadTrack(context.Background(), "Artist - Song")
	if err != nil {
		t.Fatalf("DownloadTrack() failed: %v", err)
	}
	if result.Tagged {
		t.Error("Expected flac output to be left untagged")
	}
	if _, err := os.Stat(filepath.Join(h.dir, "Artist - Song.flac")); err != nil {
		t.Errorf("Expected final file: %v", err)
	}
}

func TestDownloadTrack_PreflightFailureIsFatal(t *testing.T) {
	orch, h := newHarness(t, Options{Format: "mp3"}, "Artist - Song")
	h.transcoder.preflightErr = &transcode.MissingDependencyError{Path: "ffmpeg", Original: errors.New("not found")}

	_, err := orch.DownloadTrack(context.Background(), "Artist - Song")
	if !IsFatal(err) {
		t.Errorf("Expected a fatal error, got %v", err)
	}
	if len(h.transcoder.outputs) != 0 {
		t.Error("Expected no download without a transcoder")
	}
}

func TestDownloadTrack_YouTubeURLQuery(t *testing.T) {
	url := "https://www.youtube.com/watch?v=abc123"
	orch, h := newHarness(t, Options{Format: "mp3"})
	h.selector.streams[url] = testStream("Uploader", "Video Song")

	if _, err := orch.DownloadTrack(context.Background(), url); err != nil {
		t.Fatalf("DownloadTrack() failed: %v", err)
	}
	if h.selector.calls[0].URL != url {
		t.Errorf("Expected the URL to be passed for direct resolution, got %+v", h.selector.calls[0])
	}
}
