package download

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/sv4u/trackdl/download/cache"
	"github.com/sv4u/trackdl/download/logging"
	"github.com/sv4u/trackdl/download/plan"
	"github.com/sv4u/trackdl/download/transcode"
)

var errTransient = &transcode.NetworkError{Message: "connection reset", Original: errors.New("reset")}

// scriptedDownloader returns queued outcomes per query and records the list file
// contents at the start of every call.
type scriptedDownloader struct {
	listPath string
	outcomes map[string][]error
	calls    []string
	lists    [][]string
	onCall   func(query string)
	// ctxErrs holds ctx.Err() as seen when each call finished.
	ctxErrs []error
}

func (s *scriptedDownloader) DownloadTrack(ctx context.Context, query string) (*Result, error) {
	s.calls = append(s.calls, query)
	if s.listPath != "" {
		lines, _ := plan.ReadList(s.listPath)
		s.lists = append(s.lists, lines)
	}
	if s.onCall != nil {
		s.onCall(query)
	}
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	if errs := s.outcomes[query]; len(errs) > 0 {
		s.outcomes[query] = errs[1:]
		if errs[0] != nil {
			return nil, &TrackError{Query: query, State: StateTranscoding, Original: errs[0]}
		}
	}
	return &Result{Query: query, Status: StatusDownloaded, Path: query + ".mp3"}, nil
}

func writeListFile(t *testing.T, dir string, items ...string) string {
	t.Helper()
	path := filepath.Join(dir, "tracks.txt")
	if err := plan.WriteList(path, items); err != nil {
		t.Fatalf("Failed to write list file: %v", err)
	}
	return path
}

func readListFile(t *testing.T, path string) []string {
	t.Helper()
	lines, err := plan.ReadList(path)
	if err != nil {
		t.Fatalf("Failed to read list file: %v", err)
	}
	return lines
}

func TestBatch_NoCandidateRemovesEntry(t *testing.T) {
	orch, h := newHarness(t, Options{Format: "mp3"})
	listDirPath := t.TempDir()
	listPath := writeListFile(t, listDirPath, "Nobody - Nothing")

	batch := NewBatch(orch, BatchOptions{ListPath: listPath})
	summary, err := batch.Run(context.Background(), plan.NewQueue(readListFile(t, listPath)))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if summary.Failed() != 1 || summary.Failures[0].Transient {
		t.Fatalf("Expected one permanent failure, got %+v", summary.Failures)
	}
	if names := listDir(t, h.dir); len(names) != 0 {
		t.Errorf("Expected no output files, got %v", names)
	}
	if lines := readListFile(t, listPath); len(lines) != 0 {
		t.Errorf("Expected the entry to be removed from the list file, got %v", lines)
	}
}

func TestBatch_ThreeQueriesThreeFiles(t *testing.T) {
	queries := []string{"Artist One - First Song", "Artist Two - Second Song", "Artist Three - Third Song"}
	orch, h := newHarness(t, Options{Format: "mp3"}, queries...)

	summary, err := NewBatch(orch, BatchOptions{}).Run(context.Background(), plan.NewQueue(queries))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if summary.Downloaded != 3 {
		t.Errorf("Expected 3 downloads, got %d", summary.Downloaded)
	}

	want := []string{"Artist One - First Song.mp3", "Artist Three - Third Song.mp3", "Artist Two - Second Song.mp3"}
	if got := listDir(t, h.dir); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected files %v, got %v", want, got)
	}
}

func TestBatch_TransientRequeuedPermanentDropped(t *testing.T) {
	listPath := writeListFile(t, t.TempDir(), "a", "b", "c")
	downloader := &scriptedDownloader{
		listPath: listPath,
		outcomes: map[string][]error{
			"a": {errTransient, nil},
			"b": {errors.New("no acceptable match")},
		},
	}

	summary, err := NewBatch(downloader, BatchOptions{ListPath: listPath, MaxRetries: 3}).
		Run(context.Background(), plan.NewQueue([]string{"a", "b", "c"}))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if want := []string{"a", "b", "c", "a"}; !reflect.DeepEqual(downloader.calls, want) {
		t.Errorf("Expected calls %v, got %v", want, downloader.calls)
	}
	// List file contents seen at the start of each call.
	wantLists := [][]string{
		{"a", "b", "c"},
		{"b", "c", "a"},
		{"c", "a"},
		{"a"},
	}
	if !reflect.DeepEqual(downloader.lists, wantLists) {
		t.Errorf("Expected list snapshots %v, got %v", wantLists, downloader.lists)
	}
	if lines := readListFile(t, listPath); len(lines) != 0 {
		t.Errorf("Expected an empty list file, got %v", lines)
	}
	if summary.Requeued != 1 || summary.Downloaded != 2 || summary.Failed() != 1 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
}

func TestBatch_RetriesExhaustedStayInList(t *testing.T) {
	listPath := writeListFile(t, t.TempDir(), "a", "b")
	downloader := &scriptedDownloader{
		outcomes: map[string][]error{"a": {errTransient, errTransient, errTransient}},
	}

	summary, err := NewBatch(downloader, BatchOptions{ListPath: listPath, MaxRetries: 2}).
		Run(context.Background(), plan.NewQueue([]string{"a", "b"}))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if want := []string{"a", "b", "a"}; !reflect.DeepEqual(downloader.calls, want) {
		t.Errorf("Expected calls %v, got %v", want, downloader.calls)
	}
	if lines := readListFile(t, listPath); !reflect.DeepEqual(lines, []string{"a"}) {
		t.Errorf("Expected the exhausted query to stay in the list, got %v", lines)
	}
	if summary.Failed() != 1 || !summary.Failures[0].Transient {
		t.Errorf("Expected one transient failure, got %+v", summary.Failures)
	}
	if !reflect.DeepEqual(summary.Remaining, []string{"a"}) {
		t.Errorf("Expected remaining [a], got %v", summary.Remaining)
	}
}

func TestBatch_FatalErrorStops(t *testing.T) {
	listPath := writeListFile(t, t.TempDir(), "a", "b", "c")
	fatal := &transcode.UnsupportedVersionError{Found: "3.4", Required: "4.2"}
	downloader := &scriptedDownloader{outcomes: map[string][]error{"b": {fatal}}}

	_, err := NewBatch(downloader, BatchOptions{ListPath: listPath}).
		Run(context.Background(), plan.NewQueue([]string{"a", "b", "c"}))
	if !IsFatal(err) {
		t.Fatalf("Expected fatal error, got %v", err)
	}
	if want := []string{"a", "b"}; !reflect.DeepEqual(downloader.calls, want) {
		t.Errorf("Expected calls %v, got %v", want, downloader.calls)
	}
	if lines := readListFile(t, listPath); !reflect.DeepEqual(lines, []string{"b", "c"}) {
		t.Errorf("Expected [b c] left in the list, got %v", lines)
	}
}

func TestBatch_CancelKeepsCurrentQuery(t *testing.T) {
	listPath := writeListFile(t, t.TempDir(), "a", "b", "c")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	downloader := &scriptedDownloader{
		outcomes: map[string][]error{"b": {context.Canceled}},
		onCall: func(query string) {
			if query == "b" {
				cancel()
			}
		},
	}

	summary, err := NewBatch(downloader, BatchOptions{ListPath: listPath}).Run(ctx, plan.NewQueue([]string{"a", "b", "c"}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if lines := readListFile(t, listPath); !reflect.DeepEqual(lines, []string{"b", "c"}) {
		t.Errorf("Expected [b c] left in the list, got %v", lines)
	}
	if summary.Downloaded != 1 {
		t.Errorf("Expected 1 download before the interruption, got %d", summary.Downloaded)
	}
}

func TestBatch_StopFinishesCurrentTrack(t *testing.T) {
	listPath := writeListFile(t, t.TempDir(), "a", "b", "c")
	var stopRequested bool
	downloader := &scriptedDownloader{
		onCall: func(query string) {
			if query == "b" {
				stopRequested = true
			}
		},
	}
	options := BatchOptions{ListPath: listPath, Stop: func() bool { return stopRequested }}

	summary, err := NewBatch(downloader, options).Run(context.Background(), plan.NewQueue([]string{"a", "b", "c"}))
	if !errors.Is(err, ErrStopped) || !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected ErrStopped wrapping context.Canceled, got %v", err)
	}
	if !reflect.DeepEqual(downloader.calls, []string{"a", "b"}) {
		t.Errorf("Expected calls [a b], got %v", downloader.calls)
	}
	for i, ctxErr := range downloader.ctxErrs {
		if ctxErr != nil {
			t.Errorf("Track %s saw a cancelled context: %v", downloader.calls[i], ctxErr)
		}
	}
	if summary.Downloaded != 2 {
		t.Errorf("Expected 2 downloads, got %d", summary.Downloaded)
	}
	if lines := readListFile(t, listPath); !reflect.DeepEqual(lines, []string{"c"}) {
		t.Errorf("Expected [c] left in the list, got %v", lines)
	}
	if !reflect.DeepEqual(summary.Remaining, []string{"c"}) {
		t.Errorf("Expected [c] remaining, got %v", summary.Remaining)
	}
}

func TestBatch_SkipPolicyLeavesFileAlone(t *testing.T) {
	orch, h := newHarness(t, Options{Format: "mp3"}, "Artist - Song")
	existing := filepath.Join(h.dir, "Artist - Song.mp3")
	original := []byte("already here")
	if err := os.WriteFile(existing, original, 0644); err != nil {
		t.Fatalf("Failed to write existing file: %v", err)
	}

	summary, err := NewBatch(orch, BatchOptions{}).Run(context.Background(), plan.NewQueue([]string{"Artist - Song"}))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if summary.Skipped != 1 || summary.Downloaded != 0 {
		t.Errorf("Expected one skip, got %+v", summary)
	}
	if len(h.transcoder.outputs) != 0 {
		t.Error("Expected no download attempt")
	}
	if got, _ := os.ReadFile(existing); !bytes.Equal(got, original) {
		t.Error("Existing file was modified")
	}
}

func TestBatch_DryRunKeepsList(t *testing.T) {
	orch, _ := newHarness(t, Options{Format: "mp3", DryRun: true}, "Artist - Song")
	listPath := writeListFile(t, t.TempDir(), "Artist - Song")

	summary, err := NewBatch(orch, BatchOptions{ListPath: listPath}).Run(context.Background(), plan.NewQueue([]string{"Artist - Song"}))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if summary.DryRun != 1 {
		t.Errorf("Expected one dry run, got %+v", summary)
	}
	if lines := readListFile(t, listPath); !reflect.DeepEqual(lines, []string{"Artist - Song"}) {
		t.Errorf("Expected the list to be unchanged, got %v", lines)
	}
}

func TestBatch_RecordsOutcomes(t *testing.T) {
	dir := t.TempDir()
	successPath := filepath.Join(dir, "done.txt")
	recorder := cache.NewManager(filepath.Join(dir, "cache"))
	var logBuf bytes.Buffer
	logger := logging.NewWriterLogger(&logBuf, "trackdl")
	downloader := &scriptedDownloader{outcomes: map[string][]error{"bad": {errors.New("no match")}}}

	_, err := NewBatch(downloader, BatchOptions{
		WriteSuccessful: successPath,
		Recorder:        recorder,
		Logger:          logger,
	}).Run(context.Background(), plan.NewQueue([]string{"good", "bad"}))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	lines := readListFile(t, successPath)
	if !reflect.DeepEqual(lines, []string{"good"}) {
		t.Errorf("Expected only the successful query, got %v", lines)
	}

	entry, ok, err := recorder.Download("good")
	if err != nil || !ok || entry.Status != "completed" {
		t.Errorf("Expected a completed record, got %+v ok=%t err=%v", entry, ok, err)
	}
	entry, ok, err = recorder.Download("bad")
	if err != nil || !ok || entry.Status != "failed" {
		t.Errorf("Expected a failed record, got %+v ok=%t err=%v", entry, ok, err)
	}

	if !strings.Contains(logBuf.String(), logger.RunID()) || !strings.Contains(logBuf.String(), "track failed") {
		t.Errorf("Expected run log entries, got %s", logBuf.String())
	}
}

func TestBatch_ReportsProgress(t *testing.T) {
	d := &scriptedDownloader{outcomes: map[string][]error{
		"a": {errTransient},
		"b": {errors.New("no match")},
	}}
	var steps []string
	batch := NewBatch(d, BatchOptions{Progress: func(p Progress) {
		switch {
		case !p.Done:
			steps = append(steps, "start "+p.Query)
		case p.Requeued:
			steps = append(steps, "requeue "+p.Query)
		case p.Err != nil:
			steps = append(steps, "fail "+p.Query)
		default:
			steps = append(steps, "done "+p.Query)
		}
	}})
	if _, err := batch.Run(context.Background(), plan.NewQueue([]string{"a", "b"})); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	want := []string{"start a", "requeue a", "start b", "fail b", "start a", "done a"}
	if !reflect.DeepEqual(steps, want) {
		t.Errorf("progress = %v, want %v", steps, want)
	}
}
