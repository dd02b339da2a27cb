package download

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/sv4u/trackdl/download/audio"
	"github.com/sv4u/trackdl/download/config"
	"github.com/sv4u/trackdl/download/metadata"
	"github.com/sv4u/trackdl/download/transcode"
)

// StreamSelector finds the stream to download for a query.
type StreamSelector interface {
	Select(ctx context.Context, q audio.Query) (*audio.Stream, error)
}

// MetadataSource builds track metadata around stream selection: the catalog skeleton
// is looked up first so its title and duration can steer the search.
type MetadataSource interface {
	Skeleton(ctx context.Context, query string) (*metadata.TrackMetadata, error)
	Assemble(skeleton *metadata.TrackMetadata, stream *audio.Stream) *metadata.TrackMetadata
}

// Transcoder produces the audio file from a stream.
type Transcoder interface {
	Preflight(ctx context.Context) error
	Encode(ctx context.Context, src transcode.Source, output, encoding string) error
	Copy(ctx context.Context, src transcode.Source, output string) error
}

// Tagger writes metadata into a finished file.
type Tagger interface {
	Embed(ctx context.Context, path, encoding string, meta *metadata.TrackMetadata) error
}

// OverwritePrompter asks whether an existing file may be replaced.
type OverwritePrompter interface {
	ConfirmOverwrite(path string) (bool, error)
}

// Status is the outcome of a track that did not fail.
type Status string

const (
	StatusDownloaded Status = "downloaded"
	StatusSkipped    Status = "skipped"
	StatusDryRun     Status = "dry_run"
)

// Result describes a processed track.
type Result struct {
	Query    string
	Status   Status
	Path     string
	Metadata *metadata.TrackMetadata
	// Tagged is false when the container has no tag writer or tagging was disabled.
	Tagged bool
}

// Job is the download of one selected stream. The orchestrator alone moves TempPath
// to FinalPath or removes it.
type Job struct {
	Stream    *audio.Stream
	TempPath  string
	FinalPath string
	Encoding  string
}

// Options controls how tracks are produced.
type Options struct {
	// Output is the file name template; "-" writes to standard output.
	Output    string
	Format    string
	Overwrite config.OverwriteMode
	Sanitizer Sanitizer

	NoEncode   bool
	NoMetadata bool
	DryRun     bool
	Manual     bool

	// Lyrics is consulted unless NoMetadata is set. May be empty.
	Lyrics metadata.LyricsChain
	// Prompter is required for config.OverwritePrompt.
	Prompter OverwritePrompter
}

// Orchestrator runs the per-track pipeline: match, assemble, download and
// transcode to a temp file, tag, then rename into place.
type Orchestrator struct {
	options    Options
	selector   StreamSelector
	assembler  MetadataSource
	transcoder Transcoder
	tagger     Tagger
}

// NewOrchestrator creates an orchestrator from its collaborators.
func NewOrchestrator(options Options, selector StreamSelector, assembler MetadataSource, transcoder Transcoder, tagger Tagger) *Orchestrator {
	if options.Output == "" {
		options.Output = config.DefaultOutput
	}
	if options.Format == "" {
		options.Format = "mp3"
	}
	if options.Overwrite == "" {
		options.Overwrite = config.OverwriteSkip
	}
	if options.Sanitizer == nil {
		options.Sanitizer = SanitizeFilename
	}
	return &Orchestrator{
		options:    options,
		selector:   selector,
		assembler:  assembler,
		transcoder: transcoder,
		tagger:     tagger,
	}
}

// Preflight checks the transcoder. It is a no-op in no-encode mode.
func (o *Orchestrator) Preflight(ctx context.Context) error {
	if o.options.NoEncode {
		return nil
	}
	return o.transcoder.Preflight(ctx)
}

// DownloadTrack runs the whole pipeline for one query. A skipped or dry-run track
// returns a Result and no error. Failures are returned as *TrackError.
func (o *Orchestrator) DownloadTrack(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &InvalidQueryError{Query: query}
	}
	run := newTrackRun(query)

	run.set(StateMatchingStream)
	skeleton, err := o.assembler.Skeleton(ctx, query)
	if err != nil {
		return nil, run.fail(err)
	}
	stream, err := o.selector.Select(ctx, newAudioQuery(query, skeleton, o.options.Manual))
	if err != nil {
		run.set(StateMatchFailed)
		return nil, run.fail(err)
	}

	run.set(StateAssembling)
	meta := o.assembler.Assemble(skeleton, stream)
	encoding := o.options.Format
	if o.options.NoEncode {
		encoding = stream.Encoding
	}
	job := &Job{
		Stream:    stream,
		FinalPath: o.outputPath(meta, encoding),
		Encoding:  encoding,
	}
	result := &Result{Query: query, Path: job.FinalPath, Metadata: meta}

	if o.options.DryRun {
		log.Printf("INFO: dry_run query=%q stream=%s path=%s", query, stream.URL, job.FinalPath)
		result.Status = StatusDryRun
		run.set(StateDone)
		return result, nil
	}

	if job.FinalPath != "-" {
		replace, err := o.mayWrite(job, meta)
		if err != nil {
			return nil, run.fail(err)
		}
		if !replace {
			result.Status = StatusSkipped
			run.set(StateDone)
			return result, nil
		}
	}

	if err := o.Preflight(ctx); err != nil {
		return nil, run.fail(err)
	}

	tagged, err := o.produce(ctx, run, job, meta)
	if err != nil {
		return nil, run.fail(err)
	}

	result.Status = StatusDownloaded
	result.Tagged = tagged
	run.set(StateDone)
	log.Printf("INFO: track_done query=%q path=%s tagged=%t", query, job.FinalPath, tagged)
	return result, nil
}

// newAudioQuery describes what the selector should look for. A catalog skeleton
// supplies the expected title, artist and duration.
func newAudioQuery(query string, skeleton *metadata.TrackMetadata, manual bool) audio.Query {
	q := audio.Query{Text: query, Manual: manual}
	if audio.IsYouTubeURL(query) {
		q.URL = query
	}
	if skeleton != nil {
		q.Title = skeleton.Title
		q.Artist = skeleton.Artist()
		q.Duration = skeleton.Duration
	}
	return q
}

func (o *Orchestrator) outputPath(meta *metadata.TrackMetadata, encoding string) string {
	path := FormatOutput(o.options.Output, meta, encoding, o.options.Sanitizer)
	if path == "-" {
		return path
	}
	return filepath.Clean(path)
}

// mayWrite applies the overwrite policy to an existing final file.
func (o *Orchestrator) mayWrite(job *Job, meta *metadata.TrackMetadata) (bool, error) {
	if _, err := os.Stat(job.FinalPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return true, nil
		}
		return false, &transcode.IOError{Path: job.FinalPath, Original: err}
	}

	switch o.options.Overwrite {
	case config.OverwriteForce:
		log.Printf("INFO: overwrite_existing path=%s", job.FinalPath)
		return true, nil
	case config.OverwritePrompt:
		if o.options.Prompter == nil {
			return false, fmt.Errorf("overwrite prompt requested but no prompter is configured")
		}
		ok, err := o.options.Prompter.ConfirmOverwrite(job.FinalPath)
		if err != nil {
			return false, err
		}
		if !ok {
			log.Printf("INFO: download_skipped reason=declined path=%s", job.FinalPath)
		}
		return ok, nil
	default:
		// Compare only informs the log; the existing file is never modified here.
		same, _ := metadata.Compare(job.FinalPath, job.Encoding, meta.Title)
		log.Printf("INFO: download_skipped reason=file_exists path=%s title_matches=%t", job.FinalPath, same)
		return false, nil
	}
}

// produce writes the track to its temp path, tags it, and renames it into place.
// On any failure the temp file is removed and the final path is left alone.
func (o *Orchestrator) produce(ctx context.Context, run *trackRun, job *Job, meta *metadata.TrackMetadata) (tagged bool, err error) {
	toStdout := job.FinalPath == "-"

	var pending *metadata.PendingLyrics
	if !o.options.NoMetadata && !toStdout {
		lyricsCtx, cancel := context.WithCancel(ctx)
		pending = metadata.StartLyrics(lyricsCtx, o.options.Lyrics, meta)
		defer func() {
			cancel()
			_, _ = pending.Wait()
		}()
	}

	target := "-"
	if !toStdout {
		if dir := filepath.Dir(job.FinalPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return false, &transcode.IOError{Path: dir, Original: err}
			}
		}
		job.TempPath = job.FinalPath + ".temp"
		target = job.TempPath
		// A killed run can leave its temp file behind; the transcoder refuses to overwrite it.
		if rmErr := os.Remove(job.TempPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return false, &transcode.IOError{Path: job.TempPath, Original: rmErr}
		}
		defer func() {
			if err != nil {
				if rmErr := os.Remove(job.TempPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
					log.Printf("WARN: temp_cleanup_failed path=%s error=%v", job.TempPath, rmErr)
				}
			}
		}()
	}

	run.set(StateDownloading)
	if o.options.NoEncode {
		err = o.transcoder.Copy(ctx, job.Stream, target)
	} else {
		run.set(StateTranscoding)
		err = o.transcoder.Encode(ctx, job.Stream, target, job.Encoding)
	}
	if err != nil {
		return false, err
	}
	if toStdout {
		return false, nil
	}

	if !o.options.NoMetadata {
		lyrics, lyricsErr := pending.Wait()
		if lyricsErr != nil {
			log.Printf("INFO: lyrics_missing query=%q error=%v", run.query, lyricsErr)
		}
		if lyrics != "" {
			meta = meta.WithLyrics(lyrics)
		}

		run.set(StateEmbedding)
		tagged = true
		if err = o.tagger.Embed(ctx, job.TempPath, job.Encoding, meta); err != nil {
			var unsupported *metadata.UnsupportedContainerError
			if !errors.As(err, &unsupported) {
				return false, err
			}
			log.Printf("WARN: tagging_skipped path=%s encoding=%s", job.FinalPath, job.Encoding)
			tagged = false
			err = nil
		}
	}

	run.set(StateRenaming)
	if err = os.Rename(job.TempPath, job.FinalPath); err != nil {
		return false, &transcode.IOError{Path: job.FinalPath, Original: err}
	}
	return tagged, nil
}
