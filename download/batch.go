package download

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sv4u/trackdl/download/cache"
	"github.com/sv4u/trackdl/download/logging"
	"github.com/sv4u/trackdl/download/plan"
)

// Downloader processes one track query.
type Downloader interface {
	DownloadTrack(ctx context.Context, query string) (*Result, error)
}

// ErrStopped is returned by Run when BatchOptions.Stop asked it to end early.
// It wraps context.Canceled so callers treat it as an interrupt.
var ErrStopped = fmt.Errorf("batch stopped: %w", context.Canceled)

// DownloadRecorder keeps the last outcome of each query across runs.
type DownloadRecorder interface {
	RecordDownload(query string, entry cache.DownloadEntry) error
}

// BatchOptions configures a Batch.
type BatchOptions struct {
	// ListPath is rewritten with the pending queries after every track. Empty disables it.
	ListPath string
	// WriteSuccessful receives one line per successful query. Empty disables it.
	WriteSuccessful string
	// MaxRetries bounds the transient attempts per query in one run.
	MaxRetries int

	Recorder DownloadRecorder
	Logger   *logging.Logger
	// Progress, when set, is called when a track starts and when it ends.
	Progress func(Progress)
	// Stop, when set, is checked before each track. Returning true ends the run
	// without touching the track in flight.
	Stop func() bool
}

// Progress is one step of a batch. Done is false when the track starts.
type Progress struct {
	Query    string
	Position int
	Total    int
	Done     bool
	Result   *Result
	Err      error
	Requeued bool
}

// Failure is a query that did not complete.
type Failure struct {
	Query     string
	Err       error
	Transient bool
}

// Summary counts the outcomes of a batch.
type Summary struct {
	Total      int
	Downloaded int
	Skipped    int
	DryRun     int
	Requeued   int
	Failures   []Failure
	// Remaining are the queries left for a later run.
	Remaining []string
	Results   []*Result
	Elapsed   time.Duration
}

// Failed returns the number of queries that did not complete.
func (s *Summary) Failed() int {
	return len(s.Failures)
}

// Batch drains a queue of track queries one at a time. Transient failures go
// to the back of the queue; permanent failures are dropped.
type Batch struct {
	downloader Downloader
	options    BatchOptions
}

// NewBatch creates a batch runner.
func NewBatch(downloader Downloader, options BatchOptions) *Batch {
	if options.MaxRetries <= 0 {
		options.MaxRetries = 3
	}
	return &Batch{downloader: downloader, options: options}
}

// Run processes queue until it is empty, the context is cancelled, Stop reports
// true, or a fatal error makes further tracks pointless. The returned error is
// only set in the latter three cases; per-track failures are reported in the summary.
func (b *Batch) Run(ctx context.Context, queue *plan.Queue) (*Summary, error) {
	start := time.Now()
	summary := &Summary{Total: queue.Len()}
	attempts := make(map[string]int)
	// kept are dry-run queries and queries out of retries; they stay in the list file.
	var kept []string
	position := 0

	// The list file holds the unresolved head (if any), the queue, then queries kept for a later run.
	persist := func(head ...string) {
		if b.options.ListPath == "" {
			return
		}
		pending := append(append(head, queue.Snapshot()...), kept...)
		if err := plan.WriteList(b.options.ListPath, pending); err != nil {
			log.Printf("ERROR: list_write_failed path=%s error=%v", b.options.ListPath, err)
		}
	}
	finish := func(head ...string) {
		summary.Remaining = append(append(head, queue.Snapshot()...), kept...)
		summary.Elapsed = time.Since(start)
		log.Printf("INFO: batch_complete downloaded=%d skipped=%d failed=%d requeued=%d remaining=%d elapsed=%s",
			summary.Downloaded, summary.Skipped, summary.Failed(), summary.Requeued, len(summary.Remaining), summary.Elapsed.Round(time.Millisecond))
		b.options.Logger.Info("batch", "batch complete", logging.Fields{
			"downloaded": summary.Downloaded,
			"skipped":    summary.Skipped,
			"failed":     summary.Failed(),
			"requeued":   summary.Requeued,
			"remaining":  len(summary.Remaining),
		})
	}
	// stop keeps query at the head of the list so the next run starts with it.
	stop := func(query string, err error) (*Summary, error) {
		persist(query)
		finish(query)
		return summary, err
	}

	for {
		query, ok := queue.Pop()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			return stop(query, err)
		}
		if b.options.Stop != nil && b.options.Stop() {
			log.Printf("WARN: batch_stopped next=%q remaining=%d", query, queue.Len()+1)
			return stop(query, ErrStopped)
		}

		position++
		total := position + queue.Len()
		log.Printf("INFO: track_start position=%d total=%d query=%q", position, total, query)
		fields := logging.Fields{"query": query, "position": position, "total": total}
		b.notify(Progress{Query: query, Position: position, Total: total})

		result, err := b.downloader.DownloadTrack(ctx, query)
		step := Progress{Query: query, Position: position, Total: total, Done: true, Result: result, Err: err}
		switch {
		case err == nil:
			b.succeeded(summary, query, result, fields)
			if result.Status == StatusDryRun {
				kept = append(kept, query)
			}

		case IsFatal(err):
			log.Printf("ERROR: batch_aborted query=%q error=%v", query, err)
			b.options.Logger.Error("batch", "batch aborted", err, fields)
			return stop(query, err)

		case ctx.Err() != nil:
			log.Printf("WARN: batch_interrupted query=%q", query)
			return stop(query, ctx.Err())

		case IsTransient(err):
			attempts[query]++
			if attempts[query] < b.options.MaxRetries {
				log.Printf("WARN: track_requeued position=%d query=%q attempt=%d max_retries=%d error=%v",
					position, query, attempts[query], b.options.MaxRetries, err)
				b.options.Logger.Warn("download_track", "track requeued", err, fields)
				queue.PushBack(query)
				summary.Requeued++
				step.Requeued = true
			} else {
				log.Printf("ERROR: track_retries_kept position=%d query=%q attempts=%d error=%v", position, query, attempts[query], err)
				b.options.Logger.Error("download_track", "retries kept", err, fields)
				kept = append(kept, query)
				summary.Failures = append(summary.Failures, Failure{Query: query, Err: err, Transient: true})
			}
			b.record(query, cache.DownloadEntry{Status: "failed", Error: err.Error()})

		default:
			log.Printf("ERROR: track_failed position=%d query=%q error=%v", position, query, err)
			b.options.Logger.Error("download_track", "track failed", err, fields)
			summary.Failures = append(summary.Failures, Failure{Query: query, Err: err})
			b.record(query, cache.DownloadEntry{Status: "failed", Error: err.Error()})
		}

		b.notify(step)
		persist()
	}

	finish()
	return summary, nil
}

func (b *Batch) succeeded(summary *Summary, query string, result *Result, fields logging.Fields) {
	summary.Results = append(summary.Results, result)
	fields["path"] = result.Path
	fields["status"] = string(result.Status)
	b.options.Logger.Info("download_track", "track complete", fields)

	switch result.Status {
	case StatusSkipped:
		summary.Skipped++
	case StatusDryRun:
		summary.DryRun++
		return
	default:
		summary.Downloaded++
	}

	b.record(query, cache.DownloadEntry{Status: "completed", OutputPath: result.Path})
	if b.options.WriteSuccessful != "" {
		if err := plan.AppendLine(b.options.WriteSuccessful, query); err != nil {
			log.Printf("WARN: write_successful_failed path=%s error=%v", b.options.WriteSuccessful, err)
		}
	}
}

func (b *Batch) notify(p Progress) {
	if b.options.Progress != nil {
		b.options.Progress(p)
	}
}

func (b *Batch) record(query string, entry cache.DownloadEntry) {
	if b.options.Recorder == nil {
		return
	}
	if err := b.options.Recorder.RecordDownload(query, entry); err != nil {
		log.Printf("WARN: download_record_failed query=%q error=%v", query, err)
	}
}
