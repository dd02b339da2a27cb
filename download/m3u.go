package download

import (
	"context"
	"io"
	"log"
	"strings"

	"github.com/sv4u/trackdl/download/audio"
	"github.com/sv4u/trackdl/download/plan"
)

// Matcher finds the best search result for a query without resolving a stream.
type Matcher interface {
	BestMatch(ctx context.Context, q audio.Query) (audio.SearchResult, error)
}

// WriteM3U writes a playlist entry for every query that matches, in query order.
// Queries that fail to match are skipped and returned as failures; only a write
// error or cancellation aborts.
func WriteM3U(ctx context.Context, queries []string, source MetadataSource, matcher Matcher, w io.Writer) ([]Failure, error) {
	m3u, err := plan.NewM3UWriter(w)
	if err != nil {
		return nil, err
	}

	var failures []Failure
	for i, query := range queries {
		if err := ctx.Err(); err != nil {
			return failures, err
		}
		log.Printf("INFO: m3u_entry position=%d total=%d query=%q", i+1, len(queries), query)

		entry, err := m3uEntry(ctx, query, source, matcher)
		if err != nil {
			if ctx.Err() != nil {
				return failures, ctx.Err()
			}
			log.Printf("WARN: m3u_entry_failed query=%q error=%v", query, err)
			failures = append(failures, Failure{Query: query, Err: err, Transient: IsTransient(err)})
			continue
		}
		if err := m3u.Write(entry); err != nil {
			return failures, err
		}
	}
	return failures, nil
}

func m3uEntry(ctx context.Context, query string, source MetadataSource, matcher Matcher) (plan.M3UEntry, error) {
	query = strings.TrimSpace(query)
	skeleton, err := source.Skeleton(ctx, query)
	if err != nil {
		return plan.M3UEntry{}, err
	}

	q := newAudioQuery(query, skeleton, false)
	if q.URL != "" {
		title := query
		if skeleton != nil {
			title = skeleton.Artist() + " - " + skeleton.Title
		}
		return plan.M3UEntry{Title: title, URL: q.URL}, nil
	}

	result, err := matcher.BestMatch(ctx, q)
	if err != nil {
		return plan.M3UEntry{}, err
	}
	return plan.M3UEntry{Title: result.Title, Duration: result.Duration, URL: result.URL}, nil
}
