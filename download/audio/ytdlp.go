package audio

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

var execCommand = exec.CommandContext

// videoURLTemplate builds a watch URL from a video ID.
const videoURLTemplate = "https://www.youtube.com/watch?v=%s"

// SearchResult is one candidate stream returned by a search.
type SearchResult struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Uploader string        `json:"uploader,omitempty"`
	Duration time.Duration `json:"duration"`
	URL      string        `json:"url"`
}

// Searcher turns a text query into candidate streams.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// YtDlpSearcher searches YouTube by running yt-dlp in flat-playlist mode.
type YtDlpSearcher struct {
	Path string
}

// ytDlpEntry is one line of yt-dlp --dump-json output.
type ytDlpEntry struct {
	Type       string   `json:"_type"`
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Duration   *float64 `json:"duration"`
	Uploader   string   `json:"uploader"`
	Channel    string   `json:"channel"`
	URL        string   `json:"url"`
	WebpageURL string   `json:"webpage_url"`
}

// Search runs `yt-dlp --flat-playlist --dump-json ytsearchN:<query>`.
func (s *YtDlpSearcher) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	path := s.Path
	if path == "" {
		path = "yt-dlp"
	}
	if limit <= 0 {
		limit = 5
	}

	args := []string{
		"--quiet",
		"--no-warnings",
		"--flat-playlist",
		"--dump-json",
		fmt.Sprintf("ytsearch%d:%s", limit, query),
	}

	var stdout, stderr bytes.Buffer
	cmd := execCommand(ctx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		output := stderr.String()
		if strings.Contains(output, "HTTP Error 429") || strings.Contains(strings.ToLower(output), "rate limit") {
			return nil, &NetworkError{Message: "rate limited by provider", Original: err}
		}
		return nil, &NetworkError{Message: fmt.Sprintf("yt-dlp search failed (output: %s)", strings.TrimSpace(output)), Original: err}
	}

	results, err := parseSearchOutput(stdout.Bytes())
	if err != nil {
		return nil, err
	}
	log.Printf("INFO: search_complete query=%q results=%d", query, len(results))
	return results, nil
}

// parseSearchOutput decodes newline-delimited yt-dlp JSON into search results.
// Nested playlists and entries without an ID are skipped.
func parseSearchOutput(output []byte) ([]SearchResult, error) {
	var results []SearchResult
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry ytDlpEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, &NetworkError{Message: "failed to parse yt-dlp output", Original: err}
		}
		if result, ok := entry.result(); ok {
			results = append(results, result)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &NetworkError{Message: "failed to read yt-dlp output", Original: err}
	}
	return results, nil
}

func (e ytDlpEntry) result() (SearchResult, bool) {
	if e.ID == "" || e.Type == "playlist" {
		return SearchResult{}, false
	}
	r := SearchResult{
		ID:       e.ID,
		Title:    e.Title,
		Uploader: e.Uploader,
		URL:      e.WebpageURL,
	}
	if r.Uploader == "" {
		r.Uploader = e.Channel
	}
	if r.URL == "" && strings.HasPrefix(e.URL, "http") {
		r.URL = e.URL
	}
	if r.URL == "" {
		r.URL = fmt.Sprintf(videoURLTemplate, e.ID)
	}
	if e.Duration != nil {
		r.Duration = time.Duration(*e.Duration * float64(time.Second))
	}
	return r, true
}
