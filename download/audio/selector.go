package audio

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/sv4u/trackdl/download/spotify"
)

// DefaultSearchFormat builds a search query from catalog fields.
const DefaultSearchFormat = "{artist} - {track-name}"

// Query is what the selector is asked to find.
type Query struct {
	// Text is the raw query line. Used as the search text when Title is empty.
	Text string
	// URL is a direct video URL; when set no search is made.
	URL string

	Title    string
	Artist   string
	Duration time.Duration

	Manual bool
}

// Prompter lets a user pick among ranked candidates.
// It returns the chosen index, or -1 when every candidate is declined.
type Prompter interface {
	ChooseCandidate(query string, candidates []Candidate) (int, error)
}

// SearchStore persists search results between runs.
type SearchStore interface {
	Get(file, key string, v any) (bool, error)
	Put(file, key string, v any, ttlSeconds int) error
}

// Config holds selector settings.
type Config struct {
	SearchFormat      string
	SearchLimit       int
	MinSimilarity     float64
	DurationTolerance time.Duration

	// In-memory result cache
	CacheMaxSize int
	CacheTTL     int

	// Persistent result cache
	StoreFile       string
	StoreTTLSeconds int

	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   float64
}

// Selector picks the stream that best matches a query.
type Selector struct {
	config      *Config
	searcher    Searcher
	resolver    Resolver
	store       SearchStore
	prompter    Prompter
	cache       *spotify.TTLCache
	rateLimiter *spotify.RateLimiter
}

// NewSelector creates a selector. store and prompter may be nil.
func NewSelector(config *Config, searcher Searcher, resolver Resolver, store SearchStore, prompter Prompter) *Selector {
	if config.SearchFormat == "" {
		config.SearchFormat = DefaultSearchFormat
	}
	if config.SearchLimit <= 0 {
		config.SearchLimit = 5
	}
	if config.MinSimilarity <= 0 {
		config.MinSimilarity = DefaultMinSimilarity
	}
	if config.DurationTolerance <= 0 {
		config.DurationTolerance = DefaultDurationTolerance
	}
	if config.CacheMaxSize <= 0 {
		config.CacheMaxSize = 256
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 3600
	}
	return &Selector{
		config:      config,
		searcher:    searcher,
		resolver:    resolver,
		store:       store,
		prompter:    prompter,
		cache:       spotify.NewTTLCache(config.CacheMaxSize, config.CacheTTL),
		rateLimiter: spotify.NewRateLimiter(config.RateLimitEnabled, config.RateLimitRequests, config.RateLimitWindow),
	}
}

// SearchText formats the text sent to the search provider.
func (s *Selector) SearchText(q Query) string {
	if q.Title == "" {
		return strings.TrimSpace(q.Text)
	}
	text := strings.NewReplacer(
		"{artist}", q.Artist,
		"{track-name}", q.Title,
		"{title}", q.Title,
	).Replace(s.config.SearchFormat)
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(text), "-"))
}

// Select returns the best stream for q.
func (s *Selector) Select(ctx context.Context, q Query) (*Stream, error) {
	if q.URL != "" {
		log.Printf("INFO: stream_direct url=%s", q.URL)
		return s.resolver.Resolve(ctx, q.URL)
	}

	text := s.SearchText(q)
	ranked, err := s.Candidates(ctx, q)
	if err != nil {
		return nil, err
	}

	if q.Manual && s.prompter != nil {
		idx, err := s.prompter.ChooseCandidate(text, ranked)
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(ranked) {
			log.Printf("INFO: match_declined query=%q candidates=%d", text, len(ranked))
			return nil, &NoAcceptableMatchError{Query: text, Candidates: len(ranked), Declined: true}
		}
		return s.resolver.Resolve(ctx, ranked[idx].URL)
	}

	// Fall through unplayable videos to the next candidate.
	for _, c := range ranked {
		stream, err := s.resolver.Resolve(ctx, c.URL)
		if err == nil {
			log.Printf("INFO: match_selected query=%q id=%s title=%q score=%.2f", text, stream.ID, stream.Title, c.Score)
			return stream, nil
		}
		var unavailable *UnavailableError
		if !errors.As(err, &unavailable) {
			return nil, err
		}
		log.Printf("WARN: candidate_unavailable query=%q id=%s error=%v", text, c.ID, err)
	}
	return nil, &NoAcceptableMatchError{Query: text, Candidates: len(ranked)}
}

// Candidates searches for q and returns the ranked, acceptable candidates.
func (s *Selector) Candidates(ctx context.Context, q Query) ([]Candidate, error) {
	text := s.SearchText(q)
	results, err := s.Search(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		log.Printf("WARN: no_match query=%q", text)
		return nil, &NoMatchFoundError{Query: text}
	}

	want := Expectation{Title: q.Title, Artist: q.Artist, Duration: q.Duration}
	if want.Title == "" {
		want.Title = text
	}
	ranked := Rank(results, want, s.config.MinSimilarity, s.config.DurationTolerance)
	if len(ranked) == 0 {
		log.Printf("WARN: no_acceptable_match query=%q candidates=%d", text, len(results))
		return nil, &NoAcceptableMatchError{Query: text, Candidates: len(results)}
	}
	return ranked, nil
}

// BestMatch returns the top-ranked search result without resolving a stream.
func (s *Selector) BestMatch(ctx context.Context, q Query) (SearchResult, error) {
	ranked, err := s.Candidates(ctx, q)
	if err != nil {
		return SearchResult{}, err
	}
	return ranked[0].SearchResult, nil
}

// Search returns raw search results, consulting the memory and persistent caches first.
func (s *Selector) Search(ctx context.Context, text string) ([]SearchResult, error) {
	key := normalizeQuery(text)

	if cached, ok := s.cache.Get(key).([]SearchResult); ok {
		return cached, nil
	}
	if s.store != nil && s.config.StoreFile != "" {
		var stored []SearchResult
		found, err := s.store.Get(s.config.StoreFile, key, &stored)
		if err != nil {
			log.Printf("WARN: search_cache_read_failed query=%q error=%v", text, err)
		} else if found {
			s.cache.Set(key, stored)
			return stored, nil
		}
	}

	if err := s.rateLimiter.WaitIfNeeded(ctx); err != nil {
		return nil, err
	}
	results, err := s.searcher.Search(ctx, text, s.config.SearchLimit)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, results)
	if s.store != nil && s.config.StoreFile != "" && len(results) > 0 {
		if err := s.store.Put(s.config.StoreFile, key, results, s.config.StoreTTLSeconds); err != nil {
			log.Printf("WARN: search_cache_write_failed query=%q error=%v", text, err)
		}
	}
	return results, nil
}

// CacheStats returns in-memory search cache statistics.
func (s *Selector) CacheStats() spotify.CacheStats {
	return s.cache.Stats()
}

func normalizeQuery(query string) string {
	return "audio_search:" + strings.ToLower(strings.TrimSpace(query))
}
