package audio

import (
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/samber/lo"
)

// Default ranking thresholds.
const (
	DefaultMinSimilarity     = 0.5
	DefaultDurationTolerance = 30 * time.Second
)

// noiseWords lower a candidate's score when they appear in its title but not in the expected title.
var noiseWords = []string{"live", "cover", "karaoke", "instrumental", "remix", "reaction", "8d", "slowed", "sped"}

// Expectation describes the track a search is trying to find.
type Expectation struct {
	Title    string
	Artist   string
	Duration time.Duration
}

// Candidate is a search result with its ranking score.
type Candidate struct {
	SearchResult
	Similarity float64
	Score      float64
}

// tokens lowercases s and splits it on anything that is not a letter or digit.
func tokens(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return lo.Uniq(fields)
}

// similarity is the share of expected tokens present in the candidate title.
func similarity(expected []string, title string) float64 {
	if len(expected) == 0 {
		return 0
	}
	have := tokens(title)
	found := lo.Filter(expected, func(tok string, _ int) bool {
		return lo.Contains(have, tok)
	})
	return float64(len(found)) / float64(len(expected))
}

// Rank scores results against want and returns the acceptable ones, best first.
// A result is rejected when its similarity is below minSimilarity, or when both
// durations are known and differ by more than tolerance.
func Rank(results []SearchResult, want Expectation, minSimilarity float64, tolerance time.Duration) []Candidate {
	expected := tokens(strings.TrimSpace(want.Artist + " " + want.Title))
	expectedSet := lo.SliceToMap(expected, func(tok string) (string, struct{}) { return tok, struct{}{} })

	var ranked []Candidate
	for _, r := range results {
		sim := similarity(expected, r.Title)
		if sim < minSimilarity {
			continue
		}
		score := sim

		if want.Duration > 0 && r.Duration > 0 {
			diff := r.Duration - want.Duration
			if diff < 0 {
				diff = -diff
			}
			if tolerance > 0 && diff > tolerance {
				continue
			}
			if tolerance > 0 {
				score -= 0.5 * float64(diff) / float64(tolerance)
			}
		}

		for _, word := range noiseWords {
			if _, ok := expectedSet[word]; ok {
				continue
			}
			if lo.Contains(tokens(r.Title), word) {
				score -= 0.1
			}
		}

		ranked = append(ranked, Candidate{SearchResult: r, Similarity: sim, Score: score})
	}

	slices.SortStableFunc(ranked, func(a, b Candidate) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	return ranked
}
