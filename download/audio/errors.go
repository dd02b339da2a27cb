package audio

import "fmt"

// NoMatchFoundError is returned when a search yields zero candidates.
type NoMatchFoundError struct {
	Query string
}

func (e *NoMatchFoundError) Error() string {
	return fmt.Sprintf("No match found for %q", e.Query)
}

// NoAcceptableMatchError is returned when candidates exist but none pass ranking,
// or every candidate was declined in manual mode.
type NoAcceptableMatchError struct {
	Query      string
	Candidates int
	Declined   bool
}

func (e *NoAcceptableMatchError) Error() string {
	if e.Declined {
		return fmt.Sprintf("No acceptable match for %q: all %d candidates declined", e.Query, e.Candidates)
	}
	return fmt.Sprintf("No acceptable match for %q: %d candidates below threshold", e.Query, e.Candidates)
}

// UnavailableError is returned for a video that cannot be played (private, login required, removed).
type UnavailableError struct {
	URL      string
	Original error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("Video unavailable: %s: %v", e.URL, e.Original)
}

func (e *UnavailableError) Unwrap() error {
	return e.Original
}

// NetworkError represents a search or metadata request that failed in transit.
type NetworkError struct {
	Message  string
	Original error
}

func (e *NetworkError) Error() string {
	if e.Original != nil {
		return fmt.Sprintf("Audio search error: %s: %v", e.Message, e.Original)
	}
	return fmt.Sprintf("Audio search error: %s", e.Message)
}

func (e *NetworkError) Unwrap() error {
	return e.Original
}

// Transient reports that the search can be retried later.
func (e *NetworkError) Transient() bool { return true }
