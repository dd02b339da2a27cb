package download

import (
	"errors"
	"fmt"

	"github.com/sv4u/trackdl/download/transcode"
)

// InvalidQueryError is returned for a blank query line.
type InvalidQueryError struct {
	Query string
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("Invalid track query: %q", e.Query)
}

// TrackError wraps the failure of one track with the state it failed in.
type TrackError struct {
	Query    string
	State    TrackState
	Original error
}

func (e *TrackError) Error() string {
	return fmt.Sprintf("Track %q failed while %s: %v", e.Query, e.State, e.Original)
}

func (e *TrackError) Unwrap() error {
	return e.Original
}

// IsTransient reports whether err may succeed if the track is retried later in the batch.
func IsTransient(err error) bool {
	var t interface{ Transient() bool }
	return errors.As(err, &t) && t.Transient()
}

// IsFatal reports whether err makes every remaining track fail the same way,
// so the run should stop instead of moving on.
func IsFatal(err error) bool {
	var missing *transcode.MissingDependencyError
	var version *transcode.UnsupportedVersionError
	return errors.As(err, &missing) || errors.As(err, &version)
}
