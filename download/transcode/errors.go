package transcode

import "fmt"

// MissingDependencyError is returned when the transcoder binary cannot be found or executed.
type MissingDependencyError struct {
	Path     string
	Original error
}

func (e *MissingDependencyError) Error() string {
	if e.Original != nil {
		return fmt.Sprintf("Transcoder not found: %s: %v", e.Path, e.Original)
	}
	return fmt.Sprintf("Transcoder not found: %s", e.Path)
}

func (e *MissingDependencyError) Unwrap() error {
	return e.Original
}

// UnsupportedVersionError is returned when the transcoder version is too old or unreadable.
type UnsupportedVersionError struct {
	Found    string
	Required string
}

func (e *UnsupportedVersionError) Error() string {
	if e.Found == "" {
		return fmt.Sprintf("Transcoder version could not be detected, need >= %s", e.Required)
	}
	return fmt.Sprintf("Transcoder version %s is unsupported, need >= %s", e.Found, e.Required)
}

// UnsupportedEncodingError is returned for a target encoding missing from the codec table.
type UnsupportedEncodingError struct {
	Encoding string
}

func (e *UnsupportedEncodingError) Error() string {
	return fmt.Sprintf("Unsupported target encoding: %s", e.Encoding)
}

// TranscodeFailedError carries the command line and captured output of a failed transcoder run.
type TranscodeFailedError struct {
	Command  string
	Output   string
	Original error
}

func (e *TranscodeFailedError) Error() string {
	return fmt.Sprintf("Transcode failed: %s: %v (output: %s)", e.Command, e.Original, e.Output)
}

func (e *TranscodeFailedError) Unwrap() error {
	return e.Original
}

// NetworkError wraps a failure while reading the source stream.
type NetworkError struct {
	Message  string
	Original error
}

func (e *NetworkError) Error() string {
	if e.Original != nil {
		return fmt.Sprintf("Stream read error: %s: %v", e.Message, e.Original)
	}
	return fmt.Sprintf("Stream read error: %s", e.Message)
}

func (e *NetworkError) Unwrap() error {
	return e.Original
}

// Transient reports that the download can be retried later.
func (e *NetworkError) Transient() bool { return true }

// IOError wraps a local filesystem failure while writing output.
type IOError struct {
	Path     string
	Original error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("Output write error: %s: %v", e.Path, e.Original)
}

func (e *IOError) Unwrap() error {
	return e.Original
}

// Transient reports that the write can be retried later.
func (e *IOError) Transient() bool { return true }
