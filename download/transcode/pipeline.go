package transcode

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"os"

	"golang.org/x/sync/errgroup"
)

// Source is a downloadable byte stream.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// readTracker records the first read error of the wrapped reader.
type readTracker struct {
	r   io.Reader
	err error
}

func (rt *readTracker) Read(p []byte) (int, error) {
	n, err := rt.r.Read(p)
	if err != nil && err != io.EOF && rt.err == nil {
		rt.err = err
	}
	return n, err
}

// Encode downloads src and converts it to encoding at output.
// The download feeds ffmpeg's stdin while ffmpeg runs, so both stages overlap.
// A failure in either stage cancels the other.
func (t *Transcoder) Encode(ctx context.Context, src Source, output, encoding string) error {
	args, err := EncodeArgs("-", output, encoding, t.config.TrimSilence)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	cmd, line := t.command(gctx, args)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &TranscodeFailedError{Command: line, Original: err}
	}
	var stdout, stderr bytes.Buffer
	if output == "-" {
		cmd.Stdout = t.config.Stdout
	} else {
		cmd.Stdout = &stdout
	}
	cmd.Stderr = &stderr

	log.Printf("INFO: transcode_start encoding=%s output=%s", encoding, output)
	if err := cmd.Start(); err != nil {
		return &MissingDependencyError{Path: t.config.Path, Original: err}
	}

	var (
		openErr error
		tracker *readTracker
		waitErr error
	)

	g.Go(func() error {
		defer stdin.Close()
		body, err := src.Open(gctx)
		if err != nil {
			openErr = err
			return err
		}
		defer body.Close()
		tracker = &readTracker{r: body}
		_, err = io.Copy(stdin, tracker)
		return err
	})

	g.Go(func() error {
		waitErr = cmd.Wait()
		return waitErr
	})

	gErr := g.Wait()
	if gErr == nil {
		log.Printf("INFO: transcode_complete encoding=%s output=%s", encoding, output)
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	// gErr is whichever stage failed first; the other stage's error is its consequence.
	transcodeFailed := func() error {
		log.Printf("ERROR: transcode_failed output=%s error=%v", output, waitErr)
		return &TranscodeFailedError{
			Command:  line,
			Output:   stdout.String() + stderr.String(),
			Original: waitErr,
		}
	}
	switch {
	case waitErr != nil && gErr == waitErr:
		return transcodeFailed()
	case openErr != nil:
		return &NetworkError{Message: "failed to open stream", Original: openErr}
	case tracker != nil && tracker.err != nil:
		return &NetworkError{Message: "stream interrupted", Original: tracker.err}
	case waitErr != nil:
		return transcodeFailed()
	}
	return &TranscodeFailedError{Command: line, Output: stderr.String(), Original: gErr}
}

// Copy downloads src to output unchanged, keeping its native container.
func (t *Transcoder) Copy(ctx context.Context, src Source, output string) error {
	body, err := src.Open(ctx)
	if err != nil {
		return &NetworkError{Message: "failed to open stream", Original: err}
	}
	defer body.Close()

	var w io.Writer
	var f *os.File
	if output == "-" {
		w = t.config.Stdout
	} else {
		f, err = os.Create(output)
		if err != nil {
			return &IOError{Path: output, Original: err}
		}
		w = f
	}

	tracker := &readTracker{r: body}
	_, copyErr := io.Copy(w, tracker)
	if f != nil {
		if err := f.Close(); err != nil && copyErr == nil {
			copyErr = err
		}
	}
	if copyErr == nil {
		log.Printf("INFO: stream_copy_complete output=%s", output)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if tracker.err != nil || errors.Is(copyErr, io.ErrUnexpectedEOF) {
		return &NetworkError{Message: "stream interrupted", Original: copyErr}
	}
	return &IOError{Path: output, Original: copyErr}
}
