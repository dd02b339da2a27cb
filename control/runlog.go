package main

import (
	"bytes"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// LogTeeWriter writes log output to a file and mirrors lines to a console writer.
// Only WARN and ERROR lines are mirrored unless verbose is set; they are colorized
// when colors are enabled.
type LogTeeWriter struct {
	file    *os.File
	console io.Writer
	verbose bool
	mu      sync.Mutex
	buf     []byte
}

// NewLogTeeWriter creates a writer appending to logPath. console may be nil.
func NewLogTeeWriter(logPath string, console io.Writer, verbose bool) (*LogTeeWriter, error) {
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &LogTeeWriter{file: f, console: console, verbose: verbose}, nil
}

// Write implements io.Writer.
func (w *LogTeeWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, err = w.file.Write(p)
	if err != nil || w.console == nil {
		return n, err
	}
	w.buf = append(w.buf, p...)
	for {
		idx := bytes.IndexByte(w.buf, '\n')
		if idx < 0 {
			break
		}
		w.mirror(string(w.buf[:idx]))
		w.buf = w.buf[idx+1:]
	}
	return n, nil
}

func (w *LogTeeWriter) mirror(line string) {
	switch {
	case strings.Contains(line, "ERROR:"):
		color.New(color.FgRed).Fprintln(w.console, line)
	case strings.Contains(line, "WARN:"):
		color.New(color.FgYellow).Fprintln(w.console, line)
	case w.verbose:
		_, _ = io.WriteString(w.console, line+"\n")
	}
}

// SetConsole swaps the mirror target and returns a func restoring the previous one.
func (w *LogTeeWriter) SetConsole(console io.Writer) (restore func()) {
	w.mu.Lock()
	previous := w.console
	w.console = console
	w.mu.Unlock()
	return func() {
		w.mu.Lock()
		w.console = previous
		w.mu.Unlock()
	}
}

// Close closes the underlying file.
func (w *LogTeeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file != nil {
		err := w.file.Close()
		w.file = nil
		return err
	}
	return nil
}

// RedirectLog redirects the standard log output to the given writer and returns a restore func.
func RedirectLog(w io.Writer) (restore func()) {
	oldFlags := log.Flags()
	oldPrefix := log.Prefix()
	oldOut := log.Writer()
	log.SetOutput(w)
	log.SetFlags(log.LstdFlags)
	log.SetPrefix("")
	return func() {
		log.SetOutput(oldOut)
		log.SetFlags(oldFlags)
		log.SetPrefix(oldPrefix)
	}
}
