package plan

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// Dedupe trims every line, drops blanks, and removes repeats keeping the first occurrence.
func Dedupe(lines []string) []string {
	trimmed := lo.Map(lines, func(line string, _ int) string {
		return strings.TrimSpace(line)
	})
	return lo.Uniq(lo.Compact(trimmed))
}

// ReadLines reads newline-separated queries from r.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// ReadList reads and dedupes the list file at path.
func ReadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open list file: %w", err)
	}
	defer f.Close()

	lines, err := ReadLines(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read list file %s: %w", path, err)
	}
	return Dedupe(lines), nil
}

// WriteList replaces the list file with items, one per line.
// The file is written beside the target and renamed over it so a crash never leaves it truncated.
func WriteList(path string, items []string) error {
	var b strings.Builder
	for _, item := range items {
		b.WriteString(item)
		b.WriteByte('\n')
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write list file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace list file: %w", err)
	}
	return nil
}

// AppendLine appends one line to the file at path, creating it if needed.
func AppendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	if _, err := fmt.Fprintln(f, line); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}
	return f.Close()
}

// DefaultM3UPath returns the playlist path written next to a list file.
func DefaultM3UPath(listPath string) string {
	return strings.TrimSuffix(listPath, filepath.Ext(listPath)) + ".m3u"
}

// DefaultListPath returns the list file name for an enumerated playlist, album or artist.
func DefaultListPath(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`/\:*?"<>|`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		name = "tracks"
	}
	return name + ".txt"
}
