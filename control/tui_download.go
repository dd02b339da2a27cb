package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sv4u/trackdl/download"
)

const maxErrorsInTUI = 20

// progressMsg is one batch step forwarded to the view.
type progressMsg download.Progress

// logLineMsg is a mirrored WARN or ERROR line from the run log.
type logLineMsg string

// batchDoneMsg ends the view.
type batchDoneMsg struct{}

// downloadModel is the Bubble Tea model for batch progress.
type downloadModel struct {
	position   int
	total      int
	downloaded int
	skipped    int
	failed     int
	requeued   int
	current    string
	errors     []string
	logPath    string
	stopping   bool
	// stop asks the batch to end before its next track; cancel aborts the one in flight.
	stop   *atomic.Bool
	cancel context.CancelFunc
}

func newDownloadModel(logPath string, total int, cancel context.CancelFunc) *downloadModel {
	return &downloadModel{
		total:   total,
		logPath: logPath,
		errors:  make([]string, 0, maxErrorsInTUI),
		stop:    &atomic.Bool{},
		cancel:  cancel,
	}
}

func (m *downloadModel) Init() tea.Cmd {
	return nil
}

func (m *downloadModel) addError(s string) {
	m.errors = append(m.errors, strings.TrimSpace(s))
	if len(m.errors) > maxErrorsInTUI {
		m.errors = m.errors[len(m.errors)-maxErrorsInTUI:]
	}
}

func (m *downloadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// The terminal is in raw mode, so interrupts arrive as keys.
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			if m.stopping {
				m.cancel()
				return m, nil
			}
			m.stopping = true
			m.stop.Store(true)
		}
	case logLineMsg:
		m.addError(string(msg))
	case progressMsg:
		m.position = msg.Position
		m.total = msg.Total
		if !msg.Done {
			m.current = msg.Query
			return m, nil
		}
		m.current = ""
		switch {
		case msg.Requeued:
			m.requeued++
		case msg.Err != nil:
			m.failed++
		case msg.Result != nil && msg.Result.Status == download.StatusSkipped:
			m.skipped++
		default:
			m.downloaded++
		}
	case batchDoneMsg:
		m.current = ""
		return m, tea.Quit
	}
	return m, nil
}

func (m *downloadModel) View() string {
	var b strings.Builder
	b.WriteString("  trackdl\n\n")
	b.WriteString(fmt.Sprintf("  Track %d/%d  Downloaded: %d  Skipped: %d  Failed: %d  Requeued: %d\n",
		m.position, m.total, m.downloaded, m.skipped, m.failed, m.requeued))
	if m.current != "" {
		b.WriteString("  Current: " + truncate(m.current, 60) + "\n")
	}
	if m.logPath != "" {
		b.WriteString("  Log file: " + m.logPath + "\n")
	}
	if len(m.errors) > 0 {
		b.WriteString("\n  Recent problems:\n")
		start := 0
		if len(m.errors) > 10 {
			start = len(m.errors) - 10
		}
		for i := start; i < len(m.errors); i++ {
			b.WriteString("    • " + truncate(m.errors[i], 70) + "\n")
		}
	}
	if m.stopping {
		b.WriteString("\n  Stopping after the current track... (press again to abort it)\n")
	}
	return b.String()
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// teaLines forwards mirrored log lines into the running program.
type teaLines struct {
	program *tea.Program
}

func (w teaLines) Write(p []byte) (int, error) {
	w.program.Send(logLineMsg(p))
	return len(p), nil
}

// runWithProgress runs a batch behind a live progress view on stderr. While the view
// is up, mirrored log lines are shown inside it instead of being printed.
func runWithProgress(
	ctx context.Context,
	logPath string,
	total int,
	tee *LogTeeWriter,
	run func(ctx context.Context, progress func(download.Progress), stop func() bool) (*download.Summary, error),
) (*download.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := newDownloadModel(logPath, total, cancel)
	p := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	if tee != nil {
		restore := tee.SetConsole(teaLines{program: p})
		defer restore()
	}

	var (
		summary *download.Summary
		runErr  error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		summary, runErr = run(ctx, func(step download.Progress) {
			p.Send(progressMsg(step))
		}, model.stop.Load)
		p.Send(batchDoneMsg{})
	}()

	if _, err := p.Run(); err != nil {
		log.Printf("WARN: progress_view_failed error=%v", err)
	}
	<-done
	return summary, runErr
}
