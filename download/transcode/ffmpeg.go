package transcode

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// Minimum supported transcoder version.
const (
	MinMajorVersion = 4
	MinMinorVersion = 2
)

var versionPattern = regexp.MustCompile(`ffmpeg version \w?(\d+\.)?(\d+)`)

// execCommand is replaced in tests.
var execCommand = exec.CommandContext

// Config holds configuration for the transcoder.
type Config struct {
	// Path to the ffmpeg binary. Defaults to "ffmpeg".
	Path string

	// SkipVersionCheck disables the minimum version requirement (the binary must still run).
	SkipVersionCheck bool

	// TrimSilence strips leading silence from the encoded output.
	TrimSilence bool

	// UseShell runs the command through the platform shell with escaped arguments.
	UseShell bool

	// Stdout receives output when the target path is "-". Defaults to os.Stdout.
	Stdout io.Writer
}

// Transcoder runs ffmpeg to convert downloaded streams.
type Transcoder struct {
	config *Config
	goos   string

	once         sync.Once
	preflightErr error
	version      string
}

// NewTranscoder creates a transcoder. Preflight is not run until requested.
func NewTranscoder(config *Config) *Transcoder {
	if config == nil {
		config = &Config{}
	}
	if config.Path == "" {
		config.Path = "ffmpeg"
	}
	if config.Stdout == nil {
		config.Stdout = os.Stdout
	}
	return &Transcoder{config: config, goos: runtime.GOOS}
}

// Version returns the detected version string after a successful preflight.
func (t *Transcoder) Version() string {
	return t.version
}

// Preflight checks that the transcoder is installed and recent enough.
// The check runs once; later calls return the first result.
func (t *Transcoder) Preflight(ctx context.Context) error {
	t.once.Do(func() {
		t.preflightErr = t.preflight(ctx)
	})
	return t.preflightErr
}

func (t *Transcoder) preflight(ctx context.Context) error {
	if _, err := exec.LookPath(t.config.Path); err != nil {
		log.Printf("ERROR: transcoder_missing path=%s error=%v", t.config.Path, err)
		return &MissingDependencyError{Path: t.config.Path, Original: err}
	}

	out, err := execCommand(ctx, t.config.Path, "-version").CombinedOutput()
	if err != nil {
		log.Printf("ERROR: transcoder_version_probe_failed path=%s error=%v", t.config.Path, err)
		return &MissingDependencyError{Path: t.config.Path, Original: err}
	}

	major, minor, ok := ParseVersion(string(out))
	if ok {
		t.version = fmt.Sprintf("%d.%d", major, minor)
	}

	if t.config.SkipVersionCheck {
		log.Printf("INFO: transcoder_version_check_skipped path=%s version=%s", t.config.Path, t.version)
		return nil
	}

	required := fmt.Sprintf("%d.%d", MinMajorVersion, MinMinorVersion)
	if !ok {
		return &UnsupportedVersionError{Required: required}
	}
	if major < MinMajorVersion || (major == MinMajorVersion && minor < MinMinorVersion) {
		return &UnsupportedVersionError{Found: t.version, Required: required}
	}

	log.Printf("INFO: transcoder_ready path=%s version=%s", t.config.Path, t.version)
	return nil
}

// ParseVersion extracts major and minor numbers from `ffmpeg -version` output.
// A single number is read as the major version with minor 0.
func ParseVersion(output string) (major, minor int, ok bool) {
	m := versionPattern.FindStringSubmatch(output)
	if m == nil {
		return 0, 0, false
	}
	last, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	if m[1] == "" {
		return last, 0, true
	}
	first, err := strconv.Atoi(strings.TrimSuffix(m[1], "."))
	if err != nil {
		return 0, 0, false
	}
	return first, last, true
}

// command builds the exec.Cmd for the given ffmpeg arguments.
func (t *Transcoder) command(ctx context.Context, args []string) (*exec.Cmd, string) {
	argv := append([]string{t.config.Path}, args...)
	line := commandLine(t.goos, argv)
	if !t.config.UseShell {
		return execCommand(ctx, t.config.Path, args...), line
	}
	if t.goos == "windows" {
		return execCommand(ctx, "cmd", "/C", line), line
	}
	return execCommand(ctx, "sh", "-c", line), line
}
