package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"github.com/sv4u/trackdl/download/config"
)

// defaultConfigPath is used when --config is not given and the file exists.
const defaultConfigPath = "trackdl.yaml"

// cliOptions holds the flags of one command. Settings flags are only applied
// over the configuration file when they were set on the command line.
type cliOptions struct {
	configPath string
	envFile    string
	noColor    bool
	verbose    bool
	writeTo    string
	m3uFile    string

	flags config.Settings
}

// settingFlags copies a flag's value from the parsed flags into the loaded settings.
var settingFlags = map[string]func(dst, src *config.Settings){
	"format":             func(dst, src *config.Settings) { dst.Format = src.Format },
	"output-file":        func(dst, src *config.Settings) { dst.Output = src.Output },
	"overwrite":          func(dst, src *config.Settings) { dst.Overwrite = src.Overwrite },
	"search-format":      func(dst, src *config.Settings) { dst.SearchFormat = src.SearchFormat },
	"input-ext":          func(dst, src *config.Settings) { dst.InputExt = src.InputExt },
	"quality":            func(dst, src *config.Settings) { dst.Quality = src.Quality },
	"ffmpeg":             func(dst, src *config.Settings) { dst.FFmpeg = src.FFmpeg },
	"yt-dlp":             func(dst, src *config.Settings) { dst.YtDlp = src.YtDlp },
	"skip-version-check": func(dst, src *config.Settings) { dst.SkipVersionCheck = src.SkipVersionCheck },
	"use-shell":          func(dst, src *config.Settings) { dst.UseShell = src.UseShell },
	"trim-silence":       func(dst, src *config.Settings) { dst.TrimSilence = src.TrimSilence },
	"no-spaces":          func(dst, src *config.Settings) { dst.NoSpaces = src.NoSpaces },
	"no-encode":          func(dst, src *config.Settings) { dst.NoEncode = src.NoEncode },
	"no-metadata":        func(dst, src *config.Settings) { dst.NoMetadata = src.NoMetadata },
	"manual":             func(dst, src *config.Settings) { dst.Manual = src.Manual },
	"dry-run":            func(dst, src *config.Settings) { dst.DryRun = src.DryRun },
	"max-retries":        func(dst, src *config.Settings) { dst.MaxRetries = src.MaxRetries },
	"write-successful":   func(dst, src *config.Settings) { dst.WriteSuccessful = src.WriteSuccessful },
	"cache-dir":          func(dst, src *config.Settings) { dst.CacheDir = src.CacheDir },
	"log-file":           func(dst, src *config.Settings) { dst.LogFile = src.LogFile },
}

func newFlagSet(command string) (*pflag.FlagSet, *cliOptions) {
	o := &cliOptions{}
	fs := pflag.NewFlagSet(command, pflag.ContinueOnError)
	fs.SortFlags = false

	fs.StringVarP(&o.configPath, "config", "c", "", "Path to configuration file (default trackdl.yaml if present)")
	fs.StringVar(&o.envFile, "env-file", ".env", "File with SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET")
	fs.BoolVar(&o.noColor, "no-color", false, "Disable colored output")
	fs.BoolVarP(&o.verbose, "verbose", "V", false, "Print every log line, not only warnings and errors")

	s := &o.flags
	fs.StringVarP(&s.Format, "format", "f", "", "Target encoding: mp3, flac, ogg, opus, m4a")
	fs.StringVarP(&s.Output, "output-file", "o", "", `Output file name template, or "-" for stdout`)
	fs.StringVar((*string)(&s.Overwrite), "overwrite", "", "Existing files: skip, force, prompt")
	fs.StringVar(&s.SearchFormat, "search-format", "", "Search query template")
	fs.StringVar(&s.InputExt, "input-ext", "", "Stream container: automatic, m4a, webm")
	fs.StringVar(&s.Quality, "quality", "", "Stream quality: best, worst")
	fs.StringVar(&s.FFmpeg, "ffmpeg", "", "Path to the ffmpeg binary")
	fs.StringVar(&s.YtDlp, "yt-dlp", "", "Path to the yt-dlp binary")
	fs.BoolVar(&s.SkipVersionCheck, "skip-version-check", false, "Accept any ffmpeg version")
	fs.BoolVar(&s.UseShell, "use-shell", false, "Run ffmpeg through the shell")
	fs.BoolVar(&s.TrimSilence, "trim-silence", false, "Strip leading silence")
	fs.BoolVar(&s.NoSpaces, "no-spaces", false, "Replace whitespace in file names with underscores")
	fs.BoolVar(&s.NoEncode, "no-encode", false, "Keep the stream's native container")
	fs.BoolVar(&s.NoMetadata, "no-metadata", false, "Do not tag files or look up lyrics")
	fs.BoolVarP(&s.Manual, "manual", "m", false, "Choose the stream interactively")
	fs.BoolVar(&s.DryRun, "dry-run", false, "Resolve matches and paths without downloading")
	fs.IntVar(&s.MaxRetries, "max-retries", 0, "Attempts per track for network errors")
	fs.StringVar(&s.WriteSuccessful, "write-successful", "", "Append each downloaded query to this file")
	fs.StringVar(&s.CacheDir, "cache-dir", "", "Directory for persistent search caches")
	fs.StringVar(&s.LogFile, "log-file", "", "Write a JSON run log to this file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of trackdl %s:\n", command)
		fs.PrintDefaults()
	}
	return fs, o
}

// parseFlags parses args. The returned code is meaningful only when ok is false.
func parseFlags(fs *pflag.FlagSet, args []string) (ok bool, code int) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return false, ExitSuccess
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false, ExitConfigError
	}
	return true, ExitSuccess
}

// loadSettings loads the configuration file, if any, and applies the flags that were set.
func loadSettings(fs *pflag.FlagSet, o *cliOptions) (*config.Config, error) {
	path := o.configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			path = defaultConfigPath
		}
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *pflag.Flag) {
		if apply, ok := settingFlags[f.Name]; ok {
			apply(&cfg.Download, &o.flags)
		}
	})
	cfg.Download.SetDefaults()
	if err := cfg.Download.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
