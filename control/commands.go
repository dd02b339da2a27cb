package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/sv4u/trackdl/download"
	"github.com/sv4u/trackdl/download/config"
	"github.com/sv4u/trackdl/download/plan"
)

// commandEnv is the parsed state shared by every command.
type commandEnv struct {
	cfg     *config.Config
	options *cliOptions
	args    []string
	logPath string
	restore func()
	tee     *LogTeeWriter
}

func (e *commandEnv) Close() {
	if e.restore != nil {
		e.restore()
	}
	if e.tee != nil {
		_ = e.tee.Close()
	}
}

// prepare parses flags, loads settings and routes the standard logger to the run log.
// A nil env means the command is over and code is its exit status.
func prepare(command string, args []string, register func(*pflag.FlagSet, *cliOptions)) (*commandEnv, int) {
	flags, o := newFlagSet(command)
	if register != nil {
		register(flags, o)
	}
	if ok, code := parseFlags(flags, args); !ok {
		return nil, code
	}
	setupColor(o.noColor)

	cfg, err := loadSettings(flags, o)
	if err != nil {
		printError(os.Stderr, "%v", err)
		return nil, ExitConfigError
	}

	env := &commandEnv{cfg: cfg, options: o, args: flags.Args()}
	runDir, logPath, err := CreateRunDir(command)
	if err != nil {
		printWarning(os.Stderr, "run log disabled: %v", err)
		return env, ExitSuccess
	}
	tee, err := NewLogTeeWriter(logPath, os.Stderr, o.verbose)
	if err != nil {
		printWarning(os.Stderr, "run log disabled: %v", err)
		return env, ExitSuccess
	}
	env.tee = tee
	env.logPath = logPath
	env.restore = RedirectLog(tee)
	log.Printf("INFO: run_start command=%s version=%s run_dir=%s config_hash=%s", command, Version, runDir, cfg.Hash)
	return env, ExitSuccess
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// collectQueries expands "-" into the lines read from stdin and dedupes the result.
func collectQueries(args []string, stdin io.Reader) ([]string, error) {
	var queries []string
	for _, arg := range args {
		if arg != "-" {
			queries = append(queries, arg)
			continue
		}
		lines, err := plan.ReadLines(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read queries from stdin: %w", err)
		}
		queries = append(queries, lines...)
	}
	return plan.Dedupe(queries), nil
}

// summaryWriter keeps the summary off stdout when audio is written there.
func summaryWriter(settings *config.Settings) io.Writer {
	if settings.Output == "-" {
		return os.Stderr
	}
	return os.Stdout
}

// showProgress reports whether the live progress view can own the terminal. Prompts,
// verbose log mirroring and audio on stdout all need it for themselves.
func showProgress(settings *config.Settings, o *cliOptions) bool {
	return interactive() && !o.verbose && !settings.Manual &&
		settings.Overwrite != config.OverwritePrompt && settings.Output != "-"
}

func downloadCommand(args []string) int {
	env, code := prepare("download", args, nil)
	if env == nil {
		return code
	}
	defer env.Close()

	queries, err := collectQueries(env.args, os.Stdin)
	if err != nil {
		printError(os.Stderr, "%v", err)
		return ExitFilesystem
	}
	if len(queries) == 0 {
		printError(os.Stderr, "no queries given")
		return ExitConfigError
	}
	return runBatch(env, queries, "")
}

func listCommand(args []string) int {
	env, code := prepare("list", args, nil)
	if env == nil {
		return code
	}
	defer env.Close()

	if len(env.args) != 1 {
		printError(os.Stderr, "list takes exactly one list file")
		return ExitConfigError
	}
	listPath := env.args[0]
	queries, err := plan.ReadList(listPath)
	if err != nil {
		printError(os.Stderr, "%v", err)
		return ExitFilesystem
	}
	if len(queries) == 0 {
		fmt.Fprintf(summaryWriter(&env.cfg.Download), "%s is empty, nothing to do.\n", listPath)
		return ExitSuccess
	}
	return runBatch(env, queries, listPath)
}

// runBatch downloads queries in order; listPath, when set, is kept in step with the queue.
func runBatch(env *commandEnv, queries []string, listPath string) int {
	a, err := newApp(env.cfg, env.options, false)
	if err != nil {
		printError(os.Stderr, "%v", err)
		return exitCodeFor(err)
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	// A missing transcoder fails the whole run, so find out before any track is searched.
	if !a.settings.DryRun {
		if err := a.orchestrator.Preflight(ctx); err != nil {
			printError(os.Stderr, "%v", err)
			return exitCodeFor(err)
		}
	}

	queue := plan.NewQueue(queries)
	var summary *download.Summary
	if showProgress(a.settings, env.options) {
		summary, err = runWithProgress(ctx, env.logPath, len(queries), env.tee,
			func(ctx context.Context, progress func(download.Progress), stopRequested func() bool) (*download.Summary, error) {
				options := a.batchOptions(listPath)
				options.Progress = progress
				options.Stop = stopRequested
				return download.NewBatch(a.orchestrator, options).Run(ctx, queue)
			})
	} else {
		summary, err = download.NewBatch(a.orchestrator, a.batchOptions(listPath)).Run(ctx, queue)
	}
	printSummary(summaryWriter(a.settings), summary)
	switch {
	case errors.Is(err, download.ErrStopped):
		printWarning(os.Stderr, "stopped, %d queries left", len(summary.Remaining))
	case errors.Is(err, context.Canceled):
		printWarning(os.Stderr, "interrupted, %d queries left", len(summary.Remaining))
	case err != nil:
		printError(os.Stderr, "%v", err)
	}
	return batchExitCode(summary.Failed(), err)
}

func m3uCommand(args []string) int {
	env, code := prepare("m3u", args, func(flags *pflag.FlagSet, o *cliOptions) {
		flags.StringVar(&o.m3uFile, "m3u-file", "", `Playlist to write, or "-" for stdout (default <list>.m3u)`)
	})
	if env == nil {
		return code
	}
	defer env.Close()

	if len(env.args) != 1 {
		printError(os.Stderr, "m3u takes exactly one list file")
		return ExitConfigError
	}
	listPath := env.args[0]
	queries, err := plan.ReadList(listPath)
	if err != nil {
		printError(os.Stderr, "%v", err)
		return ExitFilesystem
	}

	a, err := newApp(env.cfg, env.options, false)
	if err != nil {
		printError(os.Stderr, "%v", err)
		return exitCodeFor(err)
	}
	defer a.Close()

	target := env.options.m3uFile
	if target == "" {
		target = plan.DefaultM3UPath(listPath)
	}
	var w io.Writer = os.Stdout
	if target != "-" {
		f, err := os.Create(target)
		if err != nil {
			printError(os.Stderr, "%v", err)
			return ExitFilesystem
		}
		defer f.Close()
		w = f
	}

	ctx, stop := signalContext()
	defer stop()

	failures, err := download.WriteM3U(ctx, queries, a.assembler, a.selector, w)
	for _, f := range failures {
		printWarning(os.Stderr, "no entry for %s: %v", f.Query, f.Err)
	}
	if err != nil {
		printError(os.Stderr, "%v", err)
	} else if target != "-" {
		fmt.Printf("Wrote %d entries to %s\n", len(queries)-len(failures), target)
	}
	return batchExitCode(len(failures), err)
}

// catalogCommand writes the tracks of a playlist, album or artist to a list file,
// keeping entries already there.
func catalogCommand(command string, args []string) int {
	env, code := prepare(command, args, func(flags *pflag.FlagSet, o *cliOptions) {
		flags.StringVar(&o.writeTo, "write-to", "", "List file to write (default <name>.txt)")
	})
	if env == nil {
		return code
	}
	defer env.Close()

	if len(env.args) != 1 {
		printError(os.Stderr, "%s takes exactly one URL", command)
		return ExitConfigError
	}
	catalog, err := newCatalog(&env.cfg.Download, env.options.envFile)
	if err != nil {
		printError(os.Stderr, "%v", err)
		return exitCodeFor(err)
	}

	ctx, stop := signalContext()
	defer stop()

	enumerate := catalog.PlaylistTrackURLs
	switch command {
	case "album":
		enumerate = catalog.AlbumTrackURLs
	case "all-albums":
		enumerate = catalog.ArtistAlbumTrackURLs
	}
	name, urls, err := enumerate(ctx, env.args[0])
	if err != nil {
		printError(os.Stderr, "%v", err)
		return exitCodeFor(err)
	}

	path := env.options.writeTo
	if path == "" {
		path = plan.DefaultListPath(name)
	}
	existing, err := plan.ReadList(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		printError(os.Stderr, "%v", err)
		return ExitFilesystem
	}
	merged := plan.Dedupe(append(existing, urls...))
	if err := plan.WriteList(path, merged); err != nil {
		printError(os.Stderr, "%v", err)
		return ExitFilesystem
	}
	log.Printf("INFO: list_written command=%s name=%q path=%s tracks=%d added=%d", command, name, path, len(urls), len(merged)-len(existing))
	fmt.Printf("Wrote %d tracks from %q to %s (%d new)\n", len(urls), name, path, len(merged)-len(existing))
	return ExitSuccess
}
