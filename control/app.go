package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/sv4u/trackdl/download"
	"github.com/sv4u/trackdl/download/audio"
	"github.com/sv4u/trackdl/download/cache"
	"github.com/sv4u/trackdl/download/config"
	"github.com/sv4u/trackdl/download/logging"
	"github.com/sv4u/trackdl/download/metadata"
	"github.com/sv4u/trackdl/download/spotify"
	"github.com/sv4u/trackdl/download/transcode"
)

// app is the wired pipeline for one command.
type app struct {
	settings     *config.Settings
	catalog      *spotify.SpotifyClient
	store        *cache.Manager
	selector     *audio.Selector
	assembler    *metadata.Assembler
	orchestrator *download.Orchestrator
	runLog       *logging.Logger
}

// newApp builds every collaborator from settings. Without credentials the catalog is
// left out and metadata comes from the stream, unless requireCatalog is set.
func newApp(cfg *config.Config, o *cliOptions, requireCatalog bool) (*app, error) {
	settings := &cfg.Download
	a := &app{settings: settings}

	client, err := newCatalog(settings, o.envFile)
	if err != nil {
		if requireCatalog {
			return nil, err
		}
		log.Printf("WARN: catalog_disabled error=%v", err)
	}
	a.catalog = client

	if settings.LogFile != "" {
		runLog, err := logging.NewLogger(settings.LogFile, "trackdl")
		if err != nil {
			return nil, &transcode.IOError{Path: settings.LogFile, Original: err}
		}
		a.runLog = runLog
		log.Printf("INFO: run_log path=%s run_id=%s config_hash=%s", settings.LogFile, runLog.RunID(), cfg.Hash)
	}

	var prompter *surveyPrompter
	if interactive() {
		prompter = &surveyPrompter{}
	} else {
		if settings.Manual {
			log.Printf("WARN: manual_unavailable reason=not_a_terminal fallback=automatic")
			settings.Manual = false
		}
		if settings.Overwrite == config.OverwritePrompt {
			log.Printf("WARN: prompt_unavailable reason=not_a_terminal fallback=%s", config.OverwriteSkip)
			settings.Overwrite = config.OverwriteSkip
		}
	}

	// Interfaces holding typed nil pointers are not nil; only set what exists.
	var (
		catalog      metadata.Catalog
		store        audio.SearchStore
		audioPrompt  audio.Prompter
		overwriteAsk download.OverwritePrompter
	)
	if a.catalog != nil {
		catalog = a.catalog
	}
	if settings.CacheDir != "" {
		a.store = cache.NewManager(settings.CacheDir)
		store = a.store
	}
	if prompter != nil {
		audioPrompt = prompter
		overwriteAsk = prompter
	}

	a.selector = audio.NewSelector(&audio.Config{
		SearchFormat:      settings.SearchFormat,
		SearchLimit:       settings.SearchLimit,
		MinSimilarity:     settings.MinSimilarity,
		DurationTolerance: config.Seconds(settings.DurationTolerance),
		CacheMaxSize:      settings.AudioSearchCacheMaxSize,
		CacheTTL:          settings.AudioSearchCacheTTL,
		StoreFile:         cache.SearchCacheFile,
		StoreTTLSeconds:   settings.AudioSearchCacheTTL,
		RateLimitEnabled:  settings.SearchRateLimitEnabled,
		RateLimitRequests: settings.SearchRateLimitRequests,
		RateLimitWindow:   settings.SearchRateLimitWindow,
	},
		&audio.YtDlpSearcher{Path: settings.YtDlp},
		audio.NewYouTubeResolver(settings.Quality, settings.InputExt, config.Seconds(settings.StreamTimeout)),
		store,
		audioPrompt,
	)
	a.assembler = metadata.NewAssembler(catalog, settings.NoMetadata)

	transcoder := transcode.NewTranscoder(&transcode.Config{
		Path:             settings.FFmpeg,
		SkipVersionCheck: settings.SkipVersionCheck,
		TrimSilence:      settings.TrimSilence,
		UseShell:         settings.UseShell,
		Stdout:           os.Stdout,
	})

	sanitizer := download.Sanitizer(download.SanitizeFilename)
	if settings.NoSpaces {
		sanitizer = download.SanitizeNoSpaces
	}
	var lyrics metadata.LyricsChain
	if !settings.NoMetadata {
		lyrics = metadata.DefaultLyricsChain(config.Seconds(settings.LyricsTimeout))
	}

	a.orchestrator = download.NewOrchestrator(download.Options{
		Output:     settings.Output,
		Format:     settings.Format,
		Overwrite:  settings.Overwrite,
		Sanitizer:  sanitizer,
		NoEncode:   settings.NoEncode,
		NoMetadata: settings.NoMetadata,
		DryRun:     settings.DryRun,
		Manual:     settings.Manual,
		Lyrics:     lyrics,
		Prompter:   overwriteAsk,
	}, a.selector, a.assembler, transcoder, metadata.NewEmbedder())
	return a, nil
}

func newCatalog(settings *config.Settings, envFile string) (*spotify.SpotifyClient, error) {
	creds, err := config.LoadCredentials(settings, envFile)
	if err != nil {
		return nil, err
	}
	return spotify.NewSpotifyClient(&spotify.Config{
		ClientID:          creds.ClientID,
		ClientSecret:      creds.ClientSecret,
		CacheMaxSize:      settings.CacheMaxSize,
		CacheTTL:          settings.CacheTTL,
		RateLimitEnabled:  settings.SpotifyRateLimitEnabled,
		RateLimitRequests: settings.SpotifyRateLimitRequests,
		RateLimitWindow:   settings.SpotifyRateLimitWindow,
	})
}

// batchOptions returns the batch configuration for a run over listPath ("" for none).
func (a *app) batchOptions(listPath string) download.BatchOptions {
	options := download.BatchOptions{
		ListPath:        listPath,
		WriteSuccessful: a.settings.WriteSuccessful,
		MaxRetries:      a.settings.MaxRetries,
		Logger:          a.runLog,
	}
	if a.store != nil {
		options.Recorder = a.store
	}
	return options
}

func (a *app) Close() {
	search := a.selector.CacheStats()
	log.Printf("INFO: search_cache hits=%d misses=%d size=%d", search.Hits, search.Misses, search.Size)
	if a.catalog != nil {
		catalog := a.catalog.CacheStats()
		log.Printf("INFO: catalog_cache hits=%d misses=%d size=%d", catalog.Hits, catalog.Misses, catalog.Size)
	}
	if a.runLog != nil {
		_ = a.runLog.Close()
	}
}

// exitCodeFor maps a run-level error to the process exit code.
func exitCodeFor(err error) int {
	var (
		configErr *config.ConfigError
		ioErr     *transcode.IOError
		pathErr   *fs.PathError
		rateErr   *spotify.RateLimitError
		spotErr   *spotify.SpotifyError
	)
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &configErr):
		return ExitConfigError
	case download.IsFatal(err):
		return ExitDependency
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.As(err, &ioErr), errors.As(err, &pathErr):
		return ExitFilesystem
	case download.IsTransient(err), errors.As(err, &rateErr), errors.As(err, &spotErr):
		return ExitNetwork
	default:
		return ExitConfigError
	}
}

// batchExitCode combines the run error with per-track failures.
func batchExitCode(failed int, err error) int {
	if err != nil {
		return exitCodeFor(err)
	}
	if failed > 0 {
		return ExitPartial
	}
	return ExitSuccess
}
