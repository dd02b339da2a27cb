package config

import (
	"fmt"
	"strings"
	"time"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// SupportedVersion is the only config file version this build understands.
const SupportedVersion = "1.0"

// OverwriteMode represents the behavior when the output file already exists.
type OverwriteMode string

const (
	OverwriteSkip   OverwriteMode = "skip"
	OverwriteForce  OverwriteMode = "force"
	OverwritePrompt OverwriteMode = "prompt"
)

// DefaultOutput is the output template used when none is configured.
const DefaultOutput = "{artist} - {track-name}.{output-ext}"

// Settings holds download configuration settings.
type Settings struct {
	// Spotify API credentials. May also come from the environment, see LoadCredentials.
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`

	// External tools
	FFmpeg           string `yaml:"ffmpeg"`
	YtDlp            string `yaml:"yt_dlp"`
	SkipVersionCheck bool   `yaml:"skip_version_check"`
	UseShell         bool   `yaml:"use_shell"`

	// Output
	Format      string        `yaml:"format"`
	Output      string        `yaml:"output"`
	Overwrite   OverwriteMode `yaml:"overwrite"`
	NoSpaces    bool          `yaml:"no_spaces"`
	NoEncode    bool          `yaml:"no_encode"`
	NoMetadata  bool          `yaml:"no_metadata"`
	TrimSilence bool          `yaml:"trim_silence"`

	// Stream selection
	SearchFormat      string  `yaml:"search_format"`
	SearchLimit       int     `yaml:"search_limit"`
	MinSimilarity     float64 `yaml:"min_similarity"`
	DurationTolerance float64 `yaml:"duration_tolerance"` // seconds
	Quality           string  `yaml:"quality"`
	InputExt          string  `yaml:"input_ext"`
	Manual            bool    `yaml:"manual"`

	// Batch behavior
	MaxRetries      int    `yaml:"max_retries"`
	WriteSuccessful string `yaml:"write_successful"`
	DryRun          bool   `yaml:"dry_run"`

	// Network timeouts, in seconds
	StreamTimeout float64 `yaml:"stream_timeout"`
	LyricsTimeout float64 `yaml:"lyrics_timeout"`

	// Cache settings
	CacheDir                string `yaml:"cache_dir"`
	CacheMaxSize            int    `yaml:"cache_max_size"`
	CacheTTL                int    `yaml:"cache_ttl"`
	AudioSearchCacheMaxSize int    `yaml:"audio_search_cache_max_size"`
	AudioSearchCacheTTL     int    `yaml:"audio_search_cache_ttl"`

	// Spotify rate limiting settings
	SpotifyRateLimitEnabled  bool    `yaml:"spotify_rate_limit_enabled"`
	SpotifyRateLimitRequests int     `yaml:"spotify_rate_limit_requests"`
	SpotifyRateLimitWindow   float64 `yaml:"spotify_rate_limit_window"`

	// Search rate limiting settings
	SearchRateLimitEnabled  bool    `yaml:"search_rate_limit_enabled"`
	SearchRateLimitRequests int     `yaml:"search_rate_limit_requests"`
	SearchRateLimitWindow   float64 `yaml:"search_rate_limit_window"`

	// Run log (JSON lines). Empty disables it.
	LogFile string `yaml:"log_file"`
}

// SetDefaults sets default values for Settings.
func (s *Settings) SetDefaults() {
	if s.FFmpeg == "" {
		s.FFmpeg = "ffmpeg"
	}
	if s.YtDlp == "" {
		s.YtDlp = "yt-dlp"
	}
	if s.Format == "" {
		s.Format = "mp3"
	}
	if s.Output == "" {
		s.Output = DefaultOutput
	}
	if s.Overwrite == "" {
		s.Overwrite = OverwriteSkip
	}
	if s.SearchFormat == "" {
		s.SearchFormat = "{artist} - {track-name}"
	}
	if s.SearchLimit == 0 {
		s.SearchLimit = 10
	}
	if s.MinSimilarity == 0 {
		s.MinSimilarity = 0.5
	}
	if s.DurationTolerance == 0 {
		s.DurationTolerance = 30
	}
	if s.Quality == "" {
		s.Quality = "best"
	}
	if s.InputExt == "" {
		s.InputExt = "automatic"
	}
	if s.MaxRetries == 0 {
		s.MaxRetries = 3
	}
	if s.StreamTimeout == 0 {
		s.StreamTimeout = 30
	}
	if s.LyricsTimeout == 0 {
		s.LyricsTimeout = 10
	}
	if s.CacheMaxSize == 0 {
		s.CacheMaxSize = 1000
	}
	if s.CacheTTL == 0 {
		s.CacheTTL = 3600
	}
	if s.AudioSearchCacheMaxSize == 0 {
		s.AudioSearchCacheMaxSize = 500
	}
	if s.AudioSearchCacheTTL == 0 {
		s.AudioSearchCacheTTL = 86400
	}
	if !s.SpotifyRateLimitEnabled && s.SpotifyRateLimitRequests == 0 {
		s.SpotifyRateLimitEnabled = true
	}
	if s.SpotifyRateLimitRequests == 0 {
		s.SpotifyRateLimitRequests = 10
	}
	if s.SpotifyRateLimitWindow == 0 {
		s.SpotifyRateLimitWindow = 1.0
	}
	if !s.SearchRateLimitEnabled && s.SearchRateLimitRequests == 0 {
		s.SearchRateLimitEnabled = true
	}
	if s.SearchRateLimitRequests == 0 {
		s.SearchRateLimitRequests = 2
	}
	if s.SearchRateLimitWindow == 0 {
		s.SearchRateLimitWindow = 1.0
	}
}

// Validate validates Settings. Credentials are checked separately by LoadCredentials
// because only catalog-backed commands need them.
func (s *Settings) Validate() error {
	validFormats := map[string]bool{
		"mp3":  true,
		"flac": true,
		"ogg":  true,
		"opus": true,
		"m4a":  true,
	}
	if !validFormats[s.Format] {
		return &ConfigError{
			Message: fmt.Sprintf("Invalid format: %s. Must be one of: mp3, flac, ogg, opus, m4a", s.Format),
		}
	}

	if s.Output != "-" && !strings.Contains(s.Output, "{title}") && !strings.Contains(s.Output, "{track-name}") {
		return &ConfigError{
			Message: "download.output must contain the {title} or {track-name} placeholder",
		}
	}

	if s.Overwrite != OverwriteSkip && s.Overwrite != OverwriteForce && s.Overwrite != OverwritePrompt {
		return &ConfigError{
			Message: fmt.Sprintf("Invalid overwrite mode: %s. Must be one of: skip, force, prompt", s.Overwrite),
		}
	}

	if s.Quality != "best" && s.Quality != "worst" {
		return &ConfigError{
			Message: fmt.Sprintf("Invalid quality: %s. Must be one of: best, worst", s.Quality),
		}
	}

	if s.InputExt != "automatic" && s.InputExt != "m4a" && s.InputExt != "webm" {
		return &ConfigError{
			Message: fmt.Sprintf("Invalid input_ext: %s. Must be one of: automatic, m4a, webm", s.InputExt),
		}
	}

	if s.SearchLimit < 1 || s.SearchLimit > 50 {
		return &ConfigError{
			Message: fmt.Sprintf("Invalid search_limit: %d. Must be between 1 and 50", s.SearchLimit),
		}
	}

	if s.MinSimilarity < 0 || s.MinSimilarity > 1 {
		return &ConfigError{
			Message: fmt.Sprintf("Invalid min_similarity: %v. Must be between 0 and 1", s.MinSimilarity),
		}
	}

	if s.MaxRetries < 1 {
		return &ConfigError{
			Message: fmt.Sprintf("Invalid max_retries: %d. Must be at least 1", s.MaxRetries),
		}
	}

	if s.DurationTolerance < 0 || s.StreamTimeout < 0 || s.LyricsTimeout < 0 {
		return &ConfigError{
			Message: "download.duration_tolerance, stream_timeout and lyrics_timeout must not be negative",
		}
	}

	return nil
}

// Seconds converts a fractional seconds setting into a time.Duration.
func Seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// Config represents the configuration file.
type Config struct {
	Version  string   `yaml:"version"`
	Download Settings `yaml:"download"`

	// Hash identifies the file contents; it is logged so runs can be matched to the config used.
	Hash string `yaml:"-"`
}

// Validate validates Config.
func (c *Config) Validate() error {
	if c.Version != SupportedVersion {
		return &ConfigError{
			Message: fmt.Sprintf("Invalid version: %s. Expected %s", c.Version, SupportedVersion),
		}
	}

	c.Download.SetDefaults()
	return c.Download.Validate()
}

// Default returns a validated configuration with every setting at its default.
func Default() *Config {
	c := &Config{Version: SupportedVersion}
	c.Download.SetDefaults()
	return c
}
