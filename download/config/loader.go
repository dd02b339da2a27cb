package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// hashLen is the number of hex characters kept from the SHA-256 of the file.
const hashLen = 16

// Environment variables consulted by LoadCredentials.
const (
	EnvClientID     = "SPOTIFY_CLIENT_ID"
	EnvClientSecret = "SPOTIFY_CLIENT_SECRET"
)

// LoadConfig loads and validates configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &ConfigError{
			Message: fmt.Sprintf("Configuration file not found: %s", path),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{
			Message: fmt.Sprintf("Error reading configuration file: %v", err),
		}
	}

	config, err := ParseConfig(data)
	if err != nil {
		return nil, err
	}
	return config, nil
}

// ParseConfig parses and validates configuration file contents.
func ParseConfig(data []byte) (*Config, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{
			Message: fmt.Sprintf("Error parsing YAML file: %v", err),
		}
	}

	// An unquoted 1.0 is decoded as a float and prints as "1".
	version := fmt.Sprintf("%v", raw["version"])
	if version != SupportedVersion && version != "1" {
		return nil, &ConfigError{
			Message: fmt.Sprintf("Invalid version: %v. Expected %s", raw["version"], SupportedVersion),
		}
	}

	// The version was checked above; decode the rest without it.
	var file struct {
		Download Settings `yaml:"download"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &ConfigError{
			Message: fmt.Sprintf("Invalid configuration: %v", err),
		}
	}
	config := Config{Version: SupportedVersion, Download: file.Download}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	config.Hash = hex.EncodeToString(sum[:])[:hashLen]
	return &config, nil
}

// Credentials are the Spotify client credentials.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// LoadCredentials resolves Spotify credentials. Values from the settings win; missing values
// are read from the environment after loading envFile (".env" when empty) if it exists.
func LoadCredentials(s *Settings, envFile string) (Credentials, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Credentials{}, &ConfigError{
			Message: fmt.Sprintf("Error loading %s: %v", envFile, err),
		}
	}

	creds := Credentials{
		ClientID:     strings.TrimSpace(s.ClientID),
		ClientSecret: strings.TrimSpace(s.ClientSecret),
	}
	if creds.ClientID == "" {
		creds.ClientID = strings.TrimSpace(os.Getenv(EnvClientID))
	}
	if creds.ClientSecret == "" {
		creds.ClientSecret = strings.TrimSpace(os.Getenv(EnvClientSecret))
	}

	missing := []string{}
	if creds.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if creds.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if len(missing) > 0 {
		return Credentials{}, &ConfigError{
			Message: fmt.Sprintf(
				"Missing Spotify %s. Set download.client_id and download.client_secret in the configuration file or %s and %s in the environment",
				strings.Join(missing, " and "), EnvClientID, EnvClientSecret,
			),
		}
	}
	return creds, nil
}
