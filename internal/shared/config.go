package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Cache       CacheConfig       `toml:"cache"`
	Sync        SyncConfig        `toml:"sync"`
}

// CredentialsConfig contains service-specific credentials.
//
// Tokens are assumed to already be valid; refreshing them is handled
// outside this program.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	Tidal   TidalConfig   `toml:"tidal"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	AccessToken string `toml:"access_token"`
}

// TidalConfig contains Tidal API credentials and session details.
type TidalConfig struct {
	AccessToken string `toml:"access_token"`
	UserID      string `toml:"user_id"`
	CountryCode string `toml:"country_code"`
}

// CacheConfig contains match cache database settings.
type CacheConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// SyncConfig contains tuning options for the sync engine.
type SyncConfig struct {
	PreferQuality            bool     `toml:"prefer_quality"`
	ConcurrentRequests       int      `toml:"concurrent_requests"`
	RequestsPerSecond        float64  `toml:"requests_per_second"`
	DurationToleranceSeconds int      `toml:"duration_tolerance_seconds"`
	RetryAttempts            int      `toml:"retry_attempts"`
	MirrorFavoriteRemovals   bool     `toml:"mirror_favorite_removals"`
	ExcludedPlaylists        []string `toml:"excluded_playlists"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingConfig, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	config.applyDefaults()
	config.applyEnvOverrides()
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.applyDefaults()
	config.applyEnvOverrides()
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyDefaults fills zero-valued sync options with the documented defaults.
func (c *Config) applyDefaults() {
	if c.Sync.ConcurrentRequests <= 0 {
		c.Sync.ConcurrentRequests = 10
	}
	if c.Sync.RequestsPerSecond <= 0 {
		c.Sync.RequestsPerSecond = 10
	}
	if c.Sync.DurationToleranceSeconds <= 0 {
		c.Sync.DurationToleranceSeconds = 2
	}
	if c.Sync.RetryAttempts <= 0 {
		c.Sync.RetryAttempts = 3
	}
	if c.Cache.Path == "" {
		c.Cache.Path = "crosstide.db"
	}
	if c.Cache.MaxOpenConns <= 0 {
		c.Cache.MaxOpenConns = 1
	}
	if c.Cache.MaxIdleConns <= 0 {
		c.Cache.MaxIdleConns = 1
	}
	if c.Credentials.Tidal.CountryCode == "" {
		c.Credentials.Tidal.CountryCode = "US"
	}
}

// applyEnvOverrides lets credentials come from the environment so tokens
// stay out of config files checked into dotfile repos.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SPOTIFY_ACCESS_TOKEN"); v != "" {
		c.Credentials.Spotify.AccessToken = v
	}
	if v := os.Getenv("TIDAL_ACCESS_TOKEN"); v != "" {
		c.Credentials.Tidal.AccessToken = v
	}
	if v := os.Getenv("TIDAL_USER_ID"); v != "" {
		c.Credentials.Tidal.UserID = v
	}
	if v := os.Getenv("TIDAL_COUNTRY_CODE"); v != "" {
		c.Credentials.Tidal.CountryCode = v
	}
}
