package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Backend     BackendConfig     `toml:"backend"`
	Transfer    TransferConfig    `toml:"transfer"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	Apple   AppleConfig   `toml:"apple"`
}

// SpotifyConfig contains Spotify API credentials.
//
// ClientID and ClientSecret are only needed by the token backend and by source playlist loading.
// UserToken is a user-scoped bearer for writing playlists; when empty the token backend is asked instead.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	UserToken    string `toml:"user_token"`
	Market       string `toml:"market"`
}

// AppleConfig contains Apple Music credentials.
//
// TeamID, KeyID and PrivateKeyPath are used by the token backend to sign developer tokens.
// UserToken is the Music-User-Token produced by the MusicKit authorization flow.
type AppleConfig struct {
	TeamID         string `toml:"team_id"`
	KeyID          string `toml:"key_id"`
	PrivateKeyPath string `toml:"private_key_path"`
	UserToken      string `toml:"user_token"`
	Storefront     string `toml:"storefront" validate:"required,len=2"`
	TokenTTLHours  int    `toml:"token_ttl_hours" validate:"gte=1,lte=4380"`
}

// BackendConfig points the client at the token backend.
type BackendConfig struct {
	URL    string `toml:"url" validate:"required,url"`
	APIKey string `toml:"api_key"`
}

// TransferConfig tunes retries and batching.
type TransferConfig struct {
	MaxAttempts      int     `toml:"max_attempts" validate:"gte=1,lte=10"`
	BaseDelayMS      int     `toml:"base_delay_ms" validate:"gte=0"`
	BackoffFactor    float64 `toml:"backoff_factor" validate:"gte=1"`
	BatchDelayMS     int     `toml:"batch_delay_ms" validate:"gte=0"`
	RequestTimeoutMS int     `toml:"request_timeout_ms" validate:"gte=100"`
	RequestsPerSec   float64 `toml:"requests_per_second" validate:"gte=0"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" validate:"required"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains token backend settings.
type ServerConfig struct {
	Host   string `toml:"host"`
	Port   int    `toml:"port" validate:"gte=1,lte=65535"`
	APIKey string `toml:"api_key"`
}

// BaseDelay returns the configured initial backoff delay.
func (t TransferConfig) BaseDelay() time.Duration {
	return time.Duration(t.BaseDelayMS) * time.Millisecond
}

// BatchDelay returns the configured pause between batch additions.
func (t TransferConfig) BatchDelay() time.Duration {
	return time.Duration(t.BatchDelayMS) * time.Millisecond
}

// RequestTimeout returns the configured per-request timeout.
func (t TransferConfig) RequestTimeout() time.Duration {
	return time.Duration(t.RequestTimeoutMS) * time.Millisecond
}

// TokenTTL returns the developer token lifetime.
func (a AppleConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLHours) * time.Hour
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults. Secrets may be overridden from the environment.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadConfigOrDefault loads path if it exists, otherwise the embedded defaults with environment overrides.
func LoadConfigOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); err == nil {
		return LoadConfig(path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	config := DefaultConfig()
	config.applyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks field constraints declared in struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.Credentials.Spotify.ClientID, "SPOTIFY_CLIENT_ID")
	setFromEnv(&c.Credentials.Spotify.ClientSecret, "SPOTIFY_CLIENT_SECRET")
	setFromEnv(&c.Credentials.Spotify.UserToken, "SPOTIFY_USER_TOKEN")
	setFromEnv(&c.Credentials.Apple.UserToken, "APPLE_MUSIC_USER_TOKEN")
	setFromEnv(&c.Credentials.Apple.PrivateKeyPath, "APPLE_MUSIC_PRIVATE_KEY_PATH")
	setFromEnv(&c.Backend.APIKey, "PORTER_API_KEY")
	setFromEnv(&c.Server.APIKey, "PORTER_API_KEY")
}

func setFromEnv(field *string, key string) {
	if v := os.Getenv(key); v != "" {
		*field = v
	}
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
