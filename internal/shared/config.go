package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	Log         LogConfig         `toml:"log"`
	Credentials CredentialsConfig `toml:"credentials"`
	Pipeline    PipelineConfig    `toml:"pipeline"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	OpenAI  OpenAIConfig  `toml:"openai"`
}

// SpotifyConfig contains Spotify API credentials.
//
// AccessToken and RefreshToken are only populated for terminal front-ends; the web server reads the
// user's token from a cookie instead.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	AccessToken  string `toml:"access_token"`
	RefreshToken string `toml:"refresh_token"`
}

// OpenAIConfig contains settings for the chat completion API.
type OpenAIConfig struct {
	APIKey      string  `toml:"api_key"`
	BaseURL     string  `toml:"base_url"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	BaseURL       string `toml:"base_url"`
	SecureCookies bool   `toml:"secure_cookies"`
}

// LogConfig controls the level and, for the terminal UI, the destination file.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// PipelineConfig tunes the playlist generation pipeline.
type PipelineConfig struct {
	CandidateCount      int           `toml:"candidate_count"`
	SearchConcurrency   int           `toml:"search_concurrency"`
	SearchRate          float64       `toml:"search_rate"`
	AnnotationTimeout   time.Duration `toml:"annotation_timeout"`
	PlaylistPrefix      string        `toml:"playlist_prefix"`
	PlaylistDescription string        `toml:"playlist_description"`
	AutoAnnotate        bool          `toml:"auto_annotate"`
}

// Addr returns the listen address for the HTTP server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks the configuration for values the application cannot run with.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.Server,
		validation.Field(&c.Server.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	); err != nil {
		return fmt.Errorf("%w: server: %v", ErrInvalidConfig, err)
	}

	if err := validation.ValidateStruct(&c.Database,
		validation.Field(&c.Database.Path, validation.Required),
		validation.Field(&c.Database.MaxOpenConns, validation.Min(0)),
		validation.Field(&c.Database.MaxIdleConns, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("%w: database: %v", ErrInvalidConfig, err)
	}

	if err := validation.ValidateStruct(&c.Log,
		validation.Field(&c.Log.Level, validation.In("", "debug", "info", "warn", "error", "fatal")),
	); err != nil {
		return fmt.Errorf("%w: log: %v", ErrInvalidConfig, err)
	}

	if err := validation.ValidateStruct(&c.Pipeline,
		validation.Field(&c.Pipeline.CandidateCount, validation.Required, validation.Min(1), validation.Max(50)),
		validation.Field(&c.Pipeline.SearchConcurrency, validation.Min(0)),
		validation.Field(&c.Pipeline.SearchRate, validation.Min(0.0)),
		validation.Field(&c.Pipeline.AnnotationTimeout, validation.Required, validation.Min(time.Second)),
	); err != nil {
		return fmt.Errorf("%w: pipeline: %v", ErrInvalidConfig, err)
	}

	if err := validation.ValidateStruct(&c.Credentials.OpenAI,
		validation.Field(&c.Credentials.OpenAI.Model, validation.Required),
		validation.Field(&c.Credentials.OpenAI.Temperature, validation.Min(float32(0)), validation.Max(float32(2))),
	); err != nil {
		return fmt.Errorf("%w: openai: %v", ErrInvalidConfig, err)
	}
	return nil
}

// LoadConfig reads a TOML configuration file from the specified path, expands ${VAR} references from the
// environment, and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal([]byte(os.ExpandEnv(string(data))), config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal([]byte(os.ExpandEnv(string(exampleConf))), &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveConfig encodes the configuration as TOML and writes it to path, replacing the existing file.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
