package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Remote   RemoteConfig   `toml:"remote"`
	Sync     SyncConfig     `toml:"sync"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// RemoteConfig describes the UDJ server the client synchronizes with.
type RemoteConfig struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	AccountType    string `toml:"account_type"`
	TokenType      string `toml:"token_type"`
}

// Timeout is the bound applied to connection establishment and socket reads.
func (c RemoteConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SyncConfig contains defaults for sync cycles started from the CLI.
type SyncConfig struct {
	Account         string `toml:"account"`
	Library         bool   `toml:"library"`
	IntervalMinutes int    `toml:"interval_minutes"`
	BatchSize       int    `toml:"batch_size"`
}

// Interval is the delay between scheduled sync cycles.
func (c SyncConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// ServerConfig contains settings for the development UDJ server.
type ServerConfig struct {
	Host              string       `toml:"host"`
	Port              int          `toml:"port"`
	RequestsPerSecond float64      `toml:"requests_per_second"`
	Burst             int          `toml:"burst"`
	Users             []ServerUser `toml:"users"`
}

// ServerUser is a credential accepted by the development server.
type ServerUser struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// LogConfig controls logger verbosity.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	config.Server.Users = nil
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate reports settings that would make a sync cycle impossible.
func (c *Config) Validate() error {
	if c.Remote.URL == "" {
		return fmt.Errorf("%w: remote.url is required", ErrInvalidConfig)
	}
	if c.Remote.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: remote.timeout_seconds must be positive", ErrInvalidConfig)
	}
	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("%w: sync.batch_size must be positive", ErrInvalidConfig)
	}
	if c.Sync.IntervalMinutes <= 0 {
		return fmt.Errorf("%w: sync.interval_minutes must be positive", ErrInvalidConfig)
	}
	return nil
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
