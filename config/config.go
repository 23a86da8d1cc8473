package config

import (
	"sync"
	"time"
)

// Config represents the complete application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Offline OfflineConfig `mapstructure:"offline"`
	Player  PlayerConfig  `mapstructure:"player"`
	UI      UIConfig      `mapstructure:"ui"`

	mu sync.RWMutex
}

// ServerConfig contains the remote library connection settings. BaseURL and
// SecretKey may be rewritten at runtime by the server-discovery flow, so
// reads must go through Endpoint.
type ServerConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	SecretKey string `mapstructure:"secret_key"`
}

// OfflineConfig contains the local cache locations.
type OfflineConfig struct {
	DatabasePath string `mapstructure:"database_path"`
	MusicDir     string `mapstructure:"music_dir"`
	SettingsPath string `mapstructure:"settings_path"`
}

// PlayerConfig contains playback and HTTP client settings.
type PlayerConfig struct {
	HTTPTimeout     int `mapstructure:"http_timeout"`     // seconds
	ConnProbePeriod int `mapstructure:"conn_probe_period"` // seconds
}

// UIConfig contains terminal interface settings.
type UIConfig struct {
	PageSize       int `mapstructure:"page_size"`
	MaxColumnWidth int `mapstructure:"max_column_width"`
}

// GetHTTPTimeout returns the HTTP timeout as a time.Duration.
func (p *PlayerConfig) GetHTTPTimeout() time.Duration {
	return time.Duration(p.HTTPTimeout) * time.Second
}

// GetProbePeriod returns the connectivity probe interval as a time.Duration.
func (p *PlayerConfig) GetProbePeriod() time.Duration {
	return time.Duration(p.ConnProbePeriod) * time.Second
}

// Endpoint returns the current server base URL and shared secret.
func (c *Config) Endpoint() (baseURL, secretKey string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Server.BaseURL, c.Server.SecretKey
}

// UpdateEndpoint replaces the server base URL and shared secret at runtime.
// Empty arguments leave the corresponding field untouched.
func (c *Config) UpdateEndpoint(baseURL, secretKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if baseURL != "" {
		c.Server.BaseURL = baseURL
	}
	if secretKey != "" {
		c.Server.SecretKey = secretKey
	}
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Offline: OfflineConfig{
			DatabasePath: "offline.db",
			MusicDir:     "offline_music",
			SettingsPath: "resonode_settings.json",
		},
		Player: PlayerConfig{
			HTTPTimeout:     30,
			ConnProbePeriod: 5,
		},
		UI: UIConfig{
			PageSize:       50,
			MaxColumnWidth: 40,
		},
	}
}
