package config

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Load reads the configuration from config.toml and returns a Config struct.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("toml")
	viper.AddConfigPath("$HOME/.config/resonode/")
	viper.AddConfigPath(".")

	defaults := DefaultConfig()
	viper.SetDefault("offline.database_path", defaults.Offline.DatabasePath)
	viper.SetDefault("offline.music_dir", defaults.Offline.MusicDir)
	viper.SetDefault("offline.settings_path", defaults.Offline.SettingsPath)
	viper.SetDefault("player.http_timeout", defaults.Player.HTTPTimeout)
	viper.SetDefault("player.conn_probe_period", defaults.Player.ConnProbePeriod)
	viper.SetDefault("ui.page_size", defaults.UI.PageSize)
	viper.SetDefault("ui.max_column_width", defaults.UI.MaxColumnWidth)

	if err := viper.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	required := []string{
		"server.base_url",
		"server.secret_key",
	}
	for _, key := range required {
		if !viper.IsSet(key) {
			return nil, errors.Errorf("missing required config: %s", key)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	return &cfg, nil
}
