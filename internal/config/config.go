// Package config loads the edit pipeline's tunables from the
// environment (and, for local/CLI use, an optional YAML file) via
// viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// Config holds every tunable the edit pipeline reads at startup.
type Config struct {
	MaxPatchEdge      int     `mapstructure:"max_patch_edge"`
	DefaultFeather    int     `mapstructure:"default_feather"`
	DefaultPadding    int     `mapstructure:"default_padding"`
	ColorMatchRing    int     `mapstructure:"color_match_ring"`
	ColorGainClampMin float64 `mapstructure:"color_gain_clamp_min"`
	ColorGainClampMax float64 `mapstructure:"color_gain_clamp_max"`
	ModelTimeoutS     int     `mapstructure:"model_timeout_s"`
}

// Load reads configuration from (in increasing precedence) built-in
// defaults, an optional YAML file at path (ignored if empty or
// missing), and EDIT_-prefixed environment variables.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("max_patch_edge", 1024)
	v.SetDefault("default_feather", 2)
	v.SetDefault("default_padding", 12)
	v.SetDefault("color_match_ring", 8)
	v.SetDefault("color_gain_clamp_min", 0.6)
	v.SetDefault("color_gain_clamp_max", 1.6)
	v.SetDefault("model_timeout_s", 60)

	v.SetEnvPrefix("EDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("read config file %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
