package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/franz/crate/internal/util"
)

// Config is the resolved configuration. Precedence, highest first:
// command-line flag, CRATE_* environment variable, config file, default.
type Config struct {
	DataDir          string        `mapstructure:"data_dir" validate:"required"`
	Collection       string        `mapstructure:"collection" validate:"required"`
	UserDB           string        `mapstructure:"user_db"`
	EventsDir        string        `mapstructure:"events_dir"`
	Concurrency      int           `mapstructure:"concurrency" validate:"min=1,max=64"`
	WatchDebounce    time.Duration `mapstructure:"watch_debounce" validate:"min=0"`
	NetworkOptimized *bool         `mapstructure:"network_optimized"`
	ProbeDurations   bool          `mapstructure:"probe_durations"`
	AdditionalExts   []string      `mapstructure:"additional_exts"`
	Listen           string        `mapstructure:"listen" validate:"required"`
	Output           string        `mapstructure:"output" validate:"oneof=table json yaml"`
	Verbose          bool          `mapstructure:"verbose"`
	Quiet            bool          `mapstructure:"quiet"`
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "crate")
	}
	return ".crate"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("collection", "local")
	v.SetDefault("concurrency", 8)
	v.SetDefault("watch_debounce", "2s")
	v.SetDefault("probe_durations", false)
	v.SetDefault("listen", "127.0.0.1:8420")
	v.SetDefault("output", "table")
}

// loadConfig decodes and validates v
func loadConfig(v *viper.Viper) (*Config, error) {
	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidConfig, err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidConfig, err)
	}

	if cfg.UserDB == "" {
		cfg.UserDB = filepath.Join(cfg.DataDir, "user.db")
	}
	if cfg.EventsDir == "" {
		cfg.EventsDir = filepath.Join(cfg.DataDir, "events")
	}
	return &cfg, nil
}
