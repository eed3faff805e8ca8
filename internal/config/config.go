// Package config loads application configuration from defaults, an optional
// YAML file and NETCHECK_* environment overrides.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// ServerConfig configures the HTTP boundary.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// JobsConfig configures the job manager.
type JobsConfig struct {
	// MaxRetained is the job-table ceiling before oldest-first eviction.
	MaxRetained int `mapstructure:"max_retained"`

	DefaultTimeoutSeconds int `mapstructure:"default_timeout_seconds"`
	DefaultCount          int `mapstructure:"default_count"`
}

// BatchConfig configures the batch runner.
type BatchConfig struct {
	Concurrency   int     `mapstructure:"concurrency"`
	RateLimit     float64 `mapstructure:"rate_limit"`
	DefaultTarget string  `mapstructure:"default_target"`
}

// AnalysisConfig tunes the aggregation engine.
type AnalysisConfig struct {
	// WarningKeywords overrides the built-in diagnosis keyword vocabulary.
	WarningKeywords []string `mapstructure:"warning_keywords"`

	// LayersFile points at a YAML layer-topology override.
	LayersFile string `mapstructure:"layers_file"`
}

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Debug    bool           `mapstructure:"debug"`
}

// Load reads configuration with defaults, then an optional netcheck.yaml
// from the working directory or $HOME/.netcheck, then environment
// overrides (NETCHECK_SERVER_PORT etc.).
func Load(ctx context.Context) (*Config, error) {
	return LoadFile(ctx, "")
}

// LoadFile is Load with an explicit config file path. An empty path falls
// back to the default search locations; a missing explicit file is an error.
func LoadFile(_ context.Context, path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("jobs.max_retained", 50)
	v.SetDefault("jobs.default_timeout_seconds", 10)
	v.SetDefault("jobs.default_count", 4)
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("batch.rate_limit", 0)
	v.SetDefault("batch.default_target", "github.com")
	v.SetDefault("debug", false)

	v.SetEnvPrefix("NETCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("netcheck")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.netcheck")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}
