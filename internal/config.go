package internal

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/tuannm99/novastore/internal/bufferpool"
)

type StoreConfig struct {
	AppName string `mapstructure:"app_name"`

	Storage struct {
		DBFile string `mapstructure:"db_file"`
	} `mapstructure:"storage"`

	BufferPool struct {
		PoolSize int    `mapstructure:"pool_size"`
		Replacer string `mapstructure:"replacer"`
	} `mapstructure:"bufferpool"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "novastore")
	v.SetDefault("storage.db_file", "./data/novastore.db")
	v.SetDefault("bufferpool.pool_size", bufferpool.DefaultPoolSize)
	v.SetDefault("bufferpool.replacer", bufferpool.ReplacerLRU)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// LoadConfig reads a YAML config file. An empty path yields the defaults.
// NOVASTORE_* environment variables override both, e.g.
// NOVASTORE_BUFFERPOOL_POOL_SIZE=16.
func LoadConfig(path string) (*StoreConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("novastore")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg StoreConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *StoreConfig) Validate() error {
	if c.Storage.DBFile == "" {
		return fmt.Errorf("config: storage.db_file is required")
	}
	if c.BufferPool.PoolSize < 0 {
		return fmt.Errorf("config: bufferpool.pool_size must be >= 0, got %d", c.BufferPool.PoolSize)
	}
	if _, err := bufferpool.NewReplacer(c.BufferPool.Replacer, 1); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown log.format %q", c.Log.Format)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("config: unknown log.level %q", s)
	}
}

// NewLogger builds the slog logger described by the log section.
func (c *StoreConfig) NewLogger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if c.Log.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("app", c.AppName)
}
