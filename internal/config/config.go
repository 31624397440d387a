// Package config loads dashboard settings from defaults, a YAML file and
// TASKDASH_ environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds the dashboard's settings.
type Config struct {
	APIURL     string
	EventsPath string
	WebURL     string
	SessionDir string
	HTTP       HTTPConfig
	Cache      CacheConfig
	Toast      ToastConfig
	Log        LogConfig
}

// HTTPConfig holds API client settings.
type HTTPConfig struct {
	Timeout time.Duration // 0 waits for the transport
}

// CacheConfig holds query cache settings.
type CacheConfig struct {
	StaleTime time.Duration
}

// ToastConfig holds notification display settings.
type ToastConfig struct {
	Duration time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
	File   string
}

// EnvPrefix prefixes every environment override, e.g. TASKDASH_API_URL.
const EnvPrefix = "TASKDASH"

const defaultDir = "~/.taskdash"

// Option adjusts how Load finds its file.
type Option func(*viper.Viper)

// WithFile reads settings from path instead of searching for a file.
func WithFile(path string) Option {
	return func(v *viper.Viper) { v.SetConfigFile(path) }
}

// Load reads configuration.
// Priority (highest to lowest):
// 1. Environment variables with TASKDASH_ prefix (e.g., TASKDASH_LOG_LEVEL)
// 2. ./taskdash.yaml, or ~/.taskdash/config.yaml
// 3. Built-in defaults
func Load(opts ...Option) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if _, err := os.Stat("taskdash.yaml"); err == nil {
		v.SetConfigFile("taskdash.yaml")
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(expandHome(defaultDir))
	}
	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
	}
	for _, opt := range opts {
		opt(v)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config.Load: read config file: %w", err)
		}
		// No file is fine: defaults and env vars apply.
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		APIURL:     strings.TrimRight(v.GetString("api_url"), "/"),
		EventsPath: v.GetString("events_path"),
		WebURL:     v.GetString("web_url"),
		SessionDir: expandHome(v.GetString("session_dir")),
		HTTP:       HTTPConfig{Timeout: v.GetDuration("http.timeout")},
		Cache:      CacheConfig{StaleTime: v.GetDuration("cache.stale_time")},
		Toast:      ToastConfig{Duration: v.GetDuration("toast.duration")},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			File:   expandHome(v.GetString("log.file")),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", "http://localhost:5000")
	v.SetDefault("events_path", "/api/events")
	v.SetDefault("web_url", "http://localhost:3000")
	v.SetDefault("session_dir", defaultDir)
	v.SetDefault("http.timeout", time.Duration(0))
	v.SetDefault("cache.stale_time", time.Duration(0))
	v.SetDefault("toast.duration", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", defaultDir+"/taskdash.log")
}

func (c *Config) validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: api_url must be an http(s) URL, got %q", c.APIURL)
	}
	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("config: http.timeout must not be negative")
	}
	if c.Toast.Duration <= 0 {
		return fmt.Errorf("config: toast.duration must be positive")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
