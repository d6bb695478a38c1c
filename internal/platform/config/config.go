package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Security  SecurityConfig  `mapstructure:"security"`
	Uploads   UploadsConfig   `mapstructure:"uploads"`
	QR        QRConfig        `mapstructure:"qr"`
	Store     StoreConfig     `mapstructure:"store"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	BaseURL         string        `mapstructure:"base_url"` // external origin used for long and short URLs
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type SecurityConfig struct {
	SecretKey    string        `mapstructure:"secret_key"`
	AdminKey     string        `mapstructure:"admin_key"`
	AdminKeyHash string        `mapstructure:"admin_key_hash"` // bcrypt, takes precedence over admin_key
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
}

type UploadsConfig struct {
	Root        string         `mapstructure:"root"`
	GlobalMaxMB int64          `mapstructure:"global_max_mb"`
	MaxMB       map[string]int `mapstructure:"max_mb"`
}

type QRConfig struct {
	Version     int    `mapstructure:"version"`
	Border      int    `mapstructure:"border"`
	DefaultECC  string `mapstructure:"default_ecc"`
	DefaultSize int    `mapstructure:"default_size"`
	PreviewSize int    `mapstructure:"preview_size"`
	MinSize     int    `mapstructure:"min_size"`
	MaxSize     int    `mapstructure:"max_size"`
}

type StoreConfig struct {
	Driver     string `mapstructure:"driver"` // file, sqlite, pebble
	Path       string `mapstructure:"path"`
	CodeLength int    `mapstructure:"code_length"`
}

type AnalyticsConfig struct {
	Path          string `mapstructure:"path"`
	Salt          string `mapstructure:"salt"`
	Timezone      string `mapstructure:"timezone"`
	RetentionDays int    `mapstructure:"retention_days"`
}

type RateLimitConfig struct {
	RenderPerMinute int `mapstructure:"render_per_minute"`
	UploadPerMinute int `mapstructure:"upload_per_minute"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.base_url", "http://localhost:5000")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("security.secret_key", "dev-secret-change-me")
	v.SetDefault("security.admin_key", "changeme")
	v.SetDefault("security.session_ttl", 12*time.Hour)

	v.SetDefault("uploads.root", "static")
	v.SetDefault("uploads.global_max_mb", 64)
	v.SetDefault("uploads.max_mb", map[string]int{"pdf": 10, "mp3": 15, "image": 5})

	v.SetDefault("qr.version", 10)
	v.SetDefault("qr.border", 4)
	v.SetDefault("qr.default_ecc", "H")
	v.SetDefault("qr.default_size", 1024)
	v.SetDefault("qr.preview_size", 512)
	v.SetDefault("qr.min_size", 64)
	v.SetDefault("qr.max_size", 4096)

	v.SetDefault("store.driver", "file")
	v.SetDefault("store.path", "data/shortlinks.json")
	v.SetDefault("store.code_length", 6)

	v.SetDefault("analytics.path", "data/analytics.json")
	v.SetDefault("analytics.salt", "change_me_salt")
	v.SetDefault("analytics.timezone", "Asia/Bangkok")
	v.SetDefault("analytics.retention_days", 60)

	v.SetDefault("rate_limit.render_per_minute", 120)
	v.SetDefault("rate_limit.upload_per_minute", 20)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Legacy environment variable names.
	v.BindEnv("security.secret_key", "SECRET_KEY")
	v.BindEnv("security.admin_key", "ADMIN_KEY")
	v.BindEnv("analytics.salt", "ANALYTICS_SALT")
	v.BindEnv("uploads.global_max_mb", "GLOBAL_MAX_UPLOAD_MB")
	return v
}

// DefaultPath is the config file the binaries read when no -config flag is given.
// It may be absent, in which case defaults and the environment apply.
const DefaultPath = "configs/config.yaml"

func optional(path string) string {
	if path != DefaultPath {
		return path
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return ""
	}
	return path
}

// Load reads the config file at path, if any, layered over defaults and the environment.
func Load(path string) (*Config, error) {
	path = optional(path)
	v := newViper(path)
	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// Watch reloads the config file on change and hands the new value to fn.
// Decode failures keep the previous config.
func Watch(path string, fn func(*Config)) error {
	path = optional(path)
	if path == "" {
		return nil
	}
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err != nil {
			return
		}
		fn(cfg)
	})
	v.WatchConfig()
	return nil
}
