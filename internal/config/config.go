// Package config loads reroll settings from defaults, an optional config
// file, REROLL_* environment variables and command-line flags, in that
// order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment variable, e.g. REROLL_REDIS_ADDR.
const EnvPrefix = "REROLL"

// FileNames are the project config files searched for, in preference order.
var FileNames = []string{"reroll.yaml", "reroll.yml", "reroll.toml"}

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Corpus    string        `mapstructure:"corpus"`
	ListsDir  string        `mapstructure:"lists_dir"`
	Store     string        `mapstructure:"store"`
	StorePath string        `mapstructure:"store_path"`
	Redis     RedisConfig   `mapstructure:"redis"`
	History   HistoryConfig `mapstructure:"history"`
	LogLevel  string        `mapstructure:"log_level"`
	HTTP      HTTPConfig    `mapstructure:"http"`
	Metrics   bool          `mapstructure:"metrics"`
	MaxDepth  int           `mapstructure:"max_depth"`
	// Seed of 0 means unseeded.
	Seed uint64 `mapstructure:"seed"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type HistoryConfig struct {
	Limit int `mapstructure:"limit"`
}

type HTTPConfig struct {
	Port int `mapstructure:"port"`
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("corpus", "")
	v.SetDefault("lists_dir", "")
	v.SetDefault("store", StoreFile)
	v.SetDefault("store_path", "")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)
	v.SetDefault("history.limit", 100)
	v.SetDefault("log_level", "info")
	v.SetDefault("http.port", 8080)
	v.SetDefault("metrics", true)
	v.SetDefault("max_depth", 32)
	v.SetDefault("seed", 0)
}

// New builds a viper instance with defaults and environment binding.
// When configFile is empty the working directory is searched for one of
// FileNames; a missing project file is not an error.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if configFile == "" {
		configFile = findProjectConfig()
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}
	return v, nil
}

// BindFlags lets command-line flags override every other source.
// Flag names use dashes where keys use underscores or dots
// (--store-path for store_path, --redis-addr for redis.addr).
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var errs []error
	flags.VisitAll(func(f *pflag.Flag) {
		key := flagKey(f.Name)
		if !isKey(key) {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

// Load unmarshals and validates the settings held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no command could run with.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreFile, StoreRedis, StoreSQLite:
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalid, c.Store)
	}
	if c.Store == StoreSQLite && c.StorePath == "" {
		return fmt.Errorf("%w: store_path is required for the sqlite store", ErrInvalid)
	}
	if c.History.Limit < 0 {
		return fmt.Errorf("%w: history.limit must not be negative", ErrInvalid)
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("%w: http.port %d out of range", ErrInvalid, c.HTTP.Port)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("%w: max_depth must not be negative", ErrInvalid)
	}
	return nil
}

// CorpusPath is the source the engine loads: the corpus file when set,
// otherwise the lists directory.
func (c *Config) CorpusPath() string {
	if c.Corpus != "" {
		return c.Corpus
	}
	return c.ListsDir
}

var keys = map[string]bool{
	"corpus": true, "lists_dir": true, "store": true, "store_path": true,
	"redis.addr": true, "redis.password": true, "redis.db": true, "redis.ttl": true,
	"history.limit": true, "log_level": true, "http.port": true,
	"metrics": true, "max_depth": true, "seed": true,
}

func isKey(key string) bool { return keys[key] }

func flagKey(name string) string {
	for _, section := range []string{"redis", "history", "http"} {
		if rest, ok := strings.CutPrefix(name, section+"-"); ok {
			return section + "." + strings.ReplaceAll(rest, "-", "_")
		}
	}
	return strings.ReplaceAll(name, "-", "_")
}

// findProjectConfig walks up from the working directory looking for a
// reroll config file and returns the first one found.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
