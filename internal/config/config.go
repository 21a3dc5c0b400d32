package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr        string `yaml:"addr"`
		Password    string `yaml:"password"`
		DB          int    `yaml:"db"`
		TTL         string `yaml:"ttl"`
		ProgressTTL string `yaml:"progress_ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz    Quiz    `yaml:"quiz"`
	OpenTDB OpenTDB `yaml:"opentdb"`
	Log     Log     `yaml:"log"`
}

// Quiz selects the question source and the shape of each session.
// Source is one of "opentdb", "static" or "postgres".
type Quiz struct {
	Source     string `yaml:"source"`
	Amount     int    `yaml:"amount"`
	Category   int    `yaml:"category"`
	Difficulty string `yaml:"difficulty"`
	TimeLimit  int    `yaml:"time_limit"`
	CacheTTL   string `yaml:"cache_ttl"`
}

type OpenTDB struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
	// MaxRetries is nil when unset; an explicit 0 disables retries.
	MaxRetries *uint64 `yaml:"max_retries"`
}

const defaultOpenTDBRetries = 3

// Retries returns the configured retry budget, or the default when unset.
func (o OpenTDB) Retries() uint64 {
	if o.MaxRetries == nil {
		return defaultOpenTDBRetries
	}
	return *o.MaxRetries
}

type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

const (
	SourceOpenTDB  = "opentdb"
	SourceStatic   = "static"
	SourcePostgres = "postgres"
)

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{}.WithDefaults()
}

// WithDefaults fills unset quiz and logging settings.
func (c Config) WithDefaults() Config {
	if c.Quiz.Source == "" {
		c.Quiz.Source = SourceOpenTDB
	}
	if c.Quiz.Amount <= 0 {
		c.Quiz.Amount = 10
	}
	if c.Quiz.Category == 0 {
		c.Quiz.Category = 30
	}
	if c.Quiz.Difficulty == "" {
		c.Quiz.Difficulty = "easy"
	}
	if c.Quiz.TimeLimit <= 0 {
		c.Quiz.TimeLimit = 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	return c
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg.WithDefaults(), nil
}

// LoadOrDefault is Load, except a missing file yields Default.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil && os.IsNotExist(err) {
		return Default(), nil
	}
	return cfg, err
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
