package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the full docdex configuration. Numeric and string zero values
// mean "use the component default", so an empty file (or no file at all)
// is a working configuration; only vector.url has no default.
type Config struct {
	Log struct {
		Level     string `yaml:"level"`      // debug, info, warn, error (default info)
		JSON      bool   `yaml:"json"`       // JSON handler instead of text
		AddSource bool   `yaml:"add_source"` // annotate records with file:line
	} `yaml:"log"`

	Store struct {
		Path string `yaml:"path"` // SQLite file (default ~/.docdex/docdex.db)
	} `yaml:"store"`

	Vector struct {
		URL        string `yaml:"url"` // Postgres connection string, required
		Collection string `yaml:"collection"`
		Dimension  int    `yaml:"dimension"`
	} `yaml:"vector"`

	Embedding struct {
		Provider          string  `yaml:"provider"` // jina, openai, local
		Model             string  `yaml:"model"`
		APIKey            string  `yaml:"api_key"`
		BaseURL           string  `yaml:"base_url"`
		BatchSize         int     `yaml:"batch_size"`
		MinBatchSize      int     `yaml:"min_batch_size"`
		RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 disables rate limiting
		CacheSize         int     `yaml:"cache_size"`          // negative disables the embedding cache
	} `yaml:"embedding"`

	Queue struct {
		Concurrency     int `yaml:"concurrency"`
		PollIntervalMS  int `yaml:"poll_interval_ms"`
		MaxRetries      int `yaml:"max_retries"` // negative disables retries
		RetryDelayMS    int `yaml:"retry_delay_ms"`
		DefaultPriority int `yaml:"default_priority"`
	} `yaml:"queue"`

	Segment struct {
		TargetSize int `yaml:"target_size"`
		Overlap    int `yaml:"overlap"`
		MinSize    int `yaml:"min_size"`
	} `yaml:"segment"`
}

// Load reads the configuration from path. An empty path falls back to
// $DOCDEX_CONFIG and then the default locations; if no file is found the
// returned Config carries only defaults and environment overrides. A path
// that was named explicitly must exist.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("DOCDEX_CONFIG")
	}
	if path == "" {
		for _, loc := range defaultLocations() {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	mergeWithEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func defaultLocations() []string {
	locs := []string{"docdex.yaml", "docdex.yml"}
	if home, err := os.UserHomeDir(); err == nil {
		locs = append(locs, filepath.Join(home, ".config", "docdex", "config.yaml"))
	}
	return append(locs, "/etc/docdex/config.yaml")
}

// applyDefaults fills only the fields whose defaults live here rather than
// in a component: everything else flows through as zero and lets the
// owning package pick its own default.
func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = defaultStorePath()
	}
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "docdex.db"
	}
	return filepath.Join(home, ".docdex", "docdex.db")
}

func mergeWithEnv(cfg *Config) {
	if path := os.Getenv("DOCDEX_DB_PATH"); path != "" {
		cfg.Store.Path = path
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Vector.URL = url
	}
	if provider := os.Getenv("DOCDEX_EMBEDDING_PROVIDER"); provider != "" {
		cfg.Embedding.Provider = provider
	}
}
