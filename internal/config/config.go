// Package config loads and validates sync configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultSourceURL is the built-in listing page: the Queensland Recognised
// standards index.
const DefaultSourceURL = "https://www.business.qld.gov.au/industries/mining-energy-water/resources/safety-health/mining/legislation-standards/recognised-standards"

// Config captures all tool configuration knobs loaded via Viper.
type Config struct {
	Source  SourceConfig  `mapstructure:"source"`
	Sync    SyncConfig    `mapstructure:"sync"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Chunk   ChunkConfig   `mapstructure:"chunk"`
	Index   IndexConfig   `mapstructure:"index"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SourceConfig identifies the remote corpus.
type SourceConfig struct {
	URL       string `mapstructure:"url"`
	UserAgent string `mapstructure:"user_agent"`
}

// SyncConfig governs the sync run itself.
type SyncConfig struct {
	OutDir       string `mapstructure:"outdir"`
	ManifestPath string `mapstructure:"manifest_path"`
	Force        bool   `mapstructure:"force"`
	Concurrency  int    `mapstructure:"concurrency"`
}

// HTTPConfig configures timeouts and retry behavior.
type HTTPConfig struct {
	MetadataTimeout time.Duration `mapstructure:"metadata_timeout"`
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	BackoffBase     float64       `mapstructure:"backoff_base"`
	BackoffScale    time.Duration `mapstructure:"backoff_scale"`
}

// ChunkConfig sizes the text chunks handed to the indexing gateway.
type ChunkConfig struct {
	Size    int `mapstructure:"size"`
	Overlap int `mapstructure:"overlap"`
}

// IndexConfig selects and configures the indexing gateway backend.
type IndexConfig struct {
	Provider string              `mapstructure:"provider"`
	JSONL    JSONLIndexConfig    `mapstructure:"jsonl"`
	Postgres PostgresIndexConfig `mapstructure:"postgres"`
}

// JSONLIndexConfig configures the filesystem gateway.
type JSONLIndexConfig struct {
	Dir string `mapstructure:"dir"`
}

// PostgresIndexConfig configures the Postgres gateway.
type PostgresIndexConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// MetricsConfig controls the optional metrics listener.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment. An empty path skips the
// config file and relies on defaults and SYNC_* environment variables.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.url", DefaultSourceURL)
	v.SetDefault("source.user_agent", "standards-sync/1.0 (+https://github.com/JakeFAU/standards-sync)")
	v.SetDefault("sync.outdir", "./data/pdfs")
	v.SetDefault("sync.manifest_path", "./data/manifest.json")
	v.SetDefault("sync.force", false)
	v.SetDefault("sync.concurrency", 4)
	v.SetDefault("http.metadata_timeout", "25s")
	v.SetDefault("http.download_timeout", "120s")
	v.SetDefault("http.max_attempts", 3)
	v.SetDefault("http.backoff_base", 1.8)
	v.SetDefault("http.backoff_scale", "300ms")
	v.SetDefault("chunk.size", 1500)
	v.SetDefault("chunk.overlap", 150)
	v.SetDefault("index.provider", "jsonl")
	v.SetDefault("index.jsonl.dir", "./data/chunks")
	v.SetDefault("index.postgres.table", "chunks")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Source.URL == "" {
		return fmt.Errorf("source.url must be set")
	}
	if c.Sync.OutDir == "" {
		return fmt.Errorf("sync.outdir must be set")
	}
	if c.Sync.ManifestPath == "" {
		return fmt.Errorf("sync.manifest_path must be set")
	}
	if c.Sync.Concurrency <= 0 {
		return fmt.Errorf("sync.concurrency must be > 0")
	}
	if c.HTTP.MaxAttempts <= 0 {
		return fmt.Errorf("http.max_attempts must be > 0")
	}
	if c.Chunk.Size <= 0 {
		return fmt.Errorf("chunk.size must be > 0")
	}
	if c.Chunk.Overlap < 0 {
		return fmt.Errorf("chunk.overlap must be >= 0")
	}
	if c.Chunk.Overlap >= c.Chunk.Size {
		return fmt.Errorf("chunk.overlap must be smaller than chunk.size")
	}
	switch c.Index.Provider {
	case "jsonl":
		if c.Index.JSONL.Dir == "" {
			return fmt.Errorf("index.jsonl.dir must be set")
		}
	case "postgres":
		if c.Index.Postgres.DSN == "" {
			return fmt.Errorf("index.postgres.dsn must be set when index.provider is 'postgres'")
		}
	default:
		return fmt.Errorf("unknown index provider: %s", c.Index.Provider)
	}
	return nil
}
