package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v2"
)

type App struct {
	Port      int    `yaml:"port"`
	DebugHTTP bool   `yaml:"debug_http,omitempty"` // Log full request/response bodies
	LogLevel  string `yaml:"log_level,omitempty"`  // debug, info, warn, error (default: info)
}

type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"apikey"`
	UseTLS     bool   `yaml:"use_tls,omitempty"`
	Collection string `yaml:"collection"` // Empty means a fresh collection is generated on startup
	Recreate   bool   `yaml:"recreate,omitempty"` // Drop an existing collection and its duplicate filter on startup
}

// EmbeddingProvider selects the embedding model backend
type EmbeddingProvider string

const (
	ProviderClip   EmbeddingProvider = "clip"
	ProviderOpenAI EmbeddingProvider = "openai"
)

type EmbeddingConfig struct {
	Provider       EmbeddingProvider `yaml:"provider"`
	URL            string            `yaml:"url"`
	APIKey         string            `yaml:"apikey"`
	Model          string            `yaml:"model"`
	Dimension      int               `yaml:"dimension"`
	Distance       string            `yaml:"distance"` // cosine, dot, euclid, manhattan
	TimeoutSeconds int               `yaml:"timeout_seconds,omitempty"`
}

// ThumbnailConfig bounds the footprint of images stored as payload.
// A zero width or height disables thumbnailing.
type ThumbnailConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type DedupConfig struct {
	Enabled           bool    `yaml:"enabled"`
	StorageDir        string  `yaml:"storage_dir"`
	ExpectedItems     uint    `yaml:"expected_items"`
	FalsePositiveRate float64 `yaml:"false_positive_rate"`
}

type IndexingConfig struct {
	Workers   int         `yaml:"workers"`    // Concurrent indexing jobs
	QueueSize int         `yaml:"queue_size"` // Jobs buffered before Submit blocks
	BatchSize int         `yaml:"batch_size"` // Objects per Put call
	Dedup     DedupConfig `yaml:"dedup"`
}

type Config struct {
	App       App             `yaml:"app"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Thumbnail ThumbnailConfig `yaml:"thumbnail"`
	Indexing  IndexingConfig  `yaml:"indexing"`
}

var validDistances = map[string]bool{
	"cosine":    true,
	"dot":       true,
	"euclid":    true,
	"euclidean": true,
	"manhattan": true,
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := newConfig()
	cfg.applyDefaults()
	return cfg
}

// newConfig seeds values whose zero value is meaningful, so YAML can still
// set them to zero explicitly
func newConfig() *Config {
	return &Config{
		Thumbnail: ThumbnailConfig{Width: 256, Height: 256},
	}
}

func (c *Config) applyDefaults() {
	if c.App.Port == 0 {
		c.App.Port = 8080
	}
	if c.Qdrant.Host == "" {
		c.Qdrant.Host = "localhost"
	}
	if c.Qdrant.Port == 0 {
		c.Qdrant.Port = 6334
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderClip
	}
	if c.Embedding.TimeoutSeconds == 0 {
		c.Embedding.TimeoutSeconds = 60
	}
	if c.Indexing.Workers == 0 {
		c.Indexing.Workers = 2
	}
	if c.Indexing.QueueSize == 0 {
		c.Indexing.QueueSize = 64
	}
	if c.Indexing.BatchSize == 0 {
		c.Indexing.BatchSize = 32
	}
	if c.Indexing.Dedup.ExpectedItems == 0 {
		c.Indexing.Dedup.ExpectedItems = 1000000
	}
	if c.Indexing.Dedup.FalsePositiveRate == 0 {
		c.Indexing.Dedup.FalsePositiveRate = 0.01
	}
	if c.Indexing.Dedup.StorageDir == "" {
		c.Indexing.Dedup.StorageDir = "./bloom_filters"
	}
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case ProviderClip, ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.Embedding.Provider)
	}
	if c.Embedding.Distance != "" && !validDistances[strings.ToLower(strings.TrimSpace(c.Embedding.Distance))] {
		return fmt.Errorf("unsupported distance metric: %s", c.Embedding.Distance)
	}
	if c.Thumbnail.Width < 0 || c.Thumbnail.Height < 0 {
		return fmt.Errorf("thumbnail size must not be negative: %dx%d", c.Thumbnail.Width, c.Thumbnail.Height)
	}
	if c.Indexing.Workers < 0 || c.Indexing.QueueSize < 0 || c.Indexing.BatchSize < 0 {
		return fmt.Errorf("indexing workers, queue_size and batch_size must not be negative")
	}
	return nil
}

// expandEnvVars expands environment variables in the given string
// Supports formats: ${VAR}, $VAR, ${VAR:-default}
func expandEnvVars(s string) string {
	reBraces := regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)
	s = reBraces.ReplaceAllStringFunc(s, func(match string) string {
		parts := reBraces.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if val, ok := os.LookupEnv(parts[1]); ok {
			return val
		}
		if len(parts) >= 4 {
			return parts[3]
		}
		return ""
	})

	// Unset $VAR references are left untouched
	reSimple := regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	return reSimple.ReplaceAllStringFunc(s, func(match string) string {
		parts := reSimple.FindStringSubmatch(match)
		if len(parts) >= 2 {
			if val, ok := os.LookupEnv(parts[1]); ok {
				return val
			}
		}
		return match
	})
}

// Parse decodes a YAML document, expanding environment variables first
func Parse(data []byte) (*Config, error) {
	data = []byte(expandEnvVars(string(data)))

	cfg := newConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}
