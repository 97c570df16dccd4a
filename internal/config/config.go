// Package config loads studywise.yaml, the per-vault CLI configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/studywise/pkg/adapters/fs"
	"github.com/aretw0/studywise/pkg/review"
)

// FileName is the config file looked up at the vault root. The fs adapter
// never lists it as a document.
const FileName = fs.ConfigFile

// Adapter names.
const (
	AdapterFS     = "fs"
	AdapterRedis  = "redis"
	AdapterSQLite = "sqlite"
)

// Config represents studywise.yaml.
type Config struct {
	Version string        `yaml:"version"`
	Storage StorageConfig `yaml:"storage"`
	AI      AIConfig      `yaml:"ai"`
	Review  ReviewConfig  `yaml:"review"`
}

// StorageConfig selects and tunes the document store.
type StorageConfig struct {
	Adapter string `yaml:"adapter"`
	// Versioning commits every write to git (fs only). Nil means on.
	Versioning *bool         `yaml:"versioning,omitempty"`
	Strict     bool          `yaml:"strict,omitempty"`
	SystemDir  string        `yaml:"system_dir,omitempty"`
	Redis      *RedisConfig  `yaml:"redis,omitempty"`
	SQLite     *SQLiteConfig `yaml:"sqlite,omitempty"`
}

// RedisConfig points at a Redis server.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password,omitempty"`
	DB        int    `yaml:"db,omitempty"`
	Namespace string `yaml:"namespace,omitempty"`
}

// SQLiteConfig locates the database file, relative to the vault root.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// AIConfig configures the generative model.
type AIConfig struct {
	Model       string   `yaml:"model,omitempty"`
	APIKey      string   `yaml:"api_key,omitempty"`
	Temperature *float32 `yaml:"temperature,omitempty"`
	// Concurrency bounds parallel flashcard generation for a whole course.
	Concurrency int `yaml:"concurrency,omitempty"`
}

// ReviewConfig tunes the terminal review view.
type ReviewConfig struct {
	Width int  `yaml:"width,omitempty"`
	Plain bool `yaml:"plain,omitempty"`
	// Style is a glamour standard style ("dark", "light", "dracula", ...)
	// or "auto" to follow the terminal background.
	Style string `yaml:"style,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	c := &Config{Version: "1"}
	c.applyDefaults()
	return c
}

// Load reads, defaults and validates the config at path.
// A missing file yields Default with environment overrides applied.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		c := Default()
		if err := c.ApplyEnv(); err != nil {
			return nil, err
		}
		return c, c.Validate()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// LoadDir loads FileName from a vault root.
func LoadDir(root string) (*Config, error) {
	return Load(filepath.Join(root, FileName))
}

// Parse decodes YAML, then applies defaults, environment overrides and validation.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	c.applyDefaults()
	if err := c.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Version == "" {
		c.Version = "1"
	}
	if c.Storage.Adapter == "" {
		c.Storage.Adapter = AdapterFS
	}
	if c.AI.Concurrency == 0 {
		c.AI.Concurrency = 4
	}
	if c.Review.Width == 0 {
		c.Review.Width = 80
	}
}

// ApplyEnv overlays STUDYWISE_* variables and the Gemini key variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("STUDYWISE_ADAPTER"); v != "" {
		c.Storage.Adapter = v
	}
	if v := os.Getenv("STUDYWISE_REDIS_ADDR"); v != "" {
		if c.Storage.Redis == nil {
			c.Storage.Redis = &RedisConfig{}
		}
		c.Storage.Redis.Addr = v
	}
	if v := os.Getenv("STUDYWISE_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STUDYWISE_REDIS_DB: %w", err)
		}
		if c.Storage.Redis == nil {
			c.Storage.Redis = &RedisConfig{}
		}
		c.Storage.Redis.DB = db
	}
	if v := os.Getenv("STUDYWISE_REVIEW_STYLE"); v != "" {
		c.Review.Style = v
	}
	if v := os.Getenv("STUDYWISE_MODEL"); v != "" {
		c.AI.Model = v
	}
	if c.AI.APIKey == "" {
		if v := os.Getenv("GEMINI_API_KEY"); v != "" {
			c.AI.APIKey = v
		} else {
			c.AI.APIKey = os.Getenv("GOOGLE_API_KEY")
		}
	}
	return nil
}

// Validate performs strict validation on the configuration.
func (c *Config) Validate() error {
	if c.Version != "1" {
		return fmt.Errorf("unsupported version: %s (expected: 1)", c.Version)
	}

	switch c.Storage.Adapter {
	case AdapterFS:
	case AdapterRedis:
		if c.Storage.Redis == nil || c.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr is required for the redis adapter")
		}
		if c.Storage.Redis.DB < 0 {
			return fmt.Errorf("storage.redis.db must be >= 0, got %d", c.Storage.Redis.DB)
		}
	case AdapterSQLite:
	default:
		return fmt.Errorf("unknown storage.adapter '%s' (want fs, redis or sqlite)", c.Storage.Adapter)
	}

	if t := c.AI.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("ai.temperature must be between 0 and 2, got %g", *t)
	}
	if c.AI.Concurrency < 1 {
		return fmt.Errorf("ai.concurrency must be >= 1, got %d", c.AI.Concurrency)
	}
	if c.Review.Width < 20 {
		return fmt.Errorf("review.width must be >= 20, got %d", c.Review.Width)
	}
	if !review.ValidStyle(c.Review.Style) {
		return fmt.Errorf("unknown review.style '%s' (want one of %s)", c.Review.Style, strings.Join(review.Styles, ", "))
	}
	return nil
}

// VersioningEnabled reports whether fs writes are committed to git.
func (c *Config) VersioningEnabled() bool {
	return c.Storage.Versioning == nil || *c.Storage.Versioning
}

// SQLitePath returns the database file for root.
func (c *Config) SQLitePath(root string) string {
	p := "studywise.db"
	if c.Storage.SQLite != nil && c.Storage.SQLite.Path != "" {
		p = c.Storage.SQLite.Path
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// Save writes c to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
