package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the cinematch API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Search     SearchConfig     `yaml:"search"`
	Ranking    RankingConfig    `yaml:"ranking"`
	Cache      CacheConfig      `yaml:"cache"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int    `yaml:"port"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"`
	ShutdownSec     int    `yaml:"shutdown_timeout_sec"`
	CORSOrigin      string `yaml:"cors_origin"`
}

// CatalogConfig points at the movie and review JSON files.
type CatalogConfig struct {
	MoviesPath  string `yaml:"movies_path"`
	ReviewsPath string `yaml:"reviews_path"`
}

// EmbeddingConfig holds the query embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// ClassifierConfig holds the sentiment classifier provider settings.
type ClassifierConfig struct {
	Provider  string `yaml:"provider"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	BatchSize int    `yaml:"batch_size"`
}

// ProvidersConfig bounds calls into both model providers.
type ProvidersConfig struct {
	MaxInFlight int           `yaml:"max_in_flight"`
	TimeoutSec  int           `yaml:"timeout_sec"`
	Breaker     BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	Failures int `yaml:"failures"`
	OpenSec  int `yaml:"open_sec"`
}

// SearchConfig holds semantic search defaults.
type SearchConfig struct {
	TopK        int `yaml:"top_k"`
	InitialTopK int `yaml:"initial_top_k"`
}

// RankingConfig holds sentiment ranking settings.
type RankingConfig struct {
	TimeoutSec    int `yaml:"timeout_sec"`
	MaxIterations int `yaml:"max_iterations"`
	SortedLimit   int `yaml:"sorted_limit"`
	Workers       int `yaml:"workers"`
}

// CacheConfig holds the embedding cache store and review cache settings.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // none, redis (default: none)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	EmbeddingTTLSec  int      `yaml:"embedding_ttl_sec"` // 0 = no expiry
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	Warmup           bool     `yaml:"warmup"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.CORSOrigin == "" {
		c.HTTP.CORSOrigin = "*"
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Classifier.Provider == "" {
		c.Classifier.Provider = "openai"
	}
	if c.Classifier.BatchSize <= 0 {
		c.Classifier.BatchSize = 32
	}
	if c.Providers.MaxInFlight <= 0 {
		c.Providers.MaxInFlight = 8
	}
	if c.Providers.TimeoutSec <= 0 {
		c.Providers.TimeoutSec = 30
	}
	if c.Providers.Breaker.Failures <= 0 {
		c.Providers.Breaker.Failures = 5
	}
	if c.Providers.Breaker.OpenSec <= 0 {
		c.Providers.Breaker.OpenSec = 30
	}
	if c.Search.TopK <= 0 {
		c.Search.TopK = 9
	}
	if c.Search.InitialTopK <= 0 {
		c.Search.InitialTopK = 15
	}
	if c.Ranking.TimeoutSec <= 0 {
		c.Ranking.TimeoutSec = 10
	}
	if c.Ranking.MaxIterations <= 0 {
		c.Ranking.MaxIterations = 200
	}
	if c.Ranking.SortedLimit <= 0 {
		c.Ranking.SortedLimit = 21
	}
	if c.Ranking.Workers <= 0 {
		c.Ranking.Workers = 4
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "none"
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Catalog.MoviesPath == "" {
		return fmt.Errorf("catalog.movies_path is required")
	}
	if c.Catalog.ReviewsPath == "" {
		return fmt.Errorf("catalog.reviews_path is required")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Classifier.Model == "" {
		return fmt.Errorf("classifier.model is required")
	}
	if c.Search.TopK > c.Search.InitialTopK {
		return fmt.Errorf("search.top_k (%d) must not exceed search.initial_top_k (%d)",
			c.Search.TopK, c.Search.InitialTopK)
	}
	switch c.Cache.Driver {
	case "none":
	case "redis":
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for driver %q", c.Cache.Driver)
		}
	default:
		return fmt.Errorf("cache.driver must be \"none\" or \"redis\", got %q", c.Cache.Driver)
	}
	return nil
}

// ProviderTimeout returns the per-call provider deadline.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Providers.TimeoutSec) * time.Second
}

// BreakerOpen returns how long an open circuit rejects calls.
func (c *Config) BreakerOpen() time.Duration {
	return time.Duration(c.Providers.Breaker.OpenSec) * time.Second
}

// RankingTimeout returns the deadline of a single ranking.
func (c *Config) RankingTimeout() time.Duration {
	return time.Duration(c.Ranking.TimeoutSec) * time.Second
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
