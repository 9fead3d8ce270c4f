package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MegaGrindStone/go-topic-tree/handler"
	"github.com/MegaGrindStone/go-topic-tree/llm"
	"gopkg.in/yaml.v2"
)

// Config is the service configuration, read from YAML and overridden by environment variables.
type Config struct {
	Server     ServerConfig             `yaml:"server"`
	LLM        llm.Config               `yaml:"llm"`
	Retry      llm.RetryPolicy          `yaml:"retry"`
	Breaker    llm.BreakerSettings      `yaml:"breaker"`
	Generation handler.GenerationConfig `yaml:"generation"`
	Cache      CacheConfig              `yaml:"cache"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// CacheConfig selects the LLM response cache.
type CacheConfig struct {
	// Backend is one of none, bolt or redis.
	Backend string        `yaml:"backend"`
	TTL     time.Duration `yaml:"ttl"`

	BoltPath string `yaml:"bolt_path"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

const (
	CacheNone  = "none"
	CacheBolt  = "bolt"
	CacheRedis = "redis"
)

// Default returns the configuration used for every value the YAML file and environment leave out.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8000",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    10 * time.Minute,
			IdleTimeout:     2 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		LLM: llm.Config{
			Provider:       llm.ProviderOpenAI,
			Host:           "http://localhost:11434",
			DefaultModel:   "gpt-4.1-mini",
			RequestTimeout: 2 * time.Minute,
		},
		Retry:      llm.DefaultRetryPolicy(),
		Breaker:    llm.DefaultBreakerSettings(),
		Generation: handler.DefaultGenerationConfig(),
		Cache: CacheConfig{
			Backend:  CacheNone,
			TTL:      24 * time.Hour,
			BoltPath: "topictree-cache.db",
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads the YAML file at path on top of Default, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	set(&c.LLM.APIKey, "OPENAI_API_KEY")
	set(&c.LLM.BaseURL, "OPENAI_BASE_URL")
	set(&c.LLM.Host, "OLLAMA_HOST")
	set(&c.LLM.Provider, "LLM_PROVIDER")
	set(&c.LLM.DefaultModel, "TOPICTREE_DEFAULT_MODEL")
	set(&c.Server.Address, "TOPICTREE_ADDRESS")
	set(&c.Cache.Backend, "TOPICTREE_CACHE")
	set(&c.Cache.RedisAddr, "REDIS_ADDR")
	set(&c.Cache.RedisPassword, "REDIS_PASSWORD")
	set(&c.LogLevel, "LOG_LEVEL")
	set(&c.LogFormat, "LOG_FORMAT")

	if v := getenv("TOPICTREE_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid TOPICTREE_CONCURRENCY %q: %w", v, err)
		}
		c.Generation.Concurrency = n
	}

	return nil
}

// Validate checks the values that cannot be fixed up by defaults.
func (c Config) Validate() error {
	var errs []error

	switch c.LLM.Provider {
	case llm.ProviderOpenAI, llm.ProviderOllama:
	default:
		errs = append(errs, fmt.Errorf("llm.provider must be %s or %s, got %q",
			llm.ProviderOpenAI, llm.ProviderOllama, c.LLM.Provider))
	}

	switch c.Cache.Backend {
	case CacheNone, "":
	case CacheBolt:
		if c.Cache.BoltPath == "" {
			errs = append(errs, errors.New("cache.bolt_path is required for the bolt cache"))
		}
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			errs = append(errs, errors.New("cache.redis_addr is required for the redis cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend must be none, bolt or redis, got %q", c.Cache.Backend))
	}

	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry.max_attempts must be at least 1"))
	}
	if c.Generation.Concurrency < 1 {
		errs = append(errs, errors.New("generation.concurrency must be at least 1"))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json", "":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

// SlogLevel returns the log level named by LogLevel, info when unknown.
func (c Config) SlogLevel() slog.Level {
	// Set log level based on configuration
	logLevel := slog.LevelInfo
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	return logLevel
}

// NewLogger creates the process logger writing to w.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
