package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Error reports a missing required configuration value. It is the only error
// class that is fatal at process start.
type Error struct {
	Field string
}

func (e *Error) Error() string {
	return fmt.Sprintf("missing required config: %s", e.Field)
}

// Config carries every externally supplied setting. It is loaded once at
// startup, validated, and passed explicitly into constructors.
type Config struct {
	LogLevel   string `yaml:"log_level"`
	ListenAddr string `yaml:"listen_addr"`

	LLMProvider  string `yaml:"llm_provider"`
	LLMHost      string `yaml:"llm_host"`
	OpenAIAPIKey string `yaml:"openai_api_key"`
	Model        string `yaml:"model"`

	TwitterBearerToken string `yaml:"twitter_bearer_token"`
	PinataAPIKey       string `yaml:"pinata_api_key"`

	DatabaseURL string `yaml:"database_url"`

	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	PostCacheTTL  time.Duration `yaml:"post_cache_ttl"`

	NumQuestions int `yaml:"num_questions"`
	StageSize    int `yaml:"stage_size"`
}

// Defaults applied by Load for fields left unset.
const (
	DefaultListenAddr = ":8080"
	DefaultProvider   = "openai"
	DefaultModel      = "gpt-4o-mini"
	DefaultStageSize  = 5
	DefaultCacheTTL   = time.Hour
)

// Load reads configuration from an optional YAML file and then applies
// environment overrides. A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	return cfg, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		env    string
		target *string
	}{
		{"LOG_LEVEL", &c.LogLevel},
		{"LISTEN_ADDR", &c.ListenAddr},
		{"LLM_PROVIDER", &c.LLMProvider},
		{"LLM_HOST", &c.LLMHost},
		{"OPENAI_API_KEY", &c.OpenAIAPIKey},
		{"OPENAI_MODEL", &c.Model},
		{"TWITTER_BEARER_TOKEN", &c.TwitterBearerToken},
		{"PINATA_API_KEY", &c.PinataAPIKey},
		{"DATABASE_URL", &c.DatabaseURL},
		{"REDIS_ADDR", &c.RedisAddr},
		{"REDIS_PASSWORD", &c.RedisPassword},
	}

	for _, o := range overrides {
		if value := os.Getenv(o.env); value != "" {
			*o.target = value
		}
	}
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.LLMProvider == "" {
		c.LLMProvider = DefaultProvider
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.StageSize == 0 {
		c.StageSize = DefaultStageSize
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = DefaultCacheTTL
	}
}

// SlogLevel maps the configured log level string onto a slog level,
// defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidateGenerate checks the settings needed to run question generation.
func (c Config) ValidateGenerate() error {
	switch c.LLMProvider {
	case "ollama":
		if c.LLMHost == "" {
			return &Error{Field: "llm_host"}
		}
	case "openai-compat":
		if c.LLMHost == "" {
			return &Error{Field: "llm_host"}
		}
		if c.OpenAIAPIKey == "" {
			return &Error{Field: "openai_api_key"}
		}
	default:
		if c.OpenAIAPIKey == "" {
			return &Error{Field: "openai_api_key"}
		}
	}

	return nil
}

// ValidateServe checks the settings needed to run the HTTP server, on top of
// the generation requirements. The Pinata key is optional; without it the
// server skips pinning.
func (c Config) ValidateServe() error {
	if err := c.ValidateGenerate(); err != nil {
		return err
	}
	if c.DatabaseURL == "" {
		return &Error{Field: "database_url"}
	}
	if c.TwitterBearerToken == "" {
		return &Error{Field: "twitter_bearer_token"}
	}

	return nil
}
