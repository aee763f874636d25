// Package config loads compass settings from an optional YAML file overlaid
// with COMPASS_* environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no explicit path is given. A missing default file is not an error.
const DefaultPath = "compass.yaml"

// Config is the root of the configuration tree.
type Config struct {
	Server     Server     `yaml:"server"`
	Log        Log        `yaml:"log"`
	LLM        LLM        `yaml:"llm"`
	Checkpoint Checkpoint `yaml:"checkpoint"`
	Plans      Plans      `yaml:"plans"`
	Hotels     Hotels     `yaml:"hotels"`
	Workflow   Workflow   `yaml:"workflow"`
}

type Server struct {
	Port            string        `yaml:"port"`
	AllowedOrigin   string        `yaml:"allowed_origin"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxInputBytes   int           `yaml:"max_input_bytes"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

type LLM struct {
	Provider    string  `yaml:"provider"` // openai | scripted
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature"`
}

type Checkpoint struct {
	Backend       string        `yaml:"backend"` // memory | file | redis
	Dir           string        `yaml:"dir"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	Prefix        string        `yaml:"prefix"`
	TTL           time.Duration `yaml:"ttl"`
	// EncryptionKey is a hex-encoded 32-byte AES key. Empty disables encryption.
	EncryptionKey string `yaml:"encryption_key"`
	// FallbackKeys are previous keys still accepted for decryption.
	FallbackKeys []string `yaml:"fallback_keys"`
	// RedactPatterns are regular expressions masked in stored messages.
	RedactPatterns []string `yaml:"redact_patterns"`
}

type Plans struct {
	DSN string `yaml:"dsn"`
}

type Hotels struct {
	APIKey           string  `yaml:"api_key"`
	Host             string  `yaml:"host"`
	Currency         string  `yaml:"currency"`
	RequestsPerSec   float64 `yaml:"requests_per_second"`
	CandidatesPerDay int     `yaml:"candidates_per_day"`
}

type Workflow struct {
	StepLimit        int `yaml:"step_limit"`
	DraftConcurrency int `yaml:"draft_concurrency"`
	AgentMaxRounds   int `yaml:"agent_max_rounds"`
}

// Default returns a configuration usable for local development.
func Default() Config {
	return Config{
		Server: Server{
			Port:            "8080",
			AllowedOrigin:   "*",
			ShutdownTimeout: 5 * time.Second,
			MaxInputBytes:   4096,
		},
		Log: Log{Level: "info", Format: "text"},
		LLM: LLM{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
		},
		Checkpoint: Checkpoint{
			Backend: "memory",
			Dir:     ".compass/sessions",
			Prefix:  "compass:session:",
		},
		Plans: Plans{DSN: "file:compass.db?_foreign_keys=on"},
		Hotels: Hotels{
			Host:             "booking-com15.p.rapidapi.com",
			Currency:         "TWD",
			RequestsPerSec:   4,
			CandidatesPerDay: 3,
		},
		Workflow: Workflow{
			StepLimit:        15,
			DraftConcurrency: 4,
			AgentMaxRounds:   5,
		},
	}
}

// Load reads path (or DefaultPath when empty) over the defaults and applies
// environment overrides. An explicit path that does not exist is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	str("COMPASS_PORT", &c.Server.Port)
	str("COMPASS_LOG_LEVEL", &c.Log.Level)
	str("COMPASS_LOG_FORMAT", &c.Log.Format)
	str("COMPASS_LLM_PROVIDER", &c.LLM.Provider)
	str("COMPASS_LLM_MODEL", &c.LLM.Model)
	str("COMPASS_LLM_BASE_URL", &c.LLM.BaseURL)
	if c.LLM.APIKey == "" {
		str("OPENAI_API_KEY", &c.LLM.APIKey)
	}
	str("COMPASS_LLM_API_KEY", &c.LLM.APIKey)
	str("COMPASS_CHECKPOINT_BACKEND", &c.Checkpoint.Backend)
	str("COMPASS_CHECKPOINT_DIR", &c.Checkpoint.Dir)
	str("COMPASS_REDIS_ADDR", &c.Checkpoint.RedisAddr)
	str("COMPASS_REDIS_PASSWORD", &c.Checkpoint.RedisPassword)
	str("COMPASS_ENCRYPTION_KEY", &c.Checkpoint.EncryptionKey)
	str("COMPASS_PLANS_DSN", &c.Plans.DSN)
	if c.Hotels.APIKey == "" {
		str("RAPIDAPI_KEY", &c.Hotels.APIKey)
	}
	str("COMPASS_HOTELS_API_KEY", &c.Hotels.APIKey)

	if v, ok := os.LookupEnv("COMPASS_STEP_LIMIT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("COMPASS_STEP_LIMIT: %w", err)
		}
		c.Workflow.StepLimit = n
	}
	if v, ok := os.LookupEnv("COMPASS_CHECKPOINT_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("COMPASS_CHECKPOINT_TTL: %w", err)
		}
		c.Checkpoint.TTL = d
	}
	return nil
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	switch c.Checkpoint.Backend {
	case "memory", "file":
	case "redis":
		if c.Checkpoint.RedisAddr == "" {
			errs = append(errs, errors.New("checkpoint.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown checkpoint backend %q", c.Checkpoint.Backend))
	}
	switch c.LLM.Provider {
	case "openai", "scripted":
	default:
		errs = append(errs, fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
	}
	if c.Workflow.StepLimit < 1 {
		errs = append(errs, errors.New("workflow.step_limit must be positive"))
	}
	if c.Checkpoint.EncryptionKey != "" {
		if _, err := DecodeKey(c.Checkpoint.EncryptionKey); err != nil {
			errs = append(errs, fmt.Errorf("checkpoint.encryption_key: %w", err))
		}
	}
	for i, k := range c.Checkpoint.FallbackKeys {
		if _, err := DecodeKey(k); err != nil {
			errs = append(errs, fmt.Errorf("checkpoint.fallback_keys[%d]: %w", i, err))
		}
	}
	for i, p := range c.Checkpoint.RedactPatterns {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("checkpoint.redact_patterns[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// DecodeKey parses a hex-encoded AES-256 key.
func DecodeKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("key must be hex encoded: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}
