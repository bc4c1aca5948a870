package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const defaultConfigPath = "config.json"

// defaultModels is used when neither model.name nor the provider entry
// names a model.
var defaultModels = map[string]string{
	"gemini": "gemini-1.5-pro",
	"openai": "gpt-4o",
	"claude": "claude-3-5-sonnet-latest",
}

// ErrMissingCredential is returned when the configured provider has no API key.
var ErrMissingCredential = errors.New("model credential not configured")

// Config represents runtime configuration for the service.
type Config struct {
	Server      ServerConfig              `json:"server"`
	Model       ModelConfig               `json:"model"`
	Providers   map[string]ProviderConfig `json:"providers"`
	Session     SessionConfig             `json:"session"`
	Worker      WorkerConfig              `json:"worker"`
	Database    DatabaseConfig            `json:"database"`
	Redis       RedisConfig               `json:"redis"`
	Credentials Credentials               `json:"-"`
	Debug       bool                      `json:"debug" env:"VISIONCHAT_LOG_DEBUG"`
}

type ServerConfig struct {
	Address        string  `json:"address" env:"VISIONCHAT_ADDR"`
	MaxUploadBytes int64   `json:"max_upload_bytes" env:"VISIONCHAT_MAX_UPLOAD_BYTES"`
	RateLimit      float64 `json:"rate_limit" env:"VISIONCHAT_RATE_LIMIT"`
	RateBurst      int     `json:"rate_burst" env:"VISIONCHAT_RATE_BURST"`
	SecureCookies  bool    `json:"secure_cookies" env:"VISIONCHAT_SECURE_COOKIES"`
	// RequestTimeout bounds one model call, in seconds.
	RequestTimeout int `json:"request_timeout" env:"VISIONCHAT_REQUEST_TIMEOUT"`
}

type ModelConfig struct {
	Provider string `json:"provider" env:"VISIONCHAT_PROVIDER"`
	Name     string `json:"name" env:"VISIONCHAT_MODEL"`
	// Engine selects the gemini client: "genai" talks to the SDK directly, "eino" goes through the eino chat model.
	Engine string `json:"engine" env:"VISIONCHAT_ENGINE"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

// Credentials are read from the process environment only.
type Credentials struct {
	GoogleAPIKey    string `env:"GOOGLE_API_KEY"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
}

type SessionConfig struct {
	// Store is "memory" or "redis".
	Store      string `json:"store" env:"VISIONCHAT_SESSION_STORE"`
	TTLMinutes int    `json:"ttl_minutes" env:"VISIONCHAT_SESSION_TTL"`
	MaxLive    int    `json:"max_live" env:"VISIONCHAT_SESSION_MAX"`
}

type WorkerConfig struct {
	MinWorkers        int `json:"min_workers" env:"VISIONCHAT_MIN_WORKERS"`
	MaxWorkers        int `json:"max_workers" env:"VISIONCHAT_MAX_WORKERS"`
	QueueSize         int `json:"queue_size" env:"VISIONCHAT_QUEUE_SIZE"`
	IdleTimeoutSecond int `json:"idle_timeout_seconds" env:"VISIONCHAT_WORKER_IDLE"`
}

type DatabaseConfig struct {
	// Driver is "sqlite3", "mysql" or "none".
	Driver   string `json:"driver" env:"VISIONCHAT_DB_DRIVER"`
	DSN      string `json:"dsn" env:"VISIONCHAT_DB_DSN"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Addr     string `json:"addr" env:"VISIONCHAT_REDIS_ADDR"`
	Username string `json:"username"`
	Password string `json:"password" env:"VISIONCHAT_REDIS_PASSWORD"`
	DB       int    `json:"db"`
}

// Load reads configuration from the provided path (defaults to config.json),
// then applies .env and process environment overrides. The config file is
// optional when no explicit path is given.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	switch {
	case err == nil:
		defer file.Close()
		if err := json.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.normalize(filepath.Dir(absPath))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:        ":8090",
			MaxUploadBytes: 10 << 20,
			RateLimit:      1,
			RateBurst:      5,
			RequestTimeout: 120,
		},
		Model: ModelConfig{
			Provider: "gemini",
			Engine:   "genai",
		},
		Providers: map[string]ProviderConfig{},
		Session: SessionConfig{
			Store:      "memory",
			TTLMinutes: 60,
			MaxLive:    10000,
		},
		Worker: WorkerConfig{
			MinWorkers:        2,
			MaxWorkers:        16,
			QueueSize:         128,
			IdleTimeoutSecond: 30,
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "visionchat.db",
		},
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
		},
	}
}

func (c *Config) normalize(baseDir string) {
	c.Model.Provider = strings.ToLower(strings.TrimSpace(c.Model.Provider))
	c.Model.Engine = strings.ToLower(strings.TrimSpace(c.Model.Engine))
	c.Session.Store = strings.ToLower(strings.TrimSpace(c.Session.Store))
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Model.Name = strings.TrimSpace(c.Model.Name)
	if c.Model.Name == "" {
		c.Model.Name = strings.TrimSpace(c.Providers[c.Model.Provider].Model)
	}
	if c.Model.Name == "" {
		c.Model.Name = defaultModels[c.Model.Provider]
	}
	if c.Database.Driver == "sqlite" {
		c.Database.Driver = "sqlite3"
	}
	dsn := c.Database.DSN
	if c.Database.Driver == "sqlite3" && dsn != "" && dsn != ":memory:" &&
		!strings.HasPrefix(dsn, "file:") && !filepath.IsAbs(dsn) {
		c.Database.DSN = filepath.Join(baseDir, dsn)
	}
}

// Validate checks the startup preconditions.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case "gemini", "openai", "claude":
	default:
		return fmt.Errorf("unsupported provider: %q", c.Model.Provider)
	}
	if c.Model.Name == "" {
		return errors.New("model name must be configured")
	}
	switch c.Session.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported session store: %q", c.Session.Store)
	}
	switch c.Database.Driver {
	case "sqlite3", "mysql", "none", "":
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.New("max_upload_bytes must be positive")
	}
	if c.APIKey() == "" {
		return fmt.Errorf("%w: set %s", ErrMissingCredential, c.CredentialEnv())
	}
	return nil
}

// APIKey returns the credential for the configured provider. Environment
// credentials win over the config file.
func (c *Config) APIKey() string {
	var fromEnv string
	switch c.Model.Provider {
	case "gemini":
		fromEnv = c.Credentials.GoogleAPIKey
	case "openai":
		fromEnv = c.Credentials.OpenAIAPIKey
	case "claude":
		fromEnv = c.Credentials.AnthropicAPIKey
	}
	if key := strings.TrimSpace(fromEnv); key != "" {
		return key
	}
	return strings.TrimSpace(c.Providers[c.Model.Provider].APIKey)
}

// CredentialEnv names the environment variable holding the provider credential.
func (c *Config) CredentialEnv() string {
	switch c.Model.Provider {
	case "openai":
		return "OPENAI_API_KEY"
	case "claude":
		return "ANTHROPIC_API_KEY"
	default:
		return "GOOGLE_API_KEY"
	}
}

// BaseURL returns the optional endpoint override for the configured provider.
func (c *Config) BaseURL() string {
	return c.Providers[c.Model.Provider].BaseURL
}

func (c *Config) SessionTTL() time.Duration {
	if c.Session.TTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.Session.TTLMinutes) * time.Minute
}

func (c *Config) RequestTimeout() time.Duration {
	if c.Server.RequestTimeout <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(c.Server.RequestTimeout) * time.Second
}

func (c *Config) WorkerIdleTimeout() time.Duration {
	if c.Worker.IdleTimeoutSecond <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Worker.IdleTimeoutSecond) * time.Second
}
