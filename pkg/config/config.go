// Package config loads atelier configuration from a YAML file with
// environment-variable fallbacks. A .env file in the working directory is
// honored for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	LLM     LLMConfig     `yaml:"llm"`
	Storage StorageConfig `yaml:"storage"`
	Mail    MailConfig    `yaml:"mail"`
	Digest  DigestConfig  `yaml:"digest"`
}

// ServerConfig holds the HTTP listener configuration
type ServerConfig struct {
	Port        int     `yaml:"port"`
	MetricsPort int     `yaml:"metrics_port"`
	RateLimit   float64 `yaml:"rate_limit"`
	RateBurst   int     `yaml:"rate_burst"`
}

// LLMConfig selects the generation provider and profile. Temperature is a
// pointer so an explicit 0 is distinguishable from unset.
type LLMConfig struct {
	Provider     string   `yaml:"provider"`
	Model        string   `yaml:"model"`
	Temperature  *float64 `yaml:"temperature"`
	OpenAIKey    string   `yaml:"openai_key"`
	AnthropicKey string   `yaml:"anthropic_key"`
	GeminiKey    string   `yaml:"gemini_key"`
}

// TemperatureValue returns the configured temperature, or 0.7 when unset.
func (c LLMConfig) TemperatureValue() float64 {
	if c.Temperature == nil {
		return 0.7
	}
	return *c.Temperature
}

// APIKey returns the credential for the configured provider, empty when
// none is set.
func (c LLMConfig) APIKey() string {
	switch c.Provider {
	case "anthropic":
		return c.AnthropicKey
	case "gemini":
		return c.GeminiKey
	default:
		return c.OpenAIKey
	}
}

// StorageConfig selects the session backend
type StorageConfig struct {
	// Backend is one of: file, redis, firestore, memory
	Backend string          `yaml:"backend"`
	DataDir string          `yaml:"data_dir"`
	Redis   RedisConfig     `yaml:"redis"`
	GCP     FirestoreConfig `yaml:"gcp"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTLHours int    `yaml:"ttl_hours"`
}

// FirestoreConfig holds Firestore connection settings
type FirestoreConfig struct {
	ProjectID   string `yaml:"project_id"`
	Credentials string `yaml:"credentials"`
}

// MailConfig holds SMTP notification settings; leaving it empty keeps
// notifications log-only.
type MailConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// DigestConfig schedules the daily submission digest
type DigestConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

// LoadConfig loads configuration from a YAML file. An empty path yields a
// config built from defaults and the environment alone.
func LoadConfig(path string) (*Config, error) {
	// Best effort; absence of a .env file is the normal case.
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- path is operator input
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if c.LLM.OpenAIKey == "" {
		c.LLM.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.LLM.AnthropicKey == "" {
		c.LLM.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if c.LLM.GeminiKey == "" {
		c.LLM.GeminiKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = os.Getenv("ATELIER_LLM_PROVIDER")
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = os.Getenv("ATELIER_STORAGE_BACKEND")
	}
	if c.Storage.Redis.Addr == "" {
		c.Storage.Redis.Addr = os.Getenv("REDIS_ADDR")
	}
	if c.Storage.GCP.ProjectID == "" {
		c.Storage.GCP.ProjectID = os.Getenv("GCP_PROJECT")
	}
	if c.Storage.GCP.Credentials == "" {
		c.Storage.GCP.Credentials = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if c.Server.Port == 0 {
		if p, err := strconv.Atoi(os.Getenv("PORT")); err == nil {
			c.Server.Port = p
		}
	}
	if c.Mail.Host == "" {
		c.Mail.Host = os.Getenv("SMTP_HOST")
	}
	if c.Mail.Username == "" {
		c.Mail.Username = os.Getenv("SMTP_USERNAME")
	}
	if c.Mail.Password == "" {
		c.Mail.Password = os.Getenv("SMTP_PASSWORD")
	}
	if c.Mail.From == "" {
		c.Mail.From = os.Getenv("SMTP_FROM")
	}
	if len(c.Mail.To) == 0 {
		if to := os.Getenv("SMTP_TO"); to != "" {
			for _, addr := range strings.Split(to, ",") {
				if addr = strings.TrimSpace(addr); addr != "" {
					c.Mail.To = append(c.Mail.To, addr)
				}
			}
		}
	}
	if c.Mail.Port == 0 {
		if p, err := strconv.Atoi(os.Getenv("SMTP_PORT")); err == nil {
			c.Mail.Port = p
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.MetricsPort == 0 {
		c.Server.MetricsPort = 9090
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 5
	}
	if c.Server.RateBurst == 0 {
		c.Server.RateBurst = 10
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.Temperature == nil {
		t := 0.7
		c.LLM.Temperature = &t
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "file"
	}
	if c.Digest.Schedule == "" {
		c.Digest.Schedule = "0 8 * * *"
	}
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic", "gemini", "mock":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}

	switch c.Storage.Backend {
	case "file", "memory":
	case "redis":
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage backend redis requires redis.addr")
		}
	case "firestore":
		if c.Storage.GCP.ProjectID == "" {
			return fmt.Errorf("storage backend firestore requires gcp.project_id")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Server.Port == c.Server.MetricsPort {
		return fmt.Errorf("server port and metrics port must differ")
	}
	return nil
}
