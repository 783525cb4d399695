// Package config loads the server configuration from YAML and the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"task-workflow-api/internal/auth"
	"task-workflow-api/internal/database"
	loglogrus "task-workflow-api/internal/log/logrus"
	"task-workflow-api/internal/reminder"
	"task-workflow-api/internal/workflow"
)

// Config represents the complete server configuration
type Config struct {
	Server          ServerConfig             `yaml:"server"`
	Database        database.Config          `yaml:"database"`
	Auth            auth.Config              `yaml:"auth"`
	Reminder        reminder.Options         `yaml:"reminder"`
	ExtensionPolicy workflow.ExtensionPolicy `yaml:"extensionPolicy"`
	Events          EventsConfig             `yaml:"events"`
	Log             loglogrus.Config         `yaml:"log"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	// Port the HTTP server listens on
	Port string `yaml:"port"`
	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// AllowedOrigins for CORS; "*" allows any
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// EventsConfig configures where task events are published besides websockets
type EventsConfig struct {
	// NATSURL is the NATS server URL (empty = NATS publishing disabled)
	NATSURL string `yaml:"natsUrl"`
	// SubjectPrefix is prepended to every event subject
	SubjectPrefix string `yaml:"subjectPrefix"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8008",
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Database:        database.DefaultConfig(),
		Auth:            auth.DefaultConfig(),
		Reminder:        reminder.DefaultOptions(),
		ExtensionPolicy: workflow.DefaultExtensionPolicy(),
		Events: EventsConfig{
			SubjectPrefix: "tasks",
		},
		Log: loglogrus.Config{Level: "info", Format: "text"},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required")
	}
	if c.Auth.TTL <= 0 {
		return fmt.Errorf("auth.ttl must be positive")
	}
	if err := c.Reminder.Validate(); err != nil {
		return fmt.Errorf("reminder: %w", err)
	}
	if c.ExtensionPolicy.MaxRequestsPerTask < 1 {
		return fmt.Errorf("extensionPolicy.maxRequestsPerTask must be at least 1")
	}
	if c.ExtensionPolicy.MaxExtensionDays < 1 {
		return fmt.Errorf("extensionPolicy.maxExtensionDays must be at least 1")
	}
	if c.Events.NATSURL != "" && c.Events.SubjectPrefix == "" {
		return fmt.Errorf("events.subjectPrefix is required when NATS is enabled")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// ApplyEnv overrides settings from environment variables. getenv is usually
// os.Getenv; empty values are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set("JWT_SECRET", &c.Auth.Secret)
	set("JWT_ISSUER", &c.Auth.Issuer)
	set("JWT_AUDIENCE", &c.Auth.Audience)
	set("PORT", &c.Server.Port)
	set("DB_PATH", &c.Database.Path)
	set("NATS_URL", &c.Events.NATSURL)
	set("LOG_LEVEL", &c.Log.Level)
}

// Load reads path (when not empty), applies the environment and validates.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
