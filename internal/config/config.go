package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the sync service and the embed worker.
// Environment variables are parsed from the LOREKEEPER_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Neo4j Configuration
	Neo4jURI      string `envconfig:"NEO4J_URI" default:"bolt://localhost:7687"`
	Neo4jUser     string `envconfig:"NEO4J_USER" default:"neo4j"`
	Neo4jPassword string `envconfig:"NEO4J_PASSWORD" default:""`

	// Redis / task queue
	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`

	// Embedding provider configuration
	EmbedProvider string `envconfig:"EMBED_PROVIDER" default:"ollama"`
	EmbedModel    string `envconfig:"EMBED_MODEL" default:"mxbai-embed-large"`
	EmbedBaseURL  string `envconfig:"EMBED_BASE_URL" default:""`
	EmbedAPIKey   string `envconfig:"EMBED_API_KEY" default:""`

	// Sync invalidation hook
	SyncFlushThreshold int  `envconfig:"SYNC_FLUSH_THRESHOLD" default:"5"`
	BackgroundEmbed    bool `envconfig:"BACKGROUND_EMBED" default:"true"`

	// Chat retention window
	ChatRetentionDays int `envconfig:"CHAT_RETENTION_DAYS" default:"30"`

	// Health probes
	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"2"`
}

// ResolveDefaults validates enum-valued fields.
func (c *Config) ResolveDefaults() error {
	switch c.EmbedProvider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("unsupported EMBED_PROVIDER: %s", c.EmbedProvider)
	}
	if c.SyncFlushThreshold <= 0 {
		return fmt.Errorf("SYNC_FLUSH_THRESHOLD must be positive, got %d", c.SyncFlushThreshold)
	}
	if c.ChatRetentionDays <= 0 {
		return fmt.Errorf("CHAT_RETENTION_DAYS must be positive, got %d", c.ChatRetentionDays)
	}
	return nil
}

// New creates a new Config by parsing environment variables.
// Example: LOREKEEPER_HTTP_PORT, LOREKEEPER_NEO4J_URI.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("LOREKEEPER", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Str("neo4j_uri", cfg.Neo4jURI).
		Str("redis_addr", cfg.RedisAddr).
		Str("embed_provider", cfg.EmbedProvider).
		Str("embed_model", cfg.EmbedModel).
		Int("sync_flush_threshold", cfg.SyncFlushThreshold).
		Bool("background_embed", cfg.BackgroundEmbed).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config for tests without reading the environment.
func NewForTesting() *Config {
	return &Config{
		Environment:               EnvTesting,
		HTTPPort:                  8080,
		Neo4jURI:                  "bolt://localhost:7687",
		Neo4jUser:                 "neo4j",
		RedisAddr:                 "localhost:6379",
		EmbedProvider:             "ollama",
		EmbedModel:                "mxbai-embed-large",
		SyncFlushThreshold:        5,
		BackgroundEmbed:           false,
		ChatRetentionDays:         30,
		HealthIntervalSeconds:     30,
		HealthProbeTimeoutSeconds: 2,
	}
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
