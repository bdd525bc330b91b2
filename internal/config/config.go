package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var modelsYAML []byte

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Models   ModelsConfig
}

type ServerConfig struct {
	Port         int    // HTTP listen port (default 8080)
	AllowOrigins string // comma-separated CORS origins, empty allows none
}

type DatabaseConfig struct {
	URL           string // PostgreSQL connection URL
	MaxOpenConns  int    // Maximum open connections (default 25)
	MaxIdleConns  int    // Maximum idle connections (default 5)
	HNSWOnStartup bool   // Build the in-memory similarity index at startup (default true)
}

// ModelsConfig is the registry of known embedding models, keyed by the model
// name the detector reports. Used to validate embedding dimensions at
// ingestion.
type ModelsConfig struct {
	Models map[string]ModelInfo `yaml:"models"`
	// DefaultDim applies when the detector reports no model name.
	DefaultDim int `yaml:"default_dim"`
}

type ModelInfo struct {
	Dim int `yaml:"dim"`
}

// Dim returns the expected embedding dimension for a model name.
// Unknown model names fall back to DefaultDim; 0 means no validation.
func (m *ModelsConfig) Dim(model string) int {
	if info, ok := m.Models[model]; ok {
		return info.Dim
	}
	return m.DefaultDim
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envBool reads an environment variable as a boolean.
// Returns the default value if the env var is unset, empty, or invalid.
func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

func Load() *Config {
	var models ModelsConfig
	if err := yaml.Unmarshal(modelsYAML, &models); err != nil {
		// Embedded file, so this can only fail on a broken build.
		panic("failed to unmarshal embedded models.yaml: " + err.Error())
	}

	return &Config{
		Server: ServerConfig{
			Port:         envInt("SERVER_PORT", 8080),
			AllowOrigins: os.Getenv("CORS_ALLOW_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL:           os.Getenv("DATABASE_URL"),
			MaxOpenConns:  envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:  envInt("DATABASE_MAX_IDLE_CONNS", 5),
			HNSWOnStartup: envBool("HNSW_ON_STARTUP", true),
		},
		Models: models,
	}
}
