// Package config provides unified configuration for the datagrep service.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (DATAGREP_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the datagrep service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Sandbox       SandboxConfig       `yaml:"sandbox"`
	Database      DatabaseConfig      `yaml:"database"`
	Generator     GeneratorConfig     `yaml:"generator"`
	Storage       StorageConfig       `yaml:"storage"`
	Auth          AuthConfig          `yaml:"auth"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 120s
}

// SandboxConfig holds settings for the code-execution sandbox.
type SandboxConfig struct {
	// Image is the container image used for every execution.
	Image string `yaml:"image"` // default: "datagrep-sandbox:latest"

	// Network is the logical name of the network that grants database
	// access. The runtime resolves it against the names the isolation
	// backend actually knows, including deployment-tool variants.
	Network string `yaml:"network"` // default: "datagrep-network"

	// DefaultTimeout bounds an execution when the request does not
	// specify its own timeout.
	DefaultTimeout time.Duration `yaml:"default_timeout"` // default: 60s

	// StopGrace is how long a timed-out container is given to stop
	// before it is killed.
	StopGrace time.Duration `yaml:"stop_grace"` // default: 2s
}

// DatabaseConfig holds the service-wide connection defaults injected into
// sandboxes when a request omits individual fields.
type DatabaseConfig struct {
	Host         string `yaml:"host"`          // default: "db"
	Port         int    `yaml:"port"`          // default: 5432
	Name         string `yaml:"name"`          // default: "datagrep"
	User         string `yaml:"user"`          // default: "datagrep"
	Password     string `yaml:"password"`      // default: "datagrep_dev"
	PasswordFile string `yaml:"password_file"` // _file variant for password
}

// GeneratorConfig holds pipeline code-generation backend settings.
type GeneratorConfig struct {
	BackendURL string   `yaml:"backend_url"` // OpenAI-compatible endpoint, required
	APIKey     string   `yaml:"api_key"`
	APIKeyFile string   `yaml:"api_key_file"` // _file variant for api_key
	Models     []string `yaml:"models"`       // tried in order, default: gpt-4, gpt-3.5-turbo
}

// StorageConfig holds pipeline store settings.
type StorageConfig struct {
	Type     string         `yaml:"type"`     // "memory" or "postgres", default: "memory"
	MaxSize  int            `yaml:"max_size"` // for memory store, default: 10000
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings for the pipeline store.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"` // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`
	MigrateOnStart bool   `yaml:"migrate_on_start"`
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type          string         `yaml:"type"`     // "none", "apikey", "jwt", default: "none"
	APIKeys       []APIKeyConfig `yaml:"api_keys"` // entries for type=apikey
	JWTSecret     string         `yaml:"jwt_secret"`
	JWTSecretFile string         `yaml:"jwt_secret_file"` // _file variant for jwt_secret

	// RateLimitRPM caps requests per minute per authenticated subject.
	// 0 disables rate limiting.
	RateLimitRPM int `yaml:"rate_limit_rpm"`
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key     string `yaml:"key"`
	KeyFile string `yaml:"key_file"` // _file variant for key
	Subject string `yaml:"subject"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
		},
		Sandbox: SandboxConfig{
			Image:          "datagrep-sandbox:latest",
			Network:        "datagrep-network",
			DefaultTimeout: 60 * time.Second,
			StopGrace:      2 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     "db",
			Port:     5432,
			Name:     "datagrep",
			User:     "datagrep",
			Password: "datagrep_dev",
		},
		Generator: GeneratorConfig{
			Models: []string{"gpt-4", "gpt-3.5-turbo"},
		},
		Storage: StorageConfig{
			Type:    "memory",
			MaxSize: 10000,
			Postgres: PostgresConfig{
				MaxConns: 25,
			},
		},
		Auth: AuthConfig{
			Type: "none",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
