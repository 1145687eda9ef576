package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, DATAGREP_CONFIG env, ./config.yaml,
//     /etc/datagrep/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. DATAGREP_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/datagrep/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("DATAGREP_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/datagrep/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps DATAGREP_* environment variables to config fields.
// The POSTGRES_* variables mirror the names the sandbox itself receives, so
// one docker-compose env block can configure both sides.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATAGREP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DATAGREP_SANDBOX_IMAGE"); v != "" {
		cfg.Sandbox.Image = v
	}
	if v := os.Getenv("DATAGREP_SANDBOX_NETWORK"); v != "" {
		cfg.Sandbox.Network = v
	}
	if v := os.Getenv("DATAGREP_BACKEND_URL"); v != "" {
		cfg.Generator.BackendURL = v
	}
	if v := os.Getenv("DATAGREP_API_KEY"); v != "" {
		cfg.Generator.APIKey = v
	}
	if v := os.Getenv("DATAGREP_MODELS"); v != "" {
		cfg.Generator.Models = splitAndTrim(v)
	}
	if v := os.Getenv("DATAGREP_STORAGE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("DATAGREP_STORAGE_DSN"); v != "" {
		cfg.Storage.Postgres.DSN = v
	}

	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("POSTGRES_DB"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("POSTGRES_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
}

// resolveFileReferences loads values for fields that have a _file variant
// pointing at a file on disk. The file content (trimmed of trailing
// whitespace) replaces the inline value.
func resolveFileReferences(cfg *Config) error {
	if cfg.Generator.APIKeyFile != "" {
		v, err := readSecretFile(cfg.Generator.APIKeyFile)
		if err != nil {
			return fmt.Errorf("generator.api_key_file: %w", err)
		}
		cfg.Generator.APIKey = v
	}
	if cfg.Database.PasswordFile != "" {
		v, err := readSecretFile(cfg.Database.PasswordFile)
		if err != nil {
			return fmt.Errorf("database.password_file: %w", err)
		}
		cfg.Database.Password = v
	}
	if cfg.Storage.Postgres.DSNFile != "" {
		v, err := readSecretFile(cfg.Storage.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("storage.postgres.dsn_file: %w", err)
		}
		cfg.Storage.Postgres.DSN = v
	}
	if cfg.Auth.JWTSecretFile != "" {
		v, err := readSecretFile(cfg.Auth.JWTSecretFile)
		if err != nil {
			return fmt.Errorf("auth.jwt_secret_file: %w", err)
		}
		cfg.Auth.JWTSecret = v
	}
	for i := range cfg.Auth.APIKeys {
		if cfg.Auth.APIKeys[i].KeyFile == "" {
			continue
		}
		v, err := readSecretFile(cfg.Auth.APIKeys[i].KeyFile)
		if err != nil {
			return fmt.Errorf("auth.api_keys[%d].key_file: %w", i, err)
		}
		cfg.Auth.APIKeys[i].Key = v
	}
	return nil
}

func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
