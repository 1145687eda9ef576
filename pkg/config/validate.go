package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for internal consistency. It is called
// as the final step of Load, after all sources have been merged.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port))
	}

	if c.Sandbox.Image == "" {
		errs = append(errs, errors.New("sandbox.image must not be empty"))
	}
	if c.Sandbox.DefaultTimeout <= 0 {
		errs = append(errs, fmt.Errorf("sandbox.default_timeout must be positive, got %s", c.Sandbox.DefaultTimeout))
	}
	if c.Sandbox.StopGrace <= 0 {
		errs = append(errs, fmt.Errorf("sandbox.stop_grace must be positive, got %s", c.Sandbox.StopGrace))
	}

	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Errorf("database.port must be in 1..65535, got %d", c.Database.Port))
	}

	if len(c.Generator.Models) == 0 {
		errs = append(errs, errors.New("generator.models must list at least one model"))
	}

	switch c.Storage.Type {
	case "memory":
		if c.Storage.MaxSize < 0 {
			errs = append(errs, fmt.Errorf("storage.max_size must not be negative, got %d", c.Storage.MaxSize))
		}
	case "postgres":
		if c.Storage.Postgres.DSN == "" {
			errs = append(errs, errors.New("storage.postgres.dsn is required for storage.type=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\" or \"postgres\", got %q", c.Storage.Type))
	}

	switch c.Auth.Type {
	case "none":
	case "apikey":
		if len(c.Auth.APIKeys) == 0 {
			errs = append(errs, errors.New("auth.api_keys must not be empty for auth.type=apikey"))
		}
		for i, k := range c.Auth.APIKeys {
			if k.Key == "" {
				errs = append(errs, fmt.Errorf("auth.api_keys[%d].key must not be empty", i))
			}
		}
	case "jwt":
		if c.Auth.JWTSecret == "" {
			errs = append(errs, errors.New("auth.jwt_secret is required for auth.type=jwt"))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"apikey\" or \"jwt\", got %q", c.Auth.Type))
	}

	return errors.Join(errs...)
}
