// Command server runs the datagrep API: schema inference, natural
// language pipeline generation, and sandboxed pipeline execution.
//
// Configuration is read from a YAML file (-config flag,
// DATAGREP_CONFIG, ./config.yaml, or /etc/datagrep/config.yaml in that
// order) with DATAGREP_* and POSTGRES_* environment overrides on top.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/datagrep/datagrep/pkg/auth"
	"github.com/datagrep/datagrep/pkg/auth/apikey"
	authjwt "github.com/datagrep/datagrep/pkg/auth/jwt"
	"github.com/datagrep/datagrep/pkg/config"
	"github.com/datagrep/datagrep/pkg/executor"
	"github.com/datagrep/datagrep/pkg/executor/docker"
	"github.com/datagrep/datagrep/pkg/generator"
	"github.com/datagrep/datagrep/pkg/schema"
	"github.com/datagrep/datagrep/pkg/storage"
	"github.com/datagrep/datagrep/pkg/storage/memory"
	"github.com/datagrep/datagrep/pkg/storage/postgres"
	transporthttp "github.com/datagrep/datagrep/pkg/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	logger := newLogger(*logLevel)
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// The isolation backend must be reachable at startup; executing
	// pipelines is this service's reason to exist.
	runtime, err := docker.New(ctx, cfg.Sandbox.StopGrace, logger)
	if err != nil {
		return fmt.Errorf("connecting to isolation backend: %w", err)
	}
	defer runtime.Close()

	planner := executor.NewPlanner(cfg.Database, cfg.Sandbox.Network, runtime.NetworkResolver(), logger)
	exec := executor.New(runtime, planner, cfg.Sandbox, logger)

	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	gen, err := newGenerator(cfg, logger)
	if err != nil {
		return err
	}
	if gen != nil {
		defer gen.Close()
	}

	inspector := schema.NewPostgresInspector(cfg.Database, logger)
	handlers := transporthttp.NewHandlers(store, generatorOrNil(gen), exec, inspector, logger)

	authMW, err := newAuthMiddleware(cfg.Auth, logger)
	if err != nil {
		return err
	}

	srv := transporthttp.NewServer(handlers, authMW,
		transporthttp.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithMetrics(cfg.Observability.Metrics.Enabled),
		transporthttp.WithLogger(logger),
	)

	logger.Info("datagrep starting",
		"port", cfg.Server.Port,
		"sandbox_image", cfg.Sandbox.Image,
		"storage", cfg.Storage.Type,
		"auth", cfg.Auth.Type)

	return srv.ListenAndServe()
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.PipelineStore, error) {
	switch cfg.Storage.Type {
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("creating postgres store: %w", err)
		}
		logger.Info("storage enabled", "type", "postgres")
		return store, nil
	default:
		logger.Info("storage enabled", "type", "memory", "max_size", cfg.Storage.MaxSize)
		return memory.New(cfg.Storage.MaxSize), nil
	}
}

// newGenerator creates the generation client, or returns nil when no
// backend is configured. The service still serves schema inference and
// execution without one.
func newGenerator(cfg *config.Config, logger *slog.Logger) (*generator.Client, error) {
	if cfg.Generator.BackendURL == "" || cfg.Generator.APIKey == "" {
		logger.Warn("pipeline generation disabled: generator backend_url or api_key not configured")
		return nil, nil
	}
	gen, err := generator.New(cfg.Generator, logger)
	if err != nil {
		return nil, fmt.Errorf("creating generation client: %w", err)
	}
	return gen, nil
}

// generatorOrNil avoids handing the handlers a non-nil interface
// wrapping a nil client.
func generatorOrNil(gen *generator.Client) transporthttp.PipelineGenerator {
	if gen == nil {
		return nil
	}
	return gen
}

func newAuthMiddleware(cfg config.AuthConfig, logger *slog.Logger) (func(http.Handler) http.Handler, error) {
	chain := &auth.Chain{}
	switch cfg.Type {
	case "", "none":
		chain.AllowAnonymous = true
	case "apikey":
		chain.Authenticators = append(chain.Authenticators, apikey.New(cfg.APIKeys))
	case "jwt":
		chain.Authenticators = append(chain.Authenticators, authjwt.New(cfg.JWTSecret))
	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Type)
	}

	var limiter auth.Limiter
	if cfg.RateLimitRPM > 0 {
		limiter = auth.NewSubjectLimiter(cfg.RateLimitRPM)
	}
	return auth.Middleware(chain, limiter, auth.DefaultBypassPaths, logger), nil
}
