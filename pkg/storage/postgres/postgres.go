// Package postgres provides a PostgreSQL implementation of
// storage.PipelineStore. It uses pgx/v5 for connection pooling and
// JSONB for structured pipeline metadata.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datagrep/datagrep/pkg/api"
	"github.com/datagrep/datagrep/pkg/storage"
)

const defaultListLimit = 100

// Store is a PostgreSQL-backed PipelineStore.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.PipelineStore = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// SavePipeline persists a generated pipeline.
func (s *Store) SavePipeline(ctx context.Context, p *api.Pipeline) error {
	stepsJSON, err := json.Marshal(p.Steps)
	if err != nil {
		return fmt.Errorf("marshaling steps: %w", err)
	}
	depsJSON, err := json.Marshal(p.Dependencies)
	if err != nil {
		return fmt.Errorf("marshaling dependencies: %w", err)
	}
	sourceJSON, err := json.Marshal(p.Source)
	if err != nil {
		return fmt.Errorf("marshaling source config: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO pipelines (
			id, code, language, description, steps, dependencies,
			source_type, source, model_used, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		p.ID, p.Code, string(p.Language), p.Description, stepsJSON, depsJSON,
		string(p.SourceType), sourceJSON, p.ModelUsed, p.CreatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting pipeline: %w", err)
	}
	return nil
}

// GetPipeline retrieves a pipeline by ID.
func (s *Store) GetPipeline(ctx context.Context, id string) (*api.Pipeline, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, code, language, description, steps, dependencies,
		       source_type, source, model_used, created_at
		FROM pipelines
		WHERE id = $1
	`, id)

	p, err := scanPipeline(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying pipeline: %w", err)
	}
	return p, nil
}

// ListPipelines returns up to limit pipelines, newest first.
func (s *Store) ListPipelines(ctx context.Context, limit int) ([]*api.Pipeline, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, code, language, description, steps, dependencies,
		       source_type, source, model_used, created_at
		FROM pipelines
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing pipelines: %w", err)
	}
	defer rows.Close()

	var pipelines []*api.Pipeline
	for rows.Next() {
		p, err := scanPipeline(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning pipeline: %w", err)
		}
		pipelines = append(pipelines, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing pipelines: %w", err)
	}
	return pipelines, nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanPipeline(row pgx.Row) (*api.Pipeline, error) {
	var p api.Pipeline
	var language, sourceType string
	var description, modelUsed *string
	var stepsJSON, depsJSON, sourceJSON []byte

	err := row.Scan(
		&p.ID, &p.Code, &language, &description, &stepsJSON, &depsJSON,
		&sourceType, &sourceJSON, &modelUsed, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Language = api.Language(language)
	p.SourceType = api.SourceType(sourceType)
	if description != nil {
		p.Description = *description
	}
	if modelUsed != nil {
		p.ModelUsed = *modelUsed
	}

	if len(stepsJSON) > 0 {
		if err := json.Unmarshal(stepsJSON, &p.Steps); err != nil {
			return nil, fmt.Errorf("unmarshaling steps: %w", err)
		}
	}
	if len(depsJSON) > 0 {
		if err := json.Unmarshal(depsJSON, &p.Dependencies); err != nil {
			return nil, fmt.Errorf("unmarshaling dependencies: %w", err)
		}
	}
	if len(sourceJSON) > 0 {
		if err := json.Unmarshal(sourceJSON, &p.Source); err != nil {
			return nil, fmt.Errorf("unmarshaling source config: %w", err)
		}
	}
	return &p, nil
}

// isDuplicateKey checks if the error is a PostgreSQL unique violation (23505).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
