package storage

import (
	"context"

	"github.com/datagrep/datagrep/pkg/api"
)

// PipelineStore persists generated pipelines so they can be retrieved
// and executed later.
type PipelineStore interface {
	// SavePipeline stores a pipeline under its ID. Returns ErrConflict
	// if the ID is already taken.
	SavePipeline(ctx context.Context, p *api.Pipeline) error

	// GetPipeline retrieves a pipeline by ID. Returns ErrNotFound if
	// no pipeline with that ID exists.
	GetPipeline(ctx context.Context, id string) (*api.Pipeline, error)

	// ListPipelines returns up to limit pipelines, newest first. A
	// limit of 0 applies the adapter's default.
	ListPipelines(ctx context.Context, limit int) ([]*api.Pipeline, error)

	// Close releases adapter resources.
	Close() error
}
