// Package storage defines the pipeline persistence interface shared by
// the storage adapters, along with their sentinel errors.
//
// Two adapters implement PipelineStore: memory, for tests and
// lightweight deployments, and postgres, backed by pgx with JSONB
// columns for structured pipeline metadata.
package storage
