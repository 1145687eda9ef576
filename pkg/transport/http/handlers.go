package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/datagrep/datagrep/pkg/api"
	"github.com/datagrep/datagrep/pkg/executor"
	"github.com/datagrep/datagrep/pkg/generator"
	"github.com/datagrep/datagrep/pkg/schema"
	"github.com/datagrep/datagrep/pkg/storage"
)

// PipelineGenerator produces pipeline code from natural language.
type PipelineGenerator interface {
	Generate(ctx context.Context, req generator.Request) (*generator.Result, error)
}

// CodeExecutor runs pipeline code in the sandbox.
type CodeExecutor interface {
	Execute(ctx context.Context, req executor.Request) executor.Result
}

// SchemaInspector describes PostgreSQL sources.
type SchemaInspector interface {
	Infer(ctx context.Context, src api.SourceConfig) (*schema.Schema, error)
}

// Handlers bundles the service dependencies behind the HTTP routes.
type Handlers struct {
	store     storage.PipelineStore
	generator PipelineGenerator
	executor  CodeExecutor
	inspector SchemaInspector
	logger    *slog.Logger
}

// NewHandlers creates the route handlers. The generator may be nil
// when no generation backend is configured; generation endpoints then
// report a server error.
func NewHandlers(store storage.PipelineStore, gen PipelineGenerator, exec CodeExecutor, inspector SchemaInspector, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		store:     store,
		generator: gen,
		executor:  exec,
		inspector: inspector,
		logger:    logger,
	}
}

// Register attaches all routes to the mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("POST /api/schema/infer", h.handleInferSchema)
	mux.HandleFunc("POST /api/pipeline/generate", h.handleGeneratePipeline)
	mux.HandleFunc("GET /api/pipeline/{id}", h.handleGetPipeline)
	mux.HandleFunc("GET /api/pipelines", h.handleListPipelines)
	mux.HandleFunc("POST /api/pipeline/{id}/execute", h.handleExecutePipeline)
	mux.HandleFunc("POST /api/execute", h.handleExecuteCode)
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// schemaInferRequest is the body of POST /api/schema/infer.
type schemaInferRequest struct {
	SourceType api.SourceType   `json:"source_type"`
	Source     api.SourceConfig `json:"source_config"`
}

func (h *Handlers) handleInferSchema(w http.ResponseWriter, r *http.Request) {
	var req schemaInferRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeAPIError(w, api.NewInvalidRequestError("", err.Error()))
		return
	}

	sch, err := h.inferSchema(r.Context(), req.SourceType, req.Source)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"schema":      sch,
		"source_type": req.SourceType,
	})
}

// inferSchema dispatches on source type. CSV files must exist on disk
// before inference; that misuse is an invalid request, not a server
// fault.
func (h *Handlers) inferSchema(ctx context.Context, sourceType api.SourceType, src api.SourceConfig) (*schema.Schema, error) {
	switch sourceType {
	case api.SourceTypeCSV:
		if src.FilePath == "" {
			return nil, api.NewInvalidRequestError("source_config.file_path", "file_path is required for csv sources")
		}
		if _, err := os.Stat(src.FilePath); err != nil {
			return nil, api.NewInvalidRequestError("source_config.file_path",
				fmt.Sprintf("CSV file not found: %s", src.FilePath))
		}
		return schema.InferCSV(src.FilePath, h.logger)
	case api.SourceTypePostgres:
		return h.inspector.Infer(ctx, src)
	default:
		return nil, api.NewInvalidRequestError("source_type",
			fmt.Sprintf("unsupported source type: %s", sourceType))
	}
}

// generateRequest is the body of POST /api/pipeline/generate.
type generateRequest struct {
	NaturalLanguage string           `json:"natural_language"`
	SourceType      api.SourceType   `json:"source_type"`
	Source          api.SourceConfig `json:"source_config"`
	Transformations []string         `json:"transformations,omitempty"`
}

func (h *Handlers) handleGeneratePipeline(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeAPIError(w, api.NewInvalidRequestError("", err.Error()))
		return
	}
	if req.NaturalLanguage == "" {
		writeAPIError(w, api.NewInvalidRequestError("natural_language", "natural_language is required"))
		return
	}
	if h.generator == nil {
		writeAPIError(w, api.NewServerError("pipeline generation is not configured"))
		return
	}

	sch, err := h.inferSchema(r.Context(), req.SourceType, req.Source)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.generator.Generate(r.Context(), generator.Request{
		NaturalLanguage: req.NaturalLanguage,
		SourceType:      req.SourceType,
		Schema:          sch,
		Source:          req.Source,
		Transformations: req.Transformations,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	pipeline := &api.Pipeline{
		ID:           api.NewPipelineID(),
		Code:         result.Code,
		Language:     result.Language,
		Description:  result.Description,
		Steps:        result.Steps,
		Dependencies: result.Dependencies,
		SourceType:   result.SourceType,
		Source:       req.Source,
		ModelUsed:    result.ModelUsed,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.store.SavePipeline(r.Context(), pipeline); err != nil {
		writeError(w, fmt.Errorf("saving pipeline: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"pipeline_id": pipeline.ID,
		"pipeline":    pipeline,
		"schema":      sch,
	})
}

func (h *Handlers) handleGetPipeline(w http.ResponseWriter, r *http.Request) {
	pipeline, ok := h.loadPipeline(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pipeline": pipeline})
}

func (h *Handlers) handleListPipelines(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &limit); err != nil || limit < 0 {
			writeAPIError(w, api.NewInvalidRequestError("limit", "limit must be a non-negative integer"))
			return
		}
	}

	pipelines, err := h.store.ListPipelines(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if pipelines == nil {
		pipelines = []*api.Pipeline{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"pipelines": pipelines})
}

// executeOptions is the optional body of POST /api/pipeline/{id}/execute.
type executeOptions struct {
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
}

func (h *Handlers) handleExecutePipeline(w http.ResponseWriter, r *http.Request) {
	pipeline, ok := h.loadPipeline(w, r)
	if !ok {
		return
	}
	if pipeline.Language != api.LanguagePython {
		writeAPIError(w, api.NewInvalidRequestError("",
			fmt.Sprintf("only python pipelines can run in the sandbox, this one is %s", pipeline.Language)))
		return
	}

	var opts executeOptions
	if err := decodeBody(w, r, &opts); err != nil && !errors.Is(err, io.EOF) {
		writeAPIError(w, api.NewInvalidRequestError("", err.Error()))
		return
	}

	req := executor.Request{
		Code:    pipeline.Code,
		Timeout: time.Duration(opts.TimeoutSeconds) * time.Second,
	}
	if pipeline.Source.FilePath != "" {
		req.InputFiles = []string{pipeline.Source.FilePath}
	}
	if pipeline.SourceType == api.SourceTypePostgres || pipeline.SourceType == api.SourceTypeMulti {
		req.Database = &executor.DatabaseConfig{
			Host:     pipeline.Source.Host,
			Port:     pipeline.Source.Port,
			Database: pipeline.Source.Database,
			User:     pipeline.Source.User,
			Password: pipeline.Source.Password,
		}
	}

	result := h.executor.Execute(r.Context(), req)
	writeJSON(w, http.StatusOK, map[string]any{
		"pipeline_id": pipeline.ID,
		"result":      result,
	})
}

// executeCodeRequest is the body of POST /api/execute.
type executeCodeRequest struct {
	Code           string                   `json:"code"`
	InputFiles     []string                 `json:"input_files,omitempty"`
	Database       *executor.DatabaseConfig `json:"database,omitempty"`
	TimeoutSeconds int                      `json:"timeout_seconds,omitempty"`
}

func (h *Handlers) handleExecuteCode(w http.ResponseWriter, r *http.Request) {
	var req executeCodeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeAPIError(w, api.NewInvalidRequestError("", err.Error()))
		return
	}
	if req.Code == "" {
		writeAPIError(w, api.NewInvalidRequestError("code", "code is required"))
		return
	}

	result := h.executor.Execute(r.Context(), executor.Request{
		Code:       req.Code,
		InputFiles: req.InputFiles,
		Database:   req.Database,
		Timeout:    time.Duration(req.TimeoutSeconds) * time.Second,
	})
	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

// loadPipeline fetches the pipeline named in the path, writing the
// error response itself when the lookup fails.
func (h *Handlers) loadPipeline(w http.ResponseWriter, r *http.Request) (*api.Pipeline, bool) {
	id := r.PathValue("id")
	if !api.ValidatePipelineID(id) {
		writeAPIError(w, api.NewInvalidRequestError("id", fmt.Sprintf("malformed pipeline id: %s", id)))
		return nil, false
	}

	pipeline, err := h.store.GetPipeline(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeAPIError(w, api.NewNotFoundError(fmt.Sprintf("pipeline %s not found", id)))
		return nil, false
	}
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return pipeline, true
}

// maxBodyBytes caps request bodies. Generated code and schemas are
// small; anything near this limit is not a legitimate request.
const maxBodyBytes = 10 * 1024 * 1024

// decodeBody decodes a JSON request body, rejecting unknown fields.
// Returns io.EOF unchanged for empty bodies so callers can treat them
// as all-defaults where that is allowed.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
