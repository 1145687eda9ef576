package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/datagrep/datagrep/pkg/api"
	"github.com/datagrep/datagrep/pkg/storage"
)

// setupTestDB starts a PostgreSQL container and returns a connected
// Store with migrations applied. Tests are skipped when no container
// runtime is available.
func setupTestDB(t *testing.T) *Store {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping PostgreSQL integration tests")
	}

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("datagrep_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	store, err := New(ctx, Config{
		DSN:            connStr,
		MigrateOnStart: true,
	})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func testPipeline(id string) *api.Pipeline {
	return &api.Pipeline{
		ID:           id,
		Code:         "import pandas as pd\nprint('ok')",
		Language:     api.LanguagePython,
		Description:  "Generated pipeline",
		Steps:        []string{"load", "aggregate"},
		Dependencies: []string{"pandas"},
		SourceType:   api.SourceTypeCSV,
		Source:       api.SourceConfig{FilePath: "/tmp/sales.csv"},
		ModelUsed:    "gpt-4",
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestSaveAndGetPipeline(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	p := testPipeline("pl_roundtrip")
	if err := store.SavePipeline(ctx, p); err != nil {
		t.Fatalf("SavePipeline: %v", err)
	}

	got, err := store.GetPipeline(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPipeline: %v", err)
	}
	if got.Code != p.Code {
		t.Errorf("Code = %q, want %q", got.Code, p.Code)
	}
	if got.Language != api.LanguagePython {
		t.Errorf("Language = %q", got.Language)
	}
	if len(got.Steps) != 2 || got.Steps[0] != "load" {
		t.Errorf("Steps = %v", got.Steps)
	}
	if got.Source.FilePath != "/tmp/sales.csv" {
		t.Errorf("Source.FilePath = %q", got.Source.FilePath)
	}
	if !got.CreatedAt.Equal(p.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, p.CreatedAt)
	}
}

func TestGetPipelineNotFound(t *testing.T) {
	store := setupTestDB(t)

	_, err := store.GetPipeline(context.Background(), "pl_missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSavePipelineConflict(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	p := testPipeline("pl_dup")
	if err := store.SavePipeline(ctx, p); err != nil {
		t.Fatalf("SavePipeline: %v", err)
	}
	if err := store.SavePipeline(ctx, p); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestListPipelines(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 3; i++ {
		p := testPipeline(fmt.Sprintf("pl_list_%d", i))
		p.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := store.SavePipeline(ctx, p); err != nil {
			t.Fatalf("SavePipeline: %v", err)
		}
	}

	got, err := store.ListPipelines(ctx, 2)
	if err != nil {
		t.Fatalf("ListPipelines: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d pipelines, want 2", len(got))
	}
	if got[0].ID != "pl_list_2" {
		t.Errorf("first pipeline = %s, want pl_list_2", got[0].ID)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	store := setupTestDB(t)

	// Running migrations again must not fail or clobber data.
	if err := store.migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}
