package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/datagrep/datagrep/pkg/api"
	"github.com/datagrep/datagrep/pkg/storage"
)

func testPipeline(id string, createdAt time.Time) *api.Pipeline {
	return &api.Pipeline{
		ID:         id,
		Code:       "print('hi')",
		Language:   api.LanguagePython,
		SourceType: api.SourceTypeCSV,
		CreatedAt:  createdAt,
	}
}

func TestSaveAndGet(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	p := testPipeline("pl_1", time.Now())
	if err := s.SavePipeline(ctx, p); err != nil {
		t.Fatalf("SavePipeline: %v", err)
	}

	got, err := s.GetPipeline(ctx, "pl_1")
	if err != nil {
		t.Fatalf("GetPipeline: %v", err)
	}
	if got.Code != p.Code {
		t.Errorf("Code = %q, want %q", got.Code, p.Code)
	}
}

func TestGetMissing(t *testing.T) {
	s := New(0)
	_, err := s.GetPipeline(context.Background(), "pl_missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveConflict(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	p := testPipeline("pl_dup", time.Now())
	if err := s.SavePipeline(ctx, p); err != nil {
		t.Fatalf("SavePipeline: %v", err)
	}
	if err := s.SavePipeline(ctx, p); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestListPipelinesNewestFirst(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 3; i++ {
		p := testPipeline(fmt.Sprintf("pl_%d", i), base.Add(time.Duration(i)*time.Minute))
		if err := s.SavePipeline(ctx, p); err != nil {
			t.Fatalf("SavePipeline: %v", err)
		}
	}

	got, err := s.ListPipelines(ctx, 2)
	if err != nil {
		t.Fatalf("ListPipelines: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d pipelines, want 2", len(got))
	}
	if got[0].ID != "pl_2" || got[1].ID != "pl_1" {
		t.Errorf("order = [%s %s], want [pl_2 pl_1]", got[0].ID, got[1].ID)
	}
}

func TestLRUEviction(t *testing.T) {
	s := New(2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := s.SavePipeline(ctx, testPipeline(fmt.Sprintf("pl_%d", i), time.Now())); err != nil {
			t.Fatalf("SavePipeline: %v", err)
		}
	}

	// Touch pl_0 so pl_1 becomes the eviction candidate.
	if _, err := s.GetPipeline(ctx, "pl_0"); err != nil {
		t.Fatalf("GetPipeline: %v", err)
	}

	if err := s.SavePipeline(ctx, testPipeline("pl_2", time.Now())); err != nil {
		t.Fatalf("SavePipeline: %v", err)
	}

	if _, err := s.GetPipeline(ctx, "pl_1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("pl_1 should have been evicted, got err = %v", err)
	}
	if _, err := s.GetPipeline(ctx, "pl_0"); err != nil {
		t.Errorf("pl_0 should survive eviction, got err = %v", err)
	}
}
