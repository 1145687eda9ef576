// Package memory provides an in-memory implementation of
// storage.PipelineStore for testing and lightweight deployments.
// Pipelines are lost when the process restarts. Optional LRU eviction
// limits memory usage.
package memory

import (
	"container/list"
	"context"
	"sort"
	"sync"

	"github.com/datagrep/datagrep/pkg/api"
	"github.com/datagrep/datagrep/pkg/storage"
)

const defaultListLimit = 100

type entry struct {
	pipeline *api.Pipeline
	lruElem  *list.Element
}

// Store is an in-memory PipelineStore with optional LRU eviction.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	lruList *list.List // front = most recently used
	maxSize int        // 0 = unlimited
}

var _ storage.PipelineStore = (*Store)(nil)

// New creates a new in-memory store. If maxSize is 0 the store grows
// without limit; otherwise the least recently used pipeline is evicted
// when the limit is reached.
func New(maxSize int) *Store {
	return &Store{
		entries: make(map[string]*entry),
		lruList: list.New(),
		maxSize: maxSize,
	}
}

// SavePipeline stores a pipeline in memory.
func (s *Store) SavePipeline(ctx context.Context, p *api.Pipeline) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[p.ID]; exists {
		return storage.ErrConflict
	}

	if s.maxSize > 0 && len(s.entries) >= s.maxSize {
		s.evictOldest()
	}

	elem := s.lruList.PushFront(p.ID)
	s.entries[p.ID] = &entry{pipeline: p, lruElem: elem}
	return nil
}

// GetPipeline retrieves a pipeline by ID and marks it recently used.
func (s *Store) GetPipeline(ctx context.Context, id string) (*api.Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	s.lruList.MoveToFront(e.lruElem)
	return e.pipeline, nil
}

// ListPipelines returns up to limit pipelines, newest first by
// creation time.
func (s *Store) ListPipelines(ctx context.Context, limit int) ([]*api.Pipeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = defaultListLimit
	}

	pipelines := make([]*api.Pipeline, 0, len(s.entries))
	for _, e := range s.entries {
		pipelines = append(pipelines, e.pipeline)
	}
	sort.Slice(pipelines, func(i, j int) bool {
		return pipelines[i].CreatedAt.After(pipelines[j].CreatedAt)
	})

	if len(pipelines) > limit {
		pipelines = pipelines[:limit]
	}
	return pipelines, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// evictOldest removes the least recently used pipeline. Caller must
// hold the write lock.
func (s *Store) evictOldest() {
	back := s.lruList.Back()
	if back == nil {
		return
	}
	id := back.Value.(string)
	s.lruList.Remove(back)
	delete(s.entries, id)
}
