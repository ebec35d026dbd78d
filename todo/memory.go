package todo

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository keeps todos in process memory.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]Todo
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]Todo)}
}

func (r *MemoryRepository) Create(_ context.Context, t Todo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[t.ID] = cloneTodo(t)
	return nil
}

func (r *MemoryRepository) ListByCreator(_ context.Context, creatorID string) ([]Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Todo, 0)
	for _, t := range r.items {
		if t.CreatorID == creatorID {
			out = append(out, cloneTodo(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) Get(_ context.Context, creatorID, id string) (Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.items[id]
	if !ok || t.CreatorID != creatorID {
		return Todo{}, ErrNotFound
	}
	return cloneTodo(t), nil
}

func (r *MemoryRepository) Update(_ context.Context, t Todo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[t.ID]
	if !ok || current.CreatorID != t.CreatorID {
		return ErrNotFound
	}
	r.items[t.ID] = cloneTodo(t)
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, creatorID, id string) (Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok || t.CreatorID != creatorID {
		return Todo{}, ErrNotFound
	}
	delete(r.items, id)
	return t, nil
}

func cloneTodo(t Todo) Todo {
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		t.CompletedAt = &at
	}
	return t
}
