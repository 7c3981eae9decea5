package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/daybook/daybook/internal/entry"
)

// MemoryRepo is an in-memory repository used for unit tests and for running
// without a database. Stored entries are copied in and out so callers never
// share memory with the store.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*entry.Entry
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*entry.Entry)}
}

func clone(e *entry.Entry) *entry.Entry {
	c := *e
	if e.Title != nil {
		t := *e.Title
		c.Title = &t
	}
	return &c
}

func (m *MemoryRepo) Create(_ context.Context, e *entry.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prepare(e)
	m.store[e.ID] = clone(e)
	return nil
}

func (m *MemoryRepo) Get(_ context.Context, ownerID, id string) (*entry.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.store[id]; ok && e.OwnerID == ownerID {
		return clone(e), nil
	}
	return nil, entry.ErrNotFound
}

// filter collects the owner's entries accepted by keep, newest first.
func (m *MemoryRepo) filter(ownerID string, keep func(*entry.Entry) bool) []*entry.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*entry.Entry{}
	for _, e := range m.store {
		if e.OwnerID == ownerID && keep(e) {
			out = append(out, clone(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *MemoryRepo) LatestBetween(_ context.Context, ownerID string, from, to time.Time) (*entry.Entry, error) {
	found := m.filter(ownerID, func(e *entry.Entry) bool {
		return !e.CreatedAt.Before(from) && e.CreatedAt.Before(to)
	})
	if len(found) == 0 {
		return nil, entry.ErrNotFound
	}
	return found[0], nil
}

func (m *MemoryRepo) List(_ context.Context, ownerID string, limit, offset int) ([]*entry.Entry, error) {
	return page(m.filter(ownerID, func(*entry.Entry) bool { return true }), limit, offset), nil
}

func (m *MemoryRepo) Search(_ context.Context, ownerID, text string, limit int) ([]*entry.Entry, error) {
	if blank(text) {
		return []*entry.Entry{}, nil
	}
	needle := strings.ToLower(text)
	found := m.filter(ownerID, func(e *entry.Entry) bool {
		if strings.Contains(strings.ToLower(e.Content), needle) {
			return true
		}
		return e.Title != nil && strings.Contains(strings.ToLower(*e.Title), needle)
	})
	return page(found, limit, 0), nil
}

func (m *MemoryRepo) Since(_ context.Context, ownerID string, from time.Time) ([]*entry.Entry, error) {
	found := m.filter(ownerID, func(e *entry.Entry) bool { return !e.CreatedAt.Before(from) })
	// oldest first, ties by id like the SQL and Mongo stores
	sort.Slice(found, func(i, j int) bool {
		if !found[i].CreatedAt.Equal(found[j].CreatedAt) {
			return found[i].CreatedAt.Before(found[j].CreatedAt)
		}
		return found[i].ID < found[j].ID
	})
	return found, nil
}

func (m *MemoryRepo) Update(_ context.Context, ownerID, id string, c entry.Changes, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.store[id]
	if !ok || e.OwnerID != ownerID {
		return nil
	}
	c.Apply(e, now)
	*e = *clone(e)
	return nil
}

func (m *MemoryRepo) Delete(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.store[id]; ok && e.OwnerID == ownerID {
		delete(m.store, id)
	}
	return nil
}

func page(list []*entry.Entry, limit, offset int) []*entry.Entry {
	if offset >= len(list) {
		return []*entry.Entry{}
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
