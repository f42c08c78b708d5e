package pending

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tournesol-app/comparo/internal/domain"
)

type memoryEntry struct {
	score     int
	updatedAt time.Time
}

// MemoryBackend keeps pending ratings in process memory.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[domain.PendingKey]memoryEntry
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[domain.PendingKey]memoryEntry)}
}

func (m *MemoryBackend) Get(_ context.Context, key domain.PendingKey) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	return e.score, ok, nil
}

func (m *MemoryBackend) Update(_ context.Context, key domain.PendingKey, at time.Time, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.entries[key]
	next, keep, err := fn(cur.score, ok)
	if err != nil {
		return err
	}
	if !keep {
		delete(m.entries, key)
		return nil
	}
	m.entries[key] = memoryEntry{score: next, updatedAt: at}
	return nil
}

func (m *MemoryBackend) ListPair(_ context.Context, poll, entityA, entityB string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]int)
	for k, e := range m.entries {
		if k.Poll == poll && k.EntityA == entityA && k.EntityB == entityB {
			out[k.Criterion] = e.score
		}
	}
	return out, nil
}

func (m *MemoryBackend) DeletePair(_ context.Context, poll, entityA, entityB string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k := range m.entries {
		if k.Poll == poll && k.EntityA == entityA && k.EntityB == entityB {
			delete(m.entries, k)
		}
	}
	return nil
}

func (m *MemoryBackend) List(_ context.Context) ([]domain.PendingRating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.PendingRating, 0, len(m.entries))
	for k, e := range m.entries {
		out = append(out, domain.PendingRating{
			Poll: k.Poll, EntityA: k.EntityA, EntityB: k.EntityB, Criterion: k.Criterion,
			Score: e.score, UpdatedAt: e.updatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return keyOf(out[i]).String() < keyOf(out[j]).String()
	})
	return out, nil
}

func (m *MemoryBackend) DeleteAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[domain.PendingKey]memoryEntry)
	return nil
}

func keyOf(r domain.PendingRating) domain.PendingKey {
	return domain.PendingKey{Poll: r.Poll, EntityA: r.EntityA, EntityB: r.EntityB, Criterion: r.Criterion}
}
