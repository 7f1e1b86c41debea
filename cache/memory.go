package cache

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	value     []byte
	tags      map[string]struct{}
	paths     map[string]struct{}
	expiresAt time.Time
}

// Memory is an in-process Store.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	now     func() time.Time
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memEntry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrMiss
	}
	if !m.now().Before(e.expiresAt) {
		m.mu.Lock()
		if cur, ok := m.entries[key]; ok && !m.now().Before(cur.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, ErrMiss
	}
	return e.value, nil
}

func (m *Memory) Set(_ context.Context, key string, e Entry) error {
	me := memEntry{
		value:     append([]byte(nil), e.Value...),
		tags:      make(map[string]struct{}, len(e.Tags)),
		paths:     make(map[string]struct{}, len(e.Paths)),
		expiresAt: e.ExpiresAt,
	}
	for _, t := range normalizeAll(e.Tags, NormalizeTag) {
		me.tags[t] = struct{}{}
	}
	for _, p := range normalizeAll(e.Paths, NormalizePath) {
		me.paths[p] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, old := range m.entries {
		if !now.Before(old.expiresAt) {
			delete(m.entries, k)
		}
	}
	m.entries[key] = me
	return nil
}

func (m *Memory) InvalidateTag(_ context.Context, tag string) (int, error) {
	tag = NormalizeTag(tag)
	return m.removeWhere(func(e memEntry) bool {
		_, ok := e.tags[tag]
		return ok
	}), nil
}

func (m *Memory) InvalidatePath(ctx context.Context, path string) (int, error) {
	path = NormalizePath(path)
	if path == "/" {
		return m.Purge(ctx)
	}
	return m.removeWhere(func(e memEntry) bool {
		_, ok := e.paths[path]
		return ok
	}), nil
}

func (m *Memory) Purge(context.Context) (int, error) {
	m.mu.Lock()
	n := len(m.entries)
	m.entries = make(map[string]memEntry)
	m.mu.Unlock()
	return n, nil
}

func (m *Memory) Close() error { return nil }

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory) removeWhere(match func(memEntry) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, e := range m.entries {
		if match(e) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}
