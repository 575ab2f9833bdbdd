package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// Memory is a thread-safe in-memory Store.
type Memory struct {
	mu     sync.RWMutex
	scopes map[string]*Scope
}

// NewMemory creates an empty memory store.
func NewMemory() *Memory {
	return &Memory{scopes: make(map[string]*Scope)}
}

func (m *Memory) List(_ context.Context) ([]Scope, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Scope, 0, len(m.scopes))
	for _, s := range m.scopes {
		result = append(result, copyScope(s))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *Memory) Get(_ context.Context, name string) (Scope, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.scopes[name]
	if !ok {
		return Scope{}, false, nil
	}
	return copyScope(s), true, nil
}

func (m *Memory) Put(_ context.Context, name string, vars types.Value) (Scope, error) {
	if err := validate(name, vars); err != nil {
		return Scope{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	s, ok := m.scopes[name]
	if !ok {
		name = strings.Clone(name)
		s = &Scope{ID: uuid.NewString(), Name: name, CreatedAt: now}
		m.scopes[name] = s
	}
	s.Variables = vars.Clone()
	s.Revision++
	s.UpdatedAt = now
	return copyScope(s), nil
}

func (m *Memory) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.scopes[name]; !ok {
		return ErrScopeNotFound
	}
	delete(m.scopes, name)
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

func copyScope(s *Scope) Scope {
	c := *s
	c.Variables = s.Variables.Clone()
	return c
}
