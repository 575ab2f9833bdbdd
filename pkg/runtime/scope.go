// Package runtime provides the nested variable scopes expressions are
// evaluated against.
package runtime

import (
	"sync"

	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// VariableScope stores variables in insertion order with parent scope
// chaining. Lookups walk up the parent chain. Assignments update the scope
// that already holds the name, or create it in the current scope.
type VariableScope struct {
	parent *VariableScope
	vars   *types.OrderedMap
	mu     sync.RWMutex
	frozen bool
}

// NewScope creates a new root scope.
func NewScope() *VariableScope {
	return &VariableScope{vars: types.NewOrderedMap()}
}

// NewScopeFrom creates a root scope holding the entries of m. A non-map value
// yields an empty scope.
func NewScopeFrom(m types.Value) *VariableScope {
	s := NewScope()
	if m.Type() != types.TypeMap {
		return s
	}
	for _, k := range m.AsMap().Keys() {
		v, _ := m.AsMap().Get(k)
		s.vars.Set(k, v)
	}
	return s
}

// NewChildScope creates a child scope that inherits from this scope, as a
// loop body or block does.
func (s *VariableScope) NewChildScope() *VariableScope {
	return &VariableScope{parent: s, vars: types.NewOrderedMap()}
}

// Parent returns the enclosing scope, or nil for a root scope.
func (s *VariableScope) Parent() *VariableScope {
	return s.parent
}

// Freeze makes this scope reject assignments. Parents are unaffected.
func (s *VariableScope) Freeze() {
	s.mu.Lock()
	s.frozen = true
	s.mu.Unlock()
}

// Get retrieves a variable value, searching up the scope chain.
func (s *VariableScope) Get(name string) (types.Value, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		v, ok := cur.vars.Get(name)
		cur.mu.RUnlock()
		if ok {
			return v, true
		}
	}
	return types.Null, false
}

// Set assigns name in the nearest scope that holds it, or creates it in this
// scope. It reports false if the target scope is frozen.
func (s *VariableScope) Set(name string, value types.Value) bool {
	target := s
	for cur := s.parent; cur != nil; cur = cur.parent {
		if cur.has(name) {
			target = cur
			break
		}
	}
	return target.SetLocal(name, value)
}

// SetLocal sets a variable in this scope only (no parent search).
func (s *VariableScope) SetLocal(name string, value types.Value) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return false
	}
	s.vars.Set(name, value)
	return true
}

// Delete removes name from this scope only.
func (s *VariableScope) Delete(name string) {
	s.mu.Lock()
	s.vars.Delete(name)
	s.mu.Unlock()
}

func (s *VariableScope) has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vars.Has(name)
}

// Exists checks if a variable exists in this scope or any parent.
func (s *VariableScope) Exists(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Keys returns every visible name: outermost scope first, each in insertion
// order, shadowed names listed once at their outermost position.
func (s *VariableScope) Keys() []string {
	var chain []*VariableScope
	for cur := s; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	seen := make(map[string]bool)
	var keys []string
	for i := len(chain) - 1; i >= 0; i-- {
		chain[i].mu.RLock()
		for _, k := range chain[i].vars.Keys() {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
		chain[i].mu.RUnlock()
	}
	return keys
}

// Snapshot flattens the visible variables into a map value. Values are shared,
// not copied.
func (s *VariableScope) Snapshot() types.Value {
	m := types.NewOrderedMap()
	for _, k := range s.Keys() {
		v, _ := s.Get(k)
		m.Set(k, v)
	}
	return types.NewMap(m)
}
