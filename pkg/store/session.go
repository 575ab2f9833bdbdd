package store

import (
	"context"

	"github.com/lemonberrylabs/eggexpr/pkg/runtime"
	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// Session is one evaluation against an optional named scope. Request
// variables are laid over the stored ones; Commit saves the result back when
// evaluation changed it.
type Session struct {
	Scope *runtime.VariableScope

	store  Store
	name   string
	before types.Value
}

// OpenSession loads the named scope, if any, and overlays vars. An empty name
// gives a session that is never saved. vars must be null or a map.
func OpenSession(ctx context.Context, st Store, name string, vars types.Value) (*Session, error) {
	if !vars.IsNull() && vars.Type() != types.TypeMap {
		return nil, ErrInvalidScope
	}

	base := types.NewMap(types.NewOrderedMap())
	if name != "" {
		stored, found, err := st.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		if found {
			base = stored.Variables
		}
	}
	if !vars.IsNull() {
		m := vars.AsMap()
		for _, k := range m.Keys() {
			v, _ := m.Get(k)
			base.AsMap().Set(k, v)
		}
	}

	scope := runtime.NewScopeFrom(base)
	return &Session{
		Scope:  scope,
		store:  st,
		name:   name,
		before: scope.Snapshot().Clone(),
	}, nil
}

// Named reports whether the session is bound to a stored scope.
func (s *Session) Named() bool {
	return s.name != ""
}

// Commit saves the scope if it is named and its variables changed since the
// session opened. It reports whether anything was written.
func (s *Session) Commit(ctx context.Context) (bool, error) {
	if s.name == "" {
		return false, nil
	}
	after := s.Scope.Snapshot()
	if after.StrictEqual(s.before) {
		return false, nil
	}
	if _, err := s.store.Put(ctx, s.name, after); err != nil {
		return false, err
	}
	s.before = after.Clone()
	return true, nil
}
