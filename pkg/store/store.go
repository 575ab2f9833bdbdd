// Package store persists named variable scopes so expressions can be
// evaluated against, and assign into, state that outlives a request.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

// Sentinel errors for store operations.
var (
	ErrScopeNotFound = errors.New("scope not found")
	ErrInvalidScope  = errors.New("scope variables must be a map")
)

// Scope is a stored set of variables.
type Scope struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Variables types.Value `json:"variables"`
	Revision  int64       `json:"revision"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Store provides CRUD operations on named scopes. Implementations copy
// variables on the way in and out, so callers may modify what they get.
type Store interface {
	List(ctx context.Context) ([]Scope, error)
	Get(ctx context.Context, name string) (Scope, bool, error)

	// Put creates the scope or replaces its variables, bumping the revision.
	Put(ctx context.Context, name string, vars types.Value) (Scope, error)

	Delete(ctx context.Context, name string) error
	Close() error
}

// Open returns a SQLite store for dsn, or a memory store when dsn is empty
// or ":memory:".
func Open(dsn string) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" || dsn == ":memory:" {
		return NewMemory(), nil
	}
	return NewSQLite(dsn)
}

func validate(name string, vars types.Value) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("scope name is required")
	}
	if vars.Type() != types.TypeMap {
		return ErrInvalidScope
	}
	return nil
}
