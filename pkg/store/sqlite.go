package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lemonberrylabs/eggexpr/pkg/types"

	_ "modernc.org/sqlite"
)

const scopeSQLiteSchema = `
CREATE TABLE IF NOT EXISTS scopes (
	name TEXT PRIMARY KEY,
	id TEXT NOT NULL UNIQUE,
	variables BLOB NOT NULL,
	revision INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// SQLite persists scopes in a SQLite database. Variables are stored as
// JSON with map key order preserved.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) a SQLite-backed scope store.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("scope sqlite store open: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("scope sqlite store set WAL mode: %w", err)
	}
	if _, err := db.Exec(scopeSQLiteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("scope sqlite store create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScope(row rowScanner) (Scope, error) {
	var (
		s                    Scope
		vars                 []byte
		createdAt, updatedAt string
	)
	if err := row.Scan(&s.Name, &s.ID, &vars, &s.Revision, &createdAt, &updatedAt); err != nil {
		return Scope{}, err
	}
	v, err := types.ParseJSON(vars)
	if err != nil {
		return Scope{}, fmt.Errorf("scope %q: decode variables: %w", s.Name, err)
	}
	s.Variables = v
	if s.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return Scope{}, fmt.Errorf("scope %q: created_at: %w", s.Name, err)
	}
	if s.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return Scope{}, fmt.Errorf("scope %q: updated_at: %w", s.Name, err)
	}
	return s, nil
}

func (s *SQLite) List(ctx context.Context) ([]Scope, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT name, id, variables, revision, created_at, updated_at
FROM scopes
ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("scope sqlite store list: %w", err)
	}
	defer rows.Close()

	var scopes []Scope
	for rows.Next() {
		sc, err := scanScope(rows)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scope sqlite store list rows: %w", err)
	}
	return scopes, nil
}

func (s *SQLite) Get(ctx context.Context, name string) (Scope, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT name, id, variables, revision, created_at, updated_at
FROM scopes
WHERE name = ?`, name)

	sc, err := scanScope(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Scope{}, false, nil
		}
		return Scope{}, false, fmt.Errorf("scope sqlite store get: %w", err)
	}
	return sc, true, nil
}

func (s *SQLite) Put(ctx context.Context, name string, vars types.Value) (Scope, error) {
	if err := validate(name, vars); err != nil {
		return Scope{}, err
	}
	data, err := vars.MarshalJSON()
	if err != nil {
		return Scope{}, fmt.Errorf("scope sqlite store encode: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err = s.db.ExecContext(ctx, `
INSERT INTO scopes (name, id, variables, revision, created_at, updated_at)
VALUES (?, ?, ?, 1, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	variables = excluded.variables,
	revision = scopes.revision + 1,
	updated_at = excluded.updated_at`,
		name, uuid.NewString(), data, now, now)
	if err != nil {
		return Scope{}, fmt.Errorf("scope sqlite store put: %w", err)
	}

	sc, ok, err := s.Get(ctx, name)
	if err != nil {
		return Scope{}, err
	}
	if !ok {
		return Scope{}, ErrScopeNotFound
	}
	return sc, nil
}

func (s *SQLite) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scopes WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("scope sqlite store delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("scope sqlite store delete: %w", err)
	}
	if n == 0 {
		return ErrScopeNotFound
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
