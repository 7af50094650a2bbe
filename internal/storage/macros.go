// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/ipapadil7-star/nexus/internal/commands"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("macro database is closed")

const macroSchema = `
CREATE TABLE IF NOT EXISTS macros (
	name_key   TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	body       TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);`

// MacroDB stores macros in SQLite. It implements commands.MacroStore.
type MacroDB struct {
	db   *sql.DB
	path string
}

var _ commands.MacroStore = (*MacroDB)(nil)

// OpenMacroDB opens (creating if needed) the macro database at path.
func OpenMacroDB(path string) (*MacroDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create macro db directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open macro db: %w", err)
	}
	// SQLite has one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("macro db %s: %w", p, err)
		}
	}
	if _, err := db.Exec(macroSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init macro schema: %w", err)
	}
	return &MacroDB{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *MacroDB) Path() string { return s.path }

// Close closes the database.
func (s *MacroDB) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// ListMacros returns every macro ordered by name.
func (s *MacroDB) ListMacros(ctx context.Context) ([]commands.Macro, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, `SELECT name, body, created_at, updated_at FROM macros ORDER BY name_key`)
	if err != nil {
		return nil, fmt.Errorf("list macros: %w", err)
	}
	defer rows.Close()

	var out []commands.Macro
	for rows.Next() {
		var m commands.Macro
		var created, updated int64
		if err := rows.Scan(&m.Name, &m.Text, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan macro: %w", err)
		}
		m.CreatedAt = time.Unix(0, created)
		m.UpdatedAt = time.Unix(0, updated)
		out = append(out, m)
	}
	return out, rows.Err()
}

// SaveMacro inserts or replaces a macro, keeping the original creation time.
func (s *MacroDB) SaveMacro(ctx context.Context, m commands.Macro) error {
	if s.db == nil {
		return ErrClosed
	}
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = now
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO macros (name_key, name, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name_key) DO UPDATE SET
			name = excluded.name,
			body = excluded.body,
			updated_at = excluded.updated_at`,
		strings.ToLower(m.Name), m.Name, m.Text, m.CreatedAt.UnixNano(), m.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("save macro %s: %w", m.Name, err)
	}
	return nil
}

// DeleteMacro removes a macro. Deleting an unknown name returns
// commands.ErrMacroNotFound.
func (s *MacroDB) DeleteMacro(ctx context.Context, name string) error {
	if s.db == nil {
		return ErrClosed
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM macros WHERE name_key = ?`, strings.ToLower(name))
	if err != nil {
		return fmt.Errorf("delete macro %s: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("/%s: %w", name, commands.ErrMacroNotFound)
	}
	return nil
}
