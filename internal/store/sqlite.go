package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"pefund/internal/config"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS saves (
	slot TEXT PRIMARY KEY,
	version INTEGER NOT NULL,
	quarter INTEGER NOT NULL,
	difficulty TEXT NOT NULL,
	saved_at INTEGER NOT NULL,
	body TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_saves_saved_at ON saves(saved_at);
`

// SQLite stores snapshots in a single table.
type SQLite struct {
	conn *sqlx.DB
}

type saveRow struct {
	Slot       string `db:"slot"`
	Version    int    `db:"version"`
	Quarter    int    `db:"quarter"`
	Difficulty string `db:"difficulty"`
	SavedAt    int64  `db:"saved_at"`
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// OpenSQLite opens or creates the database at path. ":memory:" gives a
// private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := path
	if path != ":memory:" {
		clean := filepath.Clean(path)
		if err := os.MkdirAll(filepath.Dir(clean), 0o700); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		dsn = clean + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps ":memory:" databases shared across calls.
	conn.SetMaxOpenConns(1)

	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate sqlite db: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

func (s *SQLite) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *SQLite) Save(ctx context.Context, slot string, snap Snapshot) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	body, err := Encode(snap)
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO saves (slot, version, quarter, difficulty, saved_at, body)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			version = excluded.version,
			quarter = excluded.quarter,
			difficulty = excluded.difficulty,
			saved_at = excluded.saved_at,
			body = excluded.body
	`, slot, snap.Version, snap.Clock.Quarter, string(snap.Difficulty), toMillis(snap.SavedAt), string(body))
	if err != nil {
		return fmt.Errorf("save slot %s: %w", slot, err)
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context, slot string) (Snapshot, error) {
	if err := ValidateSlot(slot); err != nil {
		return Snapshot{}, err
	}
	var body string
	err := s.conn.GetContext(ctx, &body, "SELECT body FROM saves WHERE slot = ?", slot)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load slot %s: %w", slot, err)
	}
	return Decode([]byte(body))
}

func (s *SQLite) List(ctx context.Context) ([]Meta, error) {
	var rows []saveRow
	err := s.conn.SelectContext(ctx, &rows,
		"SELECT slot, version, quarter, difficulty, saved_at FROM saves ORDER BY saved_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	out := make([]Meta, 0, len(rows))
	for _, r := range rows {
		out = append(out, Meta{
			Slot:       r.Slot,
			Version:    r.Version,
			Quarter:    r.Quarter,
			Difficulty: config.Difficulty(r.Difficulty),
			SavedAt:    fromMillis(r.SavedAt),
		})
	}
	return out, nil
}

func (s *SQLite) Delete(ctx context.Context, slot string) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	res, err := s.conn.ExecContext(ctx, "DELETE FROM saves WHERE slot = ?", slot)
	if err != nil {
		return fmt.Errorf("delete slot %s: %w", slot, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
	}
	return nil
}
