package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pefund/internal/config"
	"pefund/internal/db"
)

const postgresSchema = `
CREATE SCHEMA IF NOT EXISTS pefund;

CREATE TABLE IF NOT EXISTS pefund.saves (
	slot TEXT PRIMARY KEY,
	version INTEGER NOT NULL,
	quarter INTEGER NOT NULL,
	difficulty TEXT NOT NULL,
	saved_at TIMESTAMPTZ NOT NULL,
	body JSONB NOT NULL
);
`

// Postgres stores snapshots as jsonb rows.
type Postgres struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	p := NewPostgres(pool)
	if err := p.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate saves: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// saveArgs builds the upsert arguments in column order.
func saveArgs(slot string, snap Snapshot) ([]any, error) {
	if err := ValidateSlot(slot); err != nil {
		return nil, err
	}
	body, err := Encode(snap)
	if err != nil {
		return nil, err
	}
	savedAt := snap.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now().UTC()
	}
	return []any{slot, snap.Version, snap.Clock.Quarter, string(snap.Difficulty), savedAt, string(body)}, nil
}

func (p *Postgres) Save(ctx context.Context, slot string, snap Snapshot) error {
	args, err := saveArgs(slot, snap)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO pefund.saves (slot, version, quarter, difficulty, saved_at, body)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb)
		ON CONFLICT (slot) DO UPDATE SET
			version = EXCLUDED.version,
			quarter = EXCLUDED.quarter,
			difficulty = EXCLUDED.difficulty,
			saved_at = EXCLUDED.saved_at,
			body = EXCLUDED.body
	`, args...)
	if err != nil {
		return fmt.Errorf("save slot %s: %w", slot, err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context, slot string) (Snapshot, error) {
	if err := ValidateSlot(slot); err != nil {
		return Snapshot{}, err
	}
	var body []byte
	err := p.pool.QueryRow(ctx, `SELECT body FROM pefund.saves WHERE slot = $1`, slot).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load slot %s: %w", slot, err)
	}
	return Decode(body)
}

func (p *Postgres) List(ctx context.Context) ([]Meta, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT slot, version, quarter, difficulty, saved_at
		FROM pefund.saves
		ORDER BY saved_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	defer rows.Close()

	out := []Meta{}
	for rows.Next() {
		var m Meta
		var difficulty string
		if err := rows.Scan(&m.Slot, &m.Version, &m.Quarter, &difficulty, &m.SavedAt); err != nil {
			return nil, err
		}
		m.Difficulty = config.Difficulty(difficulty)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *Postgres) Delete(ctx context.Context, slot string) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx, `DELETE FROM pefund.saves WHERE slot = $1`, slot)
	if err != nil {
		return fmt.Errorf("delete slot %s: %w", slot, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
	}
	return nil
}
