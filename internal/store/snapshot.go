// Package store persists game sessions as versioned JSON snapshots.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"sort"
	"time"

	"pefund/internal/config"
	"pefund/internal/game"
)

const SnapshotVersion = 3

var (
	ErrSlotNotFound       = errors.New("save slot not found")
	ErrInvalidSlot        = errors.New("slot must be 1-64 letters, digits, '-' or '_'")
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")

	slotPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

// Store is a save-slot backend.
type Store interface {
	Save(ctx context.Context, slot string, snap Snapshot) error
	Load(ctx context.Context, slot string) (Snapshot, error)
	List(ctx context.Context) ([]Meta, error)
	Delete(ctx context.Context, slot string) error
	Close() error
}

// Snapshot is everything needed to resume a session.
type Snapshot struct {
	Version      int                `json:"version"`
	SavedAt      time.Time          `json:"saved_at"`
	Difficulty   config.Difficulty  `json:"difficulty"`
	Clock        game.Clock         `json:"clock"`
	Market       game.MarketState   `json:"market"`
	Player       game.PlayerState   `json:"player"`
	DealPool     []*game.Company    `json:"deal_pool"`
	PendingShock map[string]float64 `json:"pending_sector_shock,omitempty"`
}

// Meta describes a save slot without its body.
type Meta struct {
	Slot       string            `json:"slot"`
	Version    int               `json:"version"`
	Quarter    int               `json:"quarter"`
	Difficulty config.Difficulty `json:"difficulty"`
	SavedAt    time.Time         `json:"saved_at"`
}

func (s Snapshot) Meta(slot string) Meta {
	return Meta{
		Slot:       slot,
		Version:    s.Version,
		Quarter:    s.Clock.Quarter,
		Difficulty: s.Difficulty,
		SavedAt:    s.SavedAt,
	}
}

func sortNewestFirst(metas []Meta) {
	sort.Slice(metas, func(i, j int) bool { return metas[i].SavedAt.After(metas[j].SavedAt) })
}

func ValidateSlot(slot string) error {
	if !slotPattern.MatchString(slot) {
		return fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	return nil
}

func Capture(s *game.Session) Snapshot {
	parts := s.Parts()
	return Snapshot{
		Version:      SnapshotVersion,
		SavedAt:      time.Now().UTC(),
		Difficulty:   s.Rules().Difficulty,
		Clock:        parts.Clock,
		Market:       parts.Market,
		Player:       parts.Player,
		DealPool:     parts.DealPool,
		PendingShock: parts.PendingShock,
	}
}

// Restore rebuilds a session. The rules come from the snapshot's difficulty
// with the saved game length.
func Restore(snap Snapshot, opts game.Options) (*game.Session, error) {
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.Version)
	}
	rules, err := config.ForDifficulty(snap.Difficulty)
	if err != nil {
		return nil, fmt.Errorf("restore snapshot: %w", err)
	}
	if snap.Clock.TotalQuarters > 0 {
		rules.GameQuarters = snap.Clock.TotalQuarters
	}
	return game.RestoreSession(rules, game.Parts{
		Market:       snap.Market,
		Player:       snap.Player,
		Clock:        snap.Clock,
		DealPool:     snap.DealPool,
		PendingShock: maps.Clone(snap.PendingShock),
	}, opts), nil
}

func Encode(snap Snapshot) ([]byte, error) {
	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return body, nil
}

func Decode(body []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return Snapshot{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.Version)
	}
	return snap, nil
}

// Open returns the backend selected by cfg.
func Open(ctx context.Context, cfg config.AppConfig) (Store, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	case config.StorePostgres:
		return OpenPostgres(ctx, cfg.DatabaseURL)
	default:
		return NewFile(cfg.SaveDir)
	}
}
