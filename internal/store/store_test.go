package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pefund/internal/config"
	"pefund/internal/game"
	"pefund/internal/stochastic"
)

func newSession(t *testing.T) *game.Session {
	t.Helper()
	rules := config.MustDifficulty(config.DifficultyNormal)
	rules.GameQuarters = 12
	return game.NewSession(rules, game.Options{Source: stochastic.NewSeeded(7)})
}

func snapshotAt(t *testing.T, quarter int, at time.Time) Snapshot {
	t.Helper()
	snap := Capture(newSession(t))
	snap.Clock.Quarter = quarter
	snap.SavedAt = at
	return snap
}

func TestValidateSlot(t *testing.T) {
	tests := []struct {
		slot string
		ok   bool
	}{
		{slot: "main", ok: true},
		{slot: "run_2-b", ok: true},
		{slot: "", ok: false},
		{slot: "../etc", ok: false},
		{slot: "with space", ok: false},
		{slot: string(make([]byte, 65)), ok: false},
	}
	for _, tc := range tests {
		err := ValidateSlot(tc.slot)
		if tc.ok {
			assert.NoError(t, err, tc.slot)
		} else {
			assert.ErrorIs(t, err, ErrInvalidSlot, tc.slot)
		}
	}
}

func TestCaptureRestoreRoundTrip(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.TakeDebt(1_000_000))

	snap := Capture(s)
	assert.Equal(t, SnapshotVersion, snap.Version)
	assert.Equal(t, config.DifficultyNormal, snap.Difficulty)

	body, err := Encode(snap)
	require.NoError(t, err)
	decoded, err := Decode(body)
	require.NoError(t, err)

	restored, err := Restore(decoded, game.Options{Source: stochastic.NewSeeded(1)})
	require.NoError(t, err)

	assert.Equal(t, s.Clock, restored.Clock)
	assert.Equal(t, 12, restored.Rules().GameQuarters)
	assert.Equal(t, s.Player.Cash, restored.Player.Cash)
	assert.Equal(t, s.Player.CurrentDebt, restored.Player.CurrentDebt)
	assert.Equal(t, s.Market.SectorMultiples, restored.Market.SectorMultiples)
	assert.Equal(t, s.Market.InterestHistory, restored.Market.InterestHistory)
	require.Len(t, restored.DealPool, len(s.DealPool))
	for i := range s.DealPool {
		assert.Equal(t, s.DealPool[i].ID, restored.DealPool[i].ID)
		assert.Equal(t, s.DealPool[i].Manager, restored.DealPool[i].Manager)
		assert.Equal(t, s.DealPool[i].RevenueHistory, restored.DealPool[i].RevenueHistory)
	}
}

func TestRestoreRejectsOtherVersions(t *testing.T) {
	snap := Capture(newSession(t))
	snap.Version = 2

	_, err := Restore(snap, game.Options{})
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = Decode([]byte(`{"version": 2}`))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestRestoreRejectsUnknownDifficulty(t *testing.T) {
	snap := Capture(newSession(t))
	snap.Difficulty = "nightmare"

	_, err := Restore(snap, game.Options{})
	assert.ErrorIs(t, err, config.ErrUnknownDifficulty)
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	file, err := NewFile(t.TempDir())
	require.NoError(t, err)
	sqlite, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })
	return map[string]Store{"file": file, "sqlite": sqlite}
}

func TestStoreBackends(t *testing.T) {
	ctx := context.Background()
	older := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			list, err := st.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, list)

			first := snapshotAt(t, 3, older)
			require.NoError(t, st.Save(ctx, "alpha", first))
			require.NoError(t, st.Save(ctx, "beta", snapshotAt(t, 5, newer)))

			got, err := st.Load(ctx, "alpha")
			require.NoError(t, err)
			assert.Equal(t, 3, got.Clock.Quarter)
			assert.True(t, first.SavedAt.Equal(got.SavedAt))
			assert.Equal(t, first.Player.Cash, got.Player.Cash)
			assert.Len(t, got.DealPool, len(first.DealPool))

			list, err = st.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "beta", list[0].Slot)
			assert.Equal(t, 5, list[0].Quarter)
			assert.Equal(t, "alpha", list[1].Slot)
			assert.Equal(t, config.DifficultyNormal, list[1].Difficulty)
			assert.True(t, older.Equal(list[1].SavedAt))

			require.NoError(t, st.Save(ctx, "alpha", snapshotAt(t, 9, newer.Add(time.Hour))))
			got, err = st.Load(ctx, "alpha")
			require.NoError(t, err)
			assert.Equal(t, 9, got.Clock.Quarter)

			require.NoError(t, st.Delete(ctx, "alpha"))
			_, err = st.Load(ctx, "alpha")
			assert.ErrorIs(t, err, ErrSlotNotFound)
			assert.ErrorIs(t, st.Delete(ctx, "alpha"), ErrSlotNotFound)

			assert.ErrorIs(t, st.Save(ctx, "bad slot", first), ErrInvalidSlot)
			_, err = st.Load(ctx, "../beta")
			assert.ErrorIs(t, err, ErrInvalidSlot)
		})
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	st, err := Open(ctx, config.AppConfig{Store: config.StoreFile, SaveDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &File{}, st)

	st, err = Open(ctx, config.AppConfig{Store: config.StoreSQLite, SQLitePath: ":memory:"})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, st)
	require.NoError(t, st.Close())
}

func TestSQLitePersistsToDisk(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/nested/pefund.db"

	st, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, st.Save(ctx, "main", snapshotAt(t, 4, time.Now().UTC())))
	require.NoError(t, st.Close())

	st, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer st.Close()
	got, err := st.Load(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Clock.Quarter)
}

func TestSaveArgs(t *testing.T) {
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	snap := snapshotAt(t, 6, at)

	args, err := saveArgs("main", snap)
	require.NoError(t, err)
	require.Len(t, args, 6)
	assert.Equal(t, "main", args[0])
	assert.Equal(t, SnapshotVersion, args[1])
	assert.Equal(t, 6, args[2])
	assert.Equal(t, "normal", args[3])
	assert.Equal(t, at, args[4])

	decoded, err := Decode([]byte(args[5].(string)))
	require.NoError(t, err)
	assert.Equal(t, 6, decoded.Clock.Quarter)

	snap.SavedAt = time.Time{}
	args, err = saveArgs("main", snap)
	require.NoError(t, err)
	assert.False(t, args[4].(time.Time).IsZero())

	_, err = saveArgs("", snap)
	assert.ErrorIs(t, err, ErrInvalidSlot)
}
