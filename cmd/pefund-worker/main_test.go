package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pefund/internal/config"
	"pefund/internal/game"
	"pefund/internal/stochastic"
	"pefund/internal/store"
)

func TestRunQuarterPlaysToTheEnd(t *testing.T) {
	ctx := context.Background()
	st, err := store.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	defer st.Close()

	rules := config.MustDifficulty(config.DifficultyEasy)
	rules.GameQuarters = 2
	opts := game.Options{Source: stochastic.NewSeeded(5)}
	require.NoError(t, st.Save(ctx, "main", store.Capture(game.NewSession(rules, opts))))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	done, err := runQuarter(ctx, st, "main", opts, logger)
	require.NoError(t, err)
	assert.False(t, done)

	done, err = runQuarter(ctx, st, "main", opts, logger)
	require.NoError(t, err)
	assert.True(t, done)

	snap, err := st.Load(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Clock.Quarter)

	done, err = runQuarter(ctx, st, "main", opts, logger)
	require.NoError(t, err)
	assert.True(t, done)

	_, err = runQuarter(ctx, st, "missing", opts, logger)
	assert.ErrorIs(t, err, store.ErrSlotNotFound)
}
