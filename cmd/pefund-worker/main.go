package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pefund/internal/config"
	"pefund/internal/game"
	"pefund/internal/stochastic"
	"pefund/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	st, err := store.Open(ctx, cfg)
	if err != nil {
		logger.Error("open save store failed", "store", cfg.Store, "err", err)
		os.Exit(1)
	}
	defer st.Close()

	opts := game.Options{
		Source: stochastic.New(cfg.Seed),
		Tables: game.LoadTables(cfg.NarrativesPath, logger),
		Logger: logger,
	}

	// Without an interval the remaining quarters are played back to back.
	if cfg.WorkerEvery == 0 {
		for {
			done, err := runQuarter(ctx, st, cfg.WorkerSlot, opts, logger)
			if err != nil {
				logger.Error("quarter failed", "err", err)
				os.Exit(1)
			}
			if done || ctx.Err() != nil {
				return
			}
		}
	}

	ticker := time.NewTicker(cfg.WorkerEvery)
	defer ticker.Stop()

	logger.Info("worker started", "slot", cfg.WorkerSlot, "every", cfg.WorkerEvery.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			done, err := runQuarter(ctx, st, cfg.WorkerSlot, opts, logger)
			if err != nil {
				logger.Error("quarter failed", "err", err)
				continue
			}
			if done {
				logger.Info("game over, worker stopping", "slot", cfg.WorkerSlot)
				return
			}
		}
	}
}

// runQuarter loads the slot, closes one quarter with monitored events and
// saves it back. done reports that the game has ended.
func runQuarter(ctx context.Context, st store.Store, slot string, opts game.Options, logger *slog.Logger) (done bool, err error) {
	snap, err := st.Load(ctx, slot)
	if err != nil {
		return false, err
	}
	sess, err := store.Restore(snap, opts)
	if err != nil {
		return false, err
	}
	report, err := sess.AdvanceQuarter(nil)
	if errors.Is(err, game.ErrGameOver) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if err := st.Save(ctx, slot, store.Capture(sess)); err != nil {
		return false, err
	}
	logger.Info("quarter closed",
		"slot", slot,
		"label", report.Label,
		"net_worth", report.NetWorthAfter,
		"profit", report.Profit,
		"reputation", report.Reputation,
	)
	if report.GameOver {
		sum := sess.Summary()
		logger.Info("game over", "slot", slot, "net_worth", sum.NetWorth, "total_return", sum.TotalReturn)
	}
	return report.GameOver, nil
}
