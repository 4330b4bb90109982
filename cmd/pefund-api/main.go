package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pefund/internal/api"
	"pefund/internal/config"
	"pefund/internal/game"
	"pefund/internal/stochastic"
	"pefund/internal/store"
)

const resumeSlot = "main"

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
	session, err := startSession(ctx, cfg, st, opts)
	if err != nil {
		logger.Error("session init failed", "err", err)
		os.Exit(1)
	}
	logger.Info("session ready", "clock", session.Clock.String(), "difficulty", session.Rules().Difficulty)

	server := api.New(session, st, opts, logger)
	httpServer := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("pefund api listening", "addr", cfg.APIAddr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}

// startSession resumes the main slot when it exists and starts a fresh game
// otherwise.
func startSession(ctx context.Context, cfg config.AppConfig, st store.Store, opts game.Options) (*game.Session, error) {
	snap, err := st.Load(ctx, resumeSlot)
	switch {
	case err == nil:
		return store.Restore(snap, opts)
	case !errors.Is(err, store.ErrSlotNotFound):
		return nil, err
	}
	rules, err := cfg.Rules()
	if err != nil {
		return nil, err
	}
	return game.NewSession(rules, opts), nil
}
