package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// AppConfig is process-level configuration shared by the binaries.
type AppConfig struct {
	Difficulty     string `env:"PEFUND_DIFFICULTY" envDefault:"normal"`
	Seed           *int64 `env:"PEFUND_SEED"`
	Store          string `env:"PEFUND_STORE" envDefault:"file"`
	SaveDir        string `env:"PEFUND_SAVE_DIR"`
	SQLitePath     string `env:"PEFUND_SQLITE_PATH"`
	DatabaseURL    string `env:"DATABASE_URL"`
	APIAddr        string `env:"PEFUND_API_ADDR" envDefault:":8080"`
	Port           string `env:"PORT"`
	NarrativesPath string `env:"PEFUND_NARRATIVES_PATH"`
	LogLevel       string `env:"PEFUND_LOG_LEVEL" envDefault:"info"`
	GameQuarters   int    `env:"PEFUND_GAME_QUARTERS"`

	WorkerSlot  string        `env:"PEFUND_WORKER_SLOT" envDefault:"main"`
	WorkerEvery time.Duration `env:"PEFUND_WORKER_EVERY"`
}

// LoadFromEnv reads an optional .env file and then the process environment.
func LoadFromEnv() (AppConfig, error) {
	file := strings.TrimSpace(os.Getenv("PEFUND_ENV_FILE"))
	if file == "" {
		file = ".env"
	}
	if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
		return AppConfig{}, fmt.Errorf("load %s: %w", file, err)
	}
	return parse(env.Options{})
}

// LoadFromMap parses configuration from an explicit environment map.
func LoadFromMap(vars map[string]string) (AppConfig, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (AppConfig, error) {
	var cfg AppConfig
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return AppConfig{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func (c *AppConfig) normalize() {
	c.Difficulty = strings.ToLower(strings.TrimSpace(c.Difficulty))
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.WorkerSlot = strings.TrimSpace(c.WorkerSlot)
	if port := strings.TrimSpace(c.Port); port != "" {
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		c.APIAddr = port
	}
	if c.SaveDir == "" {
		c.SaveDir = defaultDataDir("saves")
	}
	if c.SQLitePath == "" {
		c.SQLitePath = filepath.Join(defaultDataDir(""), "pefund.db")
	}
}

func (c AppConfig) Validate() error {
	if _, err := ParseDifficulty(c.Difficulty); err != nil {
		return err
	}
	switch c.Store {
	case StoreFile, StoreSQLite:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.GameQuarters < 0 {
		return fmt.Errorf("PEFUND_GAME_QUARTERS must not be negative")
	}
	if c.WorkerEvery < 0 {
		return fmt.Errorf("PEFUND_WORKER_EVERY must not be negative")
	}
	return nil
}

// Rules resolves the difficulty bundle, applying the quarter override.
func (c AppConfig) Rules() (Rules, error) {
	d, err := ParseDifficulty(c.Difficulty)
	if err != nil {
		return Rules{}, err
	}
	r, err := ForDifficulty(d)
	if err != nil {
		return Rules{}, err
	}
	if c.GameQuarters > 0 {
		r.GameQuarters = c.GameQuarters
	}
	return r, nil
}

func (c AppConfig) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaultDataDir(sub string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".pefund", sub)
}
