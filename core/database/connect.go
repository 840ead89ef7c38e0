package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"log/slog"

	"tickerbot/core/logger"
)

// memoryDSN keeps a single shared in-memory database across pooled
// connections; without cache=shared every pool connection would get its
// own empty database.
const memoryDSN = "file::memory:?cache=shared"

// memorySchema mirrors migrations/ for the ephemeral store, which never
// sees the migration runner.
const memorySchema = `
CREATE TABLE IF NOT EXISTS favorites (
    id      INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL,
    ticker  TEXT    NOT NULL,
    UNIQUE (user_id, ticker)
);
CREATE INDEX IF NOT EXISTS favorites_user_id_idx ON favorites (user_id);
CREATE TABLE IF NOT EXISTS user_settings (
    user_id       INTEGER PRIMARY KEY,
    is_subscribed BOOLEAN NOT NULL DEFAULT FALSE
);
`

// Connect opens the storage connection, configures the pool, and verifies
// connectivity. With an empty host it falls back to an ephemeral in-memory
// SQLite database so the bot can run without any storage credentials.
func Connect(cfg Config) (*sqlx.DB, error) {
	if cfg.InMemory() {
		return connectMemory()
	}
	return connectPostgres(cfg)
}

func connectPostgres(cfg Config) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	took := time.Since(start)
	if err != nil {
		logger.DB.Error("db connect failed",
			slog.String("event", "db.connect"),
			slog.String("driver", "postgres"),
			slog.String("host", cfg.Host),
			slog.String("port", cfg.Port),
			slog.String("db", cfg.Name),
			slog.Duration("duration", logger.RoundMS(took)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	pool := cfg.MaxConnections
	if pool <= 0 {
		pool = 4
	}
	db.SetMaxOpenConns(pool)
	db.SetMaxIdleConns(pool)

	logger.DB.Info("db connected",
		slog.String("event", "db.connect"),
		slog.String("driver", "postgres"),
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
		slog.Int("pool_open", pool),
		slog.Duration("duration", logger.RoundMS(took)),
	)

	return db, nil
}

func connectMemory() (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite3", memoryDSN)
	if err != nil {
		return nil, fmt.Errorf("memory store open: %w", err)
	}
	if _, err := db.Exec(memorySchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("memory store schema: %w", err)
	}
	logger.DB.Warn("no database host configured, using ephemeral in-memory store",
		slog.String("event", "db.connect"),
		slog.String("driver", "sqlite3"),
	)
	return db, nil
}

// WaitForPostgres tries to connect to the DB until it is ready or timeout is reached.
func WaitForPostgres(dsn string, timeout time.Duration) error {
	start := time.Now()
	var lastErr error
	for {
		db, err := sql.Open("postgres", dsn)
		if err == nil {
			if err = db.Ping(); err == nil {
				_ = db.Close()
				return nil
			}
			_ = db.Close()
		}
		lastErr = err
		if time.Since(start) > timeout {
			return fmt.Errorf("timeout reached waiting for database: %w", lastErr)
		}
		time.Sleep(2 * time.Second)
	}
}
