// Package storage implements the preference store: per-user favorite
// ticker symbols and the digest subscription flag.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"log/slog"

	"tickerbot/core/logger"

	"github.com/jmoiron/sqlx"
)

// Store persists user preferences. Uniqueness of (user_id, ticker) and of
// the per-user settings row is enforced by SQL constraints, so concurrent
// handlers need no coordination.
type Store struct {
	db *sqlx.DB
}

// New wraps an already connected database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// AddFavorite inserts the pair if absent. Returns false without error when
// the pair already exists.
func (s *Store) AddFavorite(ctx context.Context, userID int64, symbol string) (bool, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	query := s.db.Rebind(`INSERT INTO favorites (user_id, ticker) VALUES (?, ?) ON CONFLICT (user_id, ticker) DO NOTHING`)
	res, err := s.db.ExecContext(ctx, query, userID, symbol)
	if err != nil {
		return false, fmt.Errorf("storage: add favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("storage: add favorite rows: %w", err)
	}
	logger.Debug(ctx, "service.store", "favorite.add",
		slog.Int64("user_id", userID),
		slog.String("symbol", symbol),
		slog.String("outcome", addOutcome(n)),
	)
	return n > 0, nil
}

func addOutcome(rows int64) string {
	if rows > 0 {
		return "inserted"
	}
	return "duplicate"
}

// RemoveFavorite deletes the pair if present; removing a missing pair is a no-op.
func (s *Store) RemoveFavorite(ctx context.Context, userID int64, symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	query := s.db.Rebind(`DELETE FROM favorites WHERE user_id = ? AND ticker = ?`)
	if _, err := s.db.ExecContext(ctx, query, userID, symbol); err != nil {
		return fmt.Errorf("storage: remove favorite: %w", err)
	}
	logger.Debug(ctx, "service.store", "favorite.remove",
		slog.Int64("user_id", userID),
		slog.String("symbol", symbol),
	)
	return nil
}

// ListFavorites returns the user's symbols sorted alphabetically so the
// watchlist renders stably. Empty slice when none.
func (s *Store) ListFavorites(ctx context.Context, userID int64) ([]string, error) {
	query := s.db.Rebind(`SELECT ticker FROM favorites WHERE user_id = ? ORDER BY ticker`)
	symbols := []string{}
	if err := s.db.SelectContext(ctx, &symbols, query, userID); err != nil {
		return nil, fmt.Errorf("storage: list favorites: %w", err)
	}
	return symbols, nil
}

// ToggleSubscription flips the flag, creating the row on first call, and
// returns the new state.
func (s *Store) ToggleSubscription(ctx context.Context, userID int64) (bool, error) {
	query := s.db.Rebind(`INSERT INTO user_settings (user_id, is_subscribed) VALUES (?, TRUE)
ON CONFLICT (user_id) DO UPDATE SET is_subscribed = NOT user_settings.is_subscribed
RETURNING is_subscribed`)
	var subscribed bool
	if err := s.db.QueryRowxContext(ctx, query, userID).Scan(&subscribed); err != nil {
		return false, fmt.Errorf("storage: toggle subscription: %w", err)
	}
	logger.Debug(ctx, "service.store", "subscription.toggle",
		slog.Int64("user_id", userID),
		slog.Bool("subscribed", subscribed),
	)
	return subscribed, nil
}

// IsSubscribed reports the flag; false when no settings row exists.
func (s *Store) IsSubscribed(ctx context.Context, userID int64) (bool, error) {
	query := s.db.Rebind(`SELECT is_subscribed FROM user_settings WHERE user_id = ?`)
	var subscribed bool
	err := s.db.QueryRowxContext(ctx, query, userID).Scan(&subscribed)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: is subscribed: %w", err)
	}
	return subscribed, nil
}

// ListSubscribedUsers returns every user with the flag set, for the batch notifier.
func (s *Store) ListSubscribedUsers(ctx context.Context) ([]int64, error) {
	users := []int64{}
	if err := s.db.SelectContext(ctx, &users, `SELECT user_id FROM user_settings WHERE is_subscribed ORDER BY user_id`); err != nil {
		return nil, fmt.Errorf("storage: list subscribed: %w", err)
	}
	return users, nil
}
