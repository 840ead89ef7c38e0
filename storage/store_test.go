package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const testSchema = `
CREATE TABLE favorites (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id BIGINT NOT NULL,
    ticker TEXT NOT NULL,
    UNIQUE (user_id, ticker)
);
CREATE TABLE user_settings (
    user_id BIGINT PRIMARY KEY,
    is_subscribed BOOLEAN NOT NULL DEFAULT FALSE
);`

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqlx.Connect("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// A single connection keeps every statement on the same in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return New(db)
}

func TestAddFavoriteIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	added, err := store.AddFavorite(ctx, 1, "AAPL")
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	if !added {
		t.Fatal("first add returned false")
	}

	added, err = store.AddFavorite(ctx, 1, "AAPL")
	if err != nil {
		t.Fatalf("duplicate add: %v", err)
	}
	if added {
		t.Error("duplicate add returned true")
	}

	symbols, err := store.ListFavorites(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(symbols) != 1 || symbols[0] != "AAPL" {
		t.Errorf("favorites = %v, want exactly [AAPL]", symbols)
	}
}

func TestAddFavoriteUppercasesSymbol(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.AddFavorite(ctx, 1, "aapl"); err != nil {
		t.Fatalf("add: %v", err)
	}
	added, err := store.AddFavorite(ctx, 1, "AAPL")
	if err != nil {
		t.Fatalf("add upper: %v", err)
	}
	if added {
		t.Error("case-folded duplicate was inserted twice")
	}
}

func TestRemoveFavoriteMissingIsNoop(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.RemoveFavorite(ctx, 1, "MSFT"); err != nil {
		t.Fatalf("remove missing: %v", err)
	}

	if _, err := store.AddFavorite(ctx, 1, "AAPL"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.RemoveFavorite(ctx, 1, "MSFT"); err != nil {
		t.Fatalf("remove other: %v", err)
	}
	symbols, err := store.ListFavorites(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(symbols) != 1 {
		t.Errorf("favorites = %v, want the untouched row", symbols)
	}
}

func TestListFavoritesEmpty(t *testing.T) {
	store := newTestStore(t)

	symbols, err := store.ListFavorites(context.Background(), 42)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(symbols) != 0 {
		t.Errorf("favorites = %v, want empty", symbols)
	}
}

func TestToggleSubscription(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	on, err := store.ToggleSubscription(ctx, 7)
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !on {
		t.Error("first toggle = false, want true")
	}

	on, err = store.ToggleSubscription(ctx, 7)
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if on {
		t.Error("second toggle = true, want false")
	}
}

func TestIsSubscribedDefaultsFalse(t *testing.T) {
	store := newTestStore(t)

	subscribed, err := store.IsSubscribed(context.Background(), 99)
	if err != nil {
		t.Fatalf("is subscribed: %v", err)
	}
	if subscribed {
		t.Error("fresh user reported as subscribed")
	}
}

func TestListSubscribedUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		if _, err := store.ToggleSubscription(ctx, i); err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
	}
	// User 2 opts back out.
	if _, err := store.ToggleSubscription(ctx, 2); err != nil {
		t.Fatalf("toggle off: %v", err)
	}

	users, err := store.ListSubscribedUsers(ctx)
	if err != nil {
		t.Fatalf("list subscribed: %v", err)
	}
	want := fmt.Sprint([]int64{1, 3})
	if fmt.Sprint(users) != want {
		t.Errorf("subscribed = %v, want %v", users, want)
	}
}
