// Package notifier builds and sends the watchlist digest to every
// subscribed user. It backs both cmd/notifier and the admin /broadcast
// command.
package notifier

import (
	"context"
	"fmt"

	"log/slog"

	"tickerbot/core/logger"
	"tickerbot/quotes"
	"tickerbot/render"

	tele "gopkg.in/telebot.v4"
)

// Store is the preference-store subset the notifier reads.
type Store interface {
	ListSubscribedUsers(ctx context.Context) ([]int64, error)
	ListFavorites(ctx context.Context, userID int64) ([]string, error)
}

// Fetcher resolves quotes for a set of symbols.
type Fetcher interface {
	FetchBatch(ctx context.Context, symbols []string) []quotes.BatchResult
}

// Sender delivers one message. *tele.Bot satisfies it.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Stats summarises one digest run.
type Stats struct {
	Subscribers int
	Sent        int
	Failed      int
}

// Notifier sends digests.
type Notifier struct {
	store   Store
	fetcher Fetcher
	sender  Sender
}

// New wires a digest notifier.
func New(store Store, fetcher Fetcher, sender Sender) *Notifier {
	return &Notifier{store: store, fetcher: fetcher, sender: sender}
}

// Run delivers one digest per subscribed user. Per-user failures are
// logged and swallowed so one bad send or lookup never aborts the batch;
// only the subscriber listing itself can fail the run.
func (n *Notifier) Run(ctx context.Context) (Stats, error) {
	users, err := n.store.ListSubscribedUsers(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("notifier: list subscribers: %w", err)
	}

	stats := Stats{Subscribers: len(users)}
	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("notifier: canceled: %w", err)
		}
		if err := n.notifyUser(ctx, userID); err != nil {
			stats.Failed++
			logger.Warn(ctx, "notify", "digest.failed",
				slog.Int64("user_id", userID),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
			continue
		}
		stats.Sent++
	}

	logger.Info(ctx, "notify", "digest.complete",
		slog.Int("subscribers", stats.Subscribers),
		slog.Int("digests", stats.Sent),
		slog.Int("failed", stats.Failed),
	)
	return stats, nil
}

func (n *Notifier) notifyUser(ctx context.Context, userID int64) error {
	symbols, err := n.store.ListFavorites(ctx, userID)
	if err != nil {
		return fmt.Errorf("favorites: %w", err)
	}

	results := n.fetcher.FetchBatch(ctx, symbols)
	text := render.Digest(render.RowsFromBatch(results))

	recipient := &tele.User{ID: userID}
	if _, err := n.sender.Send(recipient, text, &tele.SendOptions{ParseMode: tele.ModeMarkdown}); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}
