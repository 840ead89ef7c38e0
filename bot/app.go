// Package bot wires the application together: configuration, the
// preference store, the quote and model clients, and the Telegram routes.
package bot

import (
	"context"
	"fmt"

	"tickerbot/ai"
	"tickerbot/core/bootstrap"
	coretelegram "tickerbot/core/telegram"
	"tickerbot/core/telegram/router"
	"tickerbot/core/telegram/state"
	"tickerbot/notifier"
	"tickerbot/quotes"
	"tickerbot/storage"

	"github.com/jmoiron/sqlx"
)

// Store is the preference-store surface the handlers use.
type Store interface {
	AddFavorite(ctx context.Context, userID int64, symbol string) (bool, error)
	RemoveFavorite(ctx context.Context, userID int64, symbol string) error
	ListFavorites(ctx context.Context, userID int64) ([]string, error)
	ToggleSubscription(ctx context.Context, userID int64) (bool, error)
	IsSubscribed(ctx context.Context, userID int64) (bool, error)
	ListSubscribedUsers(ctx context.Context) ([]int64, error)
}

// QuoteFetcher resolves market quotes.
type QuoteFetcher interface {
	Fetch(ctx context.Context, symbol string) (quotes.Quote, bool)
	FetchBatch(ctx context.Context, symbols []string) []quotes.BatchResult
}

// Assistant answers free-form questions.
type Assistant interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// App carries the bot's dependencies and implements cmd.TelegramApp.
type App struct {
	cfg       *Config
	db        *sqlx.DB
	store     Store
	quotes    QuoteFetcher
	assistant Assistant
	fsm       state.Manager

	notify func(ctx context.Context, sender notifier.Sender) (notifier.Stats, error)
}

// NewApp runs the startup pipeline (logger, database, migrations) and
// builds the application. The store is fully initialized before any
// update is accepted.
func NewApp(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bot: nil config")
	}

	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	app := newApp(cfg,
		storage.New(res.DB),
		quotes.New(quotes.Options{BaseURL: cfg.Quotes.BaseURL, Timeout: cfg.Quotes.Timeout()}),
		ai.New(ai.Options{
			BaseURL: cfg.AI.BaseURL,
			Model:   cfg.AI.Model,
			APIKey:  cfg.AI.APIKey,
			Timeout: cfg.AI.Timeout(),
		}),
	)
	app.db = res.DB
	return app, nil
}

func newApp(cfg *Config, store Store, fetcher QuoteFetcher, assistant Assistant) *App {
	a := &App{
		cfg:       cfg,
		store:     store,
		quotes:    fetcher,
		assistant: assistant,
		fsm:       state.NewMemoryManager(),
	}
	a.notify = func(ctx context.Context, sender notifier.Sender) (notifier.Stats, error) {
		return notifier.New(a.store, a.quotes, sender).Run(ctx)
	}
	state.RegisterHandler(stateAwaitingPrompt, a.handleAskPrompt)
	return a
}

// Close releases the database handle.
func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// TelegramRunOptions builds the registry, routes, and middleware chain for
// the core runtime. Dispatch order: command routes, then the callback
// route, then the free-text catch-all.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	core := a.cfg.CoreConfig()

	reg := coretelegram.NewRegistry()
	a.registerCommands(reg)
	a.registerCallbacks(reg)
	reg.SetTextFallback(a.handleText)

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: core.Telegram.AdminID,
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{
		ParseKey: parseActionKey,
	}))
	routes = append(routes, router.TextRoutes(a.fsm, reg, router.TextOptions{})...)

	return coretelegram.RunOptions{
		Config:      core,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(core, nil),
		Routes:      routes,
	}, nil
}
