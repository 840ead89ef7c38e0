package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"tickerbot/bot/actions"
	"tickerbot/core/logger"
	coretelegram "tickerbot/core/telegram"
	"tickerbot/core/telegram/commands"
	tghelpers "tickerbot/core/telegram/helpers"
	"tickerbot/core/telegram/state"
	"tickerbot/render"

	tele "gopkg.in/telebot.v4"
)

// stateAwaitingPrompt marks a user whose next message goes to the assistant.
const stateAwaitingPrompt = state.State("ask_awaiting_prompt")

func (a *App) registerCommands(reg *coretelegram.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Open the main menu",
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     a.handleHelp,
		Description: "How to use the bot",
	})
	reg.RegisterCommand("/ask", commands.Command{
		Handler:     a.handleAsk,
		Description: "Ask the assistant a question",
	})
	reg.RegisterCommand("/broadcast", commands.Command{
		Handler:     a.handleBroadcast,
		Description: "Send the digest to all subscribers now",
		AdminOnly:   true,
		Hidden:      true,
	})
}

func (a *App) registerCallbacks(reg *coretelegram.Registry) {
	for key, handler := range map[string]tele.HandlerFunc{
		string(actions.Menu):      a.cbMenu,
		string(actions.Watchlist): a.cbWatchlist,
		string(actions.Edit):      a.cbEdit,
		string(actions.FavAdd):    a.cbFavAdd,
		string(actions.FavRemove): a.cbFavRemove,
		string(actions.Quote):     a.cbQuote,
		string(actions.Subscribe): a.cbSubscribe,
	} {
		_ = reg.RegisterCallback(key, handler)
	}
}

// parseActionKey maps a raw callback to a typed action for registry lookup.
// The callback router hands the decoded argument to handlers via "cb_arg".
// An unknown payload keeps its raw key, misses the registry, and falls
// through to the acknowledged no-op.
func parseActionKey(cb *tele.Callback) (string, string) {
	key, payload := rawCallback(cb)
	full := key
	if payload != "" {
		full = key + "_" + payload
	}
	if action, arg, ok := actions.Decode(full); ok {
		return string(action), arg
	}
	return key, payload
}

func rawCallback(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	parts := strings.SplitN(raw, "|", 2)
	if len(parts) == 2 {
		return strings.TrimSpace(parts[0]), parts[1]
	}
	return strings.TrimSpace(parts[0]), ""
}

func callbackArg(c tele.Context) string {
	arg, _ := c.Get("cb_arg").(string)
	return arg
}

func senderFirstName(c tele.Context) string {
	if user := c.Sender(); user != nil {
		return user.FirstName
	}
	return ""
}

// Commands

func (a *App) handleStart(c tele.Context) error {
	text, markup := render.MainMenu(senderFirstName(c))
	return tghelpers.SendMD(c, text, markup)
}

func (a *App) handleHelp(c tele.Context) error {
	text, markup := render.Help()
	return tghelpers.SendMD(c, text, markup)
}

func (a *App) handleAsk(c tele.Context) error {
	a.fsm.SetState(c.Sender().ID, stateAwaitingPrompt)
	text, _ := render.AskPrompt()
	return tghelpers.SendMD(c, text)
}

func (a *App) handleBroadcast(c tele.Context) error {
	ctx, cancel := context.WithTimeout(tghelpers.BuildContext(c), 2*time.Minute)
	defer cancel()

	stats, err := a.notify(ctx, c.Bot())
	if err != nil {
		text, _ := render.StoreUnavailable()
		_ = tghelpers.SendText(c, text)
		return fmt.Errorf("bot: broadcast: %w", err)
	}
	summary := fmt.Sprintf("Digest sent to %d of %d subscribers (%d failed).",
		stats.Sent, stats.Subscribers, stats.Failed)
	return tghelpers.SendText(c, summary)
}

// handleAskPrompt consumes the message following /ask. Model failures are
// recovered locally: the user sees the unavailable view and the flow ends.
func (a *App) handleAskPrompt(c tele.Context) error {
	userID := c.Sender().ID
	prompt := strings.TrimSpace(c.Text())
	if prompt == "" {
		text, _ := render.AskPrompt()
		return tghelpers.SendMD(c, text)
	}
	a.fsm.ClearState(userID)

	ctx := tghelpers.BuildContext(c)
	answer, err := a.assistant.Generate(ctx, prompt)
	if err != nil {
		logger.Warn(ctx, "service.ai", "ai.failed",
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		text, _ := render.AIUnavailable()
		return tghelpers.SendText(c, text)
	}
	text, markup := render.AIAnswer(answer)
	return tghelpers.SendMD(c, text, markup)
}

// handleText is the catch-all: free text is a symbol query when it passes
// the filter, otherwise the format-error view. No lookup happens for
// rejected input.
func (a *App) handleText(c tele.Context) error {
	text := strings.TrimSpace(c.Text())
	if !ValidSymbol(text) {
		msg, _ := render.FormatError()
		return tghelpers.SendMD(c, msg)
	}
	return a.renderQuoteCard(c, NormalizeSymbol(text), false)
}

// Callbacks

func (a *App) cbMenu(c tele.Context) error {
	text, markup := render.MainMenu(senderFirstName(c))
	return tghelpers.EditOrSendMD(c, text, markup)
}

func (a *App) cbWatchlist(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	symbols, err := a.store.ListFavorites(ctx, c.Sender().ID)
	if err != nil {
		return a.storeFailure(c, err)
	}

	var rows []render.WatchlistRow
	if len(symbols) > 0 {
		rows = render.RowsFromBatch(a.quotes.FetchBatch(ctx, symbols))
	}
	text, markup := render.Watchlist(rows)
	return tghelpers.EditOrSendMD(c, text, markup)
}

func (a *App) cbEdit(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	symbols, err := a.store.ListFavorites(ctx, c.Sender().ID)
	if err != nil {
		return a.storeFailure(c, err)
	}
	text, markup := render.WatchlistEdit(symbols)
	return tghelpers.EditOrSendMD(c, text, markup)
}

func (a *App) cbFavAdd(c tele.Context) error {
	symbol := NormalizeSymbol(callbackArg(c))
	if !ValidSymbol(symbol) {
		msg, _ := render.FormatError()
		return tghelpers.EditOrSendMD(c, msg)
	}
	ctx := tghelpers.BuildContext(c)
	if _, err := a.store.AddFavorite(ctx, c.Sender().ID, symbol); err != nil {
		return a.storeFailure(c, err)
	}
	return a.renderQuoteCard(c, symbol, true)
}

func (a *App) cbFavRemove(c tele.Context) error {
	symbol := NormalizeSymbol(callbackArg(c))
	if !ValidSymbol(symbol) {
		msg, _ := render.FormatError()
		return tghelpers.EditOrSendMD(c, msg)
	}
	ctx := tghelpers.BuildContext(c)
	if err := a.store.RemoveFavorite(ctx, c.Sender().ID, symbol); err != nil {
		return a.storeFailure(c, err)
	}

	symbols, err := a.store.ListFavorites(ctx, c.Sender().ID)
	if err != nil {
		return a.storeFailure(c, err)
	}
	text, markup := render.WatchlistEdit(symbols)
	return tghelpers.EditOrSendMD(c, text, markup)
}

func (a *App) cbQuote(c tele.Context) error {
	arg := NormalizeSymbol(callbackArg(c))
	if arg == "" {
		text, _ := render.SearchPrompt()
		return tghelpers.EditOrSendMD(c, text)
	}
	return a.renderQuoteCard(c, arg, true)
}

func (a *App) cbSubscribe(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	subscribed, err := a.store.ToggleSubscription(ctx, c.Sender().ID)
	if err != nil {
		return a.storeFailure(c, err)
	}
	text, markup := render.SubscriptionToggled(subscribed)
	return tghelpers.EditOrSendMD(c, text, markup)
}

// Shared pieces

// renderQuoteCard fetches one symbol and renders the card. An absent quote
// is a normal branch, not an error. Membership lookup failure degrades to
// the add button rather than suppressing the card.
func (a *App) renderQuoteCard(c tele.Context, symbol string, edit bool) error {
	ctx := tghelpers.BuildContext(c)

	q, ok := a.quotes.Fetch(ctx, symbol)
	if !ok {
		text, _ := render.QuoteNotFound(symbol)
		if edit {
			return tghelpers.EditOrSendMD(c, text)
		}
		return tghelpers.SendMD(c, text)
	}

	isFav := false
	if symbols, err := a.store.ListFavorites(ctx, c.Sender().ID); err == nil {
		for _, s := range symbols {
			if s == symbol {
				isFav = true
				break
			}
		}
	} else {
		logger.Warn(ctx, "service.store", "favorite.lookup_failed",
			slog.String("symbol", symbol),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}

	text, markup := render.QuoteCard(q.Symbol, q.PriceString(), q.Currency, isFav)
	if edit {
		return tghelpers.EditOrSendMD(c, text, markup)
	}
	return tghelpers.SendMD(c, text, markup)
}

// storeFailure renders the unavailable view and propagates the wrapped
// error so the router logs it. Delivery stays acknowledged either way.
func (a *App) storeFailure(c tele.Context, err error) error {
	text, _ := render.StoreUnavailable()
	_ = tghelpers.SendText(c, text)
	return fmt.Errorf("bot: store: %w", err)
}
