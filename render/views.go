// Package render builds outbound message text and inline keyboards. Every
// view is a pure function of its inputs so rendering is testable without
// network or storage.
package render

import (
	"fmt"
	"strings"

	"tickerbot/bot/actions"
	"tickerbot/core/telegram/format"
	"tickerbot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

func btn(text string, action actions.Action, arg string) keyboard.InlineBtn {
	return keyboard.InlineBtn{Text: text, Unique: string(action), Data: arg}
}

// MainMenu is the landing view for /start and the menu callback.
func MainMenu(firstName string) (string, *tele.ReplyMarkup) {
	var sb strings.Builder
	if firstName != "" {
		fmt.Fprintf(&sb, "Hi, %s! ", format.EscapeMD(firstName))
	}
	sb.WriteString("I track market quotes for you.\n\n")
	sb.WriteString("Send me a ticker symbol any time, or pick an option below.")

	markup := keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{btn("📈 My watchlist", actions.Watchlist, "")},
		[]keyboard.InlineBtn{
			btn("🔍 Find a quote", actions.Quote, ""),
			btn("🔔 Daily digest", actions.Subscribe, ""),
		},
	)
	return sb.String(), markup
}

// Help lists the available commands.
func Help() (string, *tele.ReplyMarkup) {
	text := strings.Join([]string{
		"*Commands*",
		"/start — main menu",
		"/help — this message",
		"/ask — ask the assistant a free-form question",
		"",
		"Anything else you type is treated as a ticker symbol, e.g. `AAPL` or `BTC-USD`.",
	}, "\n")
	markup := keyboard.InlineButtons([]keyboard.InlineBtn{
		btn("⬅️ Menu", actions.Menu, ""),
	})
	return text, markup
}

// WatchlistRow is one symbol of the watchlist view with its lookup result.
type WatchlistRow struct {
	Symbol   string
	Price    string
	Currency string
	OK       bool
}

// Watchlist renders the user's favorites with current prices. A failed
// lookup renders as an inline marker on its row, not as a view failure.
func Watchlist(rows []WatchlistRow) (string, *tele.ReplyMarkup) {
	if len(rows) == 0 {
		text := "Your watchlist is empty.\nLook a symbol up and tap “Add to watchlist”."
		markup := keyboard.InlineButtonsRows(
			[]keyboard.InlineBtn{btn("🔍 Find a quote", actions.Quote, "")},
			[]keyboard.InlineBtn{btn("⬅️ Menu", actions.Menu, "")},
		)
		return text, markup
	}

	var sb strings.Builder
	sb.WriteString("*Your watchlist*\n")
	for _, row := range rows {
		if row.OK {
			fmt.Fprintf(&sb, "`%s` — %s %s\n", row.Symbol, row.Price, row.Currency)
		} else {
			fmt.Fprintf(&sb, "`%s` — ⚠️ unavailable\n", row.Symbol)
		}
	}

	markup := keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{btn("✏️ Edit", actions.Edit, "")},
		[]keyboard.InlineBtn{btn("⬅️ Menu", actions.Menu, "")},
	)
	return sb.String(), markup
}

// WatchlistEdit renders per-symbol delete buttons.
func WatchlistEdit(symbols []string) (string, *tele.ReplyMarkup) {
	if len(symbols) == 0 {
		return Watchlist(nil)
	}

	buttons := make([]keyboard.InlineBtn, 0, len(symbols)+1)
	for _, sym := range symbols {
		buttons = append(buttons, btn("❌ "+sym, actions.FavRemove, sym))
	}
	markup := keyboard.InlineButtonsNPerRow(buttons, 2)
	markup.InlineKeyboard = append(markup.InlineKeyboard,
		[]tele.InlineButton{*backToWatchlist().Inline()},
	)
	return "Tap a symbol to remove it:", markup
}

func backToWatchlist() tele.Btn {
	markup := &tele.ReplyMarkup{}
	return markup.Data("⬅️ Back", string(actions.Watchlist), "")
}

// QuoteCard renders one price with a membership-dependent watchlist button.
func QuoteCard(symbol, price, currency string, isFavorite bool) (string, *tele.ReplyMarkup) {
	text := fmt.Sprintf("*%s*\n%s %s", symbol, price, currency)

	favBtn := btn("⭐ Add to watchlist", actions.FavAdd, symbol)
	if isFavorite {
		favBtn = btn("💔 Remove from watchlist", actions.FavRemove, symbol)
	}
	markup := keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{favBtn},
		[]keyboard.InlineBtn{btn("⬅️ Menu", actions.Menu, "")},
	)
	return text, markup
}

// SearchPrompt asks the user for a symbol.
func SearchPrompt() (string, *tele.ReplyMarkup) {
	return "Send me a ticker symbol, e.g. `AAPL`, `BTC-USD` or `EURUSD=X`.", nil
}

// FormatError explains the symbol format after rejected free text.
func FormatError() (string, *tele.ReplyMarkup) {
	return "That doesn't look like a ticker symbol. Use up to 12 letters, digits, `-` or `=`, e.g. `AAPL`.", nil
}

// QuoteNotFound renders the absent-quote view.
func QuoteNotFound(symbol string) (string, *tele.ReplyMarkup) {
	return fmt.Sprintf("No quote found for `%s`. Check the symbol and try again.", symbol), nil
}

// StoreUnavailable is the user-facing storage failure view.
func StoreUnavailable() (string, *tele.ReplyMarkup) {
	return "Your watchlist is temporarily unavailable. Please try again in a moment.", nil
}

// AIUnavailable is the user-facing generative failure view.
func AIUnavailable() (string, *tele.ReplyMarkup) {
	return "The assistant is unavailable right now. Please try again later.", nil
}

// AskPrompt starts the /ask conversation.
func AskPrompt() (string, *tele.ReplyMarkup) {
	return "What would you like to ask? Your next message goes to the assistant.", nil
}

// AIAnswer wraps the model output. The answer is escaped because the model
// emits arbitrary text.
func AIAnswer(answer string) (string, *tele.ReplyMarkup) {
	markup := keyboard.InlineButtons([]keyboard.InlineBtn{
		btn("⬅️ Menu", actions.Menu, ""),
	})
	return format.EscapeMD(answer), markup
}

// SubscriptionToggled confirms the new digest state.
func SubscriptionToggled(on bool) (string, *tele.ReplyMarkup) {
	text := "🔕 Daily digest off."
	if on {
		text = "🔔 Daily digest on. You'll receive your watchlist prices once a day."
	}
	markup := keyboard.InlineButtons([]keyboard.InlineBtn{
		btn("⬅️ Menu", actions.Menu, ""),
	})
	return text, markup
}

// Digest renders the batch notifier message. Text only; digests carry no buttons.
func Digest(rows []WatchlistRow) string {
	var sb strings.Builder
	sb.WriteString("*Your daily digest*\n")
	if len(rows) == 0 {
		sb.WriteString("Your watchlist is empty — nothing to report.")
		return sb.String()
	}
	for _, row := range rows {
		if row.OK {
			fmt.Fprintf(&sb, "`%s` — %s %s\n", row.Symbol, row.Price, row.Currency)
		} else {
			fmt.Fprintf(&sb, "`%s` — ⚠️ unavailable\n", row.Symbol)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
