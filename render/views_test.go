package render

import (
	"strings"
	"testing"
)

func TestMainMenuDeterministic(t *testing.T) {
	text1, markup1 := MainMenu("Ada")
	text2, markup2 := MainMenu("Ada")
	if text1 != text2 {
		t.Error("same input produced different text")
	}
	if len(markup1.InlineKeyboard) != len(markup2.InlineKeyboard) {
		t.Error("same input produced different keyboards")
	}
	if !strings.Contains(text1, "Ada") {
		t.Errorf("greeting missing name: %q", text1)
	}
}

func TestMainMenuEscapesName(t *testing.T) {
	text, _ := MainMenu("Eve_*")
	if strings.Contains(text, "Eve_*") {
		t.Errorf("name not escaped: %q", text)
	}
}

func TestWatchlistEmpty(t *testing.T) {
	text, markup := Watchlist(nil)
	if !strings.Contains(text, "empty") {
		t.Errorf("empty view text = %q", text)
	}
	if markup == nil || len(markup.InlineKeyboard) == 0 {
		t.Fatal("empty watchlist should still offer navigation")
	}
}

func TestWatchlistPartialFailureMarksRow(t *testing.T) {
	text, _ := Watchlist([]WatchlistRow{
		{Symbol: "AAPL", Price: "187.44", Currency: "USD", OK: true},
		{Symbol: "GONE", OK: false},
	})
	if !strings.Contains(text, "187.44 USD") {
		t.Errorf("successful row missing: %q", text)
	}
	if !strings.Contains(text, "GONE") || !strings.Contains(text, "unavailable") {
		t.Errorf("failed row not marked inline: %q", text)
	}
}

func TestWatchlistEditButtonsCarryRemoveActions(t *testing.T) {
	_, markup := WatchlistEdit([]string{"AAPL", "MSFT", "BTC-USD"})
	if markup == nil {
		t.Fatal("nil markup")
	}

	var removeData []string
	for _, row := range markup.InlineKeyboard {
		for _, b := range row {
			if b.Unique == "fav_rm" {
				removeData = append(removeData, b.Data)
			}
		}
	}
	if len(removeData) != 3 {
		t.Fatalf("remove buttons = %v, want one per symbol", removeData)
	}
	if removeData[0] != "AAPL" || removeData[2] != "BTC-USD" {
		t.Errorf("remove button payloads = %v", removeData)
	}
}

func TestQuoteCardMembershipButton(t *testing.T) {
	_, markupOut := QuoteCard("AAPL", "187.44", "USD", false)
	_, markupIn := QuoteCard("AAPL", "187.44", "USD", true)

	if got := markupOut.InlineKeyboard[0][0].Unique; got != "fav_add" {
		t.Errorf("non-member button action = %q, want fav_add", got)
	}
	if got := markupIn.InlineKeyboard[0][0].Unique; got != "fav_rm" {
		t.Errorf("member button action = %q, want fav_rm", got)
	}
	if got := markupOut.InlineKeyboard[0][0].Data; got != "AAPL" {
		t.Errorf("button payload = %q, want AAPL", got)
	}
}

func TestQuoteNotFoundNamesSymbol(t *testing.T) {
	text, markup := QuoteNotFound("ZZZZ")
	if !strings.Contains(text, "ZZZZ") {
		t.Errorf("symbol missing from %q", text)
	}
	if markup != nil {
		t.Error("not-found view should carry no keyboard")
	}
}

func TestDigest(t *testing.T) {
	text := Digest([]WatchlistRow{
		{Symbol: "AAPL", Price: "187.44", Currency: "USD", OK: true},
		{Symbol: "GONE", OK: false},
	})
	if !strings.Contains(text, "AAPL") || !strings.Contains(text, "unavailable") {
		t.Errorf("digest = %q", text)
	}

	empty := Digest(nil)
	if !strings.Contains(empty, "empty") {
		t.Errorf("empty digest = %q", empty)
	}
}
