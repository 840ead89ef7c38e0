package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tickerbot/notifier"
	"tickerbot/quotes"

	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v4"
)

// MockContext implements the slice of tele.Context the handlers touch and
// records outbound sends. Unimplemented methods panic via the embedded nil
// interface, which is what we want in a test.
type MockContext struct {
	tele.Context
	sender *tele.User
	text   string
	values map[string]interface{}
	sent   []sentMessage
}

type sentMessage struct {
	text   string
	markup *tele.ReplyMarkup
	edited bool
}

func newMockContext(userID int64, text string) *MockContext {
	return &MockContext{
		sender: &tele.User{ID: userID, FirstName: "Test"},
		text:   text,
		values: make(map[string]interface{}),
	}
}

func (m *MockContext) Sender() *tele.User  { return m.sender }
func (m *MockContext) Chat() *tele.Chat    { return &tele.Chat{ID: m.sender.ID, Type: tele.ChatPrivate} }
func (m *MockContext) Text() string        { return m.text }
func (m *MockContext) Update() tele.Update { return tele.Update{ID: 1} }
func (m *MockContext) Bot() tele.API       { return nil }

var _ tele.Context = (*MockContext)(nil)

func (m *MockContext) Get(key string) interface{}        { return m.values[key] }
func (m *MockContext) Set(key string, value interface{}) { m.values[key] = value }

func markupFromOpts(opts []interface{}) *tele.ReplyMarkup {
	for _, o := range opts {
		if so, ok := o.(*tele.SendOptions); ok && so != nil {
			return so.ReplyMarkup
		}
		if rm, ok := o.(*tele.ReplyMarkup); ok {
			return rm
		}
	}
	return nil
}

func (m *MockContext) Send(what interface{}, opts ...interface{}) error {
	text, _ := what.(string)
	m.sent = append(m.sent, sentMessage{text: text, markup: markupFromOpts(opts)})
	return nil
}

func (m *MockContext) EditOrSend(what interface{}, opts ...interface{}) error {
	text, _ := what.(string)
	m.sent = append(m.sent, sentMessage{text: text, markup: markupFromOpts(opts), edited: true})
	return nil
}

func (m *MockContext) lastSent(t *testing.T) sentMessage {
	t.Helper()
	if len(m.sent) == 0 {
		t.Fatal("handler sent nothing")
	}
	return m.sent[len(m.sent)-1]
}

// Fakes

type fakeStore struct {
	favorites  map[int64][]string
	subscribed map[int64]bool
	fail       bool
}

var errStoreDown = errors.New("connection refused")

func newFakeStore() *fakeStore {
	return &fakeStore{
		favorites:  make(map[int64][]string),
		subscribed: make(map[int64]bool),
	}
}

func (s *fakeStore) AddFavorite(ctx context.Context, userID int64, symbol string) (bool, error) {
	if s.fail {
		return false, errStoreDown
	}
	for _, existing := range s.favorites[userID] {
		if existing == symbol {
			return false, nil
		}
	}
	s.favorites[userID] = append(s.favorites[userID], symbol)
	return true, nil
}

func (s *fakeStore) RemoveFavorite(ctx context.Context, userID int64, symbol string) error {
	if s.fail {
		return errStoreDown
	}
	kept := s.favorites[userID][:0]
	for _, existing := range s.favorites[userID] {
		if existing != symbol {
			kept = append(kept, existing)
		}
	}
	s.favorites[userID] = kept
	return nil
}

func (s *fakeStore) ListFavorites(ctx context.Context, userID int64) ([]string, error) {
	if s.fail {
		return nil, errStoreDown
	}
	return s.favorites[userID], nil
}

func (s *fakeStore) ToggleSubscription(ctx context.Context, userID int64) (bool, error) {
	if s.fail {
		return false, errStoreDown
	}
	s.subscribed[userID] = !s.subscribed[userID]
	return s.subscribed[userID], nil
}

func (s *fakeStore) IsSubscribed(ctx context.Context, userID int64) (bool, error) {
	return s.subscribed[userID], nil
}

func (s *fakeStore) ListSubscribedUsers(ctx context.Context) ([]int64, error) {
	var users []int64
	for id, on := range s.subscribed {
		if on {
			users = append(users, id)
		}
	}
	return users, nil
}

type fakeFetcher struct {
	prices map[string]string
	calls  int
}

func (f *fakeFetcher) Fetch(ctx context.Context, symbol string) (quotes.Quote, bool) {
	f.calls++
	price, ok := f.prices[symbol]
	if !ok {
		return quotes.Quote{}, false
	}
	d, _ := decimal.NewFromString(price)
	return quotes.Quote{Symbol: symbol, Price: d, Currency: "USD"}, true
}

func (f *fakeFetcher) FetchBatch(ctx context.Context, symbols []string) []quotes.BatchResult {
	results := make([]quotes.BatchResult, len(symbols))
	for i, sym := range symbols {
		q, ok := f.Fetch(ctx, sym)
		results[i] = quotes.BatchResult{Symbol: sym, Quote: q, OK: ok}
	}
	return results
}

type fakeAssistant struct {
	answer string
	err    error
	asked  []string
}

func (f *fakeAssistant) Generate(ctx context.Context, prompt string) (string, error) {
	f.asked = append(f.asked, prompt)
	return f.answer, f.err
}

func newTestApp() (*App, *fakeStore, *fakeFetcher, *fakeAssistant) {
	store := newFakeStore()
	fetcher := &fakeFetcher{prices: map[string]string{"AAPL": "187.44", "MSFT": "410.15"}}
	assistant := &fakeAssistant{answer: "It went up."}
	app := newApp(&Config{}, store, fetcher, assistant)
	return app, store, fetcher, assistant
}

// Tests

func TestHandleTextValidSymbolFetchesQuote(t *testing.T) {
	app, _, fetcher, _ := newTestApp()
	c := newMockContext(1, "AAPL")

	if err := app.handleText(c); err != nil {
		t.Fatalf("handleText: %v", err)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetch calls = %d, want 1", fetcher.calls)
	}
	msg := c.lastSent(t)
	if !strings.Contains(msg.text, "AAPL") || !strings.Contains(msg.text, "187.44") {
		t.Errorf("quote card = %q", msg.text)
	}
	if msg.markup == nil || msg.markup.InlineKeyboard[0][0].Unique != "fav_add" {
		t.Error("card for non-favorite should offer fav_add")
	}
}

func TestHandleTextLowercasesToUpper(t *testing.T) {
	app, _, fetcher, _ := newTestApp()
	c := newMockContext(1, "aapl")

	if err := app.handleText(c); err != nil {
		t.Fatalf("handleText: %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("fetch calls = %d, want 1", fetcher.calls)
	}
	if !strings.Contains(c.lastSent(t).text, "AAPL") {
		t.Errorf("card = %q, want upper-cased symbol", c.lastSent(t).text)
	}
}

func TestHandleTextInvalidInputSkipsFetch(t *testing.T) {
	app, _, fetcher, _ := newTestApp()

	for _, input := range []string{"AAAAAAAAAAAAAAAAA", "hello world"} {
		c := newMockContext(1, input)
		if err := app.handleText(c); err != nil {
			t.Fatalf("handleText(%q): %v", input, err)
		}
		if !strings.Contains(c.lastSent(t).text, "ticker symbol") {
			t.Errorf("input %q: reply = %q, want format guidance", input, c.lastSent(t).text)
		}
	}
	if fetcher.calls != 0 {
		t.Errorf("fetch calls = %d, want 0 for rejected input", fetcher.calls)
	}
}

func TestHandleTextUnknownSymbolRendersNotFound(t *testing.T) {
	app, _, _, _ := newTestApp()
	c := newMockContext(1, "ZZZZ")

	if err := app.handleText(c); err != nil {
		t.Fatalf("handleText: %v", err)
	}
	if !strings.Contains(c.lastSent(t).text, "No quote found") {
		t.Errorf("reply = %q, want not-found view", c.lastSent(t).text)
	}
}

func TestCbFavAddRendersCardWithRemoveButton(t *testing.T) {
	app, store, _, _ := newTestApp()
	c := newMockContext(1, "")
	c.Set("cb_arg", "AAPL")

	if err := app.cbFavAdd(c); err != nil {
		t.Fatalf("cbFavAdd: %v", err)
	}
	if favs := store.favorites[1]; len(favs) != 1 || favs[0] != "AAPL" {
		t.Errorf("favorites = %v, want [AAPL]", favs)
	}
	msg := c.lastSent(t)
	if !msg.edited {
		t.Error("callback should edit the triggering message")
	}
	if msg.markup.InlineKeyboard[0][0].Unique != "fav_rm" {
		t.Error("card for favorite should offer fav_rm")
	}
}

func TestCbFavRemoveUpdatesEditView(t *testing.T) {
	app, store, _, _ := newTestApp()
	store.favorites[1] = []string{"AAPL", "MSFT"}
	c := newMockContext(1, "")
	c.Set("cb_arg", "AAPL")

	if err := app.cbFavRemove(c); err != nil {
		t.Fatalf("cbFavRemove: %v", err)
	}
	if favs := store.favorites[1]; len(favs) != 1 || favs[0] != "MSFT" {
		t.Errorf("favorites = %v, want [MSFT]", favs)
	}
}

func TestCbFavForgedArgumentRendersGuidance(t *testing.T) {
	app, store, fetcher, _ := newTestApp()
	store.favorites[1] = []string{"MSFT"}

	for _, forged := range []string{"", "drop table;--", "AAAAAAAAAAAAAAAAA"} {
		c := newMockContext(1, "")
		c.Set("cb_arg", forged)
		if err := app.cbFavAdd(c); err != nil {
			t.Fatalf("cbFavAdd(%q): %v", forged, err)
		}
		if !strings.Contains(c.lastSent(t).text, "ticker symbol") {
			t.Errorf("arg %q: reply = %q, want format guidance", forged, c.lastSent(t).text)
		}

		c2 := newMockContext(1, "")
		c2.Set("cb_arg", forged)
		if err := app.cbFavRemove(c2); err != nil {
			t.Fatalf("cbFavRemove(%q): %v", forged, err)
		}
		if !strings.Contains(c2.lastSent(t).text, "ticker symbol") {
			t.Errorf("arg %q: reply = %q, want format guidance", forged, c2.lastSent(t).text)
		}
	}
	if favs := store.favorites[1]; len(favs) != 1 || favs[0] != "MSFT" {
		t.Errorf("favorites = %v, forged arguments must not touch the store", favs)
	}
	if fetcher.calls != 0 {
		t.Errorf("fetch calls = %d, want 0 for rejected arguments", fetcher.calls)
	}
}

func TestCbSubscribeTogglesTwice(t *testing.T) {
	app, _, _, _ := newTestApp()

	c := newMockContext(1, "")
	if err := app.cbSubscribe(c); err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !strings.Contains(c.lastSent(t).text, "digest on") {
		t.Errorf("first toggle reply = %q", c.lastSent(t).text)
	}

	c2 := newMockContext(1, "")
	if err := app.cbSubscribe(c2); err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if !strings.Contains(c2.lastSent(t).text, "digest off") {
		t.Errorf("second toggle reply = %q", c2.lastSent(t).text)
	}
}

func TestCbWatchlistMarksFailedRows(t *testing.T) {
	app, store, _, _ := newTestApp()
	store.favorites[1] = []string{"AAPL", "GONE"}
	c := newMockContext(1, "")

	if err := app.cbWatchlist(c); err != nil {
		t.Fatalf("cbWatchlist: %v", err)
	}
	text := c.lastSent(t).text
	if !strings.Contains(text, "187.44") {
		t.Errorf("watchlist = %q, want AAPL price", text)
	}
	if !strings.Contains(text, "unavailable") {
		t.Errorf("watchlist = %q, want inline marker for failed row", text)
	}
}

func TestStoreFailurePropagatesAfterRender(t *testing.T) {
	app, store, _, _ := newTestApp()
	store.fail = true
	c := newMockContext(1, "")

	err := app.cbWatchlist(c)
	if err == nil {
		t.Fatal("expected wrapped store error")
	}
	if !errors.Is(err, errStoreDown) {
		t.Errorf("error %v does not wrap the store failure", err)
	}
	if !strings.Contains(c.lastSent(t).text, "unavailable") {
		t.Errorf("user reply = %q, want unavailable view", c.lastSent(t).text)
	}
}

func TestAskFlow(t *testing.T) {
	app, _, _, assistant := newTestApp()

	c := newMockContext(1, "/ask")
	if err := app.handleAsk(c); err != nil {
		t.Fatalf("handleAsk: %v", err)
	}
	if !app.fsm.InProgress(1) {
		t.Fatal("ask state not set")
	}

	c2 := newMockContext(1, "why did AAPL move?")
	if err := app.fsm.ManagerHandler(c2); err != nil {
		t.Fatalf("prompt handler: %v", err)
	}
	if len(assistant.asked) != 1 || assistant.asked[0] != "why did AAPL move?" {
		t.Errorf("prompts = %v", assistant.asked)
	}
	if !strings.Contains(c2.lastSent(t).text, "It went up.") {
		t.Errorf("answer reply = %q", c2.lastSent(t).text)
	}
	if app.fsm.InProgress(1) {
		t.Error("ask state should clear after the prompt")
	}
}

func TestAskFlowModelFailureRecovered(t *testing.T) {
	app, _, _, assistant := newTestApp()
	assistant.err = errors.New("quota exceeded")

	app.fsm.SetState(1, stateAwaitingPrompt)
	c := newMockContext(1, "anything")
	if err := app.fsm.ManagerHandler(c); err != nil {
		t.Fatalf("model failure should be recovered locally, got %v", err)
	}
	if !strings.Contains(c.lastSent(t).text, "unavailable") {
		t.Errorf("reply = %q, want unavailable view", c.lastSent(t).text)
	}
}

func TestBroadcastReportsStats(t *testing.T) {
	app, _, _, _ := newTestApp()
	app.notify = func(ctx context.Context, sender notifier.Sender) (notifier.Stats, error) {
		return notifier.Stats{Subscribers: 3, Sent: 2, Failed: 1}, nil
	}

	c := newMockContext(42, "/broadcast")
	if err := app.handleBroadcast(c); err != nil {
		t.Fatalf("handleBroadcast: %v", err)
	}
	if !strings.Contains(c.lastSent(t).text, "2 of 3") {
		t.Errorf("summary = %q", c.lastSent(t).text)
	}
}

func TestParseActionKey(t *testing.T) {
	cases := []struct {
		name    string
		cb      *tele.Callback
		key     string
		payload string
	}{
		{"unique and data", &tele.Callback{Unique: "fav_add", Data: "AAPL"}, "fav_add", "AAPL"},
		{"raw wire format", &tele.Callback{Data: "\ffav_add|AAPL"}, "fav_add", "AAPL"},
		{"flat legacy payload", &tele.Callback{Data: "fav_add_AAPL"}, "fav_add", "AAPL"},
		{"bare action", &tele.Callback{Unique: "menu"}, "menu", ""},
		{"unknown stays raw", &tele.Callback{Unique: "selfdestruct", Data: "now"}, "selfdestruct", "now"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, payload := parseActionKey(tc.cb)
			if key != tc.key || payload != tc.payload {
				t.Errorf("parseActionKey = (%q, %q), want (%q, %q)", key, payload, tc.key, tc.payload)
			}
		})
	}
}
