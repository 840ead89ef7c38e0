package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tickerbot/quotes"

	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v4"
)

type fakeStore struct {
	subscribed []int64
	favorites  map[int64][]string
	listErr    error
}

func (s *fakeStore) ListSubscribedUsers(ctx context.Context) ([]int64, error) {
	return s.subscribed, s.listErr
}

func (s *fakeStore) ListFavorites(ctx context.Context, userID int64) ([]string, error) {
	return s.favorites[userID], nil
}

type fakeFetcher struct {
	failing map[string]bool
}

func (f *fakeFetcher) FetchBatch(ctx context.Context, symbols []string) []quotes.BatchResult {
	results := make([]quotes.BatchResult, len(symbols))
	for i, sym := range symbols {
		if f.failing[sym] {
			results[i] = quotes.BatchResult{Symbol: sym}
			continue
		}
		results[i] = quotes.BatchResult{
			Symbol: sym,
			Quote:  quotes.Quote{Symbol: sym, Price: decimal.NewFromInt(100), Currency: "USD"},
			OK:     true,
		}
	}
	return results
}

type fakeSender struct {
	sent    map[int64]string
	failFor map[int64]bool
}

func (s *fakeSender) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	user, ok := to.(*tele.User)
	if !ok {
		return nil, errors.New("unexpected recipient type")
	}
	if s.failFor[user.ID] {
		return nil, errors.New("blocked by user")
	}
	if s.sent == nil {
		s.sent = make(map[int64]string)
	}
	s.sent[user.ID], _ = what.(string)
	return &tele.Message{}, nil
}

func TestRunDeliversToAllSubscribers(t *testing.T) {
	store := &fakeStore{
		subscribed: []int64{1, 2, 3},
		favorites: map[int64][]string{
			1: {"AAPL"},
			2: {"GONE"},
			3: {"MSFT", "BTC-USD"},
		},
	}
	sender := &fakeSender{}
	n := New(store, &fakeFetcher{failing: map[string]bool{"GONE": true}}, sender)

	stats, err := n.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Subscribers != 3 || stats.Sent != 3 || stats.Failed != 0 {
		t.Errorf("stats = %+v, want 3 subscribers, 3 sent", stats)
	}

	// The user with the failing lookup still gets a digest, with the
	// failure marked inline.
	if !strings.Contains(sender.sent[2], "unavailable") {
		t.Errorf("user 2 digest = %q, want inline failure marker", sender.sent[2])
	}
	if !strings.Contains(sender.sent[3], "MSFT") {
		t.Errorf("user 3 digest = %q", sender.sent[3])
	}
}

func TestRunSwallowsPerUserSendFailure(t *testing.T) {
	store := &fakeStore{
		subscribed: []int64{1, 2, 3},
		favorites:  map[int64][]string{1: {"AAPL"}, 2: {"AAPL"}, 3: {"AAPL"}},
	}
	sender := &fakeSender{failFor: map[int64]bool{2: true}}
	n := New(store, &fakeFetcher{}, sender)

	stats, err := n.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Sent != 2 || stats.Failed != 1 {
		t.Errorf("stats = %+v, want 2 sent / 1 failed", stats)
	}
	if _, ok := sender.sent[1]; !ok {
		t.Error("user 1 missed the digest")
	}
	if _, ok := sender.sent[3]; !ok {
		t.Error("user 3 missed the digest after user 2 failed")
	}
}

func TestRunFailsWhenSubscriberListingFails(t *testing.T) {
	store := &fakeStore{listErr: errors.New("db down")}
	n := New(store, &fakeFetcher{}, &fakeSender{})

	if _, err := n.Run(context.Background()); err == nil {
		t.Fatal("expected error when subscriber listing fails")
	}
}
