package bot

import "testing"

func TestValidSymbol(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"AAPL", true},
		{"aapl", true},
		{"BTC-USD", true},
		{"EURUSD=X", true},
		{"BRK-B", true},
		{"A", true},
		{"123456789012", true},  // exactly at the bound
		{"1234567890123", false}, // one past the bound
		{"AAAAAAAAAAAAAAAAA", false},
		{"hello world", false},
		{"what?", false},
		{"", false},
		{"AA_PL", false},
		{"AAPL!", false},
	}
	for _, tc := range cases {
		if got := ValidSymbol(tc.text); got != tc.want {
			t.Errorf("ValidSymbol(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestNormalizeSymbol(t *testing.T) {
	if got := NormalizeSymbol(" btc-usd "); got != "BTC-USD" {
		t.Errorf("NormalizeSymbol = %q, want BTC-USD", got)
	}
}
