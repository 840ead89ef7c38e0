package bot

import "strings"

// maxSymbolLen bounds free-text symbol queries. Real tickers top out well
// below this; anything longer is conversation, not a symbol.
const maxSymbolLen = 12

// ValidSymbol reports whether free text passes the cheap ticker filter:
// non-empty, at most maxSymbolLen characters, letters/digits/hyphen/equals
// only. The filter deliberately knows nothing about real listings; the
// provider decides whether the symbol exists.
func ValidSymbol(text string) bool {
	if text == "" || len(text) > maxSymbolLen {
		return false
	}
	for _, r := range text {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '=':
		default:
			return false
		}
	}
	return true
}

// NormalizeSymbol upper-cases a validated symbol for provider and store use.
func NormalizeSymbol(text string) string {
	return strings.ToUpper(strings.TrimSpace(text))
}
