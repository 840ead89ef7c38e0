// Package actions defines the closed set of callback actions carried in
// inline-button payloads and a single encode/decode pair for them.
package actions

import "strings"

// Action is a callback action tag. The set is closed: payloads carrying
// anything else decode to ok=false and the router acknowledges the press
// without touching state.
type Action string

const (
	Menu      Action = "menu"
	Watchlist Action = "watchlist"
	Edit      Action = "edit"
	FavAdd    Action = "fav_add"
	FavRemove Action = "fav_rm"
	Quote     Action = "quote"
	Subscribe Action = "sub"
)

// All lists every known action. Order matters for Decode: longer tags are
// listed first so "fav_add_AAPL" never matches a shorter tag by prefix.
var All = []Action{
	Watchlist,
	FavAdd,
	FavRemove,
	Quote,
	Menu,
	Edit,
	Subscribe,
}

const delim = "_"

// Encode renders an action plus optional argument into a payload string,
// e.g. Encode(FavAdd, "AAPL") -> "fav_add_AAPL". Arguments must not contain
// the delimiter; ticker symbols (letters, digits, hyphen, equals) cannot.
func Encode(a Action, arg string) string {
	if arg == "" {
		return string(a)
	}
	return string(a) + delim + arg
}

// Decode splits a payload into its action and argument. The tag is the
// longest known action matching the payload head; the remainder past one
// delimiter is the argument.
func Decode(payload string) (Action, string, bool) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", "", false
	}
	for _, a := range All {
		tag := string(a)
		if payload == tag {
			return a, "", true
		}
		if strings.HasPrefix(payload, tag+delim) {
			return a, payload[len(tag)+len(delim):], true
		}
	}
	return "", "", false
}
