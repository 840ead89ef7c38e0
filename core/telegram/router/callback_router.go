package router

import (
	"time"

	"log/slog"

	tg "tickerbot/core/telegram"
	"tickerbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises key extraction and fallback behaviour for callbacks.
type CallbackOptions struct {
	// ParseKey overrides the default wire-format split. It lets the
	// application map raw callback data to a registered key plus the
	// argument handed to the handler via c.Set("cb_arg", ...).
	ParseKey func(cb *tele.Callback) (key, payload string)
	NotFound tele.HandlerFunc
}

// CallbackRoute returns a handler that routes callbacks through the registry.
// The callback is acknowledged before the handler runs so the client never
// waits on a spinner regardless of handler outcome.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	parse := opts.ParseKey
	if parse == nil {
		parse = parseCallback
	}

	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}

		key, payload := parse(c.Callback())
		name := "callback." + normalizeHandlerName(key)
		extras := []slog.Attr{slog.String("cb_key", key)}
		c.Set("cb_arg", payload)

		_ = c.Respond()

		cbHandler, ok := reg.GetCallback(key)
		if !ok || cbHandler == nil {
			fallback := reg.CallbackNotFound()
			if fallback == nil {
				fallback = opts.NotFound
			}
			extras = append(extras, slog.String("reason", "not_found"))
			return handleWithSummary(c, name, start, "", "", func() error {
				if fallback != nil {
					return fallback(c)
				}
				return nil
			}, extras...)
		}

		return handleWithSummary(c, name, start, "", "", func() error {
			return cbHandler(c)
		}, extras...)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
