// Command notifier sends the watchlist digest to every subscribed user
// once and exits. Run it from cron or a scheduler.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	tele "gopkg.in/telebot.v4"

	"tickerbot/bot"
	"tickerbot/core/bootstrap"
	"tickerbot/core/logger"
	coretelegram "tickerbot/core/telegram"
	"tickerbot/notifier"
	"tickerbot/quotes"
	"tickerbot/storage"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}
	cfg, err := bot.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer func() {
		_ = res.DB.Close()
		_ = logger.Shutdown()
	}()

	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Core.Telegram.Token,
		Client: coretelegram.BuildHTTPClient(),
		// No poller: this process only sends.
		Offline: false,
	})
	if err != nil {
		log.Fatalf("telegram: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	n := notifier.New(
		storage.New(res.DB),
		quotes.New(quotes.Options{BaseURL: cfg.Quotes.BaseURL, Timeout: cfg.Quotes.Timeout()}),
		b,
	)
	stats, err := n.Run(ctx)
	if err != nil {
		log.Fatalf("digest run: %v", err)
	}
	log.Printf("digest complete: %d sent, %d failed of %d subscribers",
		stats.Sent, stats.Failed, stats.Subscribers)
}
