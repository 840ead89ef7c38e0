package main

import (
	"log"

	"github.com/joho/godotenv"

	"tickerbot/bot"
	corecmd "tickerbot/core/cmd"
)

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "configs/config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return bot.LoadConfig(path)
		},
		Bootstrap: func(cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			appCfg, ok := cfg.(*bot.Config)
			if !ok {
				log.Fatalf("unexpected config type %T", cfg)
			}
			return bot.NewApp(appCfg)
		},
	})
	if err != nil {
		log.Fatalf("bot exited: %v", err)
	}
}
