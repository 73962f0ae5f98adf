package config

import (
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port int `env:"PORT" envDefault:"8080"`
	}

	Telegram struct {
		BotToken string `env:"BOT_TOKEN,required"`

		// Chat ID of the single approver. Approval prompts and infraction
		// reports go here; decision and override events are authorized
		// against it.
		ApproverChatID int64 `env:"APPROVER_CHAT_ID,required"`

		// When set, updates arrive via webhook push; otherwise the bot
		// long-polls getUpdates.
		WebhookURL    string `env:"WEBHOOK_URL" envDefault:""`
		WebhookSecret string `env:"WEBHOOK_SECRET" envDefault:""`

		PollTimeoutSec int `env:"POLL_TIMEOUT_SEC" envDefault:"30"`
	}

	Moderation struct {
		BanThreshold int `env:"BAN_THRESHOLD" envDefault:"3"`

		// Comma-separated substring blocklist. Empty means the built-in
		// default list (link markers plus profanity).
		ForbiddenTerms []string `env:"FORBIDDEN_TERMS" envSeparator:","`
	}
}

func Load() (*Config, error) {
	// Missing .env is fine; in production the variables are set directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
