package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	APIBaseURL     string        `env:"API_BASE_URL"      envDefault:"https://hn.algolia.com/api/v1"`
	DefaultQuery   string        `env:"DEFAULT_QUERY"     envDefault:"mobile"`
	DBPath         string        `env:"DB_PATH"           envDefault:"db.sqlite"`
	FetchTimeout   time.Duration `env:"FETCH_TIMEOUT"     envDefault:"20s"`
	TelegramToken  string        `env:"TELEGRAM_TOKEN"`
	TelegramChatID int64         `env:"TELEGRAM_CHAT_ID"`
	CheckCronSpec  string        `env:"CHECK_CRON_SPEC"   envDefault:"*/15 * * * *"`
}

func LoadConfig() Config {
	var cfg Config
	env.Must(cfg, env.Parse(&cfg))
	return cfg
}
