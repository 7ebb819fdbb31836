package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	BotToken    string `env:"BOT_TOKEN,required"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	Port        int    `env:"PORT" envDefault:"8080"`
	WebAppURL   string `env:"WEBAPP_URL" envDefault:"http://localhost:8080"`

	// Database pool bounds.
	DBMaxConns int32 `env:"DB_MAX_CONNS" envDefault:"16"`
	DBMinConns int32 `env:"DB_MIN_CONNS" envDefault:"2"`

	// Admin panel tokens
	TokenSecret string        `env:"TOKEN_SECRET,required"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"5m"`

	// Primary administrators (fixed at deployment). Secondary admins live
	// in the database and are managed from the panel.
	AdminIDs     []int64  `env:"ADMIN_IDS" envSeparator:","`
	AdminHandles []string `env:"ADMIN_HANDLES" envSeparator:","`

	// Admission minimums, in currency minor units.
	MinTopup    int64 `env:"MIN_TOPUP" envDefault:"100"`
	MinWithdraw int64 `env:"MIN_WITHDRAW" envDefault:"250"`

	// Recognized banks for withdrawal requests. Matching is a
	// case-insensitive substring check against the submitted bank string.
	Banks []string `env:"BANKS" envSeparator:"," envDefault:"sber,tinkoff,alfa,vtb,raiffeisen"`

	// Per-platform submission cooldowns.
	CooldownGoogle time.Duration `env:"COOLDOWN_GOOGLE" envDefault:"72h"`
	CooldownYandex time.Duration `env:"COOLDOWN_YANDEX" envDefault:"24h"`
	CooldownTwoGis time.Duration `env:"COOLDOWN_TWOGIS" envDefault:"24h"`

	// Channel the bot requires users to be subscribed to.
	RequiredChannel string `env:"REQUIRED_CHANNEL" envDefault:"@ReviewCashNews"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// IsPrimaryAdmin reports whether the id or handle belongs to the fixed
// primary-admin roster.
func (c *Config) IsPrimaryAdmin(id int64, handle string) bool {
	for _, adminID := range c.AdminIDs {
		if id != 0 && id == adminID {
			return true
		}
	}
	for _, h := range c.AdminHandles {
		if handle != "" && strings.EqualFold(handle, h) {
			return true
		}
	}
	return false
}
