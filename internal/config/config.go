package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the server configuration read from BRUSHLOG_* variables.
type Config struct {
	Addr          string `env:"BRUSHLOG_ADDR"            envDefault:":8080"`
	DBPath        string `env:"BRUSHLOG_DB_PATH"         envDefault:"data/brushlog.db"`
	MigrationsDir string `env:"BRUSHLOG_MIGRATIONS_DIR"`
	LegacyBundle  string `env:"BRUSHLOG_LEGACY_BUNDLE"`
	RulesPath     string `env:"BRUSHLOG_RULES_PATH"`
	Timezone      string `env:"BRUSHLOG_TIMEZONE"        envDefault:"Local"`
	Passcode      string `env:"BRUSHLOG_PASSCODE"`
	JWTSecret     string `env:"BRUSHLOG_JWT_SECRET"`
	LogMode       string `env:"BRUSHLOG_LOG_MODE"        envDefault:"dev"`
	Commit        string `env:"BRUSHLOG_COMMIT"`
	BuildTime     string `env:"BRUSHLOG_BUILD_TIME"`
	StaticDir     string `env:"BRUSHLOG_STATIC_DIR"`
	DevFrontend   string `env:"BRUSHLOG_DEV_FRONTEND_URL"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Location resolves Timezone. Calendar days for streaks and windows are
// counted in this zone.
func (c Config) Location() (*time.Location, error) {
	switch c.Timezone {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// AuthEnabled reports whether the API requires an operator token.
func (c Config) AuthEnabled() bool { return c.Passcode != "" }
