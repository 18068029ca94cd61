package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BRUSHLOG_ADDR", "")
	t.Setenv("BRUSHLOG_DB_PATH", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.DBPath != "data/brushlog.db" || cfg.Timezone != "Local" || cfg.LogMode != "dev" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.AuthEnabled() {
		t.Fatalf("auth must be off without a passcode")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BRUSHLOG_ADDR", ":9000")
	t.Setenv("BRUSHLOG_PASSCODE", "pw")
	t.Setenv("BRUSHLOG_TIMEZONE", "Asia/Tokyo")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9000" || !cfg.AuthEnabled() {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("Location: %v", err)
	}
	if _, off := time.Date(2025, 1, 1, 0, 0, 0, 0, loc).Zone(); off != 9*3600 {
		t.Fatalf("expected JST offset, got %d", off)
	}
}

func TestLocation(t *testing.T) {
	if loc, err := (Config{Timezone: "UTC"}).Location(); err != nil || loc != time.UTC {
		t.Fatalf("UTC = %v, %v", loc, err)
	}
	if loc, err := (Config{}).Location(); err != nil || loc != time.Local {
		t.Fatalf("empty = %v, %v", loc, err)
	}
	if _, err := (Config{Timezone: "Mars/Olympus"}).Location(); err == nil {
		t.Fatalf("expected error for unknown zone")
	}
}
