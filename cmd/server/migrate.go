package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/soaringjerry/Brushlog/internal/api"
	dbstore "github.com/soaringjerry/Brushlog/internal/db"
	"github.com/soaringjerry/Brushlog/internal/logger"
	"github.com/soaringjerry/Brushlog/internal/services"
)

// MigrateIfNeeded seeds a brand-new SQLite file from a clinic bundle exported
// by the browser-only version. It does nothing once the database exists or
// when no bundle is configured.
func MigrateIfNeeded(bundlePath, sqlitePath, migrationsDir string, log *logger.Logger) error {
	if sqlitePath == "" {
		return errors.New("sqlite path is required")
	}
	if _, err := os.Stat(sqlitePath); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("check sqlite file: %w", err)
	}

	legacyStore, bundle, err := api.NewMemoryStoreFromPath(bundlePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load legacy bundle: %w", err)
	}

	log.Info("first run detected, importing legacy clinic bundle", "path", bundlePath)

	if err := os.MkdirAll(filepath.Dir(sqlitePath), 0o755); err != nil {
		return fmt.Errorf("create sqlite dir: %w", err)
	}
	sqliteDB, err := sql.Open("sqlite3", dbstore.DSN(sqlitePath))
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer func() {
		if cerr := sqliteDB.Close(); cerr != nil {
			log.Warn("failed to close sqlite db", "error", cerr)
		}
	}()

	if _, err := dbstore.RunMigrations(sqliteDB, migrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	dst, err := dbstore.NewSQLiteStore(sqliteDB, log)
	if err != nil {
		return fmt.Errorf("init sqlite store: %w", err)
	}
	if err := copyStore(legacyStore, dst); err != nil {
		return fmt.Errorf("copy data: %w", err)
	}
	log.Info("legacy bundle imported", "patients", len(bundle.Patients), "logs", len(bundle.Logs))
	return nil
}

// copyStore moves everything through the bundle service so the data is
// validated the same way as an upload.
func copyStore(src, dst api.Store) error {
	b, err := services.NewBundleService(src, nil).Export()
	if err != nil {
		return err
	}
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	_, err = services.NewBundleService(dst, nil).Import(data, "legacy-import")
	return err
}
