package main

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	dbstore "github.com/soaringjerry/Brushlog/internal/db"
	"github.com/soaringjerry/Brushlog/internal/logger"
	"github.com/soaringjerry/Brushlog/internal/models"
)

const legacyBundle = `{
  "patients": [{"id": "patient-1", "name": "山田太郎", "sex": "M", "brushType": "小型・コンパクト", "nextAppointment": null}],
  "logs": [{"id": "log-1", "patientId": "patient-1", "dateISO": "2025-09-17", "durationSec": 150,
            "timeOfDay": "night", "selfRating": 4, "bleeding": false, "source": "manual"}],
  "messages": [{"patientId": "patient-1", "createdAt": "2025-09-17", "summary": "good"}],
  "version": "daisan-hygienist-lite-v1"
}`

func TestMigrateIfNeededImportsLegacyBundle(t *testing.T) {
	dir := t.TempDir()
	bundle := filepath.Join(dir, "legacy.json")
	if err := os.WriteFile(bundle, []byte(legacyBundle), 0o600); err != nil {
		t.Fatalf("write bundle: %v", err)
	}
	dbPath := filepath.Join(dir, "data", "brushlog.db")
	if err := MigrateIfNeeded(bundle, dbPath, "", logger.Nop()); err != nil {
		t.Fatalf("MigrateIfNeeded: %v", err)
	}

	sqlDB, err := sql.Open("sqlite3", dbstore.DSN(dbPath))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sqlDB.Close()
	store, err := dbstore.NewSQLiteStore(sqlDB, nil)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	p, err := store.GetPatient("patient-1")
	if err != nil || p == nil || p.Name != "山田太郎" {
		t.Fatalf("patient not imported: %+v, %v", p, err)
	}
	if p.BrushType == nil || *p.BrushType != models.BrushCompactHead {
		t.Fatalf("brush type label not mapped: %v", p.BrushType)
	}
	evs, _ := store.ListBrushEvents("patient-1")
	msgs, _ := store.ListMessages("patient-1")
	if len(evs) != 1 || len(msgs) != 1 {
		t.Fatalf("expected 1 log and 1 message, got %d, %d", len(evs), len(msgs))
	}

	if err := os.WriteFile(bundle, []byte(`not json`), 0o600); err != nil {
		t.Fatalf("rewrite bundle: %v", err)
	}
	if err := MigrateIfNeeded(bundle, dbPath, "", logger.Nop()); err != nil {
		t.Fatalf("existing database must be left alone: %v", err)
	}
}

func TestMigrateIfNeededWithoutBundle(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "brushlog.db")
	if err := MigrateIfNeeded("", dbPath, "", logger.Nop()); err != nil {
		t.Fatalf("MigrateIfNeeded: %v", err)
	}
	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatalf("no database should be created without a bundle")
	}
	if err := MigrateIfNeeded("", "", "", logger.Nop()); err == nil {
		t.Fatalf("expected error for empty sqlite path")
	}
}
