package api

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/soaringjerry/Brushlog/internal/models"
)

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := newMemoryStore()
	bt := models.BrushSuperTapered
	if err := s.AddPatient(&models.Patient{ID: "p1", Name: "A", BrushType: &bt}); err != nil {
		t.Fatalf("AddPatient: %v", err)
	}
	p, _ := s.GetPatient("p1")
	*p.BrushType = models.BrushCompactHead
	p.Name = "changed"
	again, _ := s.GetPatient("p1")
	if again.Name != "A" || *again.BrushType != models.BrushSuperTapered {
		t.Fatalf("store leaked internal state: %+v", again)
	}
	if err := s.AddPatient(&models.Patient{ID: "p1", Name: "dup"}); err == nil {
		t.Fatalf("expected duplicate id error")
	}
	if err := s.AddBrushEvent(&models.BrushEvent{ID: "l1", PatientID: "ghost"}); err == nil {
		t.Fatalf("expected error for event of unknown patient")
	}
}

func TestMemoryStoreDeleteCascades(t *testing.T) {
	s := newMemoryStore()
	_ = s.AddPatient(&models.Patient{ID: "p1", Name: "A"})
	_ = s.AddPatient(&models.Patient{ID: "p2", Name: "B"})
	_ = s.AddBrushEvent(&models.BrushEvent{ID: "l1", PatientID: "p1"})
	_ = s.AddBrushEvent(&models.BrushEvent{ID: "l2", PatientID: "p2"})
	_ = s.AddMessage(models.MessageSummary{PatientID: "p1", Summary: "x"})

	ok, err := s.DeletePatient("p1")
	if err != nil || !ok {
		t.Fatalf("DeletePatient = %v, %v", ok, err)
	}
	evs, _ := s.ListAllBrushEvents()
	msgs, _ := s.ListAllMessages()
	if len(evs) != 1 || evs[0].ID != "l2" || len(msgs) != 0 {
		t.Fatalf("cascade failed: %+v %+v", evs, msgs)
	}
	if ok, _ := s.DeletePatient("p1"); ok {
		t.Fatalf("second delete should report missing")
	}
}

func TestNewMemoryStoreFromPath(t *testing.T) {
	if _, _, err := NewMemoryStoreFromPath(""); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist for empty path, got %v", err)
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "legacy.json")
	doc := `{"patients":[{"id":"p1","name":"A"}],"logs":[{"id":"l1","patientId":"p1","dateISO":"2025-09-01","durationSec":60,"timeOfDay":"night","selfRating":3,"source":"manual"}],"version":"daisan-hygienist-lite-v1"}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, b, err := NewMemoryStoreFromPath(path)
	if err != nil {
		t.Fatalf("NewMemoryStoreFromPath: %v", err)
	}
	if len(b.Patients) != 1 {
		t.Fatalf("unexpected bundle %+v", b)
	}
	evs, _ := s.ListBrushEvents("p1")
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}

	if err := os.WriteFile(path, []byte(`{"version":"v0"}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := NewMemoryStoreFromPath(path); err == nil {
		t.Fatalf("expected version error")
	}
}
