package services

import (
	"testing"
	"time"

	"github.com/soaringjerry/Brushlog/internal/models"
)

func newTestPatientService(store *stubStore) *PatientService {
	svc := NewPatientService(store)
	svc.now = func() time.Time { return fixedNow }
	n := 0
	svc.idGen = func() string {
		n++
		return "patient-" + itoa(n)
	}
	return svc
}

func TestPatientCreateAndGet(t *testing.T) {
	store := newStubStore()
	svc := newTestPatientService(store)

	p, err := svc.Create(PatientInput{Name: "  Hanako  ", Sex: "F", Birthday: "1990-04-01"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if p.ID != "patient-1" || p.Name != "Hanako" || !p.CreatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected patient %+v", p)
	}
	got, err := svc.Get("patient-1")
	if err != nil || got.Name != "Hanako" {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	if _, err := svc.Get("nope"); !isCode(err, ErrorNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestPatientCreateValidation(t *testing.T) {
	svc := newTestPatientService(newStubStore())
	cases := []PatientInput{
		{Name: ""},
		{Name: "A", Sex: "X"},
		{Name: "A", Birthday: "1990/04/01"},
		{Name: "A", NextAppointment: strPtr("tomorrow")},
		{Name: "A", BrushType: brushPtr("electric")},
	}
	for i, in := range cases {
		if _, err := svc.Create(in); !isCode(err, ErrorInvalid) {
			t.Fatalf("case %d: expected invalid error, got %v", i, err)
		}
	}
}

func TestPatientListSortedByName(t *testing.T) {
	svc := newTestPatientService(newStubStore())
	for _, n := range []string{"Charlie", "Alice", "Bob"} {
		if _, err := svc.Create(PatientInput{Name: n}); err != nil {
			t.Fatalf("Create(%s): %v", n, err)
		}
	}
	ps, err := svc.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ps) != 3 || ps[0].Name != "Alice" || ps[2].Name != "Charlie" {
		t.Fatalf("unexpected order: %v %v %v", ps[0].Name, ps[1].Name, ps[2].Name)
	}
}

func TestPatientUpdatePartial(t *testing.T) {
	store := newStubStore()
	svc := newTestPatientService(store)
	p, _ := svc.Create(PatientInput{Name: "Taro", Phone: "090", NextAppointment: strPtr("2025-10-01")})

	updated, err := svc.Update(p.ID, map[string]any{
		"phone":           " 080 ",
		"brushType":       "compact_head",
		"followUp":        map[string]any{"flag": true, "note": "watch"},
		"nextAppointment": nil,
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Name != "Taro" || updated.Phone != "080" {
		t.Fatalf("unexpected fields %+v", updated)
	}
	if updated.BrushType == nil || *updated.BrushType != models.BrushCompactHead {
		t.Fatalf("brushType not applied: %+v", updated.BrushType)
	}
	if !updated.NeedsFollowUp() || updated.FollowUp.Note != "watch" {
		t.Fatalf("followUp not applied: %+v", updated.FollowUp)
	}
	if updated.NextAppointment != nil {
		t.Fatalf("expected nextAppointment cleared")
	}

	if _, err := svc.Update(p.ID, map[string]any{"brushType": "sonic"}); !isCode(err, ErrorInvalid) {
		t.Fatalf("expected invalid brushType error, got %v", err)
	}
	if _, err := svc.Update(p.ID, map[string]any{"name": 42}); !isCode(err, ErrorInvalid) {
		t.Fatalf("expected invalid type error, got %v", err)
	}
	stored, _ := store.GetPatient(p.ID)
	if *stored.BrushType != models.BrushCompactHead {
		t.Fatalf("failed update must not persist")
	}
}

func TestPatientDeleteCascadesAndAudits(t *testing.T) {
	store := newStubStore()
	svc := newTestPatientService(store)
	p, _ := svc.Create(PatientInput{Name: "Taro"})
	store.events = []models.BrushEvent{{ID: "l1", PatientID: p.ID}, {ID: "l2", PatientID: "other"}}

	if err := svc.Delete(p.ID, "operator"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if len(store.events) != 1 || store.events[0].ID != "l2" {
		t.Fatalf("expected only foreign events to remain, got %+v", store.events)
	}
	if len(store.audit) != 1 || store.audit[0].Action != "delete_patient" || store.audit[0].Target != p.ID {
		t.Fatalf("unexpected audit %+v", store.audit)
	}
	if err := svc.Delete(p.ID, "operator"); !isCode(err, ErrorNotFound) {
		t.Fatalf("expected not_found on second delete, got %v", err)
	}
}

func TestPatientMessages(t *testing.T) {
	store := newStubStore()
	svc := newTestPatientService(store)
	p, _ := svc.Create(PatientInput{Name: "Taro"})
	store.messages = []models.MessageSummary{{PatientID: p.ID, Summary: "hi"}, {PatientID: "x", Summary: "no"}}
	ms, err := svc.Messages(p.ID)
	if err != nil || len(ms) != 1 || ms[0].Summary != "hi" {
		t.Fatalf("Messages = %+v, %v", ms, err)
	}
	if _, err := svc.Messages("missing"); !isCode(err, ErrorNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}
