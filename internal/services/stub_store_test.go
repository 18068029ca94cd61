package services

import (
	"errors"
	"time"

	"github.com/soaringjerry/Brushlog/internal/models"
)

// stubStore satisfies every store interface the services declare.
type stubStore struct {
	patients map[string]*models.Patient
	events   []models.BrushEvent
	messages []models.MessageSummary
	audit    []models.AuditEntry
	failAdd  bool
}

func newStubStore() *stubStore {
	return &stubStore{patients: map[string]*models.Patient{}}
}

func (s *stubStore) AddPatient(p *models.Patient) error {
	if _, ok := s.patients[p.ID]; ok {
		return errors.New("duplicate patient")
	}
	cp := *p
	s.patients[p.ID] = &cp
	return nil
}

func (s *stubStore) UpdatePatient(p *models.Patient) error {
	if _, ok := s.patients[p.ID]; !ok {
		return errors.New("missing patient")
	}
	cp := *p
	s.patients[p.ID] = &cp
	return nil
}

func (s *stubStore) GetPatient(id string) (*models.Patient, error) {
	if p, ok := s.patients[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (s *stubStore) ListPatients() ([]*models.Patient, error) {
	out := []*models.Patient{}
	for _, p := range s.patients {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (s *stubStore) DeletePatient(id string) (bool, error) {
	if _, ok := s.patients[id]; !ok {
		return false, nil
	}
	delete(s.patients, id)
	kept := s.events[:0]
	for _, e := range s.events {
		if e.PatientID != id {
			kept = append(kept, e)
		}
	}
	s.events = kept
	return true, nil
}

func (s *stubStore) ListMessages(patientID string) ([]models.MessageSummary, error) {
	var out []models.MessageSummary
	for _, m := range s.messages {
		if m.PatientID == patientID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *stubStore) ListAllMessages() ([]models.MessageSummary, error) {
	return append([]models.MessageSummary(nil), s.messages...), nil
}

func (s *stubStore) AddAudit(entry models.AuditEntry) { s.audit = append(s.audit, entry) }

func (s *stubStore) AddBrushEvent(e *models.BrushEvent) error {
	if s.failAdd {
		return errors.New("write failed")
	}
	s.events = append(s.events, *e)
	return nil
}

func (s *stubStore) ListBrushEvents(patientID string) ([]models.BrushEvent, error) {
	var out []models.BrushEvent
	for _, e := range s.events {
		if e.PatientID == patientID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubStore) ListAllBrushEvents() ([]models.BrushEvent, error) {
	return append([]models.BrushEvent(nil), s.events...), nil
}

func (s *stubStore) ReplaceAll(b *models.ClinicBundle) error {
	s.patients = map[string]*models.Patient{}
	for _, p := range b.Patients {
		cp := *p
		s.patients[p.ID] = &cp
	}
	s.events = append([]models.BrushEvent(nil), b.Logs...)
	s.messages = append([]models.MessageSummary(nil), b.Messages...)
	return nil
}

var fixedNow = time.Date(2025, 9, 18, 21, 30, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func brushPtr(b models.BrushType) *models.BrushType { return &b }

func isCode(err error, code ErrorCode) bool {
	se, ok := AsServiceError(err)
	return ok && se.Code == code
}
