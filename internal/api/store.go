package api

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/soaringjerry/Brushlog/internal/models"
)

type memoryStore struct {
	mu       sync.RWMutex
	patients map[string]*models.Patient
	events   []models.BrushEvent
	messages []models.MessageSummary
	audit    []models.AuditEntry
}

func newMemoryStore() *memoryStore {
	return &memoryStore{patients: map[string]*models.Patient{}}
}

// NewMemoryStore returns a Store that lives only as long as the process.
func NewMemoryStore() Store { return newMemoryStore() }

// NewMemoryStoreFromPath loads a clinic bundle file, as written by the
// browser version's export, into a fresh memory store. A missing file
// returns an error wrapping os.ErrNotExist.
func NewMemoryStoreFromPath(path string) (Store, *models.ClinicBundle, error) {
	if path == "" {
		return nil, nil, fmt.Errorf("legacy bundle: %w", os.ErrNotExist)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var b models.ClinicBundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, nil, fmt.Errorf("decode legacy bundle: %w", err)
	}
	if b.Version != models.BundleVersion {
		return nil, nil, fmt.Errorf("legacy bundle version %q not supported", b.Version)
	}
	s := newMemoryStore()
	if err := s.ReplaceAll(&b); err != nil {
		return nil, nil, err
	}
	return s, &b, nil
}

func clonePatient(p *models.Patient) *models.Patient {
	cp := *p
	if p.BrushType != nil {
		bt := *p.BrushType
		cp.BrushType = &bt
	}
	if p.FollowUp != nil {
		fu := *p.FollowUp
		cp.FollowUp = &fu
	}
	if p.NextAppointment != nil {
		na := *p.NextAppointment
		cp.NextAppointment = &na
	}
	return &cp
}

func (s *memoryStore) AddPatient(p *models.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[p.ID]; ok {
		return fmt.Errorf("patient %s already exists", p.ID)
	}
	s.patients[p.ID] = clonePatient(p)
	return nil
}

func (s *memoryStore) UpdatePatient(p *models.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[p.ID]; !ok {
		return fmt.Errorf("patient %s not found", p.ID)
	}
	s.patients[p.ID] = clonePatient(p)
	return nil
}

func (s *memoryStore) GetPatient(id string) (*models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.patients[id]; ok {
		return clonePatient(p), nil
	}
	return nil, nil
}

func (s *memoryStore) ListPatients() ([]*models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Patient, 0, len(s.patients))
	for _, p := range s.patients {
		out = append(out, clonePatient(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memoryStore) DeletePatient(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[id]; !ok {
		return false, nil
	}
	delete(s.patients, id)
	evs := s.events[:0]
	for _, e := range s.events {
		if e.PatientID != id {
			evs = append(evs, e)
		}
	}
	s.events = evs
	msgs := s.messages[:0]
	for _, m := range s.messages {
		if m.PatientID != id {
			msgs = append(msgs, m)
		}
	}
	s.messages = msgs
	return true, nil
}

func (s *memoryStore) AddBrushEvent(e *models.BrushEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[e.PatientID]; !ok {
		return fmt.Errorf("patient %s not found", e.PatientID)
	}
	s.events = append(s.events, *e)
	return nil
}

func (s *memoryStore) ListBrushEvents(patientID string) ([]models.BrushEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.BrushEvent{}
	for _, e := range s.events {
		if e.PatientID == patientID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memoryStore) ListAllBrushEvents() ([]models.BrushEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.BrushEvent{}, s.events...), nil
}

func (s *memoryStore) AddMessage(m models.MessageSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[m.PatientID]; !ok {
		return fmt.Errorf("patient %s not found", m.PatientID)
	}
	s.messages = append(s.messages, m)
	return nil
}

func (s *memoryStore) ListMessages(patientID string) ([]models.MessageSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.MessageSummary{}
	for _, m := range s.messages {
		if m.PatientID == patientID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memoryStore) ListAllMessages() ([]models.MessageSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.MessageSummary{}, s.messages...), nil
}

func (s *memoryStore) ReplaceAll(b *models.ClinicBundle) error {
	patients := make(map[string]*models.Patient, len(b.Patients))
	for _, p := range b.Patients {
		if p == nil {
			continue
		}
		patients[p.ID] = clonePatient(p)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients = patients
	s.events = append([]models.BrushEvent{}, b.Logs...)
	s.messages = append([]models.MessageSummary{}, b.Messages...)
	return nil
}

func (s *memoryStore) AddAudit(e models.AuditEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, e)
}

func (s *memoryStore) ListAudit() ([]models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AuditEntry{}, s.audit...), nil
}
