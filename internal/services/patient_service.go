package services

import (
	"sort"
	"strings"
	"time"

	"github.com/soaringjerry/Brushlog/internal/models"
)

type PatientStore interface {
	AddPatient(p *models.Patient) error
	UpdatePatient(p *models.Patient) error
	GetPatient(id string) (*models.Patient, error)
	ListPatients() ([]*models.Patient, error)
	DeletePatient(id string) (bool, error)
	ListMessages(patientID string) ([]models.MessageSummary, error)
	AddAudit(entry models.AuditEntry)
}

type PatientService struct {
	store PatientStore
	now   func() time.Time
	idGen func() string
}

// PatientInput carries the editable fields of a new patient.
type PatientInput struct {
	Name            string            `json:"name"`
	Birthday        string            `json:"birthday,omitempty"`
	Sex             string            `json:"sex,omitempty"`
	Phone           string            `json:"phone,omitempty"`
	Email           string            `json:"email,omitempty"`
	Notes           string            `json:"notes,omitempty"`
	BrushType       *models.BrushType `json:"brushType,omitempty"`
	FollowUp        *models.FollowUp  `json:"followUp,omitempty"`
	NextAppointment *string           `json:"nextAppointment,omitempty"`
}

func NewPatientService(store PatientStore) *PatientService {
	return &PatientService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: func() string { return "patient-" + shortID(12) },
	}
}

func (s *PatientService) Create(in PatientInput) (*models.Patient, error) {
	p := &models.Patient{
		ID:              s.idGen(),
		Name:            strings.TrimSpace(in.Name),
		Birthday:        strings.TrimSpace(in.Birthday),
		Sex:             strings.TrimSpace(in.Sex),
		Phone:           strings.TrimSpace(in.Phone),
		Email:           strings.TrimSpace(in.Email),
		Notes:           in.Notes,
		BrushType:       in.BrushType,
		FollowUp:        in.FollowUp,
		NextAppointment: in.NextAppointment,
		CreatedAt:       s.now(),
	}
	if err := validatePatient(p); err != nil {
		return nil, err
	}
	if err := s.store.AddPatient(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PatientService) Get(id string) (*models.Patient, error) {
	if strings.TrimSpace(id) == "" {
		return nil, NewInvalidError("id required")
	}
	p, err := s.store.GetPatient(id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, NewNotFoundError("patient not found")
	}
	return p, nil
}

// List returns patients ordered by name.
func (s *PatientService) List() ([]*models.Patient, error) {
	ps, err := s.store.ListPatients()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].Name < ps[j].Name })
	return ps, nil
}

// Update applies a partial update. Only keys present in raw change; a null
// value clears an optional field.
func (s *PatientService) Update(id string, raw map[string]any) (*models.Patient, error) {
	p, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"name", &p.Name},
		{"birthday", &p.Birthday},
		{"sex", &p.Sex},
		{"phone", &p.Phone},
		{"email", &p.Email},
		{"notes", &p.Notes},
	} {
		var v *string
		present, err := decodeField(raw, f.key, &v)
		if err != nil {
			return nil, err
		}
		if !present {
			continue
		}
		if v == nil {
			*f.dst = ""
		} else if f.key == "notes" {
			*f.dst = *v
		} else {
			*f.dst = strings.TrimSpace(*v)
		}
	}
	if _, err := decodeField(raw, "brushType", &p.BrushType); err != nil {
		return nil, err
	}
	if _, err := decodeField(raw, "followUp", &p.FollowUp); err != nil {
		return nil, err
	}
	if _, err := decodeField(raw, "nextAppointment", &p.NextAppointment); err != nil {
		return nil, err
	}
	if err := validatePatient(p); err != nil {
		return nil, err
	}
	if err := s.store.UpdatePatient(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes the patient together with their brush log and messages.
func (s *PatientService) Delete(id, actor string) error {
	if strings.TrimSpace(id) == "" {
		return NewInvalidError("id required")
	}
	ok, err := s.store.DeletePatient(id)
	if err != nil {
		return err
	}
	if !ok {
		return NewNotFoundError("patient not found")
	}
	s.store.AddAudit(models.AuditEntry{Time: s.now(), Actor: actor, Action: "delete_patient", Target: id})
	return nil
}

func (s *PatientService) Messages(id string) ([]models.MessageSummary, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	return s.store.ListMessages(id)
}

func validatePatient(p *models.Patient) error {
	if p.Name == "" {
		return NewInvalidError("name required")
	}
	switch p.Sex {
	case "", "M", "F", "Other":
	default:
		return NewInvalidError("sex must be M, F or Other")
	}
	if p.Birthday != "" && !validDate(p.Birthday) {
		return NewInvalidError("birthday must be YYYY-MM-DD")
	}
	if p.NextAppointment != nil && *p.NextAppointment != "" && !validDate(*p.NextAppointment) {
		return NewInvalidError("nextAppointment must be YYYY-MM-DD")
	}
	if p.BrushType != nil && !p.BrushType.Valid() {
		return NewInvalidError("unknown brushType")
	}
	return nil
}
