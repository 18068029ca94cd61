package services

import (
	"sort"
	"strings"

	"github.com/soaringjerry/Brushlog/internal/models"
)

type BrushLogStore interface {
	GetPatient(id string) (*models.Patient, error)
	AddBrushEvent(e *models.BrushEvent) error
	ListBrushEvents(patientID string) ([]models.BrushEvent, error)
}

// BrushLogService records brushing events. Events are never edited; they go
// away only with their patient.
type BrushLogService struct {
	store BrushLogStore
	idGen func() string
}

func NewBrushLogService(store BrushLogStore) *BrushLogService {
	return &BrushLogService{
		store: store,
		idGen: func() string { return "log-" + shortID(12) },
	}
}

func (s *BrushLogService) Add(patientID string, in models.BrushEvent) (*models.BrushEvent, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, NewInvalidError("patient id required")
	}
	p, err := s.store.GetPatient(patientID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, NewNotFoundError("patient not found")
	}
	ev := in
	ev.ID = s.idGen()
	ev.PatientID = patientID
	if ev.Source == "" {
		ev.Source = models.SourceManual
	}
	if err := ValidateBrushEvent(ev); err != nil {
		return nil, err
	}
	if err := s.store.AddBrushEvent(&ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// ListByPatient returns the patient's log, newest date first.
func (s *BrushLogService) ListByPatient(patientID string) ([]models.BrushEvent, error) {
	p, err := s.store.GetPatient(patientID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, NewNotFoundError("patient not found")
	}
	evs, err := s.store.ListBrushEvents(patientID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(evs, func(i, j int) bool { return evs[i].DateISO > evs[j].DateISO })
	return evs, nil
}

// ValidateBrushEvent checks a single log entry. Bundle import uses it too.
func ValidateBrushEvent(ev models.BrushEvent) error {
	switch {
	case ev.ID == "":
		return NewInvalidError("log id required")
	case ev.PatientID == "":
		return NewInvalidError("log patientId required")
	case !validDate(ev.DateISO):
		return NewInvalidError("dateISO must be YYYY-MM-DD")
	case ev.DurationSec < 0:
		return NewInvalidError("durationSec must not be negative")
	case !ev.TimeOfDay.Valid():
		return NewInvalidError("timeOfDay must be morning, night or other")
	case ev.SelfRating < 1 || ev.SelfRating > 5:
		return NewInvalidError("selfRating must be between 1 and 5")
	case !ev.Source.Valid():
		return NewInvalidError("unknown source")
	}
	return nil
}
