package services

import (
	"github.com/soaringjerry/Brushlog/internal/adherence"
	"github.com/soaringjerry/Brushlog/internal/models"
)

// MaxWindowDays bounds the analysis window accepted from callers.
const MaxWindowDays = 365

type AnalyticsStore interface {
	GetPatient(id string) (*models.Patient, error)
	ListPatients() ([]*models.Patient, error)
	ListBrushEvents(patientID string) ([]models.BrushEvent, error)
	ListAllBrushEvents() ([]models.BrushEvent, error)
}

type AnalyticsService struct {
	store    AnalyticsStore
	analyzer *adherence.Analyzer
}

type PatientMetrics struct {
	PatientID     string                `json:"patientId"`
	Summary       models.MetricsSummary `json:"summary"`
	Achievement7d float64               `json:"achievement7d"`
	LastLogDate   string                `json:"lastLogDate,omitempty"`
}

type RosterQuery struct {
	Filter     adherence.Filter
	SortKey    adherence.SortKey
	Desc       bool
	WindowDays int
}

func NewAnalyticsService(store AnalyticsStore, analyzer *adherence.Analyzer) *AnalyticsService {
	if analyzer == nil {
		analyzer = adherence.NewAnalyzer()
	}
	return &AnalyticsService{store: store, analyzer: analyzer}
}

func normalizeWindow(days int) (int, error) {
	if days == 0 {
		return adherence.DefaultWindowDays, nil
	}
	if days < 1 || days > MaxWindowDays {
		return 0, NewInvalidError("window must be between 1 and 365 days")
	}
	return days, nil
}

func (s *AnalyticsService) PatientMetrics(patientID string, windowDays int) (*PatientMetrics, error) {
	window, err := normalizeWindow(windowDays)
	if err != nil {
		return nil, err
	}
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
	row := s.analyzer.Row(p, evs, window)
	return &PatientMetrics{
		PatientID:     p.ID,
		Summary:       row.Metrics,
		Achievement7d: row.Achievement7d,
		LastLogDate:   row.LastLogDate,
	}, nil
}

// Roster computes list rows for every patient, then filters and sorts them.
func (s *AnalyticsService) Roster(q RosterQuery) ([]adherence.PatientRow, error) {
	window, err := normalizeWindow(q.WindowDays)
	if err != nil {
		return nil, err
	}
	if q.Filter == "" {
		q.Filter = adherence.FilterAll
	}
	if q.SortKey == "" {
		q.SortKey = adherence.SortName
	}
	patients, err := s.store.ListPatients()
	if err != nil {
		return nil, err
	}
	evs, err := s.store.ListAllBrushEvents()
	if err != nil {
		return nil, err
	}
	byPatient := make(map[string][]models.BrushEvent, len(patients))
	for _, e := range evs {
		byPatient[e.PatientID] = append(byPatient[e.PatientID], e)
	}
	rows := make([]adherence.PatientRow, 0, len(patients))
	for _, p := range patients {
		rows = append(rows, s.analyzer.Row(p, byPatient[p.ID], window))
	}
	rows = adherence.FilterRows(rows, q.Filter)
	adherence.SortRows(rows, q.SortKey, q.Desc)
	return rows, nil
}
