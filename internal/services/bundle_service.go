package services

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/soaringjerry/Brushlog/internal/adherence"
	"github.com/soaringjerry/Brushlog/internal/models"
)

type BundleStore interface {
	ListPatients() ([]*models.Patient, error)
	ListAllBrushEvents() ([]models.BrushEvent, error)
	ListAllMessages() ([]models.MessageSummary, error)
	ReplaceAll(b *models.ClinicBundle) error
	AddAudit(entry models.AuditEntry)
}

// BundleService moves the whole clinic in and out as a single versioned
// document.
type BundleService struct {
	store BundleStore
	now   func() time.Time
	today func() time.Time
	seed  func() uint64
}

type ImportSummary struct {
	Patients int `json:"patients"`
	Logs     int `json:"logs"`
	Messages int `json:"messages"`
}

// NewBundleService uses analyzer's calendar day to date demo data, so the
// newest demo day lines up with the streak anchor. nil means local time.
func NewBundleService(store BundleStore, analyzer *adherence.Analyzer) *BundleService {
	if analyzer == nil {
		analyzer = adherence.NewAnalyzer()
	}
	return &BundleService{
		store: store,
		now:   time.Now,
		today: analyzer.Today,
		seed:  rand.Uint64,
	}
}

func (s *BundleService) Export() (*models.ClinicBundle, error) {
	ps, err := s.store.ListPatients()
	if err != nil {
		return nil, err
	}
	logs, err := s.store.ListAllBrushEvents()
	if err != nil {
		return nil, err
	}
	msgs, err := s.store.ListAllMessages()
	if err != nil {
		return nil, err
	}
	if ps == nil {
		ps = []*models.Patient{}
	}
	if logs == nil {
		logs = []models.BrushEvent{}
	}
	return &models.ClinicBundle{Patients: ps, Logs: logs, Messages: msgs, Version: models.BundleVersion}, nil
}

// Import replaces all clinic data with the bundle in data. A document that
// does not parse, carries another version or fails validation is rejected
// as a whole and leaves the store untouched.
func (s *BundleService) Import(data []byte, actor string) (*ImportSummary, error) {
	var b models.ClinicBundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, NewInvalidError("bundle is not valid JSON")
	}
	if b.Version != models.BundleVersion {
		return nil, NewInvalidError(fmt.Sprintf("unsupported bundle version %q", b.Version))
	}
	if err := validateBundle(&b); err != nil {
		return nil, err
	}
	if err := s.store.ReplaceAll(&b); err != nil {
		return nil, err
	}
	sum := &ImportSummary{Patients: len(b.Patients), Logs: len(b.Logs), Messages: len(b.Messages)}
	s.store.AddAudit(models.AuditEntry{
		Time:   s.now().UTC(),
		Actor:  actor,
		Action: "import_bundle",
		Note:   fmt.Sprintf("%d patients, %d logs", sum.Patients, sum.Logs),
	})
	return sum, nil
}

// GenerateDemo replaces all clinic data with a freshly generated demo clinic.
func (s *BundleService) GenerateDemo(actor string) (*ImportSummary, error) {
	seed := s.seed()
	b := GenerateDemoBundle(s.today(), rand.New(rand.NewPCG(seed, seed>>1)))
	if err := s.store.ReplaceAll(b); err != nil {
		return nil, err
	}
	sum := &ImportSummary{Patients: len(b.Patients), Logs: len(b.Logs)}
	s.store.AddAudit(models.AuditEntry{Time: s.now().UTC(), Actor: actor, Action: "generate_demo"})
	return sum, nil
}

func validateBundle(b *models.ClinicBundle) error {
	ids := make(map[string]struct{}, len(b.Patients))
	for i, p := range b.Patients {
		if p == nil || p.ID == "" {
			return NewInvalidError(fmt.Sprintf("patient %d has no id", i))
		}
		if _, dup := ids[p.ID]; dup {
			return NewInvalidError(fmt.Sprintf("duplicate patient id %q", p.ID))
		}
		normalizeBrushType(p)
		if err := validatePatient(p); err != nil {
			return NewInvalidError(fmt.Sprintf("patient %q: %v", p.ID, err))
		}
		ids[p.ID] = struct{}{}
	}
	logIDs := make(map[string]struct{}, len(b.Logs))
	for i := range b.Logs {
		ev := &b.Logs[i]
		if ev.Source == "" {
			ev.Source = models.SourceImport
		}
		if err := ValidateBrushEvent(*ev); err != nil {
			return NewInvalidError(fmt.Sprintf("log %d: %v", i, err))
		}
		if _, ok := ids[ev.PatientID]; !ok {
			return NewInvalidError(fmt.Sprintf("log %q references unknown patient %q", ev.ID, ev.PatientID))
		}
		if _, dup := logIDs[ev.ID]; dup {
			return NewInvalidError(fmt.Sprintf("duplicate log id %q", ev.ID))
		}
		logIDs[ev.ID] = struct{}{}
	}
	for i, m := range b.Messages {
		if _, ok := ids[m.PatientID]; !ok {
			return NewInvalidError(fmt.Sprintf("message %d references unknown patient %q", i, m.PatientID))
		}
	}
	return nil
}

// normalizeBrushType rewrites a Japanese category label to its slug. An empty
// value is treated as no recommendation; anything else unknown is left for
// validatePatient to reject.
func normalizeBrushType(p *models.Patient) {
	if p.BrushType == nil {
		return
	}
	if *p.BrushType == "" {
		p.BrushType = nil
		return
	}
	if bt, ok := models.ParseBrushType(string(*p.BrushType)); ok {
		p.BrushType = &bt
	}
}
