package api

import "github.com/soaringjerry/Brushlog/internal/models"

// Store is the persistence surface the HTTP layer needs. The in-memory store
// and db.SQLiteStore both implement it.
type Store interface {
	AddPatient(p *models.Patient) error
	UpdatePatient(p *models.Patient) error
	GetPatient(id string) (*models.Patient, error)
	ListPatients() ([]*models.Patient, error)
	// DeletePatient removes the patient with their events and messages.
	DeletePatient(id string) (bool, error)

	AddBrushEvent(e *models.BrushEvent) error
	ListBrushEvents(patientID string) ([]models.BrushEvent, error)
	ListAllBrushEvents() ([]models.BrushEvent, error)

	AddMessage(m models.MessageSummary) error
	ListMessages(patientID string) ([]models.MessageSummary, error)
	ListAllMessages() ([]models.MessageSummary, error)

	// ReplaceAll swaps the whole clinic for b, or changes nothing on error.
	ReplaceAll(b *models.ClinicBundle) error

	AddAudit(e models.AuditEntry)
	ListAudit() ([]models.AuditEntry, error)
}

var _ Store = (*memoryStore)(nil)
