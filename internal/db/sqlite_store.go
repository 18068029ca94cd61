package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/soaringjerry/Brushlog/internal/api"
	"github.com/soaringjerry/Brushlog/internal/logger"
	"github.com/soaringjerry/Brushlog/internal/models"
)

type SQLiteStore struct {
	db  *sql.DB
	log *logger.Logger
}

func NewSQLiteStore(db *sql.DB, log *logger.Logger) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	if log == nil {
		log = logger.Nop()
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db, log: log.With("component", "sqlite")}, nil
}

func NewStore(db *sql.DB, log *logger.Logger) (api.Store, error) {
	return NewSQLiteStore(db, log)
}

var _ api.Store = (*SQLiteStore)(nil)

func (s *SQLiteStore) logErr(prefix string, err error) {
	if err != nil {
		s.log.Error("sqlite store", "op", prefix, "error", err)
	}
}

func contextBg() context.Context { return context.Background() }

func toNullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func toNullBool(b *bool) sql.NullInt64 {
	if b == nil {
		return sql.NullInt64{}
	}
	if *b {
		return sql.NullInt64{Int64: 1, Valid: true}
	}
	return sql.NullInt64{Int64: 0, Valid: true}
}

func fromNullBool(n sql.NullInt64) *bool {
	if !n.Valid {
		return nil
	}
	v := n.Int64 != 0
	return &v
}

func encodeJSON(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func (s *SQLiteStore) decodeFollowUp(ns sql.NullString) *models.FollowUp {
	if !ns.Valid || strings.TrimSpace(ns.String) == "" {
		return nil
	}
	var out models.FollowUp
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		s.logErr("decode follow_up", err)
		return nil
	}
	return &out
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const patientColumns = `id, name, birthday, sex, phone, email, notes, brush_type, follow_up, next_appointment, created_at`

func patientArgs(p *models.Patient) ([]any, error) {
	var fu sql.NullString
	if p.FollowUp != nil {
		var err error
		if fu, err = encodeJSON(p.FollowUp); err != nil {
			return nil, err
		}
	}
	var bt, next sql.NullString
	if p.BrushType != nil {
		bt = toNullString(string(*p.BrushType))
	}
	if p.NextAppointment != nil {
		next = toNullString(*p.NextAppointment)
	}
	var created sql.NullString
	if !p.CreatedAt.IsZero() {
		created = toNullString(p.CreatedAt.UTC().Format(time.RFC3339Nano))
	}
	return []any{
		p.ID, p.Name, toNullString(p.Birthday), toNullString(p.Sex), toNullString(p.Phone),
		toNullString(p.Email), toNullString(p.Notes), bt, fu, next, created,
	}, nil
}

func insertPatient(ctx context.Context, ex execer, p *models.Patient) error {
	args, err := patientArgs(p)
	if err != nil {
		return fmt.Errorf("encode patient %s: %w", p.ID, err)
	}
	if _, err := ex.ExecContext(ctx, `INSERT INTO patients (`+patientColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`, args...); err != nil {
		return fmt.Errorf("insert patient %s: %w", p.ID, err)
	}
	return nil
}

func insertEvent(ctx context.Context, ex execer, e *models.BrushEvent) error {
	_, err := ex.ExecContext(ctx, `INSERT INTO brush_events
		(id, patient_id, date_iso, duration_sec, time_of_day, self_rating, bleeding, sensitivity, pain, source)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.PatientID, e.DateISO, e.DurationSec, string(e.TimeOfDay), e.SelfRating,
		toNullBool(e.Bleeding), toNullBool(e.Sensitivity), toNullBool(e.Pain), string(e.Source))
	if err != nil {
		return fmt.Errorf("insert brush event %s: %w", e.ID, err)
	}
	return nil
}

func insertMessage(ctx context.Context, ex execer, m models.MessageSummary) error {
	_, err := ex.ExecContext(ctx, `INSERT INTO messages (patient_id, created_at, summary) VALUES (?,?,?)`,
		m.PatientID, m.CreatedAt, m.Summary)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AddPatient(p *models.Patient) error {
	return insertPatient(contextBg(), s.db, p)
}

func (s *SQLiteStore) UpdatePatient(p *models.Patient) error {
	args, err := patientArgs(p)
	if err != nil {
		return fmt.Errorf("encode patient %s: %w", p.ID, err)
	}
	res, err := s.db.ExecContext(contextBg(), `UPDATE patients SET
		name = ?, birthday = ?, sex = ?, phone = ?, email = ?, notes = ?,
		brush_type = ?, follow_up = ?, next_appointment = ?, created_at = ?
		WHERE id = ?`, append(args[1:], p.ID)...)
	if err != nil {
		return fmt.Errorf("update patient %s: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update patient %s: not found", p.ID)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) scanPatient(row scanner) (*models.Patient, error) {
	var (
		p                                      models.Patient
		birthday, sex, phone, email, notes     sql.NullString
		brushType, followUp, next, createdAtNS sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &birthday, &sex, &phone, &email, &notes, &brushType, &followUp, &next, &createdAtNS); err != nil {
		return nil, err
	}
	p.Birthday = birthday.String
	p.Sex = sex.String
	p.Phone = phone.String
	p.Email = email.String
	p.Notes = notes.String
	if brushType.Valid {
		bt := models.BrushType(brushType.String)
		p.BrushType = &bt
	}
	p.FollowUp = s.decodeFollowUp(followUp)
	if next.Valid {
		v := next.String
		p.NextAppointment = &v
	}
	if createdAtNS.Valid {
		if t, err := time.Parse(time.RFC3339Nano, createdAtNS.String); err == nil {
			p.CreatedAt = t
		} else {
			s.logErr("parse created_at", err)
		}
	}
	return &p, nil
}

func (s *SQLiteStore) GetPatient(id string) (*models.Patient, error) {
	row := s.db.QueryRowContext(contextBg(), `SELECT `+patientColumns+` FROM patients WHERE id = ?`, id)
	p, err := s.scanPatient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get patient %s: %w", id, err)
	}
	return p, nil
}

func (s *SQLiteStore) ListPatients() ([]*models.Patient, error) {
	rows, err := s.db.QueryContext(contextBg(), `SELECT `+patientColumns+` FROM patients ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()
	out := []*models.Patient{}
	for rows.Next() {
		p, err := s.scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeletePatient relies on ON DELETE CASCADE for events and messages.
func (s *SQLiteStore) DeletePatient(id string) (bool, error) {
	res, err := s.db.ExecContext(contextBg(), `DELETE FROM patients WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete patient %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete patient %s: %w", id, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) AddBrushEvent(e *models.BrushEvent) error {
	return insertEvent(contextBg(), s.db, e)
}

const eventColumns = `id, patient_id, date_iso, duration_sec, time_of_day, self_rating, bleeding, sensitivity, pain, source`

func (s *SQLiteStore) queryEvents(query string, args ...any) ([]models.BrushEvent, error) {
	rows, err := s.db.QueryContext(contextBg(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list brush events: %w", err)
	}
	defer rows.Close()
	out := []models.BrushEvent{}
	for rows.Next() {
		var (
			e                        models.BrushEvent
			tod, source              string
			bleeding, sens, painInts sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.PatientID, &e.DateISO, &e.DurationSec, &tod, &e.SelfRating, &bleeding, &sens, &painInts, &source); err != nil {
			return nil, fmt.Errorf("scan brush event: %w", err)
		}
		e.TimeOfDay = models.TimeOfDay(tod)
		e.Source = models.EventSource(source)
		e.Bleeding = fromNullBool(bleeding)
		e.Sensitivity = fromNullBool(sens)
		e.Pain = fromNullBool(painInts)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListBrushEvents(patientID string) ([]models.BrushEvent, error) {
	return s.queryEvents(`SELECT `+eventColumns+` FROM brush_events WHERE patient_id = ? ORDER BY date_iso, rowid`, patientID)
}

func (s *SQLiteStore) ListAllBrushEvents() ([]models.BrushEvent, error) {
	return s.queryEvents(`SELECT ` + eventColumns + ` FROM brush_events ORDER BY patient_id, date_iso, rowid`)
}

func (s *SQLiteStore) AddMessage(m models.MessageSummary) error {
	return insertMessage(contextBg(), s.db, m)
}

func (s *SQLiteStore) queryMessages(query string, args ...any) ([]models.MessageSummary, error) {
	rows, err := s.db.QueryContext(contextBg(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()
	out := []models.MessageSummary{}
	for rows.Next() {
		var m models.MessageSummary
		var created, summary sql.NullString
		if err := rows.Scan(&m.PatientID, &created, &summary); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.CreatedAt = created.String
		m.Summary = summary.String
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListMessages(patientID string) ([]models.MessageSummary, error) {
	return s.queryMessages(`SELECT patient_id, created_at, summary FROM messages WHERE patient_id = ? ORDER BY id`, patientID)
}

func (s *SQLiteStore) ListAllMessages() ([]models.MessageSummary, error) {
	return s.queryMessages(`SELECT patient_id, created_at, summary FROM messages ORDER BY id`)
}

// ReplaceAll swaps the clinic data inside one transaction. The audit log is
// kept.
func (s *SQLiteStore) ReplaceAll(b *models.ClinicBundle) (err error) {
	ctx := contextBg()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() {
		if err != nil {
			s.logErr("rollback replace", tx.Rollback())
		}
	}()
	for _, stmt := range []string{`DELETE FROM messages`, `DELETE FROM brush_events`, `DELETE FROM patients`} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear data: %w", err)
		}
	}
	for _, p := range b.Patients {
		if p == nil {
			continue
		}
		if err = insertPatient(ctx, tx, p); err != nil {
			return err
		}
	}
	for i := range b.Logs {
		if err = insertEvent(ctx, tx, &b.Logs[i]); err != nil {
			return err
		}
	}
	for _, m := range b.Messages {
		if err = insertMessage(ctx, tx, m); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	s.log.Info("clinic data replaced", "patients", len(b.Patients), "logs", len(b.Logs), "messages", len(b.Messages))
	return nil
}

func (s *SQLiteStore) AddAudit(e models.AuditEntry) {
	_, err := s.db.ExecContext(contextBg(), `INSERT INTO audit_log (time, actor, action, target, note) VALUES (?,?,?,?,?)`,
		e.Time.UTC().Format(time.RFC3339Nano), toNullString(e.Actor), e.Action, toNullString(e.Target), toNullString(e.Note))
	s.logErr("add audit", err)
}

func (s *SQLiteStore) ListAudit() ([]models.AuditEntry, error) {
	rows, err := s.db.QueryContext(contextBg(), `SELECT time, actor, action, target, note FROM audit_log ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()
	out := []models.AuditEntry{}
	for rows.Next() {
		var (
			e                   models.AuditEntry
			ts                  string
			actor, target, note sql.NullString
		)
		if err := rows.Scan(&ts, &actor, &e.Action, &target, &note); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		if t, perr := time.Parse(time.RFC3339Nano, ts); perr == nil {
			e.Time = t
		} else {
			s.logErr("parse audit time", perr)
		}
		e.Actor = actor.String
		e.Target = target.String
		e.Note = note.String
		out = append(out, e)
	}
	return out, rows.Err()
}
