package services

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/soaringjerry/Brushlog/internal/adherence"
)

// ExportRosterCSV renders roster rows, one patient per line, in the order given.
func ExportRosterCSV(rows []adherence.PatientRow) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{
		"patient_id", "name", "brush_type", "last_log_date", "achievement_7d",
		"achievement_rate", "consecutive_days", "avg_duration_sec", "avg_self_rating",
		"bleeding_rate", "sensitivity_rate", "follow_up", "next_appointment",
	})
	for _, r := range rows {
		p := r.Patient
		bt := ""
		if p.BrushType != nil {
			bt = string(*p.BrushType)
		}
		next := ""
		if p.NextAppointment != nil {
			next = *p.NextAppointment
		}
		rec := []string{
			p.ID,
			p.Name,
			bt,
			r.LastLogDate,
			ftoa(r.Achievement7d),
			ftoa(r.Metrics.AchievementRate),
			itoa(r.Metrics.ConsecutiveDays),
			ftoa(r.Metrics.AvgDurationSec),
			ftoa(r.Metrics.AvgSelfRating),
			ftoa(r.Metrics.BleedingRate),
			ftoa(r.Metrics.SensitivityRate),
			strconv.FormatBool(p.NeedsFollowUp()),
			next,
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func itoa(i int) string { return strconv.Itoa(i) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', 3, 64) }
