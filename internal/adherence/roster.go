package adherence

import (
	"cmp"
	"slices"
	"strings"

	"github.com/soaringjerry/Brushlog/internal/models"
)

// LowAchievementThreshold flags patients whose 7-day rate falls below it.
const LowAchievementThreshold = 0.40

// PatientRow is one line of the patient list.
type PatientRow struct {
	Patient       *models.Patient       `json:"patient"`
	Metrics       models.MetricsSummary `json:"metrics"`
	Achievement7d float64               `json:"achievement7d"`
	LastLogDate   string                `json:"lastLogDate,omitempty"`
}

// Row computes the list metrics for one patient's events.
func (a *Analyzer) Row(p *models.Patient, events []models.BrushEvent, windowDays int) PatientRow {
	last, _ := LastLogDate(events)
	return PatientRow{
		Patient:       p,
		Metrics:       a.Summarize(events, windowDays, a.Today()),
		Achievement7d: a.Last7DaysRate(events),
		LastLogDate:   last,
	}
}

type Filter string

const (
	FilterAll            Filter = "all"
	FilterNoActivity     Filter = "no_activity"
	FilterLowAchievement Filter = "low_achievement"
	FilterFollowUp       Filter = "follow_up"
)

func ParseFilter(s string) (Filter, bool) {
	switch f := Filter(strings.TrimSpace(s)); f {
	case "":
		return FilterAll, true
	case FilterAll, FilterNoActivity, FilterLowAchievement, FilterFollowUp:
		return f, true
	}
	return "", false
}

func (f Filter) Match(row PatientRow) bool {
	switch f {
	case FilterNoActivity:
		return row.Metrics.ConsecutiveDays == 0
	case FilterLowAchievement:
		return row.Achievement7d < LowAchievementThreshold
	case FilterFollowUp:
		return row.Patient.NeedsFollowUp()
	default:
		return true
	}
}

func FilterRows(rows []PatientRow, f Filter) []PatientRow {
	out := make([]PatientRow, 0, len(rows))
	for _, r := range rows {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

type SortKey string

const (
	SortName            SortKey = "name"
	SortLastLog         SortKey = "last_log"
	SortAchievement7d   SortKey = "achievement_7d"
	SortConsecutive     SortKey = "consecutive"
	SortNextAppointment SortKey = "next_appointment"
)

func ParseSortKey(s string) (SortKey, bool) {
	switch k := SortKey(strings.TrimSpace(s)); k {
	case "":
		return SortName, true
	case SortName, SortLastLog, SortAchievement7d, SortConsecutive, SortNextAppointment:
		return k, true
	}
	return "", false
}

// SortRows orders rows in place. Ties keep their input order. Missing dates
// compare as the empty string, so they come first in ascending order.
func SortRows(rows []PatientRow, key SortKey, desc bool) {
	slices.SortStableFunc(rows, func(x, y PatientRow) int {
		c := compareRows(x, y, key)
		if desc {
			return -c
		}
		return c
	})
}

func compareRows(x, y PatientRow, key SortKey) int {
	switch key {
	case SortLastLog:
		return cmp.Compare(x.LastLogDate, y.LastLogDate)
	case SortAchievement7d:
		return cmp.Compare(x.Achievement7d, y.Achievement7d)
	case SortConsecutive:
		return cmp.Compare(x.Metrics.ConsecutiveDays, y.Metrics.ConsecutiveDays)
	case SortNextAppointment:
		return cmp.Compare(nextAppointment(x.Patient), nextAppointment(y.Patient))
	default:
		return cmp.Compare(patientName(x.Patient), patientName(y.Patient))
	}
}

func patientName(p *models.Patient) string {
	if p == nil {
		return ""
	}
	return p.Name
}

func nextAppointment(p *models.Patient) string {
	if p == nil || p.NextAppointment == nil {
		return ""
	}
	return *p.NextAppointment
}
