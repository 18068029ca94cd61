package models

import (
	"strings"
	"time"
)

// BundleVersion tags every exported clinic bundle. Imports with any other
// value are rejected.
const BundleVersion = "daisan-hygienist-lite-v1"

// DateLayout is the calendar-date format used for dateISO fields.
const DateLayout = "2006-01-02"

// BrushType is the recommended toothbrush category.
type BrushType string

const (
	BrushCompositeTuft    BrushType = "composite_tuft"
	BrushLargeWideStepped BrushType = "large_wide_stepped"
	BrushSuperTapered     BrushType = "super_tapered"
	BrushCompactHead      BrushType = "compact_head"
)

// BrushTypes lists the closed set of categories in display order.
var BrushTypes = []BrushType{BrushCompositeTuft, BrushLargeWideStepped, BrushSuperTapered, BrushCompactHead}

func (b BrushType) Valid() bool {
	for _, t := range BrushTypes {
		if b == t {
			return true
		}
	}
	return false
}

// brushTypeLabels maps the Japanese category labels stored by browser-only
// exports onto the category slugs.
var brushTypeLabels = map[string]BrushType{
	"複合植毛":           BrushCompositeTuft,
	"大型・幅広・段差植毛":     BrushLargeWideStepped,
	"極細毛・スーパーテーパード毛": BrushSuperTapered,
	"小型・コンパクト":       BrushCompactHead,
}

// ParseBrushType accepts a category slug or its Japanese label.
func ParseBrushType(s string) (BrushType, bool) {
	s = strings.TrimSpace(s)
	if b := BrushType(s); b.Valid() {
		return b, true
	}
	b, ok := brushTypeLabels[s]
	return b, ok
}

type TimeOfDay string

const (
	Morning TimeOfDay = "morning"
	Night   TimeOfDay = "night"
	Other   TimeOfDay = "other"
)

func (t TimeOfDay) Valid() bool {
	return t == Morning || t == Night || t == Other
}

type EventSource string

const (
	SourceDemo   EventSource = "demo"
	SourceImport EventSource = "import"
	SourceManual EventSource = "manual"
)

func (s EventSource) Valid() bool {
	return s == SourceDemo || s == SourceImport || s == SourceManual
}

// QuestionAnswer is one answer given during an intake session.
type QuestionAnswer struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

// RecommendationResult is derived from a terminal category only.
type RecommendationResult struct {
	BrushType      BrushType `json:"brushType"`
	Reason         string    `json:"reason"`
	Notes          string    `json:"notes"`
	MarketExamples string    `json:"marketExamples,omitempty"`
}

// BrushEvent is a single logged brushing. Several events may share a date.
type BrushEvent struct {
	ID          string      `json:"id"`
	PatientID   string      `json:"patientId"`
	DateISO     string      `json:"dateISO"`
	DurationSec int         `json:"durationSec"`
	TimeOfDay   TimeOfDay   `json:"timeOfDay"`
	SelfRating  int         `json:"selfRating"`
	Bleeding    *bool       `json:"bleeding,omitempty"`
	Sensitivity *bool       `json:"sensitivity,omitempty"`
	Pain        *bool       `json:"pain,omitempty"`
	Source      EventSource `json:"source"`
}

type FollowUp struct {
	Flag bool   `json:"flag"`
	Note string `json:"note,omitempty"`
}

type Patient struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Birthday        string     `json:"birthday,omitempty"`
	Sex             string     `json:"sex,omitempty"` // M, F or Other
	Phone           string     `json:"phone,omitempty"`
	Email           string     `json:"email,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	BrushType       *BrushType `json:"brushType,omitempty"`
	FollowUp        *FollowUp  `json:"followUp,omitempty"`
	NextAppointment *string    `json:"nextAppointment,omitempty"`
	CreatedAt       time.Time  `json:"createdAt,omitempty"`
}

// NeedsFollowUp reports whether the patient carries the follow-up flag.
func (p *Patient) NeedsFollowUp() bool {
	return p != nil && p.FollowUp != nil && p.FollowUp.Flag
}

type MessageSummary struct {
	PatientID string `json:"patientId"`
	CreatedAt string `json:"createdAt"`
	Summary   string `json:"summary"`
}

// ClinicBundle is the only persisted exchange format.
type ClinicBundle struct {
	Patients []*Patient       `json:"patients"`
	Logs     []BrushEvent     `json:"logs"`
	Messages []MessageSummary `json:"messages,omitempty"`
	Version  string           `json:"version"`
}

// MetricsSummary is recomputed on demand and never stored.
type MetricsSummary struct {
	AchievementDays     int     `json:"achievementDays"`
	TotalDays           int     `json:"totalDays"`
	AchievementRate     float64 `json:"achievementRate"`
	AvgDurationSec      float64 `json:"avgDurationSec"`
	MorningCoverageRate float64 `json:"morningCoverageRate"`
	NightCoverageRate   float64 `json:"nightCoverageRate"`
	AvgSelfRating       float64 `json:"avgSelfRating"`
	BleedingRate        float64 `json:"bleedingRate"`
	SensitivityRate     float64 `json:"sensitivityRate"`
	ConsecutiveDays     int     `json:"consecutiveDays"`
}

// AuditEntry records operator actions that remove or replace data.
type AuditEntry struct {
	Time   time.Time `json:"time"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Target string    `json:"target"`
	Note   string    `json:"note,omitempty"`
}
