// Package adherence turns a patient's brushing log into summary metrics.
// Everything here is a pure function of its inputs plus the analyzer clock,
// which only the streak reads.
package adherence

import (
	"sort"
	"time"

	"github.com/soaringjerry/Brushlog/internal/models"
)

// DefaultWindowDays is the analysis window used by list and detail views.
const DefaultWindowDays = 30

type Analyzer struct {
	now func() time.Time
	loc *time.Location
}

type Option func(*Analyzer)

// WithClock replaces the wall clock used to anchor the streak.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLocation sets the time zone that decides which calendar day "now" is.
func WithLocation(loc *time.Location) Option {
	return func(a *Analyzer) {
		if loc != nil {
			a.loc = loc
		}
	}
}

func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{now: time.Now, loc: time.Local}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Today is the current calendar date in the analyzer's location.
func (a *Analyzer) Today() time.Time {
	return dateOf(a.now().In(a.loc))
}

// Summarize computes metrics for the windowDays calendar days ending at
// referenceDate (inclusive). windowDays must be at least 1. The lower bound is
// exclusive: an event counts when referenceDate-windowDays < date <=
// referenceDate, so a 7-day window ending on the 18th covers the 12th to
// the 18th and achievementRate never exceeds 1.
//
// Coverage rates count events, not days: two morning entries on one date
// both count toward morningCoverageRate.
func (a *Analyzer) Summarize(events []models.BrushEvent, windowDays int, referenceDate time.Time) models.MetricsSummary {
	end := dateOf(referenceDate)
	start := end.AddDate(0, 0, -windowDays)

	days := make(map[time.Time]struct{})
	var relevant, morning, night, bleeding, sensitivity int
	var durationSum, ratingSum int
	for _, ev := range events {
		d, ok := ParseDate(ev.DateISO)
		if !ok || !d.After(start) || d.After(end) {
			continue
		}
		relevant++
		days[d] = struct{}{}
		durationSum += ev.DurationSec
		ratingSum += ev.SelfRating
		switch ev.TimeOfDay {
		case models.Morning:
			morning++
		case models.Night:
			night++
		}
		if isTrue(ev.Bleeding) {
			bleeding++
		}
		if isTrue(ev.Sensitivity) {
			sensitivity++
		}
	}

	window := float64(windowDays)
	m := models.MetricsSummary{
		AchievementDays:     len(days),
		TotalDays:           windowDays,
		AchievementRate:     float64(len(days)) / window,
		MorningCoverageRate: float64(morning) / window,
		NightCoverageRate:   float64(night) / window,
		ConsecutiveDays:     ConsecutiveDays(events, a.Today()),
	}
	if relevant > 0 {
		n := float64(relevant)
		m.AvgDurationSec = float64(durationSum) / n
		m.AvgSelfRating = float64(ratingSum) / n
		m.BleedingRate = float64(bleeding) / n
		m.SensitivityRate = float64(sensitivity) / n
	}
	return m
}

// Last7DaysRate is the achievement rate over the last 7 days ending today.
func (a *Analyzer) Last7DaysRate(events []models.BrushEvent) float64 {
	return a.Summarize(events, 7, a.Today()).AchievementRate
}

// ConsecutiveDays counts calendar days in a row, walking back from the most
// recent logged date, that have at least one event. The whole log is used.
// A streak whose latest date is neither today nor yesterday is 0.
func ConsecutiveDays(events []models.BrushEvent, today time.Time) int {
	dates := distinctDates(events)
	if len(dates) == 0 {
		return 0
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })

	t := dateOf(today)
	if !dates[0].Equal(t) && !dates[0].Equal(t.AddDate(0, 0, -1)) {
		return 0
	}
	count := 0
	expected := dates[0]
	for _, d := range dates {
		if !d.Equal(expected) {
			break
		}
		count++
		expected = expected.AddDate(0, 0, -1)
	}
	return count
}

// LastLogDate returns the most recent valid event date.
func LastLogDate(events []models.BrushEvent) (string, bool) {
	var last time.Time
	found := false
	for _, ev := range events {
		d, ok := ParseDate(ev.DateISO)
		if !ok {
			continue
		}
		if !found || d.After(last) {
			last = d
			found = true
		}
	}
	if !found {
		return "", false
	}
	return last.Format(models.DateLayout), true
}

// ParseDate parses a YYYY-MM-DD calendar date to UTC midnight.
func ParseDate(s string) (time.Time, bool) {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

func distinctDates(events []models.BrushEvent) []time.Time {
	seen := make(map[time.Time]struct{}, len(events))
	out := make([]time.Time, 0, len(events))
	for _, ev := range events {
		d, ok := ParseDate(ev.DateISO)
		if !ok {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

// dateOf drops the clock part, keeping the calendar date of t in t's own
// location, as UTC midnight so day arithmetic ignores DST.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func isTrue(b *bool) bool { return b != nil && *b }
