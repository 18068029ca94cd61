package services

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/soaringjerry/Brushlog/internal/adherence"
	"github.com/soaringjerry/Brushlog/internal/models"
)

func TestExportRosterCSV(t *testing.T) {
	next := "2025-10-01"
	rows := []adherence.PatientRow{
		{
			Patient:       &models.Patient{ID: "p1", Name: "Yamada, Taro", BrushType: brushPtr(models.BrushCompactHead), NextAppointment: &next},
			Metrics:       models.MetricsSummary{AchievementRate: 0.5, ConsecutiveDays: 3, AvgDurationSec: 120},
			Achievement7d: 0.4285714,
			LastLogDate:   "2025-09-18",
		},
		{
			Patient: &models.Patient{ID: "p2", Name: "Sato", FollowUp: &models.FollowUp{Flag: true}},
		},
	}
	b, err := ExportRosterCSV(rows)
	if err != nil {
		t.Fatalf("ExportRosterCSV: %v", err)
	}
	recs, err := csv.NewReader(strings.NewReader(string(b))).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(recs) != 3 || recs[0][0] != "patient_id" {
		t.Fatalf("unexpected records %v", recs)
	}
	r1 := recs[1]
	if r1[1] != "Yamada, Taro" || r1[2] != "compact_head" || r1[3] != "2025-09-18" || r1[4] != "0.429" || r1[6] != "3" || r1[12] != next {
		t.Fatalf("unexpected first row %v", r1)
	}
	r2 := recs[2]
	if r2[2] != "" || r2[3] != "" || r2[11] != "true" || r2[12] != "" {
		t.Fatalf("unexpected second row %v", r2)
	}
}
