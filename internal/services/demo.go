package services

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/soaringjerry/Brushlog/internal/models"
)

var demoPatients = []struct {
	name, romaji, sex string
}{
	{"山田太郎", "yamada.taro", "M"},
	{"佐藤花子", "sato.hanako", "F"},
	{"鈴木一郎", "suzuki.ichiro", "M"},
	{"田中美咲", "tanaka.misaki", "F"},
	{"高橋健太", "takahashi.kenta", "M"},
	{"渡辺さくら", "watanabe.sakura", "F"},
	{"伊藤翔太", "ito.shota", "M"},
	{"中村愛", "nakamura.ai", "F"},
	{"小林大輔", "kobayashi.daisuke", "M"},
	{"加藤結衣", "kato.yui", "F"},
}

// DemoDays is how many days of history the demo clinic carries, ending today.
const DemoDays = 30

// GenerateDemoBundle builds a sample clinic of ten patients with up to two
// logs per day for the last DemoDays days. Each patient gets their own
// adherence level so the roster shows a spread.
func GenerateDemoBundle(today time.Time, rng *rand.Rand) *models.ClinicBundle {
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	b := &models.ClinicBundle{Version: models.BundleVersion}
	for i, dp := range demoPatients {
		age := 25 + rng.IntN(40)
		bt := models.BrushTypes[rng.IntN(len(models.BrushTypes))]
		p := &models.Patient{
			ID:        fmt.Sprintf("patient-%d", i+1),
			Name:      dp.name,
			Birthday:  fmt.Sprintf("%04d-%02d-%02d", today.Year()-age, rng.IntN(12)+1, rng.IntN(28)+1),
			Sex:       dp.sex,
			Phone:     fmt.Sprintf("090-%04d-%04d", rng.IntN(10000), rng.IntN(10000)),
			Email:     dp.romaji + "@example.com",
			BrushType: &bt,
			CreatedAt: today.AddDate(0, 0, -DemoDays),
		}
		fu := &models.FollowUp{Flag: rng.Float64() > 0.7}
		if rng.Float64() > 0.5 {
			fu.Note = "要経過観察"
		}
		p.FollowUp = fu
		if rng.Float64() > 0.5 {
			next := today.AddDate(0, 0, rng.IntN(60)+1).Format(models.DateLayout)
			p.NextAppointment = &next
		}
		b.Patients = append(b.Patients, p)

		adherenceRate := rng.Float64()
		for day := 0; day < DemoDays; day++ {
			date := today.AddDate(0, 0, -day).Format(models.DateLayout)
			if rng.Float64() >= adherenceRate {
				continue
			}
			if rng.Float64() > 0.3 {
				b.Logs = append(b.Logs, demoEvent(rng, p.ID, date, models.Morning, 60, 120))
			}
			if rng.Float64() > 0.2 {
				b.Logs = append(b.Logs, demoEvent(rng, p.ID, date, models.Night, 90, 150))
			}
		}
	}
	return b
}

func demoEvent(rng *rand.Rand, patientID, date string, tod models.TimeOfDay, minSec, spread int) models.BrushEvent {
	bleeding := rng.Float64() < 0.1
	sensitivity := rng.Float64() < 0.15
	pain := rng.Float64() < 0.05
	return models.BrushEvent{
		ID:          fmt.Sprintf("log-%s-%s-%s", patientID, date, tod),
		PatientID:   patientID,
		DateISO:     date,
		DurationSec: minSec + rng.IntN(spread),
		TimeOfDay:   tod,
		SelfRating:  3 + rng.IntN(3),
		Bleeding:    &bleeding,
		Sensitivity: &sensitivity,
		Pain:        &pain,
		Source:      models.SourceDemo,
	}
}
