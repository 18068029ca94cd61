//go:build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/soaringjerry/Brushlog/internal/utils"
)

func baseURL() string {
	return strings.TrimRight(utils.SafeEnv("BRUSHLOG_TEST_BASE_URL", "http://127.0.0.1:18080"), "/")
}

// TestClinicJourneyIntegration runs against a live server. Set
// BRUSHLOG_TEST_PASSCODE when the server was started with a passcode.
func TestClinicJourneyIntegration(t *testing.T) {
	client := &http.Client{Timeout: 5 * time.Second}
	base := baseURL()

	token := ""
	if pc := os.Getenv("BRUSHLOG_TEST_PASSCODE"); pc != "" {
		var loginResp struct {
			Token string `json:"token"`
		}
		doRequest(t, client, http.MethodPost, base+"/api/auth/login", "", map[string]string{"passcode": pc}, &loginResp)
		if loginResp.Token == "" {
			t.Fatalf("login did not return token")
		}
		token = loginResp.Token
	}

	var patient struct {
		ID string `json:"id"`
	}
	doRequest(t, client, http.MethodPost, base+"/api/patients", token, map[string]any{
		"name": fmt.Sprintf("Integration %d", time.Now().UnixNano()),
		"sex":  "Other",
	}, &patient)
	if patient.ID == "" {
		t.Fatalf("create patient returned no id")
	}
	t.Cleanup(func() {
		doRequest(t, client, http.MethodDelete, base+"/api/patients/"+patient.ID, token, nil, nil)
	})

	var step struct {
		Done     bool `json:"done"`
		Question *struct {
			ID string `json:"id"`
		} `json:"question"`
	}
	doRequest(t, client, http.MethodPost, base+"/api/intake/step", "", map[string]any{"answers": []any{}}, &step)
	if step.Done || step.Question == nil || step.Question.ID == "" {
		t.Fatalf("expected a first question, got %+v", step)
	}

	var applied struct {
		Result struct {
			BrushType string `json:"brushType"`
		} `json:"result"`
	}
	doRequest(t, client, http.MethodPost, base+"/api/patients/"+patient.ID+"/intake", token, map[string]any{
		"answers": []map[string]string{{"questionId": "Q1", "answer": "yes"}, {"questionId": "Q2", "answer": "cavity"}},
	}, &applied)
	if applied.Result.BrushType != "composite_tuft" {
		t.Fatalf("unexpected recommendation %+v", applied.Result)
	}

	today := time.Now()
	for i := 0; i < 3; i++ {
		doRequest(t, client, http.MethodPost, base+"/api/patients/"+patient.ID+"/logs", token, map[string]any{
			"dateISO":     today.AddDate(0, 0, -i).Format("2006-01-02"),
			"durationSec": 150,
			"timeOfDay":   "night",
			"selfRating":  4,
		}, nil)
	}

	var metrics struct {
		Summary struct {
			AchievementDays int `json:"achievementDays"`
			TotalDays       int `json:"totalDays"`
		} `json:"summary"`
	}
	doRequest(t, client, http.MethodGet, base+"/api/patients/"+patient.ID+"/metrics?window=30", token, nil, &metrics)
	if metrics.Summary.TotalDays != 30 || metrics.Summary.AchievementDays < 2 {
		t.Fatalf("unexpected metrics %+v", metrics.Summary)
	}

	var bundle struct {
		Version  string            `json:"version"`
		Patients []json.RawMessage `json:"patients"`
	}
	doRequest(t, client, http.MethodGet, base+"/api/export", token, nil, &bundle)
	if bundle.Version != "daisan-hygienist-lite-v1" || len(bundle.Patients) == 0 {
		t.Fatalf("unexpected export version %q with %d patients", bundle.Version, len(bundle.Patients))
	}
}

func doRequest(t *testing.T, client *http.Client, method, url, token string, body any, out any) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, url, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("http %s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		t.Fatalf("unexpected status %d for %s: %s", resp.StatusCode, url, string(bodyBytes))
	}
	if out != nil {
		decoder := json.NewDecoder(resp.Body)
		if err := decoder.Decode(out); err != nil && err != io.EOF {
			t.Fatalf("decode response from %s: %v", url, err)
		}
	}
}
