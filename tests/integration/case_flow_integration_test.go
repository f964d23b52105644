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
)

func baseURL() string {
	if v := os.Getenv("EXAMGUARD_TEST_BASE_URL"); strings.TrimSpace(v) != "" {
		return strings.TrimRight(v, "/")
	}
	return "http://127.0.0.1:18080"
}

func TestCaseJourneyIntegration(t *testing.T) {
	client := &http.Client{Timeout: 5 * time.Second}
	base := baseURL()

	adminEmail := fmt.Sprintf("integration_%d@university.edu", time.Now().UnixNano())
	password := "Secret123!"

	var registerResp struct {
		Token  string `json:"token"`
		UserID string `json:"user_id"`
	}
	doPost(t, client, base+"/api/auth/register", "", map[string]string{
		"email":    adminEmail,
		"password": password,
		"name":     "Integration Admin",
	}, &registerResp)
	if registerResp.Token == "" || registerResp.UserID == "" {
		t.Fatalf("unexpected register response: %+v", registerResp)
	}

	var loginResp struct {
		Token string `json:"token"`
	}
	doPost(t, client, base+"/api/auth/login", "", map[string]string{
		"email":    adminEmail,
		"password": password,
	}, &loginResp)
	token := loginResp.Token
	if token == "" {
		t.Fatalf("login did not return token")
	}

	studentEmail := fmt.Sprintf("student_%d@university.edu", time.Now().UnixNano())
	var createResp struct {
		ID         string `json:"id"`
		CaseNumber string `json:"case_number"`
		StudentID  string `json:"student_id"`
		Status     string `json:"status"`
	}
	doPost(t, client, base+"/api/cases", token, map[string]any{
		"student_name":  "Jordan Obi",
		"student_email": studentEmail,
		"matric_number": "CSC/19/1234",
		"department":    "Computer Science",
		"case_type_id":  "caseType2",
		"description":   "Caught with unauthorized material",
		"risk_level":    "high",
	}, &createResp)
	if createResp.ID == "" || createResp.StudentID == "" {
		t.Fatalf("unexpected create response: %+v", createResp)
	}
	if createResp.Status != "active" {
		t.Fatalf("new case should be active, got %q", createResp.Status)
	}
	if !strings.HasPrefix(createResp.CaseNumber, "CASE-") {
		t.Fatalf("unexpected case number %q", createResp.CaseNumber)
	}

	doPost(t, client, base+"/api/cases/"+createResp.ID+"/status", token, map[string]string{
		"status": "investigating",
		"action": "Panel convened",
	}, nil)
	doPost(t, client, base+"/api/cases/"+createResp.ID+"/status", token, map[string]string{
		"status": "resolved",
		"action": "Student exonerated",
	}, nil)

	var fetched struct {
		Status  string `json:"status"`
		Actions []struct {
			NewStatus string `json:"new_status"`
		} `json:"actions"`
	}
	doGet(t, client, base+"/api/cases/"+createResp.ID, token, &fetched)
	if fetched.Status != "resolved" {
		t.Fatalf("expected resolved case, got %q", fetched.Status)
	}
	if len(fetched.Actions) != 2 {
		t.Fatalf("expected 2 recorded actions, got %d", len(fetched.Actions))
	}

	var student struct {
		ID        string `json:"id"`
		CaseIDs   []string `json:"case_ids"`
		CaseStats struct {
			Total     int    `json:"total"`
			RiskLevel string `json:"risk_level"`
		} `json:"case_stats"`
	}
	doGet(t, client, base+"/api/students/"+createResp.StudentID, token, &student)
	if student.CaseStats.Total != 1 || student.CaseStats.RiskLevel != "high" {
		t.Fatalf("unexpected student aggregates: %+v", student.CaseStats)
	}
	if len(student.CaseIDs) != 1 || student.CaseIDs[0] != createResp.ID {
		t.Fatalf("student case ids missing new case: %v", student.CaseIDs)
	}

	var recent []struct {
		ID string `json:"id"`
	}
	doGet(t, client, base+"/api/cases/recent", token, &recent)
	found := false
	for _, c := range recent {
		if c.ID == createResp.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("recent cases did not include %s", createResp.ID)
	}
}

func doPost(t *testing.T, client *http.Client, url, token string, body any, out any) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("http post %s failed: %v", url, err)
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

func doGet(t *testing.T, client *http.Client, url, token string, out any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("http get %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		t.Fatalf("unexpected status %d for %s: %s", resp.StatusCode, url, string(bodyBytes))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response from %s: %v", url, err)
	}
}
