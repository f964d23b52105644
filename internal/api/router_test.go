package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Nabothdaniel/exam-malpractice-project/internal/middleware"
	"github.com/Nabothdaniel/exam-malpractice-project/internal/services"
)

func newTestServer(t *testing.T) (*httptest.Server, Store) {
	t.Helper()
	store := NewMemoryStore()
	if err := EnsureDefaultCaseTypes(store); err != nil {
		t.Fatalf("seed case types: %v", err)
	}
	mux := http.NewServeMux()
	NewRouter(store, nil).Register(mux)
	srv := httptest.NewServer(middleware.WithAuth(mux))
	t.Cleanup(srv.Close)
	return srv, store
}

func postJSON(t *testing.T, url, token string, body any, out any) int {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response from %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func getJSON(t *testing.T, url, token string, out any) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response from %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func registerAdmin(t *testing.T, base string) string {
	t.Helper()
	var resp struct {
		Token string `json:"token"`
	}
	status := postJSON(t, base+"/api/auth/register", "", map[string]string{
		"email":    "admin@university.edu",
		"password": "Secret123",
		"name":     "Admin",
	}, &resp)
	if status != http.StatusOK || resp.Token == "" {
		t.Fatalf("register failed: status=%d token=%q", status, resp.Token)
	}
	return resp.Token
}

func TestCreateCaseRequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t)
	status := postJSON(t, srv.URL+"/api/cases", "", map[string]string{
		"student_email": "jordan@university.edu",
	}, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}
}

func TestCaseLifecycleOverHTTP(t *testing.T) {
	srv, store := newTestServer(t)
	token := registerAdmin(t, srv.URL)

	var created services.Case
	status := postJSON(t, srv.URL+"/api/cases", token, map[string]string{
		"student_name":  "Jordan Obi",
		"student_email": "jordan@university.edu",
		"case_type_id":  "caseType2",
		"risk_level":    "high",
	}, &created)
	if status != http.StatusCreated {
		t.Fatalf("create case: status %d", status)
	}
	if created.Status != services.StatusActive || created.CaseTitle != "Exam Malpractice" {
		t.Fatalf("unexpected case: %+v", created)
	}

	status = postJSON(t, srv.URL+"/api/cases/"+created.ID+"/status", token, map[string]string{
		"status": "resolved",
		"action": "Panel ruling issued",
	}, nil)
	if status != http.StatusOK {
		t.Fatalf("status update: status %d", status)
	}

	var fetched services.Case
	if got := getJSON(t, srv.URL+"/api/cases/"+created.ID, token, &fetched); got != http.StatusOK {
		t.Fatalf("get case: status %d", got)
	}
	if fetched.Status != services.StatusResolved || len(fetched.Actions) != 1 {
		t.Fatalf("unexpected fetched case: %+v", fetched)
	}

	var students []services.Student
	if got := getJSON(t, srv.URL+"/api/students", token, &students); got != http.StatusOK {
		t.Fatalf("list students: status %d", got)
	}
	if len(students) != 1 || students[0].CaseStats.Total != 1 {
		t.Fatalf("unexpected students: %+v", students)
	}

	// Lifecycle writes land in the outbox, labeled with the case.
	events, err := store.ListNotificationsByCase(created.ID)
	if err != nil {
		t.Fatalf("ListNotificationsByCase: %v", err)
	}
	kinds := map[string]int{}
	for _, ev := range events {
		kinds[ev.Kind]++
	}
	if kinds[services.EventCaseCreated] != 1 || kinds[services.EventStatusUpdate] != 1 || kinds[services.EventCaseResolved] != 1 {
		t.Fatalf("unexpected outbox kinds: %v", kinds)
	}
}

func TestCaseTypeCountsOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerAdmin(t, srv.URL)

	for _, email := range []string{"a@university.edu", "b@university.edu"} {
		status := postJSON(t, srv.URL+"/api/cases", token, map[string]string{
			"student_email": email,
			"case_type_id":  "caseType1",
		}, nil)
		if status != http.StatusCreated {
			t.Fatalf("create case: status %d", status)
		}
	}

	var types []services.CaseType
	if got := getJSON(t, srv.URL+"/api/case-types", token, &types); got != http.StatusOK {
		t.Fatalf("list case types: status %d", got)
	}
	counts := map[string]int{}
	for _, ct := range types {
		counts[ct.ID] = ct.Count
	}
	if counts["caseType1"] != 2 || counts["caseType2"] != 0 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestCaseFeedSignalsOnCreate(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerAdmin(t, srv.URL)

	type pollResult struct {
		status  int
		changed bool
		err     error
	}
	results := make(chan pollResult, 1)
	go func() {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/cases/feed", nil)
		if err != nil {
			results <- pollResult{err: err}
			return
		}
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			results <- pollResult{err: err}
			return
		}
		defer resp.Body.Close()
		var body struct {
			Changed bool `json:"changed"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			results <- pollResult{err: err}
			return
		}
		results <- pollResult{status: resp.StatusCode, changed: body.Changed}
	}()

	// Give the poller time to subscribe before mutating.
	time.Sleep(100 * time.Millisecond)
	status := postJSON(t, srv.URL+"/api/cases", token, map[string]string{
		"student_email": "feed@university.edu",
	}, nil)
	if status != http.StatusCreated {
		t.Fatalf("create case: status %d", status)
	}

	select {
	case res := <-results:
		if res.err != nil {
			t.Fatalf("feed poll failed: %v", res.err)
		}
		if res.status != http.StatusOK || !res.changed {
			t.Fatalf("expected changed=true poll result, got %+v", res)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("feed poll did not return after case creation")
	}
}

func TestUnknownCaseIs404(t *testing.T) {
	srv, _ := newTestServer(t)
	token := registerAdmin(t, srv.URL)
	if got := getJSON(t, srv.URL+"/api/cases/ghost", token, nil); got != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown case, got %d", got)
	}
}
