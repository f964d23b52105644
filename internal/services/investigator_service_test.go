package services

import (
	"testing"
	"time"
)

type stubInvestigatorStore struct {
	invs   map[string]*Investigator
	cases  []*Case
	audits []AuditEntry
}

func newStubInvestigatorStore() *stubInvestigatorStore {
	return &stubInvestigatorStore{invs: map[string]*Investigator{}}
}

func (s *stubInvestigatorStore) InsertInvestigator(inv *Investigator) (*Investigator, error) {
	copy := *inv
	s.invs[inv.ID] = &copy
	return &copy, nil
}

func (s *stubInvestigatorStore) GetInvestigator(id string) (*Investigator, error) {
	return s.invs[id], nil
}

func (s *stubInvestigatorStore) ListInvestigators() ([]*Investigator, error) {
	out := []*Investigator{}
	for _, inv := range s.invs {
		out = append(out, inv)
	}
	return out, nil
}

func (s *stubInvestigatorStore) UpdateInvestigatorStatus(id, status string) (bool, error) {
	inv, ok := s.invs[id]
	if !ok {
		return false, nil
	}
	inv.Status = status
	return true, nil
}

func (s *stubInvestigatorStore) ListCases() ([]*Case, error) {
	return s.cases, nil
}

func (s *stubInvestigatorStore) AddAudit(entry AuditEntry) {
	s.audits = append(s.audits, entry)
}

func TestAddInvestigatorDefaults(t *testing.T) {
	store := newStubInvestigatorStore()
	svc := NewInvestigatorService(store)
	svc.now = func() time.Time { return time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC) }

	inv, err := svc.AddInvestigator(NewInvestigatorInput{Name: "Dr. Smith", Email: "smith@university.edu"}, "admin")
	if err != nil {
		t.Fatalf("AddInvestigator returned error: %v", err)
	}
	if inv.ID == "" || inv.Status != "active" || inv.JoinDate.IsZero() {
		t.Fatalf("unexpected investigator %+v", inv)
	}
	if len(store.audits) != 1 {
		t.Fatalf("audits = %d, want 1", len(store.audits))
	}

	if _, err := svc.AddInvestigator(NewInvestigatorInput{}, "admin"); err == nil {
		t.Fatalf("expected invalid error for missing name")
	}
}

func TestSetInvestigatorStatus(t *testing.T) {
	store := newStubInvestigatorStore()
	svc := NewInvestigatorService(store)
	inv, _ := svc.AddInvestigator(NewInvestigatorInput{Name: "Dr. Smith"}, "admin")

	if err := svc.SetStatus(inv.ID, "inactive", "admin"); err != nil {
		t.Fatalf("SetStatus returned error: %v", err)
	}
	if store.invs[inv.ID].Status != "inactive" {
		t.Fatalf("status = %s", store.invs[inv.ID].Status)
	}
	if err := svc.SetStatus(inv.ID, "archived", "admin"); err == nil {
		t.Fatalf("expected invalid status error")
	}
	if err := svc.SetStatus("ghost", "active", "admin"); err == nil {
		t.Fatalf("expected not found")
	}
}

func TestListWithStatsProjectsFromCases(t *testing.T) {
	store := newStubInvestigatorStore()
	svc := NewInvestigatorService(store)
	inv, _ := svc.AddInvestigator(NewInvestigatorInput{Name: "Dr. Smith"}, "admin")
	store.cases = []*Case{
		{ID: "c1", AssignedInvestigatorID: inv.ID, Status: StatusActive},
		{ID: "c2", AssignedInvestigatorID: inv.ID, Status: StatusResolved},
	}

	out, err := svc.ListWithStats()
	if err != nil {
		t.Fatalf("ListWithStats returned error: %v", err)
	}
	if len(out) != 1 || out[0].TotalCases != 2 || out[0].ActiveCases != 1 || out[0].ResolvedCases != 1 {
		t.Fatalf("unexpected stats %+v", out)
	}
}
