package services

import "testing"

type stubCaseTypeStore struct {
	types []*CaseType
	cases []*Case
}

func (s *stubCaseTypeStore) InsertCaseType(ct *CaseType) (*CaseType, error) {
	copy := *ct
	s.types = append(s.types, &copy)
	return &copy, nil
}

func (s *stubCaseTypeStore) ListCaseTypes() ([]*CaseType, error) {
	return s.types, nil
}

func (s *stubCaseTypeStore) ListCases() ([]*Case, error) {
	return s.cases, nil
}

func TestAddCaseType(t *testing.T) {
	store := &stubCaseTypeStore{}
	svc := NewCaseTypeService(store)

	ct, err := svc.AddCaseType(&CaseType{Title: "Impersonation", Count: 99})
	if err != nil {
		t.Fatalf("AddCaseType returned error: %v", err)
	}
	if ct.ID == "" || ct.Status != "active" {
		t.Fatalf("unexpected case type %+v", ct)
	}
	if ct.Count != 0 {
		t.Fatalf("count must never be stored, got %d", ct.Count)
	}
	if _, err := svc.AddCaseType(&CaseType{}); err == nil {
		t.Fatalf("expected invalid error for empty title")
	}
}

func TestListWithCountsProjects(t *testing.T) {
	store := &stubCaseTypeStore{}
	svc := NewCaseTypeService(store)
	ct, _ := svc.AddCaseType(&CaseType{Title: "Exam Malpractice"})
	store.cases = []*Case{{ID: "c1", CaseTypeID: ct.ID}, {ID: "c2", CaseTypeID: ct.ID}}

	out, err := svc.ListWithCounts()
	if err != nil {
		t.Fatalf("ListWithCounts returned error: %v", err)
	}
	if len(out) != 1 || out[0].Count != 2 {
		t.Fatalf("unexpected projection %+v", out)
	}
}
