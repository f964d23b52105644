package services

import "strings"

type CaseTypeStore interface {
	InsertCaseType(ct *CaseType) (*CaseType, error)
	ListCaseTypes() ([]*CaseType, error)
	ListCases() ([]*Case, error)
}

// CaseTypeService manages the classification taxonomy. Types are immutable
// once created; their Count is always projected from the live case set.
type CaseTypeService struct {
	store CaseTypeStore
	idGen func() string
}

func NewCaseTypeService(store CaseTypeStore) *CaseTypeService {
	return &CaseTypeService{store: store, idGen: func() string { return shortID(12) }}
}

func (s *CaseTypeService) AddCaseType(ct *CaseType) (*CaseType, error) {
	if ct == nil || strings.TrimSpace(ct.Title) == "" {
		return nil, NewInvalidError("title required")
	}
	if ct.ID == "" {
		ct.ID = s.idGen()
	}
	if ct.Status == "" {
		ct.Status = "active"
	}
	ct.Count = 0
	return s.store.InsertCaseType(ct)
}

// ListWithCounts returns the taxonomy with counts recomputed from cases.
func (s *CaseTypeService) ListWithCounts() ([]*CaseType, error) {
	types, err := s.store.ListCaseTypes()
	if err != nil {
		return nil, err
	}
	cases, err := s.store.ListCases()
	if err != nil {
		return nil, err
	}
	return ProjectCaseTypeCounts(cases, types), nil
}
