package services

import (
	"strings"
	"time"
)

type InvestigatorStore interface {
	InsertInvestigator(inv *Investigator) (*Investigator, error)
	GetInvestigator(id string) (*Investigator, error)
	ListInvestigators() ([]*Investigator, error)
	UpdateInvestigatorStatus(id, status string) (bool, error)
	ListCases() ([]*Case, error)
	AddAudit(entry AuditEntry)
}

type NewInvestigatorInput struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Department     string `json:"department"`
	Specialization string `json:"specialization"`
}

type InvestigatorService struct {
	store InvestigatorStore
	now   func() time.Time
	idGen func() string
}

func NewInvestigatorService(store InvestigatorStore) *InvestigatorService {
	return &InvestigatorService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: func() string { return shortID(12) },
	}
}

func (s *InvestigatorService) AddInvestigator(input NewInvestigatorInput, actor string) (*Investigator, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, NewInvalidError("name required")
	}
	inv := &Investigator{
		ID:             s.idGen(),
		Name:           input.Name,
		Email:          input.Email,
		Department:     input.Department,
		Specialization: input.Specialization,
		Status:         "active",
		JoinDate:       s.now(),
	}
	created, err := s.store.InsertInvestigator(inv)
	if err != nil {
		return nil, err
	}
	s.store.AddAudit(AuditEntry{Time: inv.JoinDate, Actor: actor, Action: "add_investigator", Target: inv.ID, Note: inv.Name})
	return created, nil
}

func (s *InvestigatorService) SetStatus(id, status, actor string) error {
	if status != "active" && status != "inactive" {
		return NewInvalidError("status must be active or inactive")
	}
	ok, err := s.store.UpdateInvestigatorStatus(id, status)
	if err != nil {
		return err
	}
	if !ok {
		return NewNotFoundError("investigator not found")
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: actor, Action: "investigator_status", Target: id, Note: status})
	return nil
}

func (s *InvestigatorService) GetInvestigator(id string) (*Investigator, error) {
	inv, err := s.store.GetInvestigator(id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, NewNotFoundError("investigator not found")
	}
	return inv, nil
}

// ListWithStats returns investigators with per-query case counts projected
// from the live case set.
func (s *InvestigatorService) ListWithStats() ([]*InvestigatorStats, error) {
	invs, err := s.store.ListInvestigators()
	if err != nil {
		return nil, err
	}
	cases, err := s.store.ListCases()
	if err != nil {
		return nil, err
	}
	return ProjectInvestigatorStats(cases, invs), nil
}
