package api

import (
	"sort"
	"sync"
	"time"

	"github.com/Nabothdaniel/exam-malpractice-project/internal/services"
)

type memoryStore struct {
	mu            sync.RWMutex
	cases         map[string]*services.Case
	caseOrder     []string
	students      map[string]*services.Student
	caseTypes     map[string]*services.CaseType
	typeOrder     []string
	investigators map[string]*services.Investigator
	invOrder      []string
	notifications []*services.NotificationEvent
	usersByEmail  map[string]*services.User
	audit         []services.AuditEntry
}

// NewMemoryStore returns an in-memory Store, used by tests and as a
// fallback when no sqlite path is configured.
func NewMemoryStore() Store {
	return newMemoryStore()
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		cases:         map[string]*services.Case{},
		students:      map[string]*services.Student{},
		caseTypes:     map[string]*services.CaseType{},
		investigators: map[string]*services.Investigator{},
		usersByEmail:  map[string]*services.User{},
	}
}

// InsertCaseWithStudent persists the case and bumps the owning student's
// aggregates under one lock, the in-memory equivalent of the sqlite
// store's transaction.
func (s *memoryStore) InsertCaseWithStudent(c *services.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[c.StudentID]
	if !ok {
		return services.NewNotFoundError("student not found")
	}
	copy := *c
	s.cases[c.ID] = &copy
	s.caseOrder = append(s.caseOrder, c.ID)

	incident := c.CreatedAt
	if c.LastIncident != nil {
		incident = *c.LastIncident
	}
	st.CaseIDs = append(st.CaseIDs, c.ID)
	st.CaseStats.Total++
	st.CaseStats.Active++
	st.CaseStats.RiskLevel = c.RiskLevel
	st.CaseStats.LastIncident = &incident
	return nil
}

func (s *memoryStore) GetCase(id string) (*services.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, nil
	}
	copy := *c
	return &copy, nil
}

func (s *memoryStore) UpdateCase(c *services.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cases[c.ID]; !ok {
		return services.NewNotFoundError("case not found")
	}
	copy := *c
	s.cases[c.ID] = &copy
	return nil
}

func (s *memoryStore) UpdateCaseStatus(id, status string, action services.CaseAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return services.NewNotFoundError("case not found")
	}
	c.Status = status
	c.Actions = append(c.Actions, action)
	return nil
}

func (s *memoryStore) SetCaseMedia(id, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return services.NewNotFoundError("case not found")
	}
	c.Media = &url
	return nil
}

func (s *memoryStore) DeleteCase(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cases[id]; !ok {
		return false, nil
	}
	delete(s.cases, id)
	for i, cid := range s.caseOrder {
		if cid == id {
			s.caseOrder = append(s.caseOrder[:i], s.caseOrder[i+1:]...)
			break
		}
	}
	return true, nil
}

// listCasesLocked returns cases newest first.
func (s *memoryStore) listCasesLocked() []*services.Case {
	out := make([]*services.Case, 0, len(s.cases))
	for _, id := range s.caseOrder {
		copy := *s.cases[id]
		out = append(out, &copy)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *memoryStore) ListCases() ([]*services.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listCasesLocked(), nil
}

func (s *memoryStore) ListRecentCases(n int) ([]*services.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.listCasesLocked()
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}

func (s *memoryStore) CountCasesCreatedBetween(from, to time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.cases {
		if !c.CreatedAt.Before(from) && !c.CreatedAt.After(to) {
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) GetStudentByEmail(email string) (*services.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.students {
		// Exact match: email is the natural key, no normalization.
		if st.Email == email {
			copy := *st
			return &copy, nil
		}
	}
	return nil, nil
}

func (s *memoryStore) InsertStudent(st *services.Student) (*services.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *st
	s.students[st.ID] = &copy
	out := copy
	return &out, nil
}

func (s *memoryStore) GetStudent(id string) (*services.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.students[id]
	if !ok {
		return nil, nil
	}
	copy := *st
	return &copy, nil
}

func (s *memoryStore) ListStudents() ([]*services.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*services.Student, 0, len(s.students))
	for _, st := range s.students {
		copy := *st
		out = append(out, &copy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *memoryStore) AttachCaseToStudent(studentID, caseID, riskLevel string, incident time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[studentID]
	if !ok {
		return services.NewNotFoundError("student not found")
	}
	st.CaseIDs = append(st.CaseIDs, caseID)
	st.CaseStats.Total++
	st.CaseStats.Active++
	st.CaseStats.RiskLevel = riskLevel
	st.CaseStats.LastIncident = &incident
	return nil
}

func (s *memoryStore) InsertCaseType(ct *services.CaseType) (*services.CaseType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *ct
	s.caseTypes[ct.ID] = &copy
	s.typeOrder = append(s.typeOrder, ct.ID)
	out := copy
	return &out, nil
}

func (s *memoryStore) GetCaseType(id string) (*services.CaseType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ct, ok := s.caseTypes[id]
	if !ok {
		return nil, nil
	}
	copy := *ct
	return &copy, nil
}

func (s *memoryStore) ListCaseTypes() ([]*services.CaseType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*services.CaseType, 0, len(s.typeOrder))
	for _, id := range s.typeOrder {
		copy := *s.caseTypes[id]
		out = append(out, &copy)
	}
	return out, nil
}

func (s *memoryStore) InsertInvestigator(inv *services.Investigator) (*services.Investigator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *inv
	s.investigators[inv.ID] = &copy
	s.invOrder = append(s.invOrder, inv.ID)
	out := copy
	return &out, nil
}

func (s *memoryStore) GetInvestigator(id string) (*services.Investigator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.investigators[id]
	if !ok {
		return nil, nil
	}
	copy := *inv
	return &copy, nil
}

func (s *memoryStore) ListInvestigators() ([]*services.Investigator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*services.Investigator, 0, len(s.invOrder))
	for _, id := range s.invOrder {
		copy := *s.investigators[id]
		out = append(out, &copy)
	}
	return out, nil
}

func (s *memoryStore) UpdateInvestigatorStatus(id, status string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.investigators[id]
	if !ok {
		return false, nil
	}
	inv.Status = status
	return true, nil
}

func (s *memoryStore) EnqueueNotification(ev *services.NotificationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *ev
	s.notifications = append(s.notifications, &copy)
	return nil
}

func (s *memoryStore) ListPendingNotifications(limit int) ([]*services.NotificationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*services.NotificationEvent{}
	for _, ev := range s.notifications {
		if ev.Status != services.NotifyPending {
			continue
		}
		copy := *ev
		out = append(out, &copy)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memoryStore) MarkNotificationSent(id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.notifications {
		if ev.ID == id {
			ev.Status = services.NotifySent
			ev.SentAt = &at
			return nil
		}
	}
	return services.NewNotFoundError("notification not found")
}

func (s *memoryStore) MarkNotificationFailed(id string, attempts int, lastErr string, parked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.notifications {
		if ev.ID == id {
			ev.Attempts = attempts
			ev.LastError = lastErr
			if parked {
				ev.Status = services.NotifyFailed
			}
			return nil
		}
	}
	return services.NewNotFoundError("notification not found")
}

func (s *memoryStore) ListNotifications() ([]*services.NotificationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*services.NotificationEvent, 0, len(s.notifications))
	for _, ev := range s.notifications {
		copy := *ev
		out = append(out, &copy)
	}
	return out, nil
}

func (s *memoryStore) ListNotificationsByCase(caseID string) ([]*services.NotificationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*services.NotificationEvent{}
	for _, ev := range s.notifications {
		if ev.CaseID == caseID {
			copy := *ev
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (s *memoryStore) FindUserByEmail(email string) (*services.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.usersByEmail[email]
	if !ok {
		return nil, nil
	}
	copy := *u
	return &copy, nil
}

func (s *memoryStore) AddUser(u *services.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *u
	s.usersByEmail[u.Email] = &copy
	return nil
}

func (s *memoryStore) AddAudit(e services.AuditEntry) {
	s.mu.Lock()
	s.audit = append(s.audit, e)
	s.mu.Unlock()
}

func (s *memoryStore) ListAudit() []services.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]services.AuditEntry, len(s.audit))
	copy(out, s.audit)
	return out
}

// EnsureDefaultCaseTypes seeds the two administrator-defined defaults on an
// empty taxonomy.
func EnsureDefaultCaseTypes(store Store) error {
	existing, err := store.ListCaseTypes()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	defaults := []*services.CaseType{
		{
			ID:          "caseType1",
			Title:       "Academic Misconduct",
			Scope:       "Cheating, plagiarism, exam malpractice",
			Description: "Cases involving academic integrity violations",
			Status:      "active",
			Color:       "bg-red-100 text-red-700 border-red-200",
		},
		{
			ID:          "caseType2",
			Title:       "Exam Malpractice",
			Scope:       "Unauthorized materials, impersonation",
			Description: "Cases related to misconduct during exams",
			Status:      "active",
			Color:       "bg-yellow-100 text-yellow-700 border-yellow-200",
		},
	}
	for _, ct := range defaults {
		if _, err := store.InsertCaseType(ct); err != nil {
			return err
		}
	}
	return nil
}
