package services

import (
	"strings"
	"time"
)

type StudentStore interface {
	GetStudentByEmail(email string) (*Student, error)
	InsertStudent(st *Student) (*Student, error)
	GetStudent(id string) (*Student, error)
	ListStudents() ([]*Student, error)
	AttachCaseToStudent(studentID, caseID, riskLevel string, incident time.Time) error
}

// StudentProfile carries the denormalized fields supplied with a new case.
type StudentProfile struct {
	Name    string `json:"name"`
	Program string `json:"program,omitempty"`
	Level   string `json:"level,omitempty"`
	Gender  string `json:"gender,omitempty"`
}

// StudentService is the directory resolver: students are keyed by email as a
// natural key, looked up with exact (case-sensitive) equality.
type StudentService struct {
	store StudentStore
	now   func() time.Time
	idGen func() string
}

func NewStudentService(store StudentStore) *StudentService {
	return &StudentService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: func() string { return shortID(12) },
	}
}

// ResolveOrCreate returns the student for email, creating one lazily on
// first reference with empty case list and zeroed stats.
func (s *StudentService) ResolveOrCreate(email string, profile StudentProfile) (*Student, error) {
	if strings.TrimSpace(email) == "" {
		return nil, NewInvalidError("student email required")
	}
	existing, err := s.store.GetStudentByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	st := &Student{
		ID:        s.idGen(),
		Name:      profile.Name,
		Email:     email,
		Program:   profile.Program,
		Level:     profile.Level,
		Gender:    profile.Gender,
		CreatedAt: s.now(),
		CaseIDs:   []string{},
		CaseStats: CaseStats{RiskLevel: RiskLow},
	}
	return s.store.InsertStudent(st)
}

// AttachCase appends caseID to the student's case list and bumps the
// denormalized aggregates: Total and Active increment, RiskLevel takes the
// incoming case's level (last-write-wins), LastIncident takes the new
// timestamp. Status changes later on do not flow back into these counters.
func (s *StudentService) AttachCase(studentID, caseID, riskLevel string, incident time.Time) error {
	if studentID == "" || caseID == "" {
		return NewInvalidError("student/case id required")
	}
	return s.store.AttachCaseToStudent(studentID, caseID, riskLevel, incident)
}

func (s *StudentService) GetStudent(id string) (*Student, error) {
	st, err := s.store.GetStudent(id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, NewNotFoundError("student not found")
	}
	return st, nil
}

func (s *StudentService) ListStudents() ([]*Student, error) {
	return s.store.ListStudents()
}
