package services

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ErrorCode string

const (
	ErrorInvalid      ErrorCode = "invalid"
	ErrorForbidden    ErrorCode = "forbidden"
	ErrorNotFound     ErrorCode = "not_found"
	ErrorConflict     ErrorCode = "conflict"
	ErrorUnauthorized ErrorCode = "unauthorized"
	ErrorBadGateway   ErrorCode = "bad_gateway"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
}

func (e *ServiceError) Error() string { return e.Message }

func NewInvalidError(msg string) error   { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewForbiddenError(msg string) error { return &ServiceError{Code: ErrorForbidden, Message: msg} }
func NewNotFoundError(msg string) error  { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewConflictError(msg string) error  { return &ServiceError{Code: ErrorConflict, Message: msg} }
func NewUnauthorizedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthorized, Message: msg}
}

func NewBadGatewayError(msg string) error { return &ServiceError{Code: ErrorBadGateway, Message: msg} }

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

type CaseStore interface {
	// InsertCaseWithStudent persists the case and updates the owning
	// student's aggregates in a single store transaction.
	InsertCaseWithStudent(c *Case) error
	GetCase(id string) (*Case, error)
	UpdateCase(c *Case) error
	UpdateCaseStatus(id, status string, action CaseAction) error
	SetCaseMedia(id, url string) error
	DeleteCase(id string) (bool, error)
	ListCases() ([]*Case, error)
	ListRecentCases(n int) ([]*Case, error)
	GetCaseType(id string) (*CaseType, error)
	AddAudit(entry AuditEntry)
}

// CaseNotifier enqueues lifecycle events for asynchronous delivery. Calls
// must never fail or block the lifecycle write that triggered them.
type CaseNotifier interface {
	CaseCreated(c *Case, recipients []string)
	StatusUpdated(c *Case, oldStatus, newStatus, narrative string, recipients []string)
	CaseResolved(c *Case, resolution string, recipients []string)
}

// MediaUploader sends a file to the object-storage service and returns its
// publicly resolvable URL. Upload latency is unbounded.
type MediaUploader interface {
	Upload(filename string, data []byte) (string, error)
}

type MediaFile struct {
	Name string
	Data []byte
}

type NewCaseInput struct {
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
	MatricNumber string `json:"matric_number"`
	Department   string `json:"department"`
	Program      string `json:"program"`
	Level        string `json:"level"`
	Gender       string `json:"gender"`

	CaseTypeID  string `json:"case_type_id"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	RiskLevel   string `json:"risk_level"`

	AssignedInvestigatorID   string `json:"assigned_investigator_id"`
	AssignedInvestigatorName string `json:"assigned_investigator"`

	Media *MediaFile `json:"-"`
}

// CaseService owns case creation, status transitions and field updates, and
// orchestrates student aggregates, notifications and the case feed. Field
// validation is the caller's concern; the service accepts what it is given.
type CaseService struct {
	store    CaseStore
	students *StudentService
	numbers  *CaseNumberGenerator
	notifier CaseNotifier
	uploader MediaUploader
	feed     *CaseFeed
	now      func() time.Time
	idGen    func() string
}

func NewCaseService(store CaseStore, students *StudentService, numbers *CaseNumberGenerator, notifier CaseNotifier, uploader MediaUploader) *CaseService {
	return &CaseService{
		store:    store,
		students: students,
		numbers:  numbers,
		notifier: notifier,
		uploader: uploader,
		feed:     NewCaseFeed(),
		now:      func() time.Time { return time.Now().UTC() },
		idGen:    func() string { return shortID(12) },
	}
}

// CreateCase runs the documented creation sequence. The returned case is
// durably stored before any media upload completes; Media stays nil until
// the out-of-band upload patches it.
func (s *CaseService) CreateCase(input NewCaseInput, actor string) (*Case, error) {
	num, err := s.numbers.Generate()
	if err != nil {
		return nil, err
	}
	student, err := s.students.ResolveOrCreate(input.StudentEmail, StudentProfile{
		Name:    input.StudentName,
		Program: input.Program,
		Level:   input.Level,
		Gender:  input.Gender,
	})
	if err != nil {
		return nil, err
	}
	title := "General"
	if ct, err := s.store.GetCaseType(input.CaseTypeID); err != nil {
		return nil, err
	} else if ct != nil {
		title = ct.Title
	}
	now := s.now()
	c := &Case{
		ID:                       s.idGen(),
		CaseNumber:               num,
		StudentID:                student.ID,
		StudentName:              input.StudentName,
		StudentEmail:             input.StudentEmail,
		MatricNumber:             input.MatricNumber,
		Department:               input.Department,
		Program:                  input.Program,
		Level:                    input.Level,
		Gender:                   input.Gender,
		CaseTypeID:               input.CaseTypeID,
		CaseTitle:                title,
		Description:              input.Description,
		Priority:                 input.Priority,
		RiskLevel:                input.RiskLevel,
		Status:                   StatusActive,
		AssignedInvestigatorID:   input.AssignedInvestigatorID,
		AssignedInvestigatorName: input.AssignedInvestigatorName,
		CreatedAt:                now,
		LastIncident:             &now,
	}
	if err := s.store.InsertCaseWithStudent(c); err != nil {
		return nil, err
	}
	s.store.AddAudit(AuditEntry{Time: now, Actor: actor, Action: "create_case", Target: c.ID, Note: c.CaseNumber})
	s.notifier.CaseCreated(c, nil)
	s.feed.Broadcast()
	if input.Media != nil {
		go s.uploadMedia(c.ID, input.Media)
	}
	return c, nil
}

func (s *CaseService) uploadMedia(caseID string, file *MediaFile) {
	url, err := s.uploader.Upload(file.Name, file.Data)
	if err != nil {
		log.Printf("case service: media upload for %s failed, media stays unset: %v", caseID, err)
		return
	}
	if err := s.store.SetCaseMedia(caseID, url); err != nil {
		log.Printf("case service: patch media for %s: %v", caseID, err)
		return
	}
	s.feed.Broadcast()
}

// UpdateCase applies a partial field patch. A supplied media file is
// uploaded and patched in afterwards via an independent write.
func (s *CaseService) UpdateCase(id string, raw map[string]any, media *MediaFile) error {
	old, err := s.store.GetCase(id)
	if err != nil {
		return err
	}
	if old == nil {
		return NewNotFoundError("case not found")
	}
	updated := *old
	if v, ok := raw["description"].(string); ok {
		updated.Description = v
	}
	if v, ok := raw["priority"].(string); ok {
		updated.Priority = v
	}
	if v, ok := raw["risk_level"].(string); ok {
		updated.RiskLevel = v
	}
	if v, ok := raw["case_type_id"].(string); ok && strings.TrimSpace(v) != "" {
		updated.CaseTypeID = v
		if ct, err := s.store.GetCaseType(v); err == nil && ct != nil {
			updated.CaseTitle = ct.Title
		}
	}
	if v, ok := raw["assigned_investigator_id"].(string); ok {
		updated.AssignedInvestigatorID = v
	}
	if v, ok := raw["assigned_investigator"].(string); ok {
		updated.AssignedInvestigatorName = v
	}
	if v, ok := raw["department"].(string); ok {
		updated.Department = v
	}
	now := s.now()
	updated.LastIncident = &now
	if err := s.store.UpdateCase(&updated); err != nil {
		return err
	}
	s.feed.Broadcast()
	if media != nil {
		go s.uploadMedia(id, media)
	}
	return nil
}

// UpdateStatus writes the new status, appends the transition narrative to
// the case's action log and enqueues notifications. Any status may follow
// any other; resolved cases can be reopened.
func (s *CaseService) UpdateStatus(id, newStatus, narrative, actor string) error {
	c, err := s.store.GetCase(id)
	if err != nil {
		return err
	}
	if c == nil {
		return NewNotFoundError("case not found")
	}
	old := c.Status
	action := CaseAction{Time: s.now(), OldStatus: old, NewStatus: newStatus, Narrative: narrative}
	if err := s.store.UpdateCaseStatus(id, newStatus, action); err != nil {
		return err
	}
	s.store.AddAudit(AuditEntry{Time: action.Time, Actor: actor, Action: "update_status", Target: id, Note: old + " -> " + newStatus})
	s.notifier.StatusUpdated(c, old, newStatus, narrative, nil)
	if newStatus == StatusResolved {
		s.notifier.CaseResolved(c, narrative, nil)
	}
	s.feed.Broadcast()
	return nil
}

// DeleteCase hard-removes the case record. The owning student's aggregates
// are intentionally left as they were.
func (s *CaseService) DeleteCase(id, actor string) error {
	ok, err := s.store.DeleteCase(id)
	if err != nil {
		return err
	}
	if !ok {
		return NewNotFoundError("case not found")
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: actor, Action: "delete_case", Target: id})
	s.feed.Broadcast()
	return nil
}

func (s *CaseService) GetCase(id string) (*Case, error) {
	c, err := s.store.GetCase(id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, NewNotFoundError("case not found")
	}
	return c, nil
}

func (s *CaseService) ListCases() ([]*Case, error) {
	return s.store.ListCases()
}

func (s *CaseService) RecentCases() ([]*Case, error) {
	return s.store.ListRecentCases(10)
}

// Subscribe returns a feed handle signalled after every case-set change.
// The caller owns the handle and must Cancel it; one handle per logical
// consumer.
func (s *CaseService) Subscribe() *FeedHandle {
	return s.feed.Subscribe()
}

func shortID(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}
