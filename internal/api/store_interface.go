package api

import (
	"time"

	"github.com/Nabothdaniel/exam-malpractice-project/internal/services"
)

// Store is the full persistence surface. Both the in-memory store and the
// sqlite store implement it; each service consumes only the slice it
// declares, so Store satisfies every service store interface structurally.
type Store interface {
	InsertCaseWithStudent(c *services.Case) error
	GetCase(id string) (*services.Case, error)
	UpdateCase(c *services.Case) error
	UpdateCaseStatus(id, status string, action services.CaseAction) error
	SetCaseMedia(id, url string) error
	DeleteCase(id string) (bool, error)
	ListCases() ([]*services.Case, error)
	ListRecentCases(n int) ([]*services.Case, error)
	CountCasesCreatedBetween(from, to time.Time) (int, error)

	GetStudentByEmail(email string) (*services.Student, error)
	InsertStudent(st *services.Student) (*services.Student, error)
	GetStudent(id string) (*services.Student, error)
	ListStudents() ([]*services.Student, error)
	AttachCaseToStudent(studentID, caseID, riskLevel string, incident time.Time) error

	InsertCaseType(ct *services.CaseType) (*services.CaseType, error)
	GetCaseType(id string) (*services.CaseType, error)
	ListCaseTypes() ([]*services.CaseType, error)

	InsertInvestigator(inv *services.Investigator) (*services.Investigator, error)
	GetInvestigator(id string) (*services.Investigator, error)
	ListInvestigators() ([]*services.Investigator, error)
	UpdateInvestigatorStatus(id, status string) (bool, error)

	EnqueueNotification(ev *services.NotificationEvent) error
	ListPendingNotifications(limit int) ([]*services.NotificationEvent, error)
	MarkNotificationSent(id string, at time.Time) error
	MarkNotificationFailed(id string, attempts int, lastErr string, parked bool) error
	ListNotifications() ([]*services.NotificationEvent, error)
	ListNotificationsByCase(caseID string) ([]*services.NotificationEvent, error)

	FindUserByEmail(email string) (*services.User, error)
	AddUser(u *services.User) error

	AddAudit(e services.AuditEntry)
	ListAudit() []services.AuditEntry
}

var _ Store = (*memoryStore)(nil)

var (
	_ services.CaseStore         = Store(nil)
	_ services.CaseCounter       = Store(nil)
	_ services.StudentStore      = Store(nil)
	_ services.CaseTypeStore     = Store(nil)
	_ services.InvestigatorStore = Store(nil)
	_ services.NotificationStore = Store(nil)
	_ services.AuthStore         = Store(nil)
)
