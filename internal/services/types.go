package services

import "time"

// Case status values. Transitions are all-to-all; a resolved case may be
// reopened.
const (
	StatusActive        = "active"
	StatusPending       = "pending"
	StatusInvestigating = "investigating"
	StatusResolved      = "resolved"
)

// Risk / priority levels.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

type Case struct {
	ID         string `json:"id"`
	CaseNumber string `json:"case_number"`

	StudentID    string `json:"student_id"`
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
	MatricNumber string `json:"matric_number,omitempty"`
	Department   string `json:"department,omitempty"`
	Program      string `json:"program,omitempty"`
	Level        string `json:"level,omitempty"`
	Gender       string `json:"gender,omitempty"`

	CaseTypeID string `json:"case_type_id"`
	CaseTitle  string `json:"case_title"`

	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
	RiskLevel   string `json:"risk_level,omitempty"`
	// Media is nil until the out-of-band upload completes; nil means
	// "not yet available", not "no evidence".
	Media *string `json:"media"`

	Status                   string `json:"status"`
	AssignedInvestigatorID   string `json:"assigned_investigator_id,omitempty"`
	AssignedInvestigatorName string `json:"assigned_investigator,omitempty"`
	// Actions is an append-only log of human-readable transition narratives.
	Actions []CaseAction `json:"actions,omitempty"`

	CreatedAt    time.Time  `json:"created_at"`
	LastIncident *time.Time `json:"last_incident,omitempty"`
}

type CaseAction struct {
	Time      time.Time `json:"time"`
	OldStatus string    `json:"old_status,omitempty"`
	NewStatus string    `json:"new_status,omitempty"`
	Narrative string    `json:"narrative"`
}

// CaseStats is the denormalized per-student projection, updated
// incrementally on case creation. RiskLevel is the most recently attached
// case's risk (last-write-wins), not a maximum across open cases.
type CaseStats struct {
	Total        int        `json:"total"`
	Active       int        `json:"active"`
	Resolved     int        `json:"resolved"`
	RiskLevel    string     `json:"risk_level"`
	LastIncident *time.Time `json:"last_incident"`
}

type Student struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Program   string    `json:"program,omitempty"`
	Level     string    `json:"level,omitempty"`
	Gender    string    `json:"gender,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	CaseIDs   []string  `json:"case_ids"`
	CaseStats CaseStats `json:"case_stats"`
}

type CaseType struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Scope       string `json:"scope,omitempty"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	Color       string `json:"color,omitempty"`
	// Count is a view recomputed from the live case set, never stored
	// authoritatively.
	Count int `json:"count"`
}

type Investigator struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Department     string    `json:"department,omitempty"`
	Specialization string    `json:"specialization,omitempty"`
	Status         string    `json:"status"`
	JoinDate       time.Time `json:"join_date"`
}

// InvestigatorStats pairs an investigator with counts computed per query.
type InvestigatorStats struct {
	Investigator
	TotalCases    int `json:"total_cases"`
	ActiveCases   int `json:"active_cases"`
	ResolvedCases int `json:"resolved_cases"`
}

// Notification event kinds, matching the external notification API paths.
const (
	EventCaseCreated  = "case-created"
	EventStatusUpdate = "status-update"
	EventCaseResolved = "case-resolved"
)

// Notification delivery states.
const (
	NotifyPending = "pending"
	NotifySent    = "sent"
	NotifyFailed  = "failed"
)

// NotificationEvent is an outbox row. Lifecycle writes enqueue events; the
// dispatcher drains and retries them, so delivery failures stay observable.
type NotificationEvent struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	CaseID     string     `json:"case_id"`
	Payload    []byte     `json:"payload"`
	Recipients []string   `json:"recipients,omitempty"`
	Status     string     `json:"status"`
	Attempts   int        `json:"attempts"`
	LastError  string     `json:"last_error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
}

type AuditEntry struct {
	Time   time.Time
	Actor  string
	Action string
	Target string
	Note   string
}
