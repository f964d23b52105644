package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Nabothdaniel/exam-malpractice-project/internal/api"
	"github.com/Nabothdaniel/exam-malpractice-project/internal/services"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func NewStore(db *sql.DB) (api.Store, error) {
	return NewSQLiteStore(db)
}

var _ api.Store = (*SQLiteStore)(nil)

func (s *SQLiteStore) logErr(prefix string, err error) {
	if err != nil {
		log.Printf("sqlite store: %s: %v", prefix, err)
	}
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

const caseColumns = `id, case_number, student_id, student_name, student_email, matric_number,
	department, program, level, gender, case_type_id, case_title, description, priority,
	risk_level, media, status, assigned_investigator_id, assigned_investigator, actions,
	created_at, last_incident`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*services.Case, error) {
	var c services.Case
	var media sql.NullString
	var actions string
	var lastIncident sql.NullTime
	err := row.Scan(&c.ID, &c.CaseNumber, &c.StudentID, &c.StudentName, &c.StudentEmail,
		&c.MatricNumber, &c.Department, &c.Program, &c.Level, &c.Gender, &c.CaseTypeID,
		&c.CaseTitle, &c.Description, &c.Priority, &c.RiskLevel, &media, &c.Status,
		&c.AssignedInvestigatorID, &c.AssignedInvestigatorName, &actions, &c.CreatedAt,
		&lastIncident)
	if err != nil {
		return nil, err
	}
	if media.Valid {
		c.Media = &media.String
	}
	if actions != "" {
		if err := json.Unmarshal([]byte(actions), &c.Actions); err != nil {
			return nil, fmt.Errorf("decode case actions: %w", err)
		}
	}
	if lastIncident.Valid {
		t := lastIncident.Time
		c.LastIncident = &t
	}
	return &c, nil
}

func (s *SQLiteStore) insertCaseTx(tx *sql.Tx, c *services.Case) error {
	_, err := tx.Exec(`INSERT INTO cases (`+caseColumns+`) VALUES
		(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.CaseNumber, c.StudentID, c.StudentName, c.StudentEmail, c.MatricNumber,
		c.Department, c.Program, c.Level, c.Gender, c.CaseTypeID, c.CaseTitle,
		c.Description, c.Priority, c.RiskLevel, toNullString(stringOrEmpty(c.Media)),
		c.Status, c.AssignedInvestigatorID, c.AssignedInvestigatorName,
		mustJSON(c.Actions), c.CreatedAt, toNullTime(c.LastIncident))
	return err
}

func stringOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// InsertCaseWithStudent writes the case and bumps the owning student's
// aggregates in one transaction, so a crash cannot leave a case without its
// directory entry.
func (s *SQLiteStore) InsertCaseWithStudent(c *services.Case) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var caseIDs string
	if err := tx.QueryRow(`SELECT case_ids FROM students WHERE id = ?`, c.StudentID).Scan(&caseIDs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return services.NewNotFoundError("student not found")
		}
		return err
	}
	if err := s.insertCaseTx(tx, c); err != nil {
		return err
	}

	var ids []string
	if caseIDs != "" {
		if err := json.Unmarshal([]byte(caseIDs), &ids); err != nil {
			return fmt.Errorf("decode student case ids: %w", err)
		}
	}
	ids = append(ids, c.ID)
	incident := c.CreatedAt
	if c.LastIncident != nil {
		incident = *c.LastIncident
	}
	if _, err := tx.Exec(`UPDATE students SET case_ids = ?,
		stats_total = stats_total + 1, stats_active = stats_active + 1,
		stats_risk_level = ?, stats_last_incident = ? WHERE id = ?`,
		mustJSON(ids), c.RiskLevel, incident, c.StudentID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetCase(id string) (*services.Case, error) {
	row := s.db.QueryRow(`SELECT `+caseColumns+` FROM cases WHERE id = ?`, id)
	c, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (s *SQLiteStore) UpdateCase(c *services.Case) error {
	res, err := s.db.Exec(`UPDATE cases SET case_number = ?, student_id = ?, student_name = ?,
		student_email = ?, matric_number = ?, department = ?, program = ?, level = ?,
		gender = ?, case_type_id = ?, case_title = ?, description = ?, priority = ?,
		risk_level = ?, media = ?, status = ?, assigned_investigator_id = ?,
		assigned_investigator = ?, actions = ?, created_at = ?, last_incident = ?
		WHERE id = ?`,
		c.CaseNumber, c.StudentID, c.StudentName, c.StudentEmail, c.MatricNumber,
		c.Department, c.Program, c.Level, c.Gender, c.CaseTypeID, c.CaseTitle,
		c.Description, c.Priority, c.RiskLevel, toNullString(stringOrEmpty(c.Media)),
		c.Status, c.AssignedInvestigatorID, c.AssignedInvestigatorName,
		mustJSON(c.Actions), c.CreatedAt, toNullTime(c.LastIncident), c.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return services.NewNotFoundError("case not found")
	}
	return nil
}

func (s *SQLiteStore) UpdateCaseStatus(id, status string, action services.CaseAction) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var actions string
	if err := tx.QueryRow(`SELECT actions FROM cases WHERE id = ?`, id).Scan(&actions); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return services.NewNotFoundError("case not found")
		}
		return err
	}
	var history []services.CaseAction
	if actions != "" {
		if err := json.Unmarshal([]byte(actions), &history); err != nil {
			return fmt.Errorf("decode case actions: %w", err)
		}
	}
	history = append(history, action)
	if _, err := tx.Exec(`UPDATE cases SET status = ?, actions = ? WHERE id = ?`,
		status, mustJSON(history), id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) SetCaseMedia(id, url string) error {
	res, err := s.db.Exec(`UPDATE cases SET media = ? WHERE id = ?`, url, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return services.NewNotFoundError("case not found")
	}
	return nil
}

func (s *SQLiteStore) DeleteCase(id string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM cases WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) listCases(query string, args ...any) ([]*services.Case, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*services.Case{}
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListCases() ([]*services.Case, error) {
	return s.listCases(`SELECT ` + caseColumns + ` FROM cases ORDER BY created_at DESC, id`)
}

func (s *SQLiteStore) ListRecentCases(n int) ([]*services.Case, error) {
	return s.listCases(`SELECT `+caseColumns+` FROM cases ORDER BY created_at DESC, id LIMIT ?`, n)
}

func (s *SQLiteStore) CountCasesCreatedBetween(from, to time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM cases WHERE created_at >= ? AND created_at <= ?`,
		from, to).Scan(&n)
	return n, err
}

const studentColumns = `id, name, email, program, level, gender, created_at, case_ids,
	stats_total, stats_active, stats_resolved, stats_risk_level, stats_last_incident`

func scanStudent(row rowScanner) (*services.Student, error) {
	var st services.Student
	var caseIDs string
	var lastIncident sql.NullTime
	err := row.Scan(&st.ID, &st.Name, &st.Email, &st.Program, &st.Level, &st.Gender,
		&st.CreatedAt, &caseIDs, &st.CaseStats.Total, &st.CaseStats.Active,
		&st.CaseStats.Resolved, &st.CaseStats.RiskLevel, &lastIncident)
	if err != nil {
		return nil, err
	}
	if caseIDs != "" {
		if err := json.Unmarshal([]byte(caseIDs), &st.CaseIDs); err != nil {
			return nil, fmt.Errorf("decode student case ids: %w", err)
		}
	}
	if st.CaseIDs == nil {
		st.CaseIDs = []string{}
	}
	if lastIncident.Valid {
		t := lastIncident.Time
		st.CaseStats.LastIncident = &t
	}
	return &st, nil
}

// Lookups are by exact email; sqlite TEXT comparison is case sensitive, which
// matches the directory's natural-key semantics.
func (s *SQLiteStore) GetStudentByEmail(email string) (*services.Student, error) {
	row := s.db.QueryRow(`SELECT `+studentColumns+` FROM students WHERE email = ?`, email)
	st, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return st, err
}

func (s *SQLiteStore) InsertStudent(st *services.Student) (*services.Student, error) {
	_, err := s.db.Exec(`INSERT INTO students (`+studentColumns+`) VALUES
		(?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		st.ID, st.Name, st.Email, st.Program, st.Level, st.Gender, st.CreatedAt,
		mustJSON(st.CaseIDs), st.CaseStats.Total, st.CaseStats.Active,
		st.CaseStats.Resolved, st.CaseStats.RiskLevel, toNullTime(st.CaseStats.LastIncident))
	if err != nil {
		return nil, err
	}
	out := *st
	return &out, nil
}

func (s *SQLiteStore) GetStudent(id string) (*services.Student, error) {
	row := s.db.QueryRow(`SELECT `+studentColumns+` FROM students WHERE id = ?`, id)
	st, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return st, err
}

func (s *SQLiteStore) ListStudents() ([]*services.Student, error) {
	rows, err := s.db.Query(`SELECT ` + studentColumns + ` FROM students ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*services.Student{}
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AttachCaseToStudent(studentID, caseID, riskLevel string, incident time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var caseIDs string
	if err := tx.QueryRow(`SELECT case_ids FROM students WHERE id = ?`, studentID).Scan(&caseIDs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return services.NewNotFoundError("student not found")
		}
		return err
	}
	var ids []string
	if caseIDs != "" {
		if err := json.Unmarshal([]byte(caseIDs), &ids); err != nil {
			return fmt.Errorf("decode student case ids: %w", err)
		}
	}
	ids = append(ids, caseID)
	if _, err := tx.Exec(`UPDATE students SET case_ids = ?,
		stats_total = stats_total + 1, stats_active = stats_active + 1,
		stats_risk_level = ?, stats_last_incident = ? WHERE id = ?`,
		mustJSON(ids), riskLevel, incident, studentID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) InsertCaseType(ct *services.CaseType) (*services.CaseType, error) {
	_, err := s.db.Exec(`INSERT INTO case_types (id, title, scope, description, status, color)
		VALUES (?,?,?,?,?,?)`,
		ct.ID, ct.Title, ct.Scope, ct.Description, ct.Status, ct.Color)
	if err != nil {
		return nil, err
	}
	out := *ct
	return &out, nil
}

func scanCaseType(row rowScanner) (*services.CaseType, error) {
	var ct services.CaseType
	if err := row.Scan(&ct.ID, &ct.Title, &ct.Scope, &ct.Description, &ct.Status, &ct.Color); err != nil {
		return nil, err
	}
	return &ct, nil
}

func (s *SQLiteStore) GetCaseType(id string) (*services.CaseType, error) {
	row := s.db.QueryRow(`SELECT id, title, scope, description, status, color FROM case_types WHERE id = ?`, id)
	ct, err := scanCaseType(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return ct, err
}

func (s *SQLiteStore) ListCaseTypes() ([]*services.CaseType, error) {
	rows, err := s.db.Query(`SELECT id, title, scope, description, status, color FROM case_types ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*services.CaseType{}
	for rows.Next() {
		ct, err := scanCaseType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) InsertInvestigator(inv *services.Investigator) (*services.Investigator, error) {
	_, err := s.db.Exec(`INSERT INTO investigators (id, name, email, department, specialization, status, join_date)
		VALUES (?,?,?,?,?,?,?)`,
		inv.ID, inv.Name, inv.Email, inv.Department, inv.Specialization, inv.Status, inv.JoinDate)
	if err != nil {
		return nil, err
	}
	out := *inv
	return &out, nil
}

func scanInvestigator(row rowScanner) (*services.Investigator, error) {
	var inv services.Investigator
	err := row.Scan(&inv.ID, &inv.Name, &inv.Email, &inv.Department, &inv.Specialization,
		&inv.Status, &inv.JoinDate)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *SQLiteStore) GetInvestigator(id string) (*services.Investigator, error) {
	row := s.db.QueryRow(`SELECT id, name, email, department, specialization, status, join_date
		FROM investigators WHERE id = ?`, id)
	inv, err := scanInvestigator(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return inv, err
}

func (s *SQLiteStore) ListInvestigators() ([]*services.Investigator, error) {
	rows, err := s.db.Query(`SELECT id, name, email, department, specialization, status, join_date
		FROM investigators ORDER BY join_date, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*services.Investigator{}
	for rows.Next() {
		inv, err := scanInvestigator(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateInvestigatorStatus(id, status string) (bool, error) {
	res, err := s.db.Exec(`UPDATE investigators SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) EnqueueNotification(ev *services.NotificationEvent) error {
	_, err := s.db.Exec(`INSERT INTO notifications
		(id, kind, case_id, payload, recipients, status, attempts, last_error, created_at, sent_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		ev.ID, ev.Kind, ev.CaseID, ev.Payload, mustJSON(ev.Recipients), ev.Status,
		ev.Attempts, ev.LastError, ev.CreatedAt, toNullTime(ev.SentAt))
	return err
}

func scanNotification(row rowScanner) (*services.NotificationEvent, error) {
	var ev services.NotificationEvent
	var recipients string
	var sentAt sql.NullTime
	err := row.Scan(&ev.ID, &ev.Kind, &ev.CaseID, &ev.Payload, &recipients, &ev.Status,
		&ev.Attempts, &ev.LastError, &ev.CreatedAt, &sentAt)
	if err != nil {
		return nil, err
	}
	if recipients != "" {
		if err := json.Unmarshal([]byte(recipients), &ev.Recipients); err != nil {
			return nil, fmt.Errorf("decode notification recipients: %w", err)
		}
	}
	if sentAt.Valid {
		t := sentAt.Time
		ev.SentAt = &t
	}
	return &ev, nil
}

const notificationColumns = `id, kind, case_id, payload, recipients, status, attempts,
	last_error, created_at, sent_at`

func (s *SQLiteStore) listNotifications(query string, args ...any) ([]*services.NotificationEvent, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*services.NotificationEvent{}
	for rows.Next() {
		ev, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListPendingNotifications(limit int) ([]*services.NotificationEvent, error) {
	return s.listNotifications(`SELECT `+notificationColumns+` FROM notifications
		WHERE status = ? ORDER BY created_at, id LIMIT ?`, services.NotifyPending, limit)
}

func (s *SQLiteStore) MarkNotificationSent(id string, at time.Time) error {
	res, err := s.db.Exec(`UPDATE notifications SET status = ?, sent_at = ? WHERE id = ?`,
		services.NotifySent, at, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return services.NewNotFoundError("notification not found")
	}
	return nil
}

// MarkNotificationFailed records the attempt; the row stays pending unless
// parked, so the dispatcher keeps retrying it.
func (s *SQLiteStore) MarkNotificationFailed(id string, attempts int, lastErr string, parked bool) error {
	status := services.NotifyPending
	if parked {
		status = services.NotifyFailed
	}
	res, err := s.db.Exec(`UPDATE notifications SET status = ?, attempts = ?, last_error = ? WHERE id = ?`,
		status, attempts, lastErr, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return services.NewNotFoundError("notification not found")
	}
	return nil
}

func (s *SQLiteStore) ListNotifications() ([]*services.NotificationEvent, error) {
	return s.listNotifications(`SELECT ` + notificationColumns + ` FROM notifications ORDER BY created_at, id`)
}

func (s *SQLiteStore) ListNotificationsByCase(caseID string) ([]*services.NotificationEvent, error) {
	return s.listNotifications(`SELECT `+notificationColumns+` FROM notifications
		WHERE case_id = ? ORDER BY created_at, id`, caseID)
}

func (s *SQLiteStore) FindUserByEmail(email string) (*services.User, error) {
	var u services.User
	err := s.db.QueryRow(`SELECT id, name, email, pass_hash, created_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Name, &u.Email, &u.PassHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SQLiteStore) AddUser(u *services.User) error {
	_, err := s.db.Exec(`INSERT INTO users (id, name, email, pass_hash, created_at) VALUES (?,?,?,?,?)`,
		u.ID, u.Name, u.Email, u.PassHash, u.CreatedAt)
	return err
}

func (s *SQLiteStore) AddAudit(e services.AuditEntry) {
	_, err := s.db.Exec(`INSERT INTO audit_log (ts, actor, action, target, note) VALUES (?,?,?,?,?)`,
		e.Time, e.Actor, e.Action, e.Target, e.Note)
	s.logErr("add audit entry", err)
}

func (s *SQLiteStore) ListAudit() []services.AuditEntry {
	rows, err := s.db.Query(`SELECT ts, actor, action, target, note FROM audit_log ORDER BY ts, rowid`)
	if err != nil {
		s.logErr("list audit", err)
		return nil
	}
	defer rows.Close()
	out := []services.AuditEntry{}
	for rows.Next() {
		var e services.AuditEntry
		if err := rows.Scan(&e.Time, &e.Actor, &e.Action, &e.Target, &e.Note); err != nil {
			s.logErr("scan audit entry", err)
			return out
		}
		out = append(out, e)
	}
	s.logErr("iterate audit", rows.Err())
	return out
}
