package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

type NotificationStore interface {
	EnqueueNotification(ev *NotificationEvent) error
	ListPendingNotifications(limit int) ([]*NotificationEvent, error)
	MarkNotificationSent(id string, at time.Time) error
	MarkNotificationFailed(id string, attempts int, lastErr string, parked bool) error
	ListNotifications() ([]*NotificationEvent, error)
	ListNotificationsByCase(caseID string) ([]*NotificationEvent, error)
}

// Default recipient lists per event kind.
var defaultRecipients = map[string][]string{
	EventCaseCreated:  {"investigator@university.edu", "admin@university.edu", "academic.integrity@university.edu"},
	EventStatusUpdate: {"investigator@university.edu", "admin@university.edu"},
	EventCaseResolved: {"investigator@university.edu", "admin@university.edu", "academic.integrity@university.edu", "registrar@university.edu"},
}

// Outbox records lifecycle events for asynchronous delivery. Enqueue
// failures are logged and swallowed: a lost notification never fails the
// case write that preceded it.
type Outbox struct {
	store NotificationStore
	now   func() time.Time
	idGen func() string
}

func NewOutbox(store NotificationStore) *Outbox {
	return &Outbox{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: func() string { return shortID(12) },
	}
}

func (o *Outbox) CaseCreated(c *Case, recipients []string) {
	o.enqueue(EventCaseCreated, c.ID, recipients, map[string]any{
		"caseId":       c.CaseNumber,
		"studentName":  c.StudentName,
		"caseType":     c.CaseTitle,
		"investigator": c.AssignedInvestigatorName,
	})
}

func (o *Outbox) StatusUpdated(c *Case, oldStatus, newStatus, narrative string, recipients []string) {
	o.enqueue(EventStatusUpdate, c.ID, recipients, map[string]any{
		"caseId":      c.CaseNumber,
		"studentName": c.StudentName,
		"oldStatus":   oldStatus,
		"newStatus":   newStatus,
		"action":      narrative,
	})
}

func (o *Outbox) CaseResolved(c *Case, resolution string, recipients []string) {
	o.enqueue(EventCaseResolved, c.ID, recipients, map[string]any{
		"caseId":      c.CaseNumber,
		"studentName": c.StudentName,
		"resolution":  resolution,
	})
}

func (o *Outbox) enqueue(kind, caseID string, recipients []string, body map[string]any) {
	if len(recipients) == 0 {
		recipients = defaultRecipients[kind]
	}
	body["recipients"] = recipients
	payload, err := json.Marshal(body)
	if err != nil {
		log.Printf("outbox: marshal %s event for case %s: %v", kind, caseID, err)
		return
	}
	ev := &NotificationEvent{
		ID:         o.idGen(),
		Kind:       kind,
		CaseID:     caseID,
		Payload:    payload,
		Recipients: recipients,
		Status:     NotifyPending,
		CreatedAt:  o.now(),
	}
	if err := o.store.EnqueueNotification(ev); err != nil {
		log.Printf("outbox: enqueue %s event for case %s: %v", kind, caseID, err)
	}
}

func (o *Outbox) ListNotifications() ([]*NotificationEvent, error) {
	return o.store.ListNotifications()
}

func (o *Outbox) ListNotificationsByCase(caseID string) ([]*NotificationEvent, error) {
	return o.store.ListNotificationsByCase(caseID)
}

var _ CaseNotifier = (*Outbox)(nil)

// NotificationSender delivers a single event to the notification endpoint.
type NotificationSender interface {
	Send(ev *NotificationEvent) error
}

// HTTPSender posts the event payload as JSON to {base}/{kind}.
type HTTPSender struct {
	base   string
	client *http.Client
}

func NewHTTPSender(base string) *HTTPSender {
	return &HTTPSender{base: base, client: &http.Client{Timeout: 10 * time.Second}}
}

func (s *HTTPSender) Send(ev *NotificationEvent) error {
	resp, err := s.client.Post(s.base+"/"+ev.Kind, "application/json", bytes.NewReader(ev.Payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// Dispatcher drains the outbox on an interval, retrying failed deliveries
// until maxAttempts, after which an event is parked as failed and stays
// queryable for inspection.
type Dispatcher struct {
	store       NotificationStore
	sender      NotificationSender
	interval    time.Duration
	maxAttempts int
	batch       int
	now         func() time.Time
}

func NewDispatcher(store NotificationStore, sender NotificationSender) *Dispatcher {
	return &Dispatcher{
		store:       store,
		sender:      sender,
		interval:    5 * time.Second,
		maxAttempts: 5,
		batch:       20,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.DrainOnce(); err != nil {
				log.Printf("dispatcher: drain: %v", err)
			}
		}
	}
}

// DrainOnce attempts delivery of one batch of pending events.
func (d *Dispatcher) DrainOnce() error {
	events, err := d.store.ListPendingNotifications(d.batch)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if err := d.sender.Send(ev); err != nil {
			attempts := ev.Attempts + 1
			parked := attempts >= d.maxAttempts
			if markErr := d.store.MarkNotificationFailed(ev.ID, attempts, err.Error(), parked); markErr != nil {
				log.Printf("dispatcher: mark %s failed: %v", ev.ID, markErr)
			}
			if parked {
				log.Printf("dispatcher: %s event %s parked after %d attempts: %v", ev.Kind, ev.ID, attempts, err)
			}
			continue
		}
		if err := d.store.MarkNotificationSent(ev.ID, d.now()); err != nil {
			log.Printf("dispatcher: mark %s sent: %v", ev.ID, err)
		}
	}
	return nil
}
