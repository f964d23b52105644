package services

import (
	"fmt"
	"time"
)

type CaseCounter interface {
	CountCasesCreatedBetween(from, to time.Time) (int, error)
}

// CaseNumberGenerator produces human-readable case numbers of the form
// CASE-{year}-{day}{month}{NN}, where NN is the zero-padded count of cases
// already created on the current calendar day.
//
// The count read is not serialized across concurrent creates, so two
// concurrent calls on the same day can produce the same number. Case numbers
// are display identifiers; anything that needs uniqueness keys on the
// store-assigned id.
type CaseNumberGenerator struct {
	counter CaseCounter
	now     func() time.Time
}

func NewCaseNumberGenerator(counter CaseCounter) *CaseNumberGenerator {
	return &CaseNumberGenerator{
		counter: counter,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (g *CaseNumberGenerator) Generate() (string, error) {
	now := g.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	n, err := g.counter.CountCasesCreatedBetween(dayStart, now)
	if err != nil {
		return "", fmt.Errorf("count today's cases: %w", err)
	}
	return fmt.Sprintf("CASE-%d-%02d%02d%02d", now.Year(), now.Day(), int(now.Month()), n), nil
}
