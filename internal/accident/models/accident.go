// Package models holds the accident aggregate: the accident itself, one
// statement per involved driver, temporary-driver invites and statement
// evidence (sketch and images).
package models

import (
	"strings"
	"time"

	"amicable/pkg/domain"
	dErrors "amicable/pkg/domain-errors"
	pstrings "amicable/pkg/platform/strings"
)

const (
	maxLocationLength = 256
	maxNoteLength     = 2000
)

// Accident is the aggregate root.
//
// Invariants:
//   - Date is set; City and Address are non-empty and stored upper-cased
//   - Everything except ClosedCase and UpdatedAt is immutable after creation
//   - ClosedCase is an administrative flag; the statement workflow never reads it
type Accident struct {
	ID           domain.AccidentID `json:"id"`
	Date         time.Time         `json:"date"`
	City         string            `json:"city"`
	Address      string            `json:"address"`
	Injuries     *string           `json:"injuries,omitempty"`
	RoadProblems *string           `json:"road_problems,omitempty"`
	ClosedCase   bool              `json:"closed_case"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func NewAccident(date time.Time, city, address string, injuries, roadProblems *string, now time.Time) (*Accident, error) {
	if date.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "accident date is required")
	}
	city = pstrings.UpperTrim(pstrings.CollapseSpaces(city))
	address = pstrings.UpperTrim(pstrings.CollapseSpaces(address))
	if city == "" || address == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "accident city and address are required")
	}
	if len(city) > maxLocationLength || len(address) > maxLocationLength {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "accident location is too long")
	}
	return &Accident{
		Date:         date.UTC(),
		City:         city,
		Address:      address,
		Injuries:     trimOptional(injuries),
		RoadProblems: trimOptional(roadProblems),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// CanClose rejects closing an already closed case.
func (a *Accident) CanClose() error {
	if a.ClosedCase {
		return dErrors.New(dErrors.CodeConflict, "accident case is already closed")
	}
	return nil
}

func (a *Accident) ApplyClose(now time.Time) {
	a.ClosedCase = true
	a.UpdatedAt = now
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
