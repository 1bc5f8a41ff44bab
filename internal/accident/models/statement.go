package models

import (
	"strings"
	"time"

	ledger "amicable/internal/ledger/models"
	"amicable/pkg/domain"
	dErrors "amicable/pkg/domain-errors"
)

// Phase is derived, never stored.
type Phase string

const (
	PhaseStub   Phase = "stub"
	PhaseEdited Phase = "edited"
	PhaseDone   Phase = "done"
)

// Incomplete statement sub-reasons, in the order Complete checks them.
const (
	ReasonNoOtherDriver   = "no_other_driver"
	ReasonMissingCause    = "missing_cause"
	ReasonMissingComments = "missing_comments"
	ReasonMissingImage    = "missing_image"
	ReasonMissingSketch   = "missing_sketch"
)

// Statement is one driver's declaration about an accident.
//
// Invariants:
//   - At most one statement per (AccidentID, UserID)
//   - Only the owning user mutates it
//   - Done flips false -> true once and never back; a done statement is frozen
//   - Never deleted except by accident cascade
type Statement struct {
	ID          domain.StatementID `json:"id"`
	AccidentID  domain.AccidentID  `json:"accident_id"`
	UserID      domain.UserID      `json:"user_id"`
	UserEmail   string             `json:"user_email"`
	VehicleID   domain.VehicleID   `json:"vehicle_id"`
	InsuranceID domain.InsuranceID `json:"insurance_id"`
	RoleID      domain.RoleID      `json:"role_id"`
	Cause       Cause              `json:"caused_by"`
	Comments    string             `json:"comments"`
	CarDamage   *string            `json:"car_damage"`
	Done        bool               `json:"done"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// NewStatement admits a driver with vehicle v into the accident. v must carry
// the driver's current role and an insurance.
func NewStatement(accidentID domain.AccidentID, driver domain.Principal, v *ledger.Vehicle, now time.Time) (*Statement, error) {
	if v == nil || v.Role == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "statement requires a vehicle role")
	}
	if v.Insurance == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "statement requires an insurance")
	}
	if driver.UserID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "statement requires a user")
	}
	return &Statement{
		AccidentID:  accidentID,
		UserID:      driver.UserID,
		UserEmail:   driver.NormalizedEmail(),
		VehicleID:   v.ID,
		InsuranceID: v.Insurance.ID,
		RoleID:      v.Role.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *Statement) Phase() Phase {
	switch {
	case s.Done:
		return PhaseDone
	case s.Cause.IsSet() || s.Comments != "":
		return PhaseEdited
	default:
		return PhaseStub
	}
}

// CanEdit rejects any change to a done statement.
func (s *Statement) CanEdit() error {
	if s.Done {
		return dErrors.New(dErrors.CodeAlreadyCompleted, "statement is already completed")
	}
	return nil
}

// ApplyUpdate overwrites the fields that are provided.
func (s *Statement) ApplyUpdate(cause *Cause, comments *string, now time.Time) {
	if cause != nil {
		s.Cause = *cause
	}
	if comments != nil {
		s.Comments = strings.TrimSpace(*comments)
	}
	s.UpdatedAt = now
}

func (s *Statement) ApplyDamage(carDamage string, now time.Time) {
	v := strings.TrimSpace(carDamage)
	s.CarDamage = &v
	s.UpdatedAt = now
}

// CheckDeclared verifies the driver's own declaration is filled in.
func (s *Statement) CheckDeclared() error {
	if !s.Cause.IsSet() {
		return dErrors.NewWithReason(dErrors.CodeIncompleteStatement, ReasonMissingCause, "caused_by is not set")
	}
	if strings.TrimSpace(s.Comments) == "" {
		return dErrors.NewWithReason(dErrors.CodeIncompleteStatement, ReasonMissingComments, "comments are empty")
	}
	return nil
}

func (s *Statement) ApplyComplete(now time.Time) {
	s.Done = true
	s.UpdatedAt = now
}
