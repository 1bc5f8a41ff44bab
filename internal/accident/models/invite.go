package models

import (
	"time"

	"amicable/pkg/domain"
	pstrings "amicable/pkg/platform/strings"
)

// TemporaryDriver is an invite naming a party who has not joined yet.
//
// Invariants:
//   - DriverEmail and InsuranceEmail are lower-cased; name, sign and
//     insurance number are upper-cased
//   - Per accident, at most one unanswered invite per email and per sign
//     (maintained by replace-on-add under the accident lock)
//   - Answered flips false -> true once, when the invitee submits a statement
type TemporaryDriver struct {
	ID              domain.InviteID   `json:"id"`
	AccidentID      domain.AccidentID `json:"accident_id"`
	DriverFullName  string            `json:"driver_full_name"`
	DriverEmail     string            `json:"driver_email"`
	VehicleSign     string            `json:"vehicle_sign"`
	InsuranceNumber string            `json:"insurance_number"`
	InsuranceEmail  string            `json:"insurance_email"`
	Answered        bool              `json:"answered"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// NewTemporaryDriver builds an invite from a validated request.
func NewTemporaryDriver(accidentID domain.AccidentID, req *AddDriverRequest, now time.Time) *TemporaryDriver {
	return &TemporaryDriver{
		AccidentID:      accidentID,
		DriverFullName:  pstrings.UpperTrim(pstrings.CollapseSpaces(req.DriverFullName)),
		DriverEmail:     domain.NormalizeEmail(req.DriverEmail),
		VehicleSign:     pstrings.UpperTrim(req.VehicleSign),
		InsuranceNumber: pstrings.UpperTrim(req.InsuranceNumber),
		InsuranceEmail:  domain.NormalizeEmail(req.InsuranceEmail),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (t *TemporaryDriver) ApplyAnswered(now time.Time) {
	t.Answered = true
	t.UpdatedAt = now
}
