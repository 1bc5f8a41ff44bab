package models

import (
	"strings"
	"time"

	dErrors "amicable/pkg/domain-errors"
	pstrings "amicable/pkg/platform/strings"
)

const (
	maxNameLength   = 255
	maxEmailLength  = 254
	maxSignLength   = 32
	maxNumberLength = 64
	maxSketchPoints = 10000
)

// CreateAccidentRequest is the body of POST /vehicles/{vehicle_id}.
type CreateAccidentRequest struct {
	Date         string  `json:"date"`
	City         string  `json:"city"`
	Address      string  `json:"address"`
	Injuries     *string `json:"injuries,omitempty"`
	RoadProblems *string `json:"road_problems,omitempty"`

	parsedDate time.Time
}

func (r *CreateAccidentRequest) Normalize() {
	if r == nil {
		return
	}
	r.Date = strings.TrimSpace(r.Date)
	r.City = strings.TrimSpace(r.City)
	r.Address = strings.TrimSpace(r.Address)
}

// Follows validation order: Size -> Required -> Syntax.
func (r *CreateAccidentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.City) > maxLocationLength || len(r.Address) > maxLocationLength {
		return dErrors.New(dErrors.CodeValidation, "city and address must be 256 characters or less")
	}
	if (r.Injuries != nil && len(*r.Injuries) > maxNoteLength) || (r.RoadProblems != nil && len(*r.RoadProblems) > maxNoteLength) {
		return dErrors.New(dErrors.CodeValidation, "injuries and road_problems must be 2000 characters or less")
	}
	if r.Date == "" {
		return dErrors.New(dErrors.CodeValidation, "date is required")
	}
	if r.City == "" || r.Address == "" {
		return dErrors.New(dErrors.CodeValidation, "city and address are required")
	}
	d, err := ParseAccidentDate(r.Date)
	if err != nil {
		return err
	}
	r.parsedDate = d
	return nil
}

// ParsedDate is set by Validate.
func (r *CreateAccidentRequest) ParsedDate() time.Time { return r.parsedDate }

// ParseAccidentDate accepts a calendar date (2006-01-02) or an RFC 3339
// timestamp. A timestamp keeps the calendar day of its own offset, returned
// as UTC midnight.
func ParseAccidentDate(s string) (time.Time, error) {
	if d, err := time.Parse(time.DateOnly, s); err == nil {
		return d, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, dErrors.New(dErrors.CodeValidation, "date must be YYYY-MM-DD or RFC 3339")
}

// AddDriverRequest names a party to invite.
type AddDriverRequest struct {
	DriverFullName  string `json:"driver_full_name"`
	DriverEmail     string `json:"driver_email"`
	VehicleSign     string `json:"vehicle_sign"`
	InsuranceNumber string `json:"insurance_number"`
	InsuranceEmail  string `json:"insurance_email"`
}

func (r *AddDriverRequest) Normalize() {
	if r == nil {
		return
	}
	r.DriverFullName = pstrings.CollapseSpaces(strings.TrimSpace(r.DriverFullName))
	r.DriverEmail = strings.TrimSpace(r.DriverEmail)
	r.VehicleSign = strings.TrimSpace(r.VehicleSign)
	r.InsuranceNumber = strings.TrimSpace(r.InsuranceNumber)
	r.InsuranceEmail = strings.TrimSpace(r.InsuranceEmail)
}

// Follows validation order: Size -> Required -> Syntax.
func (r *AddDriverRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.DriverFullName) > maxNameLength {
		return dErrors.New(dErrors.CodeValidation, "driver_full_name must be 255 characters or less")
	}
	if len(r.DriverEmail) > maxEmailLength || len(r.InsuranceEmail) > maxEmailLength {
		return dErrors.New(dErrors.CodeValidation, "emails must be 254 characters or less")
	}
	if len(r.VehicleSign) > maxSignLength {
		return dErrors.New(dErrors.CodeValidation, "vehicle_sign must be 32 characters or less")
	}
	if len(r.InsuranceNumber) > maxNumberLength {
		return dErrors.New(dErrors.CodeValidation, "insurance_number must be 64 characters or less")
	}

	if r.DriverFullName == "" || r.DriverEmail == "" || r.VehicleSign == "" || r.InsuranceNumber == "" || r.InsuranceEmail == "" {
		return dErrors.New(dErrors.CodeValidation, "driver_full_name, driver_email, vehicle_sign, insurance_number and insurance_email are required")
	}

	if !looksLikeEmail(r.DriverEmail) {
		return dErrors.New(dErrors.CodeValidation, "driver_email is not a valid email")
	}
	if !looksLikeEmail(r.InsuranceEmail) {
		return dErrors.New(dErrors.CodeValidation, "insurance_email is not a valid email")
	}
	return nil
}

// StatementRequest carries the optional driver fields of add-statement and
// update. Absent fields are left untouched.
type StatementRequest struct {
	CausedBy *string `json:"caused_by,omitempty"`
	Comments *string `json:"comments,omitempty"`

	cause *Cause
}

func (r *StatementRequest) Normalize() {
	if r == nil {
		return
	}
	if r.CausedBy != nil {
		v := strings.TrimSpace(*r.CausedBy)
		r.CausedBy = &v
	}
	if r.Comments != nil {
		v := strings.TrimSpace(*r.Comments)
		r.Comments = &v
	}
}

// Validate checks shape before anything reaches storage. requireField makes
// an empty body an error, as update needs something to change.
func (r *StatementRequest) Validate(requireField bool) error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Comments != nil && len(*r.Comments) > maxNoteLength {
		return dErrors.New(dErrors.CodeInvalidUpdatePayload, "comments must be 2000 characters or less")
	}
	if requireField && r.CausedBy == nil && r.Comments == nil {
		return dErrors.New(dErrors.CodeInvalidUpdatePayload, "caused_by or comments is required")
	}
	if r.CausedBy != nil {
		c, err := ParseCause(*r.CausedBy)
		if err != nil {
			return err
		}
		r.cause = &c
	}
	return nil
}

// Cause is the parsed caused_by, or nil when absent. Set by Validate.
func (r *StatementRequest) Cause() *Cause { return r.cause }

// DamageRequest is the body of the damage detection update.
type DamageRequest struct {
	CarDamage *string `json:"car_damage"`
}

func (r *DamageRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.CarDamage == nil {
		return dErrors.New(dErrors.CodeInvalidUpdatePayload, "car_damage is required")
	}
	if len(*r.CarDamage) > maxNoteLength {
		return dErrors.New(dErrors.CodeInvalidUpdatePayload, "car_damage must be 2000 characters or less")
	}
	return nil
}

// SketchRequest carries the full ordered point list.
type SketchRequest struct {
	Points []Point `json:"points"`
}

func (r *SketchRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.Points) > maxSketchPoints {
		return dErrors.New(dErrors.CodeValidation, "sketch has too many points")
	}
	if r.Points == nil {
		return dErrors.New(dErrors.CodeValidation, "points are required")
	}
	return nil
}

func looksLikeEmail(s string) bool {
	at := strings.LastIndex(s, "@")
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t\r\n")
}
