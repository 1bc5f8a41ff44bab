// Package models describes the vehicle/insurance ledger records the accident
// workflow reads. The ledger is owned by another service; nothing here mutates it.
package models

import (
	"time"

	"amicable/pkg/domain"
)

// RoleType is a user's relationship to a vehicle.
type RoleType string

const (
	RoleOwner      RoleType = "owner"
	RoleUser       RoleType = "user"
	RoleFormerUser RoleType = "not a user anymore"
)

// Current reports whether the role still grants use of the vehicle.
func (r RoleType) Current() bool {
	return r == RoleOwner || r == RoleUser
}

// Role is the latest (vehicle, user) role entry.
type Role struct {
	ID        domain.RoleID    `json:"id"`
	VehicleID domain.VehicleID `json:"vehicle_id"`
	UserID    domain.UserID    `json:"user_id"`
	Role      RoleType         `json:"role"`
}

// Insurance is one coverage interval. StartDate and ExpireDate are calendar
// dates at UTC midnight.
type Insurance struct {
	ID           domain.InsuranceID `json:"id"`
	VehicleID    domain.VehicleID   `json:"vehicle_id"`
	Number       string             `json:"number"`
	StartDate    time.Time          `json:"start_date"`
	ExpireDate   time.Time          `json:"expire_date"`
	CompanyID    int64              `json:"insurance_company_id,omitempty"`
	CompanyEmail string             `json:"insurance_company_email,omitempty"`
}

// Covers reports whether the calendar day of t lies in [StartDate, ExpireDate].
// Both bounds are inclusive.
func (i *Insurance) Covers(t time.Time) bool {
	day := Day(t)
	return !day.Before(Day(i.StartDate)) && !day.After(Day(i.ExpireDate))
}

// Day truncates t to the calendar date of its own location, as UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Vehicle is a vehicle as seen by one user: the user's latest role on it and
// its latest insurance (greatest expire date).
type Vehicle struct {
	ID              domain.VehicleID `json:"id"`
	Type            string           `json:"vehicle_type"`
	Model           string           `json:"model"`
	ManufactureYear int              `json:"manufacture_year,omitempty"`
	Sign            string           `json:"sign"`
	Role            *Role            `json:"role,omitempty"`
	Insurance       *Insurance       `json:"insurance,omitempty"`
}
