// Package domain holds typed identifiers shared across packages.
//
// All identifiers are positive integers assigned monotonically by the store.
// Statement ids double as the ordering key for the "earliest statement holder"
// rule, so they must never be reused or generated client side.
package domain

import (
	"strconv"
	"strings"

	dErrors "amicable/pkg/domain-errors"
)

type (
	UserID      int64
	AccidentID  int64
	StatementID int64
	InviteID    int64
	VehicleID   int64
	InsuranceID int64
	RoleID      int64
	ImageID     int64
	SketchID    int64
)

// maxIDLength bounds decimal input before strconv sees it.
const maxIDLength = 19

func parseID[T ~int64](s, kind string) (T, error) {
	if s == "" || len(s) > maxIDLength || strings.TrimSpace(s) != s {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	return T(n), nil
}

func ParseUserID(s string) (UserID, error)           { return parseID[UserID](s, "user id") }
func ParseAccidentID(s string) (AccidentID, error)   { return parseID[AccidentID](s, "accident id") }
func ParseStatementID(s string) (StatementID, error) { return parseID[StatementID](s, "statement id") }
func ParseInviteID(s string) (InviteID, error)       { return parseID[InviteID](s, "invite id") }
func ParseVehicleID(s string) (VehicleID, error)     { return parseID[VehicleID](s, "vehicle id") }
func ParseImageID(s string) (ImageID, error)         { return parseID[ImageID](s, "image id") }

func (id UserID) String() string      { return strconv.FormatInt(int64(id), 10) }
func (id AccidentID) String() string  { return strconv.FormatInt(int64(id), 10) }
func (id StatementID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id InviteID) String() string    { return strconv.FormatInt(int64(id), 10) }
func (id VehicleID) String() string   { return strconv.FormatInt(int64(id), 10) }
func (id ImageID) String() string     { return strconv.FormatInt(int64(id), 10) }

func (id UserID) IsNil() bool     { return id <= 0 }
func (id AccidentID) IsNil() bool { return id <= 0 }
