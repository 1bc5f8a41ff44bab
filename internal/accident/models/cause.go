package models

import (
	"encoding/json"

	dErrors "amicable/pkg/domain-errors"
)

// causes lists every accepted value, in the order the paper form lists them.
var causes = []string{
	"hit when was parked",
	"hit when was exiting parking spot",
	"was entering parking spot",
	"while was parking",
	"had door open",
	"was entering traffic circle",
	"was driving traffic circle",
	"rear-end vehicle accident while was driving in the same lane",
	"accident while was driving in the different lane",
	"changed lane",
	"overtook",
	"turnt left",
	"turnt right",
	"went backwards",
	"went wrong direction",
	"drove on the right in the cross junction",
	"ignored sign",
	"ignored red light",
}

var causeSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(causes))
	for _, c := range causes {
		m[c] = struct{}{}
	}
	return m
}()

// Cause is what the driver declares caused the accident. The zero value is
// "not declared yet"; it encodes to JSON null and is stored as NULL.
type Cause struct {
	value string
}

// ParseCause accepts only the enumerated values.
func ParseCause(s string) (Cause, error) {
	if _, ok := causeSet[s]; !ok {
		return Cause{}, dErrors.New(dErrors.CodeInvalidUpdatePayload, "unknown caused_by value")
	}
	return Cause{value: s}, nil
}

// CauseFromStore rebuilds a Cause read back from storage. Unknown values
// come back unset so a bad row cannot satisfy the completion check.
func CauseFromStore(s *string) Cause {
	if s == nil {
		return Cause{}
	}
	c, err := ParseCause(*s)
	if err != nil {
		return Cause{}
	}
	return c
}

// Causes returns a copy of the accepted values.
func Causes() []string {
	return append([]string(nil), causes...)
}

func (c Cause) IsSet() bool { return c.value != "" }

func (c Cause) String() string { return c.value }

// Stored returns the nullable column value.
func (c Cause) Stored() *string {
	if !c.IsSet() {
		return nil
	}
	v := c.value
	return &v
}

func (c Cause) MarshalJSON() ([]byte, error) {
	if !c.IsSet() {
		return []byte("null"), nil
	}
	return json.Marshal(c.value)
}

func (c *Cause) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return dErrors.New(dErrors.CodeInvalidUpdatePayload, "caused_by must be a string")
	}
	if s == nil {
		*c = Cause{}
		return nil
	}
	parsed, err := ParseCause(*s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
