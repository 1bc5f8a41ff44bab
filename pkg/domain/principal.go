package domain

import "strings"

// Principal is the caller identity resolved from a bearer credential.
type Principal struct {
	UserID    UserID `json:"id"`
	Email     string `json:"email"`
	IsAdmin   bool   `json:"is_admin"`
	IsActive  bool   `json:"is_active"`
	IsInsurer bool   `json:"is_insurer"`
}

// NormalizedEmail is the form used for every email comparison.
func (p Principal) NormalizedEmail() string {
	return NormalizeEmail(p.Email)
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
