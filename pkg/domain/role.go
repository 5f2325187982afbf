package domain

import (
	"strings"

	dErrors "phasegate/pkg/domain-errors"
)

// Role is the closed set of marketplace actors. A profile's role is fixed the
// first time it is written.
//
// Usage: construct via ParseRole at trust boundaries; switch statements over
// Role should list both values so a new role fails loudly in review.
type Role string

const (
	RoleEmployer  Role = "EMPLOYER"
	RoleCandidate Role = "CANDIDATE"
)

// ParseRole constructs a Role from external input. Matching is case-insensitive.
//
// Errors: CodeInvalidInput when the value is empty or not a recognized role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if r == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role is required")
	}
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
	return r, nil
}

func (r Role) IsValid() bool {
	switch r {
	case RoleEmployer, RoleCandidate:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}
