package models

import (
	"strings"
	"time"

	id "phasegate/pkg/domain"
	dErrors "phasegate/pkg/domain-errors"
)

// DefaultCandidateName is used when a candidate bootstraps without a name.
const DefaultCandidateName = "New Candidate"

// Profile is the marketplace identity of an identity provider subject.
//
// Invariants:
//   - ID equals the token subject
//   - Role is fixed by the first bootstrap and never changes
type Profile struct {
	ID        id.ProfileID `json:"id"`
	Role      id.Role      `json:"role"`
	Email     string       `json:"email"`
	IsAdmin   bool         `json:"is_admin"`
	CreatedAt time.Time    `json:"created_at"`
}

// Employer is the role entity of an employer profile. One per profile.
type Employer struct {
	ID           id.EmployerID `json:"id"`
	ProfileID    id.ProfileID  `json:"profile_id"`
	CompanyName  string        `json:"company_name"`
	CompanyEmail string        `json:"company_email"`
	EmailDomain  string        `json:"email_domain"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Candidate is the role entity of a candidate profile. One per profile.
type Candidate struct {
	ID        id.CandidateID `json:"id"`
	ProfileID id.ProfileID   `json:"profile_id"`
	FullName  string         `json:"full_name"`
	CreatedAt time.Time      `json:"created_at"`
}

// EmailDomain returns the lower-cased part after the last '@'.
func EmailDomain(email string) (string, error) {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "a valid email is required")
	}
	return strings.ToLower(email[at+1:]), nil
}
