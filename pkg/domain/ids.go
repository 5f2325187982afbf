package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "phasegate/pkg/domain-errors"
)

// Typed identifiers keep profile, verification and role-entity ids from being
// interchanged. All of them are UUIDs on the wire and in storage.
type (
	ProfileID      uuid.UUID
	VerificationID uuid.UUID
	EvidenceID     uuid.UUID
	EmployerID     uuid.UUID
	CandidateID    uuid.UUID
	OutreachID     uuid.UUID
)

// maxIDLength bounds input before it reaches uuid.Parse. The longest accepted
// textual form is the 45 character urn:uuid: prefix variant.
const maxIDLength = 45

func parseID(kind, s string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	if len(s) > maxIDLength {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	return u, nil
}

// ParseProfileID parses a profile id received at a trust boundary.
// Errors: CodeInvalidInput for empty, malformed or nil UUIDs.
func ParseProfileID(s string) (ProfileID, error) {
	u, err := parseID("profile id", s)
	return ProfileID(u), err
}

// ParseVerificationID parses a verification record id.
func ParseVerificationID(s string) (VerificationID, error) {
	u, err := parseID("verification id", s)
	return VerificationID(u), err
}

func ParseEmployerID(s string) (EmployerID, error) {
	u, err := parseID("employer id", s)
	return EmployerID(u), err
}

func ParseCandidateID(s string) (CandidateID, error) {
	u, err := parseID("candidate id", s)
	return CandidateID(u), err
}

func (id ProfileID) String() string      { return uuid.UUID(id).String() }
func (id VerificationID) String() string { return uuid.UUID(id).String() }
func (id EvidenceID) String() string     { return uuid.UUID(id).String() }
func (id EmployerID) String() string     { return uuid.UUID(id).String() }
func (id CandidateID) String() string    { return uuid.UUID(id).String() }
func (id OutreachID) String() string     { return uuid.UUID(id).String() }

func (id ProfileID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id VerificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id EvidenceID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id EmployerID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id CandidateID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// Text marshaling keeps ids as canonical UUID strings in JSON payloads.

func (id ProfileID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id VerificationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id EvidenceID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id EmployerID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id CandidateID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id OutreachID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }

func (id *ProfileID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id *VerificationID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
