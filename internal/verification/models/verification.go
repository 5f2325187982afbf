package models

import (
	"time"

	id "phasegate/pkg/domain"
	dErrors "phasegate/pkg/domain-errors"
)

// Verification is one (profile, vtype) record.
//
// Invariants:
//   - At most one record exists per (ProfileID, Type); the store enforces it
//   - APPROVED is never left once reached
//   - VerifiedBy nil with Status APPROVED means the system approved it
type Verification struct {
	ID          id.VerificationID `json:"id"`
	ProfileID   id.ProfileID      `json:"profile_id"`
	Type        VerificationType  `json:"vtype"`
	Status      Status            `json:"status"`
	SubmittedAt *time.Time        `json:"submitted_at,omitempty"`
	VerifiedAt  *time.Time        `json:"verified_at,omitempty"`
	VerifiedBy  *id.ProfileID     `json:"verified_by,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (v *Verification) IsApproved() bool {
	return v.Status == StatusApproved
}

// CanMarkSubmitted reports whether the record may move to SUBMITTED.
// An approved record is left alone; callers treat that as a no-op.
func (v *Verification) CanMarkSubmitted() bool {
	return v.Status.CanTransitionTo(StatusSubmitted)
}

// ApplySubmitted moves the record to SUBMITTED, stamps the submission time and
// clears any earlier rejection. Call CanMarkSubmitted first.
func (v *Verification) ApplySubmitted(now time.Time) {
	v.Status = StatusSubmitted
	v.SubmittedAt = &now
	v.VerifiedAt = nil
	v.VerifiedBy = nil
	v.UpdatedAt = now
}

// CanDecide validates an admin decision against the current state.
// It returns noop=true when the record is already approved and the decision
// is APPROVED again.
func (v *Verification) CanDecide(decision Status) (noop bool, err error) {
	if decision != StatusApproved && decision != StatusRejected {
		return false, dErrors.New(dErrors.CodeInvalidInput, "decision must be APPROVED or REJECTED")
	}
	if v.IsApproved() {
		if decision == StatusApproved {
			return true, nil
		}
		return false, dErrors.New(dErrors.CodeConflict, "verification is already approved")
	}
	return false, nil
}

// ApplyDecision stamps the decision, the deciding admin and the decision time.
// Call CanDecide first.
func (v *Verification) ApplyDecision(decision Status, actor id.ProfileID, now time.Time) {
	v.Status = decision
	v.VerifiedAt = &now
	v.VerifiedBy = &actor
	v.UpdatedAt = now
}

// ApplyAutomaticApproval marks the record approved by its own subject, as
// happens when a phone code is confirmed.
func (v *Verification) ApplyAutomaticApproval(now time.Time) {
	subject := v.ProfileID
	v.Status = StatusApproved
	v.VerifiedAt = &now
	v.VerifiedBy = &subject
	v.UpdatedAt = now
}

// Seed is the initial state of one record created at bootstrap.
type Seed struct {
	Type   VerificationType
	Status Status
}

var employerSeeds = []Seed{
	{Type: TypeEmailDomain, Status: StatusApproved},
	{Type: TypeWebsite, Status: StatusPending},
	{Type: TypeEINLast4, Status: StatusPending},
	{Type: TypeSOSRegistration, Status: StatusPending},
	{Type: TypeManualReview, Status: StatusPending},
}

var candidateSeeds = []Seed{
	{Type: TypeGovID, Status: StatusPending},
	{Type: TypePhone, Status: StatusPending},
	{Type: TypeManualReview, Status: StatusPending},
}

// SeedsFor returns the records created when a profile of role is bootstrapped.
// An APPROVED seed is approved by the system (VerifiedBy nil).
func SeedsFor(role id.Role) []Seed {
	switch role {
	case id.RoleEmployer:
		return append([]Seed(nil), employerSeeds...)
	case id.RoleCandidate:
		return append([]Seed(nil), candidateSeeds...)
	default:
		return nil
	}
}

// NewSeeded builds the record for one seed.
func NewSeeded(recordID id.VerificationID, profileID id.ProfileID, seed Seed, now time.Time) *Verification {
	v := &Verification{
		ID:        recordID,
		ProfileID: profileID,
		Type:      seed.Type,
		Status:    seed.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if seed.Status == StatusApproved {
		v.VerifiedAt = &now
	}
	return v
}
