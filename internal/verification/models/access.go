package models

import (
	id "phasegate/pkg/domain"
)

// StatusMap is a profile's record statuses keyed by vtype.
type StatusMap map[VerificationType]Status

// Get returns the status for t. Types without a record count as PENDING.
func (m StatusMap) Get(t VerificationType) Status {
	if s, ok := m[t]; ok {
		return s
	}
	return StatusPending
}

// StatusMapOf indexes records by vtype.
func StatusMapOf(records []*Verification) StatusMap {
	m := make(StatusMap, len(records))
	for _, r := range records {
		m[r.Type] = r.Status
	}
	return m
}

// Access is the capability set derived from a profile's statuses.
// Employer flags are false for candidates and vice versa.
type Access struct {
	Role                id.Role `json:"role"`
	CanExplore          bool    `json:"canExplore"`
	CanEngage           bool    `json:"canEngage"`
	EligibleForOutreach bool    `json:"eligibleForOutreach"`
}

// DeriveAccess computes capabilities from statuses. It is pure: the same
// inputs always give the same result, and every gated action calls it with
// freshly loaded statuses.
//
// Employer: Explore needs EMAIL_DOMAIN approved and MANUAL_REVIEW pending or
// approved (a rejected review revokes it). Engage additionally needs
// EIN_LAST4 and SOS_REGISTRATION approved.
//
// Candidate: eligible for outreach once PHONE is approved.
func DeriveAccess(role id.Role, statuses StatusMap) Access {
	access := Access{Role: role}
	switch role {
	case id.RoleEmployer:
		review := statuses.Get(TypeManualReview)
		access.CanExplore = statuses.Get(TypeEmailDomain) == StatusApproved &&
			(review == StatusPending || review == StatusApproved)
		access.CanEngage = access.CanExplore &&
			statuses.Get(TypeEINLast4) == StatusApproved &&
			statuses.Get(TypeSOSRegistration) == StatusApproved
	case id.RoleCandidate:
		access.EligibleForOutreach = statuses.Get(TypePhone) == StatusApproved
	}
	return access
}
