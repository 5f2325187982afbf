package models

import (
	"time"

	id "phasegate/pkg/domain"
)

// MaxMessageLength bounds the optional outreach message, in characters.
const MaxMessageLength = 2000

// Record is one contact from an employer to a candidate. At most one exists
// per (employer, candidate) pair.
type Record struct {
	ID                 id.OutreachID `json:"id"`
	EmployerProfileID  id.ProfileID  `json:"employer_profile_id"`
	CandidateProfileID id.ProfileID  `json:"candidate_profile_id"`
	Message            string        `json:"message,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
}

// CandidateView is a candidate as listed to an Explore-tier employer.
type CandidateView struct {
	ProfileID           id.ProfileID   `json:"profileId"`
	CandidateID         id.CandidateID `json:"candidateId"`
	FullName            string         `json:"fullName"`
	EligibleForOutreach bool           `json:"eligibleForOutreach"`
}
