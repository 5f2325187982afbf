package models

import (
	"strings"

	dErrors "phasegate/pkg/domain-errors"
)

// VerificationType (vtype) names one verification step.
type VerificationType string

const (
	TypeEmailDomain     VerificationType = "EMAIL_DOMAIN"
	TypeWebsite         VerificationType = "WEBSITE"
	TypeEINLast4        VerificationType = "EIN_LAST4"
	TypeSOSRegistration VerificationType = "SOS_REGISTRATION"
	TypeManualReview    VerificationType = "MANUAL_REVIEW"
	TypeGovID           VerificationType = "GOV_ID"
	TypePhone           VerificationType = "PHONE"
)

var knownTypes = map[VerificationType]struct{}{
	TypeEmailDomain:     {},
	TypeWebsite:         {},
	TypeEINLast4:        {},
	TypeSOSRegistration: {},
	TypeManualReview:    {},
	TypeGovID:           {},
	TypePhone:           {},
}

// ParseVerificationType accepts any known vtype, case-insensitively.
func ParseVerificationType(s string) (VerificationType, error) {
	t := VerificationType(strings.ToUpper(strings.TrimSpace(s)))
	if t == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "vtype is required")
	}
	if _, ok := knownTypes[t]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown vtype")
	}
	return t, nil
}

func (t VerificationType) String() string { return string(t) }

// Status is the lifecycle state of a verification record.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSubmitted Status = "SUBMITTED"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSubmitted, StatusApproved, StatusRejected:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// CanTransitionTo reports whether a record in s may move to next.
// APPROVED is terminal. Re-entering SUBMITTED or REJECTED restamps the record.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending, StatusSubmitted, StatusRejected:
		return next == StatusSubmitted || next == StatusApproved || next == StatusRejected
	default:
		return false
	}
}

// ParseDecision accepts APPROVED or REJECTED, case-insensitively.
func ParseDecision(s string) (Status, error) {
	d := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch d {
	case StatusApproved, StatusRejected:
		return d, nil
	case "":
		return "", dErrors.New(dErrors.CodeInvalidInput, "decision is required")
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "decision must be APPROVED or REJECTED")
	}
}
