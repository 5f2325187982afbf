package models

import (
	"time"

	id "phasegate/pkg/domain"
)

// EvidenceKind labels an evidence row. Document style submissions use the
// vtype itself as the kind.
type EvidenceKind string

const (
	EvidenceOTPRequest EvidenceKind = "OTP_REQUEST"
	EvidenceOTPVerify  EvidenceKind = "OTP_VERIFY"
	EvidenceOTPFailed  EvidenceKind = "OTP_FAILED"
)

// KindFor returns the evidence kind used for a document style submission.
func KindFor(t VerificationType) EvidenceKind {
	return EvidenceKind(t)
}

// Evidence is an append-only artifact attached to a verification record.
// Value is opaque text; Data holds structured fields (provider, sid, last4).
type Evidence struct {
	ID             id.EvidenceID     `json:"id"`
	VerificationID id.VerificationID `json:"verification_id"`
	Kind           EvidenceKind      `json:"kind"`
	Value          string            `json:"value,omitempty"`
	Data           map[string]string `json:"data,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Evidence data keys written by the phone OTP workflow.
const (
	DataProvider    = "provider"
	DataChannel     = "channel"
	DataSID         = "sid"
	DataLast4       = "last4"
	DataPhoneSealed = "phone_sealed"
	DataStatus      = "status"
)
