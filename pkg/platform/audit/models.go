package audit

import (
	"time"

	id "phasegate/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// Sinks can route or retain categories differently.
type EventCategory string

const (
	// CategoryCompliance covers verification outcomes an operator may have to
	// justify later: approvals, rejections, phone verification.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers denied or throttled attempts.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity.
	CategoryOperations EventCategory = "operations"
)

type AuditEvent string

const (
	// Onboarding events
	EventProfileBootstrapped AuditEvent = "profile_bootstrapped"

	// Verification events
	EventVerificationSubmitted AuditEvent = "verification_submitted"
	EventVerificationApproved  AuditEvent = "verification_approved"
	EventVerificationRejected  AuditEvent = "verification_rejected"

	// Phone OTP events
	EventPhoneCodeSent      AuditEvent = "phone_code_sent"
	EventPhoneCodeThrottled AuditEvent = "phone_code_throttled"
	EventPhoneCodeFailed    AuditEvent = "phone_code_failed"
	EventPhoneVerified      AuditEvent = "phone_verified"

	// Outreach events
	EventOutreachSent   AuditEvent = "outreach_sent"
	EventOutreachDenied AuditEvent = "outreach_denied"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventVerificationApproved: CategoryCompliance,
	EventVerificationRejected: CategoryCompliance,
	EventPhoneVerified:        CategoryCompliance,

	EventPhoneCodeThrottled: CategorySecurity,
	EventPhoneCodeFailed:    CategorySecurity,
	EventOutreachDenied:     CategorySecurity,

	EventProfileBootstrapped:   CategoryOperations,
	EventVerificationSubmitted: CategoryOperations,
	EventPhoneCodeSent:         CategoryOperations,
	EventOutreachSent:          CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Category         EventCategory `json:"category"`
	Timestamp        time.Time     `json:"timestamp"`
	Action           AuditEvent    `json:"action"`
	ProfileID        id.ProfileID  `json:"profile_id"`
	VerificationType string        `json:"verification_type,omitempty"`
	// Subject is the entity acted upon when it is not the profile itself
	// (a verification record id, a contacted candidate).
	Subject  string `json:"subject,omitempty"`
	Decision string `json:"decision,omitempty"`
	Reason   string `json:"reason,omitempty"`
	// ActorID is set when someone other than ProfileID performed the action.
	ActorID     string `json:"actor_id,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
	ClientIP    string `json:"client_ip,omitempty"`
	DeviceLabel string `json:"device,omitempty"`
	TraceID     string `json:"trace_id,omitempty"`
}
