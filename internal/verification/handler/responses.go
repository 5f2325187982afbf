package handler

import (
	"time"

	"phasegate/internal/verification/models"
	"phasegate/internal/verification/service"
)

type OKResponse struct {
	OK bool `json:"ok"`
}

type VerificationResponse struct {
	ID          string     `json:"id"`
	VType       string     `json:"vtype"`
	Status      string     `json:"status"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
}

// ViewResponse is the body of GET /me/verifications.
type ViewResponse struct {
	Role          string                 `json:"role"`
	Verifications []VerificationResponse `json:"verifications"`
	Access        models.Access          `json:"access"`
}

func FromVerification(v *models.Verification) VerificationResponse {
	return VerificationResponse{
		ID:          v.ID.String(),
		VType:       v.Type.String(),
		Status:      v.Status.String(),
		SubmittedAt: v.SubmittedAt,
		VerifiedAt:  v.VerifiedAt,
	}
}

func FromView(view *service.View) *ViewResponse {
	out := &ViewResponse{
		Role:          view.Role.String(),
		Verifications: make([]VerificationResponse, 0, len(view.Verifications)),
		Access:        view.Access,
	}
	for _, v := range view.Verifications {
		out.Verifications = append(out.Verifications, FromVerification(v))
	}
	return out
}
