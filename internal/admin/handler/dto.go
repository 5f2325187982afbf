package handler

import (
	"time"

	vmodels "phasegate/internal/verification/models"
	id "phasegate/pkg/domain"
)

// DecisionRequest is the JSON or form body of a review decision.
type DecisionRequest struct {
	ID       string `json:"id" validate:"required"`
	Decision string `json:"decision" validate:"required,max=16"`

	recordID id.VerificationID
}

func (r *DecisionRequest) Validate() error {
	recordID, err := id.ParseVerificationID(r.ID)
	if err != nil {
		return err
	}
	r.recordID = recordID
	return nil
}

type OKResponse struct {
	OK bool `json:"ok"`
}

// QueueItem is one record awaiting review.
type QueueItem struct {
	ID          string     `json:"id"`
	ProfileID   string     `json:"profile_id"`
	VType       string     `json:"vtype"`
	Status      string     `json:"status"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type QueueResponse struct {
	Verifications []QueueItem `json:"verifications"`
}

func FromQueue(records []*vmodels.Verification) *QueueResponse {
	out := &QueueResponse{Verifications: make([]QueueItem, 0, len(records))}
	for _, v := range records {
		out.Verifications = append(out.Verifications, QueueItem{
			ID:          v.ID.String(),
			ProfileID:   v.ProfileID.String(),
			VType:       v.Type.String(),
			Status:      v.Status.String(),
			SubmittedAt: v.SubmittedAt,
			CreatedAt:   v.CreatedAt,
		})
	}
	return out
}
