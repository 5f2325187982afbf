package handler

import (
	"time"

	"phasegate/internal/outreach/models"
	id "phasegate/pkg/domain"
)

// SendRequest is the body of POST /employer/outreach.
type SendRequest struct {
	CandidateProfileID string `json:"candidateProfileId" validate:"required"`
	Message            string `json:"message" validate:"max=2000"`

	candidateID id.ProfileID
}

func (r *SendRequest) Validate() error {
	candidateID, err := id.ParseProfileID(r.CandidateProfileID)
	if err != nil {
		return err
	}
	r.candidateID = candidateID
	return nil
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type CandidatesResponse struct {
	Candidates []models.CandidateView `json:"candidates"`
}

type OutreachResponse struct {
	ID                 string    `json:"id"`
	CandidateProfileID string    `json:"candidateProfileId"`
	Message            string    `json:"message,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

type HistoryResponse struct {
	Outreach []OutreachResponse `json:"outreach"`
}

func FromRecords(records []*models.Record) *HistoryResponse {
	out := &HistoryResponse{Outreach: make([]OutreachResponse, 0, len(records))}
	for _, rec := range records {
		out.Outreach = append(out.Outreach, OutreachResponse{
			ID:                 rec.ID.String(),
			CandidateProfileID: rec.CandidateProfileID.String(),
			Message:            rec.Message,
			CreatedAt:          rec.CreatedAt,
		})
	}
	return out
}
