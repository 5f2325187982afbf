package handler

import (
	"phasegate/internal/verification/models"
)

// SubmitRequest is the body of POST /verification/submit.
type SubmitRequest struct {
	VType string `json:"vtype" validate:"required,max=32"`
	Value string `json:"value" validate:"required,max=512"`

	parsedType models.VerificationType
}

// Validate parses vtype. Value checks belong to the service since they
// depend on the vtype.
func (r *SubmitRequest) Validate() error {
	vtype, err := models.ParseVerificationType(r.VType)
	if err != nil {
		return err
	}
	r.parsedType = vtype
	return nil
}
