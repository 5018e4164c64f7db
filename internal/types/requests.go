package types

import (
	"github.com/go-playground/validator/v10"
)

// CreateSessionRequest starts an application session for a profile against a
// posting URL.
type CreateSessionRequest struct {
	ProfileID string `json:"profile_id" validate:"required,uuid4"`
	URL       string `json:"url" validate:"required,url"`
}

// AutofillRequest optionally pins the resume to fill from. Empty uses the
// session's previous selection or the analyze recommendation.
type AutofillRequest struct {
	ResumeID string `json:"resume_id,omitempty" validate:"omitempty,uuid4"`
}

// ConfirmRequest optionally carries the page text to match against the
// configured phrases. Empty reads the live page instead.
type ConfirmRequest struct {
	PageText string `json:"page_text,omitempty"`
}

// ConfirmationPhrasesRequest replaces the configured submission phrases.
type ConfirmationPhrasesRequest struct {
	Phrases []string `json:"phrases" validate:"required,min=1,dive,min=1"`
}

// Validate validates the CreateSessionRequest using the validator.
func (r *CreateSessionRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the AutofillRequest using the validator.
func (r *AutofillRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the ConfirmationPhrasesRequest using the validator.
func (r *ConfirmationPhrasesRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
