package types

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the state of one application attempt.
type SessionStatus string

// Session states. Transitions only move forward: open -> analyzed -> filled -> submitted.
const (
	StatusOpen      SessionStatus = "open"
	StatusAnalyzed  SessionStatus = "analyzed"
	StatusFilled    SessionStatus = "filled"
	StatusSubmitted SessionStatus = "submitted"
)

// ApplicationSession models one attempt to apply to one posting for one profile.
// The remote-browser resource backing the session is owned by the session
// manager for the session's lifetime.
type ApplicationSession struct {
	ID                  uuid.UUID     `json:"id"`
	ProfileID           uuid.UUID     `json:"profile_id"`
	URL                 string        `json:"url"`
	Status              SessionStatus `json:"status"`
	RecommendedResumeID uuid.UUID     `json:"recommended_resume_id,omitempty"`
	SelectedResumeID    uuid.UUID     `json:"selected_resume_id,omitempty"`
	JobContext          string        `json:"job_context,omitempty"`
	FillPlan            *FillPlan     `json:"fill_plan,omitempty"`
	StartedAt           time.Time     `json:"started_at"`
	EndedAt             *time.Time    `json:"ended_at,omitempty"`
}

// ResumeScore is one entry of a ranked resume list. Scores are 0-1.
type ResumeScore struct {
	ResumeID uuid.UUID `json:"resume_id"`
	Score    float64   `json:"score"`
	Notes    string    `json:"notes,omitempty"`
}

// AnalyzeResult is the outcome of the analyze transition.
type AnalyzeResult struct {
	RecommendedResumeID uuid.UUID     `json:"recommended_resume_id,omitempty"`
	Alternatives        []ResumeScore `json:"alternatives"`
	JobContext          string        `json:"job_context,omitempty"`
}

// AuditEvent records one autofill run against a session for later review.
type AuditEvent struct {
	ID        uuid.UUID        `json:"id"`
	SessionID uuid.UUID        `json:"session_id"`
	Plan      *FillPlan        `json:"plan"`
	Result    *ExecutionResult `json:"result,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
