package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/applypilot/internal/session"
	"github.com/jonathan/applypilot/internal/types"
)

// handleCreateSession opens a session: it provisions a browser, navigates to
// the posting, and returns the new session in the open state.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req types.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	profileID, err := uuid.Parse(req.ProfileID)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid profile_id")
		return
	}

	sess, err := s.sessions.Start(r.Context(), profileID, req.URL)
	if err != nil {
		s.sessionError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, sess)
}

// handleGetSession returns a session by ID.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	sess, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		s.sessionError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, sess)
}

// handleAnalyze runs the analyze transition and returns the resume
// recommendation.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	result, err := s.sessions.Analyze(r.Context(), id)
	if err != nil {
		s.sessionError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleAutofill builds and executes a fill plan against the session's page.
func (s *Server) handleAutofill(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	// The body is optional; an empty body fills from the recommended resume.
	var req types.AutofillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	resumeID := uuid.Nil
	if req.ResumeID != "" {
		parsed, err := uuid.Parse(req.ResumeID)
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, "Invalid resume_id")
			return
		}
		resumeID = parsed
	}

	outcome, err := s.sessions.Autofill(r.Context(), id, resumeID)
	if err != nil {
		s.sessionError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, outcome)
}

// handleConfirm checks for a configured confirmation phrase. The body may
// carry the page text to check; without one the live page is read. A
// non-match is a 200 with confirmed=false, not an error.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	var req types.ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	outcome, err := s.sessions.Confirm(r.Context(), id, req.PageText)
	if err != nil {
		s.sessionError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, outcome)
}

// handleScreenshot returns the session's current page as a PNG.
func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	shot, err := s.sessions.Screenshot(r.Context(), id)
	if err != nil {
		s.sessionError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(shot)
}

// handleAudit returns a session's autofill history.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	// Resolve the session first so unknown IDs get a 404 instead of an
	// empty list.
	if _, err := s.sessions.Get(r.Context(), id); err != nil {
		s.sessionError(w, err)
		return
	}
	events, err := s.store.ListAuditEvents(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []types.AuditEvent{}
	}
	s.jsonResponse(w, http.StatusOK, events)
}

// handleGetConfirmationPhrases returns the configured submission phrases.
func (s *Server) handleGetConfirmationPhrases(w http.ResponseWriter, r *http.Request) {
	phrases, err := s.store.ListConfirmationPhrases(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if phrases == nil {
		phrases = []string{}
	}
	s.jsonResponse(w, http.StatusOK, map[string][]string{"phrases": phrases})
}

// handlePutConfirmationPhrases replaces the configured submission phrases.
func (s *Server) handlePutConfirmationPhrases(w http.ResponseWriter, r *http.Request) {
	var req types.ConfirmationPhrasesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.SetConfirmationPhrases(r.Context(), req.Phrases); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string][]string{"phrases": req.Phrases})
}

// sessionID parses the path's session ID, writing a 400 on failure.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := r.PathValue("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid session ID")
		return uuid.Nil, false
	}
	return id, true
}

// sessionError maps manager errors onto HTTP statuses.
func (s *Server) sessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		s.errorResponse(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrInvalidTransition):
		s.errorResponse(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrNoResource):
		s.errorResponse(w, http.StatusConflict, err.Error())
	default:
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
	}
}
