package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/applypilot/internal/session"
	"github.com/jonathan/applypilot/internal/types"
)

type stubSessions struct {
	session  *types.ApplicationSession
	analyze  *types.AnalyzeResult
	outcome  *session.FillOutcome
	confirm  *session.ConfirmOutcome
	shot     []byte
	err      error
	lastURL  string
	lastID   uuid.UUID
	resumeID uuid.UUID
	pageText string
}

func (f *stubSessions) Start(_ context.Context, profileID uuid.UUID, url string) (*types.ApplicationSession, error) {
	f.lastURL = url
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *stubSessions) Get(_ context.Context, id uuid.UUID) (*types.ApplicationSession, error) {
	f.lastID = id
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *stubSessions) Analyze(_ context.Context, id uuid.UUID) (*types.AnalyzeResult, error) {
	f.lastID = id
	if f.err != nil {
		return nil, f.err
	}
	return f.analyze, nil
}

func (f *stubSessions) Autofill(_ context.Context, id, resumeID uuid.UUID) (*session.FillOutcome, error) {
	f.lastID = id
	f.resumeID = resumeID
	if f.err != nil {
		return nil, f.err
	}
	return f.outcome, nil
}

func (f *stubSessions) Confirm(_ context.Context, id uuid.UUID, pageText string) (*session.ConfirmOutcome, error) {
	f.lastID = id
	f.pageText = pageText
	if f.err != nil {
		return nil, f.err
	}
	return f.confirm, nil
}

func (f *stubSessions) Screenshot(_ context.Context, id uuid.UUID) ([]byte, error) {
	f.lastID = id
	if f.err != nil {
		return nil, f.err
	}
	return f.shot, nil
}

type stubStore struct {
	phrases []string
	events  []types.AuditEvent
	setErr  error
}

func (f *stubStore) ListConfirmationPhrases(_ context.Context) ([]string, error) {
	return f.phrases, nil
}

func (f *stubStore) SetConfirmationPhrases(_ context.Context, phrases []string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.phrases = phrases
	return nil
}

func (f *stubStore) ListAuditEvents(_ context.Context, _ uuid.UUID) ([]types.AuditEvent, error) {
	return f.events, nil
}

func testServer(sessions sessionAPI, store configStore) *Server {
	return newServer(sessions, store)
}

func TestHandleHealth(t *testing.T) {
	srv := testServer(&stubSessions{}, &stubStore{})

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestHandleCreateSession(t *testing.T) {
	sess := &types.ApplicationSession{ID: uuid.New(), Status: types.StatusOpen}
	stub := &stubSessions{session: sess}
	srv := testServer(stub, &stubStore{})

	body := fmt.Sprintf(`{"profile_id": %q, "url": "https://jobs.example.com/1"}`, uuid.New())
	req := httptest.NewRequest("POST", "/sessions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "https://jobs.example.com/1", stub.lastURL)

	var got types.ApplicationSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, sess.ID, got.ID)
}

func TestHandleCreateSession_Validation(t *testing.T) {
	srv := testServer(&stubSessions{}, &stubStore{})

	cases := []string{
		`{}`,
		`{"profile_id": "not-a-uuid", "url": "https://x.example"}`,
		fmt.Sprintf(`{"profile_id": %q, "url": "not a url"}`, uuid.New()),
		`{bad json`,
	}
	for _, body := range cases {
		req := httptest.NewRequest("POST", "/sessions", strings.NewReader(body))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", body)
	}
}

func TestHandleCreateSession_UnknownProfile(t *testing.T) {
	stub := &stubSessions{err: fmt.Errorf("profile x: %w", session.ErrNotFound)}
	srv := testServer(stub, &stubStore{})

	body := fmt.Sprintf(`{"profile_id": %q, "url": "https://jobs.example.com/1"}`, uuid.New())
	req := httptest.NewRequest("POST", "/sessions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetSession_BadID(t *testing.T) {
	srv := testServer(&stubSessions{}, &stubStore{})

	req := httptest.NewRequest("GET", "/sessions/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAnalyze(t *testing.T) {
	resumeID := uuid.New()
	stub := &stubSessions{analyze: &types.AnalyzeResult{RecommendedResumeID: resumeID}}
	srv := testServer(stub, &stubStore{})

	id := uuid.New()
	req := httptest.NewRequest("POST", "/sessions/"+id.String()+"/analyze", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, stub.lastID)

	var got types.AnalyzeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, resumeID, got.RecommendedResumeID)
}

func TestHandleAnalyze_WrongState(t *testing.T) {
	stub := &stubSessions{err: fmt.Errorf("%w: analyzed -> analyzed", session.ErrInvalidTransition)}
	srv := testServer(stub, &stubStore{})

	req := httptest.NewRequest("POST", "/sessions/"+uuid.NewString()+"/analyze", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleAutofill_EmptyBody(t *testing.T) {
	stub := &stubSessions{outcome: &session.FillOutcome{Plan: &types.FillPlan{}}}
	srv := testServer(stub, &stubStore{})

	req := httptest.NewRequest("POST", "/sessions/"+uuid.NewString()+"/autofill", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uuid.Nil, stub.resumeID)
}

func TestHandleAutofill_PinsResume(t *testing.T) {
	stub := &stubSessions{outcome: &session.FillOutcome{Plan: &types.FillPlan{}}}
	srv := testServer(stub, &stubStore{})

	resumeID := uuid.New()
	body := fmt.Sprintf(`{"resume_id": %q}`, resumeID)
	req := httptest.NewRequest("POST", "/sessions/"+uuid.NewString()+"/autofill", bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, resumeID, stub.resumeID)
}

func TestHandleConfirm(t *testing.T) {
	stub := &stubSessions{confirm: &session.ConfirmOutcome{Confirmed: true, Phrase: "thanks"}}
	srv := testServer(stub, &stubStore{})

	req := httptest.NewRequest("POST", "/sessions/"+uuid.NewString()+"/confirm", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"confirmed":true`)
	assert.Empty(t, stub.pageText)
}

func TestHandleConfirm_PassesSuppliedPageText(t *testing.T) {
	stub := &stubSessions{confirm: &session.ConfirmOutcome{Confirmed: true, Phrase: "received"}}
	srv := testServer(stub, &stubStore{})

	body := `{"page_text": "Your application has been received."}`
	req := httptest.NewRequest("POST", "/sessions/"+uuid.NewString()+"/confirm", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Your application has been received.", stub.pageText)
}

func TestHandleScreenshot(t *testing.T) {
	stub := &stubSessions{shot: []byte("png-bytes")}
	srv := testServer(stub, &stubStore{})

	req := httptest.NewRequest("GET", "/sessions/"+uuid.NewString()+"/screenshot", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "png-bytes", rec.Body.String())
}

func TestHandleAudit(t *testing.T) {
	stub := &stubSessions{session: &types.ApplicationSession{ID: uuid.New()}}
	store := &stubStore{events: []types.AuditEvent{{ID: uuid.New()}}}
	srv := testServer(stub, store)

	req := httptest.NewRequest("GET", "/sessions/"+uuid.NewString()+"/audit", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []types.AuditEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 1)
}

func TestConfirmationPhrases_RoundTrip(t *testing.T) {
	store := &stubStore{}
	srv := testServer(&stubSessions{}, store)

	put := httptest.NewRequest("PUT", "/config/confirmation-phrases",
		strings.NewReader(`{"phrases": ["application received", "thank you for applying"]}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, put)
	require.Equal(t, http.StatusOK, rec.Code)

	get := httptest.NewRequest("GET", "/config/confirmation-phrases", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, get)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []string{"application received", "thank you for applying"}, got["phrases"])
}

func TestConfirmationPhrases_Validation(t *testing.T) {
	srv := testServer(&stubSessions{}, &stubStore{})

	for _, body := range []string{`{}`, `{"phrases": []}`, `{"phrases": [""]}`} {
		req := httptest.NewRequest("PUT", "/config/confirmation-phrases", strings.NewReader(body))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", body)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := testServer(&stubSessions{}, &stubStore{})

	req := httptest.NewRequest("OPTIONS", "/sessions", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitOnSessionCreation(t *testing.T) {
	sess := &types.ApplicationSession{ID: uuid.New(), Status: types.StatusOpen}
	srv := testServer(&stubSessions{session: sess}, &stubStore{})
	body := fmt.Sprintf(`{"profile_id": %q, "url": "https://jobs.example.com/1"}`, uuid.New())

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("POST", "/sessions", strings.NewReader(body))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, "request %d", i)
		assert.Equal(t, "30", rec.Header().Get("X-RateLimit-Limit"))
	}

	req := httptest.NewRequest("POST", "/sessions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limit_exceeded")
}
