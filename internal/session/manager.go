package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/applypilot/internal/confirm"
	"github.com/jonathan/applypilot/internal/discovery"
	"github.com/jonathan/applypilot/internal/executor"
	"github.com/jonathan/applypilot/internal/llm"
	"github.com/jonathan/applypilot/internal/planner"
	"github.com/jonathan/applypilot/internal/ranking"
	"github.com/jonathan/applypilot/internal/types"
)

// ErrNotFound is returned when a session, profile, or resume does not exist.
var ErrNotFound = fmt.Errorf("not found")

// Store is the persistence surface the manager needs. The db package provides
// the Postgres implementation; tests provide an in-memory one.
type Store interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*types.Profile, error)
	ListResumes(ctx context.Context, profileID uuid.UUID) ([]types.Resume, error)

	CreateSession(ctx context.Context, s *types.ApplicationSession) error
	GetSession(ctx context.Context, id uuid.UUID) (*types.ApplicationSession, error)
	UpdateSession(ctx context.Context, s *types.ApplicationSession) error

	SaveAuditEvent(ctx context.Context, e *types.AuditEvent) error
	ListConfirmationPhrases(ctx context.Context) ([]string, error)
}

// FillOutcome bundles the plan that was built and what the executor actually
// managed to do with it.
type FillOutcome struct {
	Plan   *types.FillPlan        `json:"plan"`
	Result *types.ExecutionResult `json:"result"`
}

// ConfirmOutcome reports whether submission was confirmed and which phrase
// matched. Not-confirmed is a normal outcome, not an error.
type ConfirmOutcome struct {
	Confirmed bool   `json:"confirmed"`
	Phrase    string `json:"phrase,omitempty"`
}

// Manager owns session lifecycles: it provisions browser resources, drives
// the forward-only state machine, and persists state through the store.
type Manager struct {
	store       Store
	provisioner Provisioner
	registry    *Registry
	// scorer is optional. When absent, analysis falls back to keyword
	// ranking and plans carry no model-proposed actions.
	scorer llm.Scorer
}

// NewManager wires a manager. scorer may be nil.
func NewManager(store Store, provisioner Provisioner, scorer llm.Scorer) *Manager {
	return &Manager{
		store:       store,
		provisioner: provisioner,
		registry:    NewRegistry(),
		scorer:      scorer,
	}
}

// Start opens a session for a profile against a posting URL. The browser
// resource is provisioned and navigated up front so analyze can run
// immediately afterwards.
func (m *Manager) Start(ctx context.Context, profileID uuid.UUID, url string) (*types.ApplicationSession, error) {
	profile, err := m.store.GetProfile(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	if profile == nil {
		return nil, fmt.Errorf("profile %s: %w", profileID, ErrNotFound)
	}

	sess := &types.ApplicationSession{
		ID:        uuid.New(),
		ProfileID: profileID,
		URL:       url,
		Status:    types.StatusOpen,
		StartedAt: time.Now().UTC(),
	}

	res, err := m.provisioner.Provision(ctx)
	if err != nil {
		return nil, fmt.Errorf("provisioning browser: %w", err)
	}
	if err := res.Navigate(ctx, url); err != nil {
		if cerr := res.Close(ctx); cerr != nil {
			log.Printf("[session] closing resource after failed navigate: %v", cerr)
		}
		return nil, fmt.Errorf("navigating to %s: %w", url, err)
	}
	m.registry.Put(ctx, sess.ID, res)

	if err := m.store.CreateSession(ctx, sess); err != nil {
		m.registry.Release(ctx, sess.ID)
		return nil, fmt.Errorf("creating session: %w", err)
	}
	log.Printf("[session] started %s for profile %s", sess.ID, profileID)
	return sess, nil
}

// Get returns a session by id.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*types.ApplicationSession, error) {
	sess, err := m.store.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if sess == nil {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return sess, nil
}

// Analyze reads the loaded posting, summarizes its job context, ranks the
// profile's resumes against it, and records a recommendation. Moves the
// session from open to analyzed.
func (m *Manager) Analyze(ctx context.Context, id uuid.UUID) (*types.AnalyzeResult, error) {
	sess, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(sess.Status, types.StatusAnalyzed) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sess.Status, types.StatusAnalyzed)
	}

	res, err := m.registry.Get(id)
	if err != nil {
		return nil, err
	}
	pageText, err := res.PageText(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading page text: %w", err)
	}

	jobContext := fallbackContext(pageText)
	if m.scorer != nil {
		summary, err := m.scorer.SummarizeJob(ctx, pageText)
		if err != nil {
			log.Printf("[session] job summary failed for %s, using raw text: %v", id, err)
		} else if summary != "" {
			jobContext = summary
		}
	}

	resumes, err := m.store.ListResumes(ctx, sess.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("listing resumes: %w", err)
	}

	scores := m.rankResumes(ctx, jobContext, resumes)
	result := &types.AnalyzeResult{Alternatives: scores, JobContext: jobContext}
	switch {
	case len(scores) > 0 && scores[0].Score > 0:
		result.RecommendedResumeID = scores[0].ResumeID
	case len(resumes) > 0:
		// No resume scored above zero; recommend the first one rather
		// than leaving the session with nothing to fill from.
		result.RecommendedResumeID = resumes[0].ID
	}

	if err := Transition(sess, types.StatusAnalyzed); err != nil {
		return nil, err
	}
	sess.JobContext = jobContext
	sess.RecommendedResumeID = result.RecommendedResumeID
	if err := m.store.UpdateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("updating session: %w", err)
	}
	return result, nil
}

func (m *Manager) rankResumes(ctx context.Context, jobContext string, resumes []types.Resume) []types.ResumeScore {
	if m.scorer != nil {
		scores, err := m.scorer.RankResumes(ctx, jobContext, resumes)
		if err == nil {
			return scores
		}
		log.Printf("[session] model ranking failed, using keyword ranking: %v", err)
	}
	return ranking.RankResumes(jobContext, resumes)
}

// Autofill discovers fields on the loaded page, builds a plan for the
// session's profile, executes it, and records an audit event. Moves the
// session to filled; a filled session may be filled again.
func (m *Manager) Autofill(ctx context.Context, id, resumeID uuid.UUID) (*FillOutcome, error) {
	sess, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(sess.Status, types.StatusFilled) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sess.Status, types.StatusFilled)
	}

	profile, err := m.store.GetProfile(ctx, sess.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	if profile == nil {
		return nil, fmt.Errorf("profile %s: %w", sess.ProfileID, ErrNotFound)
	}

	resume, err := m.pickResume(ctx, sess, resumeID)
	if err != nil {
		return nil, err
	}

	// Without a live browser (released, or the process restarted since the
	// session was persisted) planning degrades to the static triad: no
	// discovery, no execution, just what the profile directly answers.
	var fields []types.FieldCandidate
	res, err := m.registry.Get(id)
	switch {
	case err == nil:
		fields, err = discovery.Discover(ctx, res.Tree())
		if err != nil {
			return nil, fmt.Errorf("discovering fields: %w", err)
		}
	case errors.Is(err, ErrNoResource):
		log.Printf("[session] no browser for %s, building static plan", id)
		res = nil
	default:
		return nil, err
	}

	var proposed []types.FillAction
	if m.scorer != nil && len(fields) > 0 {
		proposed, err = m.scorer.ProposeActions(ctx, fields, profile)
		if err != nil {
			log.Printf("[session] action proposal failed for %s, continuing without: %v", id, err)
			proposed = nil
		}
	}

	plan := planner.Build(planner.Input{
		Profile:    profile,
		Resume:     resume,
		JobContext: sess.JobContext,
		Fields:     fields,
		Proposed:   proposed,
	})
	result := &types.ExecutionResult{Filled: []types.AppliedField{}, Blocked: []string{}}
	if res != nil {
		result, err = executor.Execute(ctx, res.Tree(), plan.Actions)
		if err != nil {
			return nil, fmt.Errorf("executing plan: %w", err)
		}
	}

	event := &types.AuditEvent{
		ID:        uuid.New(),
		SessionID: sess.ID,
		Plan:      plan,
		Result:    result,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.SaveAuditEvent(ctx, event); err != nil {
		log.Printf("[session] saving audit event for %s: %v", id, err)
	}

	if err := Transition(sess, types.StatusFilled); err != nil {
		return nil, err
	}
	if resume != nil {
		sess.SelectedResumeID = resume.ID
	}
	sess.FillPlan = plan
	if err := m.store.UpdateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("updating session: %w", err)
	}
	log.Printf("[session] filled %s: %d applied, %d blocked", id, len(result.Filled), len(result.Blocked))
	return &FillOutcome{Plan: plan, Result: result}, nil
}

// pickResume resolves the resume to fill from: the explicit request, then the
// session's previous selection, then the analyze recommendation, then the
// profile's first resume. A session with no resumes at all fills with nil.
func (m *Manager) pickResume(ctx context.Context, sess *types.ApplicationSession, requested uuid.UUID) (*types.Resume, error) {
	resumes, err := m.store.ListResumes(ctx, sess.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("listing resumes: %w", err)
	}
	if len(resumes) == 0 {
		return nil, nil
	}

	for _, want := range []uuid.UUID{requested, sess.SelectedResumeID, sess.RecommendedResumeID} {
		if want == uuid.Nil {
			continue
		}
		for i := range resumes {
			if resumes[i].ID == want {
				return &resumes[i], nil
			}
		}
		if want == requested {
			return nil, fmt.Errorf("resume %s: %w", requested, ErrNotFound)
		}
	}
	return &resumes[0], nil
}

// Confirm checks page text against the configured confirmation phrases. The
// caller may supply the text; when it is empty the live page is read instead.
// On a match the session moves to submitted and its browser resource is
// released; otherwise the session stays filled.
func (m *Manager) Confirm(ctx context.Context, id uuid.UUID, pageText string) (*ConfirmOutcome, error) {
	sess, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(sess.Status, types.StatusSubmitted) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sess.Status, types.StatusSubmitted)
	}

	if pageText == "" {
		res, err := m.registry.Get(id)
		if err != nil {
			return nil, err
		}
		pageText, err = res.PageText(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading page text: %w", err)
		}
	}
	phrases, err := m.store.ListConfirmationPhrases(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing confirmation phrases: %w", err)
	}

	match := confirm.Decide(pageText, phrases)
	if match == nil {
		return &ConfirmOutcome{}, nil
	}

	if err := Transition(sess, types.StatusSubmitted); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sess.EndedAt = &now
	if err := m.store.UpdateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("updating session: %w", err)
	}
	m.registry.Release(ctx, id)
	log.Printf("[session] submitted %s on phrase %q", id, match.Phrase)
	return &ConfirmOutcome{Confirmed: true, Phrase: match.Phrase}, nil
}

// Screenshot captures the session's current page.
func (m *Manager) Screenshot(ctx context.Context, id uuid.UUID) ([]byte, error) {
	if _, err := m.Get(ctx, id); err != nil {
		return nil, err
	}
	res, err := m.registry.Get(id)
	if err != nil {
		return nil, err
	}
	return res.Screenshot(ctx)
}

// Close releases every live browser resource. Called on shutdown.
func (m *Manager) Close(ctx context.Context) {
	m.registry.ReleaseAll(ctx)
}

// fallbackContext trims raw page text into something usable as a job context
// when no summarizer is configured.
func fallbackContext(pageText string) string {
	const max = 4000
	if len(pageText) <= max {
		return pageText
	}
	return pageText[:max]
}
