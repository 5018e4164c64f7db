// Package db provides PostgreSQL persistence for profiles, resumes,
// application sessions, and autofill audit history.
package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/applypilot/internal/types"
)

// Store wraps a PostgreSQL connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a connection pool to the database.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// GetProfile retrieves a profile by ID. Returns nil when the profile does
// not exist.
func (s *Store) GetProfile(ctx context.Context, id uuid.UUID) (*types.Profile, error) {
	var p types.Profile
	err := s.pool.QueryRow(ctx,
		`SELECT id, first_name, last_name, email, phone, city, country, linkedin, website, created_at, updated_at
		 FROM profiles WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.City, &p.Country,
		&p.LinkedIn, &p.Website, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

// ListResumes retrieves a profile's resumes, oldest first.
func (s *Store) ListResumes(ctx context.Context, profileID uuid.UUID) ([]types.Resume, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, profile_id, name, content, created_at
		 FROM resumes WHERE profile_id = $1 ORDER BY created_at ASC`,
		profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}
	defer rows.Close()

	var resumes []types.Resume
	for rows.Next() {
		var r types.Resume
		if err := rows.Scan(&r.ID, &r.ProfileID, &r.Name, &r.Content, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resume: %w", err)
		}
		resumes = append(resumes, r)
	}
	return resumes, nil
}

// CreateSession inserts a new application session.
func (s *Store) CreateSession(ctx context.Context, sess *types.ApplicationSession) error {
	planJSON, err := marshalPlan(sess.FillPlan)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO sessions (id, profile_id, url, status, recommended_resume_id, selected_resume_id, job_context, fill_plan, started_at, ended_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		sess.ID, sess.ProfileID, sess.URL, string(sess.Status),
		nullableUUID(sess.RecommendedResumeID), nullableUUID(sess.SelectedResumeID),
		sess.JobContext, planJSON, sess.StartedAt, sess.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID. Returns nil when the session does
// not exist.
func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*types.ApplicationSession, error) {
	var (
		sess        types.ApplicationSession
		status      string
		recommended *uuid.UUID
		selected    *uuid.UUID
		planJSON    []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, profile_id, url, status, recommended_resume_id, selected_resume_id, job_context, fill_plan, started_at, ended_at
		 FROM sessions WHERE id = $1`,
		id,
	).Scan(&sess.ID, &sess.ProfileID, &sess.URL, &status, &recommended, &selected,
		&sess.JobContext, &planJSON, &sess.StartedAt, &sess.EndedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	sess.Status = types.SessionStatus(status)
	if recommended != nil {
		sess.RecommendedResumeID = *recommended
	}
	if selected != nil {
		sess.SelectedResumeID = *selected
	}
	if len(planJSON) > 0 {
		var plan types.FillPlan
		if err := json.Unmarshal(planJSON, &plan); err != nil {
			return nil, fmt.Errorf("failed to decode fill plan: %w", err)
		}
		sess.FillPlan = &plan
	}
	return &sess, nil
}

// UpdateSession persists a session's mutable fields.
func (s *Store) UpdateSession(ctx context.Context, sess *types.ApplicationSession) error {
	planJSON, err := marshalPlan(sess.FillPlan)
	if err != nil {
		return err
	}
	result, err := s.pool.Exec(ctx,
		`UPDATE sessions
		 SET status = $1, recommended_resume_id = $2, selected_resume_id = $3, job_context = $4, fill_plan = $5, ended_at = $6
		 WHERE id = $7`,
		string(sess.Status), nullableUUID(sess.RecommendedResumeID), nullableUUID(sess.SelectedResumeID),
		sess.JobContext, planJSON, sess.EndedAt, sess.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("session not found: %s", sess.ID)
	}
	return nil
}

// SaveAuditEvent stores one autofill run record.
func (s *Store) SaveAuditEvent(ctx context.Context, e *types.AuditEvent) error {
	planJSON, err := marshalPlan(e.Plan)
	if err != nil {
		return err
	}
	var resultJSON []byte
	if e.Result != nil {
		resultJSON, err = json.Marshal(e.Result)
		if err != nil {
			return fmt.Errorf("failed to marshal execution result: %w", err)
		}
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO audit_events (id, session_id, plan, result, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.SessionID, planJSON, resultJSON, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save audit event: %w", err)
	}
	return nil
}

// ListAuditEvents retrieves a session's autofill history, oldest first.
func (s *Store) ListAuditEvents(ctx context.Context, sessionID uuid.UUID) ([]types.AuditEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, plan, result, created_at
		 FROM audit_events WHERE session_id = $1 ORDER BY created_at ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []types.AuditEvent
	for rows.Next() {
		var (
			e          types.AuditEvent
			planJSON   []byte
			resultJSON []byte
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &planJSON, &resultJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		if len(planJSON) > 0 {
			var plan types.FillPlan
			if err := json.Unmarshal(planJSON, &plan); err != nil {
				return nil, fmt.Errorf("failed to decode audit plan: %w", err)
			}
			e.Plan = &plan
		}
		if len(resultJSON) > 0 {
			var result types.ExecutionResult
			if err := json.Unmarshal(resultJSON, &result); err != nil {
				return nil, fmt.Errorf("failed to decode audit result: %w", err)
			}
			e.Result = &result
		}
		events = append(events, e)
	}
	return events, nil
}

// ListConfirmationPhrases retrieves the configured submission phrases in
// insertion order.
func (s *Store) ListConfirmationPhrases(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT phrase FROM confirmation_phrases ORDER BY position ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmation phrases: %w", err)
	}
	defer rows.Close()

	var phrases []string
	for rows.Next() {
		var phrase string
		if err := rows.Scan(&phrase); err != nil {
			return nil, fmt.Errorf("failed to scan confirmation phrase: %w", err)
		}
		phrases = append(phrases, phrase)
	}
	return phrases, nil
}

// SetConfirmationPhrases replaces the configured submission phrases.
func (s *Store) SetConfirmationPhrases(ctx context.Context, phrases []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM confirmation_phrases`); err != nil {
		return fmt.Errorf("failed to clear confirmation phrases: %w", err)
	}
	for i, phrase := range phrases {
		if _, err := tx.Exec(ctx,
			`INSERT INTO confirmation_phrases (position, phrase) VALUES ($1, $2)`,
			i, phrase,
		); err != nil {
			return fmt.Errorf("failed to insert confirmation phrase: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit confirmation phrases: %w", err)
	}
	return nil
}

func marshalPlan(plan *types.FillPlan) ([]byte, error) {
	if plan == nil {
		return nil, nil
	}
	b, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fill plan: %w", err)
	}
	return b, nil
}

// nullableUUID maps the zero UUID to SQL NULL.
func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
