// Package server provides the HTTP REST API for the autofill engine.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/applypilot/internal/browser"
	"github.com/jonathan/applypilot/internal/db"
	"github.com/jonathan/applypilot/internal/llm"
	"github.com/jonathan/applypilot/internal/server/ratelimit"
	"github.com/jonathan/applypilot/internal/session"
	"github.com/jonathan/applypilot/internal/types"
)

// sessionAPI is the slice of the session manager the handlers use. Narrowed
// to an interface so handler tests can stub it.
type sessionAPI interface {
	Start(ctx context.Context, profileID uuid.UUID, url string) (*types.ApplicationSession, error)
	Get(ctx context.Context, id uuid.UUID) (*types.ApplicationSession, error)
	Analyze(ctx context.Context, id uuid.UUID) (*types.AnalyzeResult, error)
	Autofill(ctx context.Context, id, resumeID uuid.UUID) (*session.FillOutcome, error)
	Confirm(ctx context.Context, id uuid.UUID, pageText string) (*session.ConfirmOutcome, error)
	Screenshot(ctx context.Context, id uuid.UUID) ([]byte, error)
}

// configStore is the persistence surface the config and audit handlers use.
type configStore interface {
	ListConfirmationPhrases(ctx context.Context) ([]string, error)
	SetConfirmationPhrases(ctx context.Context, phrases []string) error
	ListAuditEvents(ctx context.Context, sessionID uuid.UUID) ([]types.AuditEvent, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	sessions    sessionAPI
	store       configStore
	rateLimiter *ratelimit.Limiter

	shutdown func(ctx context.Context)
}

// Config holds server configuration
type Config struct {
	Port            int
	DatabaseURL     string
	APIKey          string
	Headless        bool
	NavigateTimeout time.Duration
}

// New creates a new server instance wired against Postgres, headless Chrome,
// and, when an API key is configured, the Gemini scorer.
func New(cfg Config) (*Server, error) {
	store, err := db.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	provisioner := browser.NewProvisioner(browser.Options{
		Headless:        cfg.Headless,
		NavigateTimeout: cfg.NavigateTimeout,
	})

	var scorer llm.Scorer
	if cfg.APIKey != "" {
		scorer, err = llm.NewGeminiScorer(context.Background(), llm.DefaultConfig(), cfg.APIKey)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to create model client: %w", err)
		}
	}

	manager := session.NewManager(store, provisionerAdapter{provisioner}, scorer)

	s := newServer(manager, store)
	s.shutdown = func(ctx context.Context) {
		manager.Close(ctx)
		provisioner.Shutdown()
		if scorer != nil {
			_ = scorer.Close()
		}
		store.Close()
	}
	s.httpServer.Addr = fmt.Sprintf(":%d", cfg.Port)
	return s, nil
}

// newServer builds the router and middleware around the given dependencies.
func newServer(sessions sessionAPI, store configStore) *Server {
	s := &Server{
		sessions:    sessions,
		store:       store,
		rateLimiter: ratelimit.New(ratelimit.DefaultTiers()),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /sessions/{id}/analyze", s.handleAnalyze)
	mux.HandleFunc("POST /sessions/{id}/autofill", s.handleAutofill)
	mux.HandleFunc("POST /sessions/{id}/confirm", s.handleConfirm)
	mux.HandleFunc("GET /sessions/{id}/screenshot", s.handleScreenshot)
	mux.HandleFunc("GET /sessions/{id}/audit", s.handleAudit)

	mux.HandleFunc("GET /config/confirmation-phrases", s.handleGetConfirmationPhrases)
	mux.HandleFunc("PUT /config/confirmation-phrases", s.handlePutConfirmationPhrases)

	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(mux))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // analyze and autofill drive a live browser
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the middleware-wrapped router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.shutdown != nil {
		s.shutdown(ctx)
	}
	log.Println("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		if !allowed {
			s.setRateLimitHeaders(w, info)
			s.rateLimitResponse(w, info)
			return
		}

		s.setRateLimitHeaders(w, info)
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientID extracts the client identifier from the request.
// For MVP, this uses the IP address from RemoteAddr.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Remaining=%d Reset=%s",
		info.Limit, info.Remaining, info.ResetTime.Format(time.RFC3339))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}

// provisionerAdapter narrows the concrete browser provisioner to the session
// package's interface.
type provisionerAdapter struct {
	p *browser.Provisioner
}

func (a provisionerAdapter) Provision(ctx context.Context) (session.Resource, error) {
	return a.p.Provision(ctx)
}
