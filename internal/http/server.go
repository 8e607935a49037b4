// Package http exposes the REST API: token-gated expense CRUD, receipt and
// free-text ingestion, history and the 30-day dashboard.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"trackd/internal/auth"
	"trackd/internal/core"
	"trackd/internal/services"
)

type Server struct {
	http.Server

	expenses *services.ExpenseService
	auth     *auth.Service

	rateLimiter *rateLimiter

	// Dashboard responses are cached per owner and invalidated on writes.
	dashboardCache *ttlCache[core.Dashboard]

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, expenses *services.ExpenseService, authSvc *auth.Service) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		expenses:       expenses,
		auth:           authSvc,
		rateLimiter:    newRateLimiter(),
		dashboardCache: newTTLCache[core.Dashboard](100, time.Minute),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /auth/signup", s.withMiddleware(s.handleSignup))
	mux.HandleFunc("POST /auth/login", s.withMiddleware(s.handleLogin))

	mux.HandleFunc("POST /expenses/manual", s.withMiddleware(s.requireAuth(s.handleManualExpense)))
	mux.HandleFunc("POST /expenses/upload-image", s.withMiddleware(s.requireAuth(s.handleUploadImage)))
	mux.HandleFunc("POST /expenses/process-text", s.withMiddleware(s.requireAuth(s.handleProcessText)))
	mux.HandleFunc("GET /expenses/history", s.withMiddleware(s.requireAuth(s.handleHistory)))
	mux.HandleFunc("GET /expenses/dashboard", s.withMiddleware(s.requireAuth(s.handleDashboard)))
	mux.HandleFunc("DELETE /expenses/{id}", s.withMiddleware(s.requireAuth(s.handleDeleteExpense)))

	return s
}

// Shutdown stops the rate limiter's cleanup goroutine and drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
