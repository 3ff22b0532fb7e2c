package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/intentlayer/intentlayer/internal/workflow"
)

type Options struct {
	Port      int
	TokenFile string
	Location  *time.Location
	Logger    *zap.Logger
}

type Server struct {
	flow      *workflow.Store
	port      int
	token     string
	tokenFile string
	loc       *time.Location
	logger    *zap.Logger
	router    chi.Router
	http      *http.Server
	startTime time.Time

	syncs     sync.WaitGroup
	closing   chan struct{}
	closeOnce sync.Once
}

func New(flow *workflow.Store, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	srv := &Server{
		flow:      flow,
		port:      opts.Port,
		token:     generateToken(),
		tokenFile: opts.TokenFile,
		loc:       opts.Location,
		logger:    opts.Logger,
		router:    chi.NewRouter(),
		startTime: time.Now(),
		closing:   make(chan struct{}),
	}

	srv.setupRoutes()
	srv.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", srv.port),
		Handler:           srv.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv
}

func (s *Server) setupRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	// Public endpoints
	r.Get("/health", s.handleHealth)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})

	// Dashboard endpoints (protected)
	r.Route("/dashboard", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/", s.handleDashboard)
		r.Get("/{stage}", s.handleDashboard)
		r.Post("/{stage}/{action}", s.handleDashboardAction)
	})

	// JSON API (protected)
	r.Route("/api", func(r chi.Router) {
		r.Use(s.apiAuthMiddleware)
		r.Get("/state", s.handleState)
		r.Post("/goal", s.handleCreateGoal)
		r.Put("/connectors/{key}", s.handleUpdateConnector)
		r.Post("/sync", s.handleSync)
		r.Post("/variants", s.handleGenerateVariants)
		r.Post("/runs", s.handleQueueRuns)
		r.Post("/runs/simulate", s.handleSimulateRuns)
		r.Post("/results", s.handleScoreResults)
		r.Post("/reset", s.handleReset)
		r.Get("/export", s.handleExport)
		r.Get("/ws", s.handleWS)
	})
}

// requestLogger logs one line per request once it has been served.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// ListenAndServe writes the token file and serves until Shutdown is called.
// It returns nil after a clean shutdown.
func (s *Server) ListenAndServe() error {
	// Write token to file for the token command
	if s.tokenFile != "" {
		if err := os.WriteFile(s.tokenFile, []byte(s.token), 0600); err != nil {
			s.logger.Warn("failed to write token file", zap.String("path", s.tokenFile), zap.Error(err))
		}
	}

	s.logger.Info("server listening",
		zap.Int("port", s.port),
		zap.String("dashboard", s.DashboardURL("localhost")),
	)

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, closes websocket feeds, then waits for
// in-flight requests and background syncs until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.closing) })

	err := s.http.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.syncs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = fmt.Errorf("waiting for metric syncs: %w", ctx.Err())
		}
	}

	if s.tokenFile != "" {
		os.Remove(s.tokenFile)
	}
	return err
}

// DashboardURL is the login link printed at startup.
func (s *Server) DashboardURL(host string) string {
	return fmt.Sprintf("http://%s:%d/dashboard?token=%s", host, s.port, s.token)
}

func (s *Server) Token() string {
	return s.token
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func generateToken() string {
	bytes := make([]byte, 4)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a simple token if crypto/rand fails
		return "a1b2c3d4"
	}
	return hex.EncodeToString(bytes)
}
