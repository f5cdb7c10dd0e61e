// File: internal/api/server.go

// Package api exposes the mission engine over HTTP: session creation,
// stepping, deletion and a health probe.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/reasonos/websurfer/internal/mission"
)

// Server wires the session registry into an HTTP router.
type Server struct {
	registry *mission.Registry
	logger   *zap.Logger
	// createTimeout bounds how long a create request may wait for a free
	// session slot before the server answers 503.
	createTimeout time.Duration
}

func NewServer(registry *mission.Registry, logger *zap.Logger) *Server {
	return &Server{
		registry:      registry,
		logger:        logger.Named("api"),
		createTimeout: 10 * time.Second,
	}
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Post("/step", s.handleStep)
			r.Delete("/", s.handleDeleteSession)
		})
	})

	return r
}

// requestLogger emits one structured line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("Request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
