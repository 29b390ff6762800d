// File: internal/infra/web/server.go
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"jobpilot/internal/domain/ports/repository"
	"jobpilot/internal/progress"
	"jobpilot/internal/usecase"
)

// RateLimiter throttles repeated pipeline triggers. The Redis limiter
// implements it; a nil limiter disables throttling.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type Server struct {
	pipelineUC  usecase.PipelineUseCase
	bulkUC      usecase.BulkActionUseCase
	jobs        repository.JobRepository
	broadcaster *progress.Broadcaster
	auth        *AuthManager
	apiKey      string
	limiter     RateLimiter
	log         *zerolog.Logger
}

func NewServer(
	pipelineUC usecase.PipelineUseCase,
	bulkUC usecase.BulkActionUseCase,
	jobs repository.JobRepository,
	broadcaster *progress.Broadcaster,
	auth *AuthManager,
	apiKey string,
	limiter RateLimiter,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		pipelineUC:  pipelineUC,
		bulkUC:      bulkUC,
		jobs:        jobs,
		broadcaster: broadcaster,
		auth:        auth,
		apiKey:      apiKey,
		limiter:     limiter,
		log:         &l,
	}
}

// Router builds the full route tree. Everything under /api/v1 except login
// is behind the auth middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/login", s.loginHandler())

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/pipeline/run", s.runHandler())
			r.Post("/pipeline/cancel", s.cancelHandler())
			r.Get("/pipeline/progress", s.progressHandler())
			r.Get("/pipeline/runs", s.runsHandler())
			r.Get("/pipeline/runs/{id}", s.runDetailHandler())

			r.Get("/jobs", s.jobsListHandler())
			r.Post("/jobs/bulk", s.bulkHandler())
		})
	})
	return r
}

// authMiddleware accepts either the static API key as a Bearer token or a
// session JWT minted by /api/v1/login.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		if tok := bearerToken(r); tok != "" && tok == s.apiKey {
			next.ServeHTTP(w, r)
			return
		}

		if s.auth != nil {
			if _, err := s.auth.ParseFromRequest(r); err == nil {
				next.ServeHTTP(w, r)
				return
			}
		}

		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}
