// File: internal/infra/web/handlers.go
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"jobpilot/internal/domain"
	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/repository"
	"jobpilot/internal/progress"
	"jobpilot/internal/usecase"
)

// runTriggerLimit caps manual pipeline triggers per client window.
const (
	runTriggerLimit  = 5
	runTriggerWindow = time.Minute
	runTriggerKey    = "rate_limit:pipeline:run"
)

type runRequest struct {
	TopN                int      `json:"top_n"`
	MinSuitabilityScore int      `json:"min_suitability_score"`
	Sources             []string `json:"sources"`
	SearchTerms         []string `json:"search_terms"`
	Country             string   `json:"country"`
	Locations           []string `json:"locations"`
}

type runResponse struct {
	ID             string     `json:"id"`
	Status         string     `json:"status"`
	JobsDiscovered int        `json:"jobs_discovered"`
	JobsProcessed  int        `json:"jobs_processed"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

func runToResponse(run *model.PipelineRun) runResponse {
	return runResponse{
		ID:             run.ID,
		Status:         string(run.Status),
		JobsDiscovered: run.JobsDiscovered,
		JobsProcessed:  run.JobsProcessed,
		ErrorMessage:   run.ErrorMessage,
		StartedAt:      run.StartedAt,
		CompletedAt:    run.CompletedAt,
	}
}

type jobResponse struct {
	ID                string     `json:"id"`
	Source            string     `json:"source"`
	Title             string     `json:"title"`
	Company           string     `json:"company"`
	Location          string     `json:"location,omitempty"`
	JobURL            string     `json:"job_url"`
	Status            string     `json:"status"`
	SuitabilityScore  *int       `json:"suitability_score,omitempty"`
	SuitabilityReason string     `json:"suitability_reason,omitempty"`
	SponsorMatchScore *int       `json:"sponsor_match_score,omitempty"`
	SponsorMatchNames []string   `json:"sponsor_match_names,omitempty"`
	DiscoveredAt      time.Time  `json:"discovered_at"`
	ProcessedAt       *time.Time `json:"processed_at,omitempty"`
	AppliedAt         *time.Time `json:"applied_at,omitempty"`
}

func jobToResponse(j *model.Job) jobResponse {
	return jobResponse{
		ID:                j.ID,
		Source:            string(j.Source),
		Title:             j.Title,
		Company:           j.Company,
		Location:          j.Location,
		JobURL:            j.JobURL,
		Status:            string(j.Status),
		SuitabilityScore:  j.SuitabilityScore,
		SuitabilityReason: j.SuitabilityReason,
		SponsorMatchScore: j.SponsorMatchScore,
		SponsorMatchNames: j.SponsorMatchNames,
		DiscoveredAt:      j.DiscoveredAt,
		ProcessedAt:       j.ProcessedAt,
		AppliedAt:         j.AppliedAt,
	}
}

// loginHandler exchanges the static API key for a session cookie, so
// browser clients do not have to hold the key past the first request.
func (s *Server) loginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || s.auth == nil {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if bearerToken(r) != s.apiKey {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		token, err := s.auth.Mint(w)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to mint session token")
			http.Error(w, "Failed to create session", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

func (s *Server) runHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if s.limiter != nil {
			allowed, err := s.limiter.Allow(ctx, runTriggerKey, runTriggerLimit, runTriggerWindow)
			if err != nil {
				s.log.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
			} else if !allowed {
				http.Error(w, "Too many pipeline triggers", http.StatusTooManyRequests)
				return
			}
		}

		var req runRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request body", http.StatusBadRequest)
				return
			}
		}

		opts := model.RunOptions{
			TopN:                req.TopN,
			MinSuitabilityScore: req.MinSuitabilityScore,
			SearchTerms:         req.SearchTerms,
			Country:             req.Country,
			Locations:           req.Locations,
		}
		for _, src := range req.Sources {
			opts.Sources = append(opts.Sources, model.SourceID(src))
		}

		run, err := s.pipelineUC.StartRun(ctx, opts)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrPipelineAlreadyRunning):
				http.Error(w, err.Error(), http.StatusConflict)
			case errors.Is(err, domain.ErrInvalidArgument):
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				s.log.Error().Err(err).Msg("failed to start pipeline run")
				http.Error(w, "Failed to start run", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusAccepted, runToResponse(run))
	}
}

func (s *Server) cancelHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := s.pipelineUC.Cancel(r.Context())
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, map[string]string{"status": "cancel_requested"})
		case errors.Is(err, domain.ErrCancelAlreadyRequested):
			writeJSON(w, http.StatusOK, map[string]string{"status": "already_requested"})
		case errors.Is(err, domain.ErrNotFound):
			http.Error(w, "No run in progress", http.StatusNotFound)
		default:
			s.log.Error().Err(err).Msg("failed to cancel run")
			http.Error(w, "Failed to cancel run", http.StatusInternalServerError)
		}
	}
}

func (s *Server) runsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		runs, err := s.pipelineUC.ListRuns(r.Context(), limit)
		if err != nil {
			http.Error(w, "Failed to list runs", http.StatusInternalServerError)
			return
		}

		out := make([]runResponse, 0, len(runs))
		for _, run := range runs {
			out = append(out, runToResponse(run))
		}
		writeJSON(w, http.StatusOK, struct {
			Data []runResponse `json:"data"`
		}{Data: out})
	}
}

func (s *Server) runDetailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		run, err := s.pipelineUC.GetRun(r.Context(), id)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, runToResponse(run))
		case errors.Is(err, domain.ErrNotFound):
			http.Error(w, "Run not found", http.StatusNotFound)
		default:
			http.Error(w, "Failed to load run", http.StatusInternalServerError)
		}
	}
}

// jobsListHandler returns a paginated job list filtered by status and
// source query parameters.
func (s *Server) jobsListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 50 // Default page size
		}
		if offset < 0 {
			offset = 0
		}

		filter := repository.JobFilter{
			Status: model.JobStatus(r.URL.Query().Get("status")),
			Source: model.SourceID(r.URL.Query().Get("source")),
			Offset: offset,
			Limit:  limit,
		}

		jobs, err := s.jobs.List(r.Context(), filter)
		if err != nil {
			http.Error(w, "Failed to list jobs", http.StatusInternalServerError)
			return
		}

		out := make([]jobResponse, 0, len(jobs))
		for _, j := range jobs {
			out = append(out, jobToResponse(j))
		}
		writeJSON(w, http.StatusOK, struct {
			Data   []jobResponse `json:"data"`
			Limit  int           `json:"limit"`
			Offset int           `json:"offset"`
		}{Data: out, Limit: limit, Offset: offset})
	}
}

type bulkRequest struct {
	Action string   `json:"action"`
	JobIDs []string `json:"job_ids"`
}

// bulkHandler streams bulk action events as NDJSON: one started event,
// one progress line per job, then completed. Whole-batch validation
// failures are rejected before the stream begins.
func (s *Server) bulkHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bulkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		flusher, _ := w.(http.Flusher)
		enc := json.NewEncoder(w)
		started := false
		emit := func(ev usecase.BulkEvent) {
			if !started {
				started = true
				w.Header().Set("Content-Type", "application/x-ndjson")
				w.WriteHeader(http.StatusOK)
			}
			if err := enc.Encode(ev); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}

		err := s.bulkUC.Execute(r.Context(), usecase.BulkAction(req.Action), req.JobIDs, emit)
		if err != nil && !started {
			switch {
			case errors.Is(err, domain.ErrBatchTooLarge):
				http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			case errors.Is(err, domain.ErrInvalidArgument):
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				http.Error(w, "Bulk action failed", http.StatusInternalServerError)
			}
		}
	}
}

// progressHandler streams pipeline progress snapshots over SSE. Every
// broadcaster update becomes one data frame; a slow client that falls a
// full buffer behind misses intermediate frames, never the latest one.
func (s *Server) progressHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		// Buffered so a stalled write never blocks the broadcaster.
		frames := make(chan progress.State, 16)
		unsubscribe := s.broadcaster.Subscribe(func(st progress.State) {
			enqueueFrame(frames, st)
		})
		defer unsubscribe()

		keepalive := time.NewTicker(15 * time.Second)
		defer keepalive.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case st := <-frames:
				payload, err := json.Marshal(st)
				if err != nil {
					s.log.Error().Err(err).Msg("failed to marshal progress state")
					continue
				}
				if _, err := w.Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
					return
				}
				flusher.Flush()
			case <-keepalive.C:
				if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

// enqueueFrame adds st to frames, evicting the stalest buffered frame when
// the buffer is full. A terminal completed/failed snapshot therefore always
// reaches a stalled client once it resumes reading.
func enqueueFrame(frames chan progress.State, st progress.State) {
	for {
		select {
		case frames <- st:
			return
		default:
		}
		select {
		case <-frames:
		default:
		}
	}
}

func bearerToken(r *http.Request) string {
	hdr := r.Header.Get("Authorization")
	if hdr == "" {
		return ""
	}
	parts := strings.SplitN(hdr, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
