package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bobarin/reelsmith/internal/db"
	"github.com/bobarin/reelsmith/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Renderer runs a render synchronously.
type Renderer interface {
	Render(ctx context.Context, req models.RenderRequest) (*models.RenderResult, error)
}

// JobStore persists async render jobs.
type JobStore interface {
	CreateRenderJob(ctx context.Context, job *models.RenderJob) error
	GetRenderJob(ctx context.Context, id uuid.UUID) (*models.RenderJob, error)
}

// Enqueuer hands a job to the worker queue.
type Enqueuer interface {
	EnqueueRender(ctx context.Context, jobID uuid.UUID, req models.RenderRequest) error
}

type Handler struct {
	renderer Renderer
	jobs     JobStore
	queue    Enqueuer
	slots    chan struct{}
	log      zerolog.Logger
}

// NewHandler builds the handler set. jobs and q may be nil, which disables
// the async endpoints. maxSyncRenders bounds concurrent /generate-video calls.
func NewHandler(renderer Renderer, jobs JobStore, q Enqueuer, maxSyncRenders int, log zerolog.Logger) *Handler {
	if maxSyncRenders <= 0 {
		maxSyncRenders = 1
	}
	return &Handler{
		renderer: renderer,
		jobs:     jobs,
		queue:    q,
		slots:    make(chan struct{}, maxSyncRenders),
		log:      log.With().Str("component", "api").Logger(),
	}
}

// GenerateVideo handles POST /generate-video
func (h *Handler) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRenderRequest(w, r)
	if !ok {
		return
	}

	// Wait for a render slot; renders are CPU bound
	select {
	case h.slots <- struct{}{}:
	case <-r.Context().Done():
		return
	}
	defer func() { <-h.slots }()

	h.log.Info().
		Str("text", preview(req.Text, 50)).
		Str("language", req.Language).
		Str("style", req.Style).
		Msg("generating video")

	result, err := h.renderer.Render(r.Context(), req)
	if err != nil {
		h.log.Error().Err(err).Msg("error generating video")
		respondRenderError(w, err)
		return
	}

	resp := models.GenerateVideoResponse{
		Status:   "success",
		VideoURL: result.URL,
		Path:     result.LocalPath,
		Message:  "Video generated successfully",
	}
	if result.URL == "" {
		resp.Message = "Video generated; upload failed, kept locally"
	}
	respondJSON(w, http.StatusOK, resp)
}

// CreateRender handles POST /v1/renders
func (h *Handler) CreateRender(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil || h.queue == nil {
		respondError(w, http.StatusServiceUnavailable, "Async renders are not configured")
		return
	}

	req, ok := decodeRenderRequest(w, r)
	if !ok {
		return
	}

	payload, err := db.RequestJSONB(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	job := &models.RenderJob{
		ID:      uuid.New(),
		Status:  models.JobStatusQueued,
		Request: payload,
	}
	if err := h.jobs.CreateRenderJob(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("failed to create job")
		respondError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}

	if err := h.queue.EnqueueRender(r.Context(), job.ID, req); err != nil {
		h.log.Error().Err(err).Str("job_id", job.ID.String()).Msg("failed to enqueue job")
		respondError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	respondJSON(w, http.StatusAccepted, models.CreateRenderResponse{
		JobID:  job.ID,
		Status: job.Status,
	})
}

// GetRender handles GET /v1/renders/{id}
func (h *Handler) GetRender(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		respondError(w, http.StatusServiceUnavailable, "Async renders are not configured")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.jobs.GetRenderJob(r.Context(), id)
	if errors.Is(err, db.ErrJobNotFound) {
		respondError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("failed to get job")
		respondError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	respondJSON(w, http.StatusOK, job)
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func decodeRenderRequest(w http.ResponseWriter, r *http.Request) (models.RenderRequest, bool) {
	var req models.RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "Text parameter is required")
		return req, false
	}
	return req.WithDefaults(), true
}

func respondRenderError(w http.ResponseWriter, err error) {
	kind := models.KindOf(err)
	status := http.StatusInternalServerError
	if kind == models.KindValidation {
		status = http.StatusBadRequest
	}
	respondJSON(w, status, models.ErrorResponse{
		Status:  "error",
		Message: err.Error(),
		Kind:    string(kind),
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, models.ErrorResponse{Status: "error", Message: message})
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
