package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gemforge/backend/internal/jobs"
	"github.com/gemforge/backend/internal/middleware"
	"github.com/gemforge/backend/internal/models"
)

// PayloadValidator checks a raw request body against the schema for a job kind.
type PayloadValidator interface {
	Validate(kind string, payload []byte) error
}

// JobHandler serves the paid generation endpoints and job lookups.
type JobHandler struct {
	Jobs      jobs.Service
	Validator PayloadValidator
	Logger    *slog.Logger
}

type groupImageRequest struct {
	JobID          string            `json:"jobId"`
	Characters     []json.RawMessage `json:"characters"`
	UseUpscaler    bool              `json:"useUpscaler"`
	ReferenceImage *string           `json:"referenceImage"`
}

type comicPanelRequest struct {
	JobID string `json:"jobId"`
}

type spawnResponse struct {
	JobID           string `json:"jobId"`
	Status          string `json:"status"`
	Cost            int    `json:"cost"`
	NewDiamondCount int    `json:"newDiamondCount"`
	Duplicate       bool   `json:"duplicate,omitempty"`
}

// --- POST /generate-group-image ---

// GenerateGroupImage charges one diamond per character, plus one for the upscaler.
func (h *JobHandler) GenerateGroupImage(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readPayload(w, r, models.JobKindGroupImage)
	if !ok {
		return
	}
	var req groupImageRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	h.spawn(w, r, jobs.SpawnRequest{
		JobID:   req.JobID,
		Kind:    models.JobKindGroupImage,
		Payload: body,
		Cost:    jobs.GroupImageCost(len(req.Characters), req.UseUpscaler),
	})
}

// --- POST /comic-render-panel ---

func (h *JobHandler) ComicRenderPanel(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readPayload(w, r, models.JobKindComicPanel)
	if !ok {
		return
	}
	var req comicPanelRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	h.spawn(w, r, jobs.SpawnRequest{
		JobID:   req.JobID,
		Kind:    models.JobKindComicPanel,
		Payload: body,
		Cost:    jobs.ComicPanelCost,
	})
}

func (h *JobHandler) readPayload(w http.ResponseWriter, r *http.Request, kind string) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "request body too large")
		return nil, false
	}
	if err := h.Validator.Validate(kind, body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return body, true
}

func (h *JobHandler) spawn(w http.ResponseWriter, r *http.Request, req jobs.SpawnRequest) {
	req.UserID = middleware.UserIDFromCtx(r.Context())
	res, err := h.Jobs.SpawnPaid(r.Context(), req)
	if err != nil {
		respondError(w, h.Logger, "spawn job", err)
		return
	}
	writeJSON(w, http.StatusOK, spawnResponse{
		JobID:           res.Job.ID,
		Status:          res.Job.Status,
		Cost:            res.Cost,
		NewDiamondCount: res.NewDiamondCount,
		Duplicate:       res.Duplicate,
	})
}

// --- GET /jobs ---

func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit, offset := Pagination(r)
	list, err := h.Jobs.ListByUser(r.Context(), middleware.UserIDFromCtx(r.Context()), limit, offset)
	if err != nil {
		respondError(w, h.Logger, "list jobs", err)
		return
	}
	if list == nil {
		list = []*models.Job{}
	}
	writeJSON(w, http.StatusOK, list)
}

// --- GET /jobs/{id} ---

func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing job id")
		return
	}
	job, err := h.Jobs.GetJob(r.Context(), middleware.UserIDFromCtx(r.Context()), id)
	if err != nil {
		respondError(w, h.Logger, "get job", err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
