package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/gemforge/backend/internal/middleware"
	"github.com/gemforge/backend/internal/services"
)

type CheckInner interface {
	CheckIn(ctx context.Context, userID uuid.UUID) (*services.CheckInResult, error)
}

type ImageSharer interface {
	Share(ctx context.Context, userID, imageID uuid.UUID) (*services.ShareResult, error)
}

// RewardHandler serves the daily check-in and image sharing endpoints.
type RewardHandler struct {
	CheckIns CheckInner
	Shares   ImageSharer
	Logger   *slog.Logger
}

// --- POST /daily-check-in ---

func (h *RewardHandler) DailyCheckIn(w http.ResponseWriter, r *http.Request) {
	res, err := h.CheckIns.CheckIn(r.Context(), middleware.UserIDFromCtx(r.Context()))
	if err != nil {
		respondError(w, h.Logger, "daily check-in", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- POST /share-image ---

type shareImageRequest struct {
	ImageID string `json:"imageId"`
}

func (h *RewardHandler) ShareImage(w http.ResponseWriter, r *http.Request) {
	var req shareImageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	imageID, err := uuid.Parse(req.ImageID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid imageId")
		return
	}
	res, err := h.Shares.Share(r.Context(), middleware.UserIDFromCtx(r.Context()), imageID)
	if err != nil {
		respondError(w, h.Logger, "share image", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
