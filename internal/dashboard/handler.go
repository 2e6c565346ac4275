package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gemforge/backend/internal/handlers"
	"github.com/gemforge/backend/internal/middleware"
	"github.com/gemforge/backend/internal/models"
)

const maxDisplayNameLen = 64

type AccountReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	UpdateDisplayName(ctx context.Context, id uuid.UUID, name string) error
}

type LedgerReader interface {
	History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.LedgerEntry, error)
}

type ImageReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Image, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Image, error)
}

// Handler serves the caller's own profile, ledger and images. Routes sit behind BearerAuth.
type Handler struct {
	accounts AccountReader
	ledger   LedgerReader
	images   ImageReader
	log      *slog.Logger
}

func NewHandler(accounts AccountReader, ledger LedgerReader, images ImageReader, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{accounts: accounts, ledger: ledger, images: images, log: log}
}

type meResponse struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	DisplayName   string     `json:"displayName"`
	DiamondCount  int        `json:"diamondCount"`
	Tickets       int        `json:"tickets"`
	CheckInStreak int        `json:"checkInStreak"`
	LastCheckIn   *time.Time `json:"lastCheckIn"`
	IsAdmin       bool       `json:"isAdmin"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// GET /me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	acc, err := h.accounts.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		h.log.Error("get account failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		ID:            acc.ID,
		Email:         acc.Email,
		DisplayName:   acc.DisplayName,
		DiamondCount:  acc.DiamondCount,
		Tickets:       acc.Tickets,
		CheckInStreak: acc.CheckInStreak,
		LastCheckIn:   acc.LastCheckIn,
		IsAdmin:       acc.IsAdmin,
		CreatedAt:     acc.CreatedAt,
	})
}

// PATCH /me
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DisplayName *string `json:"displayName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.DisplayName == nil {
		writeError(w, http.StatusBadRequest, "displayName is required")
		return
	}
	name := strings.TrimSpace(*body.DisplayName)
	if name == "" || len(name) > maxDisplayNameLen {
		writeError(w, http.StatusBadRequest, "displayName must be 1-64 characters")
		return
	}
	userID := middleware.UserIDFromCtx(r.Context())
	if err := h.accounts.UpdateDisplayName(r.Context(), userID, name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		h.log.Error("update settings failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /ledger?limit=&offset=
func (h *Handler) ListLedger(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	limit, offset := handlers.Pagination(r)
	entries, err := h.ledger.History(r.Context(), userID, limit, offset)
	if err != nil {
		h.log.Error("list ledger failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []*models.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// GET /images
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromCtx(r.Context())
	images, err := h.images.ListByUser(r.Context(), userID)
	if err != nil {
		h.log.Error("list images failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if images == nil {
		images = []*models.Image{}
	}
	writeJSON(w, http.StatusOK, images)
}

// GET /images/{id}
// Public images are visible to everyone; private ones only to their owner.
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid image id")
		return
	}
	img, err := h.images.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "image not found")
			return
		}
		h.log.Error("get image failed", "image_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !img.IsPublic && img.UserID != middleware.UserIDFromCtx(r.Context()) {
		writeError(w, http.StatusNotFound, "image not found")
		return
	}
	writeJSON(w, http.StatusOK, img)
}
