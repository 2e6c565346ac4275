package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/gemforge/backend/internal/middleware"
	"github.com/gemforge/backend/internal/models"
)

// AdminService is implemented by *services.AdminService.
type AdminService interface {
	ListUsers(ctx context.Context, limit, offset int) ([]*models.Account, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*models.Account, error)
	AdjustDiamonds(ctx context.Context, adminID, userID uuid.UUID, delta int, description string) (int, error)
	SetAdmin(ctx context.Context, adminID, userID uuid.UUID, isAdmin bool) error
	UserLedger(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.LedgerEntry, error)
}

// AdminHandler serves the admin-* endpoints. Routes are wrapped in RequireAdmin.
type AdminHandler struct {
	Admin  AdminService
	Logger *slog.Logger
}

// --- GET /admin-users ---

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := Pagination(r)
	users, err := h.Admin.ListUsers(r.Context(), limit, offset)
	if err != nil {
		respondError(w, h.Logger, "admin list users", err)
		return
	}
	if users == nil {
		users = []*models.Account{}
	}
	writeJSON(w, http.StatusOK, users)
}

// --- GET /admin-users/{id} ---

func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}
	acc, err := h.Admin.GetUser(r.Context(), userID)
	if err != nil {
		respondError(w, h.Logger, "admin get user", err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

// --- POST /admin-users/{id}/diamonds ---

type adjustDiamondsRequest struct {
	Amount      int    `json:"amount"`
	Description string `json:"description"`
}

type adjustDiamondsResponse struct {
	UserID          uuid.UUID `json:"userId"`
	NewDiamondCount int       `json:"newDiamondCount"`
}

func (h *AdminHandler) AdjustDiamonds(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}
	var req adjustDiamondsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	adminID := middleware.UserIDFromCtx(r.Context())
	balance, err := h.Admin.AdjustDiamonds(r.Context(), adminID, userID, req.Amount, req.Description)
	if err != nil {
		respondError(w, h.Logger, "admin adjust diamonds", err)
		return
	}
	writeJSON(w, http.StatusOK, adjustDiamondsResponse{UserID: userID, NewDiamondCount: balance})
}

// --- POST /admin-users/{id}/admin ---

type setAdminRequest struct {
	IsAdmin *bool `json:"isAdmin"`
}

func (h *AdminHandler) SetAdmin(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}
	var req setAdminRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.IsAdmin == nil {
		writeError(w, http.StatusBadRequest, "isAdmin is required")
		return
	}
	if err := h.Admin.SetAdmin(r.Context(), middleware.UserIDFromCtx(r.Context()), userID, *req.IsAdmin); err != nil {
		respondError(w, h.Logger, "admin set flag", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"userId": userID, "isAdmin": *req.IsAdmin})
}

// --- GET /admin-users/{id}/ledger ---

func (h *AdminHandler) UserLedger(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}
	limit, offset := Pagination(r)
	entries, err := h.Admin.UserLedger(r.Context(), userID, limit, offset)
	if err != nil {
		respondError(w, h.Logger, "admin user ledger", err)
		return
	}
	if entries == nil {
		entries = []*models.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func pathUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return uuid.Nil, false
	}
	return id, true
}
