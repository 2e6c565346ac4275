package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/gemforge/backend/internal/middleware"
	"github.com/gemforge/backend/internal/models"
	"github.com/gemforge/backend/internal/payments"
)

// Purchases is implemented by *payments.Service.
type Purchases interface {
	CreateLink(ctx context.Context, userID uuid.UUID, packageID string) (*models.PaymentOrder, error)
	HandleWebhook(ctx context.Context, wh payments.Webhook) (bool, error)
	GetOrder(ctx context.Context, userID uuid.UUID, orderCode int64) (*models.PaymentOrder, error)
}

type PaymentHandler struct {
	Payments Purchases
	Logger   *slog.Logger
}

// --- GET /payments/packages ---

func (h *PaymentHandler) ListPackages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, payments.Packages)
}

// --- POST /payments/create-link ---

type createLinkRequest struct {
	PackageID string `json:"packageId"`
}

type createLinkResponse struct {
	OrderCode   int64  `json:"orderCode"`
	CheckoutURL string `json:"checkoutUrl"`
	Diamonds    int    `json:"diamonds"`
	AmountVND   int64  `json:"amountVnd"`
}

func (h *PaymentHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	order, err := h.Payments.CreateLink(r.Context(), middleware.UserIDFromCtx(r.Context()), req.PackageID)
	if err != nil {
		respondError(w, h.Logger, "create payment link", err)
		return
	}
	writeJSON(w, http.StatusOK, createLinkResponse{
		OrderCode:   order.OrderCode,
		CheckoutURL: order.CheckoutURL,
		Diamonds:    order.Diamonds,
		AmountVND:   order.AmountVND,
	})
}

// --- GET /payments/orders/{orderCode} ---

func (h *PaymentHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.ParseInt(r.PathValue("orderCode"), 10, 64)
	if err != nil || code <= 0 {
		writeError(w, http.StatusBadRequest, "invalid order code")
		return
	}
	order, err := h.Payments.GetOrder(r.Context(), middleware.UserIDFromCtx(r.Context()), code)
	if err != nil {
		respondError(w, h.Logger, "get payment order", err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// --- POST /payments/webhook ---

// Webhook is unauthenticated; the body signature is the proof of origin.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var wh payments.Webhook
	if !decodeJSON(w, r, &wh) {
		return
	}
	credited, err := h.Payments.HandleWebhook(r.Context(), wh)
	if err != nil {
		respondError(w, h.Logger, "payment webhook", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "credited": credited})
}
