package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gemforge/backend/internal/ledger"
	"github.com/gemforge/backend/internal/models"
)

var (
	ErrUnknownPackage   = errors.New("unknown package")
	ErrAmountMismatch   = errors.New("paid amount does not match order")
	ErrPaymentsDisabled = errors.New("payments are not configured")
	// ErrOrderNotFound is returned for a missing order or one owned by another user.
	ErrOrderNotFound = errors.New("order not found")
)

// Package is a purchasable bundle of diamonds.
type Package struct {
	ID       string `json:"id"`
	Diamonds int    `json:"diamonds"`
	PriceVND int64  `json:"priceVnd"`
}

// Packages is the fixed catalogue.
var Packages = []Package{
	{ID: "starter", Diamonds: 50, PriceVND: 20000},
	{ID: "popular", Diamonds: 120, PriceVND: 45000},
	{ID: "pro", Diamonds: 300, PriceVND: 99000},
}

func FindPackage(id string) (Package, bool) {
	for _, p := range Packages {
		if p.ID == id {
			return p, true
		}
	}
	return Package{}, false
}

// LinkProvider issues payment links and authenticates their webhooks. *PayOSClient implements it.
type LinkProvider interface {
	CreatePaymentLink(ctx context.Context, req LinkRequest) (*PaymentLink, error)
	VerifyWebhook(data json.RawMessage, signature string) error
}

// OrderStore is the subset of repository.PaymentRepo the service needs.
type OrderStore interface {
	Create(ctx context.Context, o *models.PaymentOrder) error
	GetByOrderCode(ctx context.Context, orderCode int64) (*models.PaymentOrder, error)
	MarkPaidTx(ctx context.Context, tx pgx.Tx, orderCode int64) (*models.PaymentOrder, bool, error)
	MarkCancelled(ctx context.Context, orderCode int64) error
}

// Webhook is the payment-link service's callback body.
type Webhook struct {
	Code      string          `json:"code"`
	Desc      string          `json:"desc"`
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}

type webhookData struct {
	OrderCode int64  `json:"orderCode"`
	Amount    int64  `json:"amount"`
	Code      string `json:"code"`
}

type Service struct {
	orders       OrderStore
	provider     LinkProvider
	ledger       ledger.Service
	returnURL    string
	cancelURL    string
	newOrderCode func() int64
	log          *slog.Logger
}

// NewService wires the purchase flow. A nil provider disables it.
func NewService(orders OrderStore, provider LinkProvider, l ledger.Service, returnURL, cancelURL string, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		orders:       orders,
		provider:     provider,
		ledger:       l,
		returnURL:    returnURL,
		cancelURL:    cancelURL,
		newOrderCode: defaultOrderCode,
		log:          log,
	}
}

// Order codes must be positive and fit in a JS safe integer.
func defaultOrderCode() int64 {
	return time.Now().UnixMilli()*1000 + rand.Int64N(1000)
}

// CreateLink records a pending order for the package and returns it with the checkout URL.
func (s *Service) CreateLink(ctx context.Context, userID uuid.UUID, packageID string) (*models.PaymentOrder, error) {
	if s.provider == nil {
		return nil, ErrPaymentsDisabled
	}
	pkg, ok := FindPackage(packageID)
	if !ok {
		return nil, ErrUnknownPackage
	}
	code := s.newOrderCode()
	link, err := s.provider.CreatePaymentLink(ctx, LinkRequest{
		OrderCode:   code,
		Amount:      pkg.PriceVND,
		Description: fmt.Sprintf("GF %d", code%1_000_000_000),
		ReturnURL:   s.returnURL,
		CancelURL:   s.cancelURL,
	})
	if err != nil {
		return nil, err
	}
	order := &models.PaymentOrder{
		OrderCode:     code,
		UserID:        userID,
		PackageID:     pkg.ID,
		Diamonds:      pkg.Diamonds,
		AmountVND:     pkg.PriceVND,
		Status:        models.PaymentStatusPending,
		PaymentLinkID: link.PaymentLinkID,
		CheckoutURL:   link.CheckoutURL,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("store order: %w", err)
	}
	s.log.Info("payment link created", "order_code", code, "user_id", userID, "package", pkg.ID)
	return order, nil
}

// GetOrder lets a buyer poll an order after the checkout redirect.
func (s *Service) GetOrder(ctx context.Context, userID uuid.UUID, orderCode int64) (*models.PaymentOrder, error) {
	o, err := s.orders.GetByOrderCode(ctx, orderCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// HandleWebhook verifies the callback and, for a successful payment, moves the
// order to paid and credits its diamonds in one transaction. Replays of an
// already processed order credit nothing. credited reports whether diamonds moved.
func (s *Service) HandleWebhook(ctx context.Context, wh Webhook) (credited bool, err error) {
	if s.provider == nil {
		return false, ErrPaymentsDisabled
	}
	if err := s.provider.VerifyWebhook(wh.Data, wh.Signature); err != nil {
		return false, err
	}
	var data webhookData
	if err := json.Unmarshal(wh.Data, &data); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if wh.Code != "00" || data.Code != "00" {
		if err := s.orders.MarkCancelled(ctx, data.OrderCode); err != nil {
			return false, err
		}
		s.log.Info("payment not successful", "order_code", data.OrderCode, "code", data.Code)
		return false, nil
	}

	tx, err := s.ledger.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	order, ok, err := s.orders.MarkPaidTx(ctx, tx, data.OrderCode)
	if err != nil {
		return false, err
	}
	if !ok {
		s.log.Info("webhook for unknown or processed order ignored", "order_code", data.OrderCode)
		return false, nil
	}
	if order.AmountVND != data.Amount {
		s.log.Error("payment amount mismatch", "order_code", order.OrderCode, "expected", order.AmountVND, "paid", data.Amount)
		return false, ErrAmountMismatch
	}
	desc := fmt.Sprintf("order %d, package %s", order.OrderCode, order.PackageID)
	if _, err := s.ledger.Credit(ctx, tx, order.UserID, order.Diamonds, models.ReasonPurchase, desc); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	s.log.Info("payment credited", "order_code", order.OrderCode, "user_id", order.UserID, "diamonds", order.Diamonds)
	return true, nil
}
