package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment order status enums.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusPaid      = "paid"
	PaymentStatusCancelled = "cancelled"
)

type PaymentOrder struct {
	OrderCode     int64      `json:"orderCode"`
	UserID        uuid.UUID  `json:"userId"`
	PackageID     string     `json:"packageId"`
	Diamonds      int        `json:"diamonds"`
	AmountVND     int64      `json:"amountVnd"`
	Status        string     `json:"status"`
	PaymentLinkID string     `json:"paymentLinkId,omitempty"`
	CheckoutURL   string     `json:"checkoutUrl,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
}
