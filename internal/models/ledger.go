package models

import (
	"time"

	"github.com/google/uuid"
)

// Ledger reason codes.
const (
	ReasonDailyCheckIn    = "daily_check_in"
	ReasonShareImage      = "share_image"
	ReasonGroupImage      = "group_image"
	ReasonComicPanel      = "comic_panel"
	ReasonAdminAdjustment = "admin_adjustment"
	ReasonPurchase        = "purchase"
	ReasonRefund          = "refund"
)

// LedgerEntry is an immutable record of one balance change. Amount is signed.
type LedgerEntry struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"userId"`
	Amount       int       `json:"amount"`
	Reason       string    `json:"reason"`
	Description  string    `json:"description"`
	BalanceAfter *int      `json:"balanceAfter,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
