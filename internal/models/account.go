package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultDiamondCount is the balance a new account starts with.
const DefaultDiamondCount = 10

type Account struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	DisplayName   string     `json:"displayName"`
	PasswordHash  string     `json:"-"`
	DiamondCount  int        `json:"diamondCount"`
	Tickets       int        `json:"tickets"`
	IsAdmin       bool       `json:"isAdmin"`
	CheckInStreak int        `json:"checkInStreak"`
	LastCheckIn   *time.Time `json:"lastCheckIn,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}
