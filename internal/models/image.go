package models

import (
	"time"

	"github.com/google/uuid"
)

type Image struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"userId"`
	JobID     *string    `json:"jobId,omitempty"`
	URL       string     `json:"url"`
	IsPublic  bool       `json:"isPublic"`
	SharedAt  *time.Time `json:"sharedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}
