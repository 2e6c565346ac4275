package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Job status enums. Transitions only move forward:
// initializing -> pending -> done | failed.
const (
	JobStatusInitializing = "initializing"
	JobStatusPending      = "pending"
	JobStatusDone         = "done"
	JobStatusFailed       = "failed"
)

// Job kinds.
const (
	JobKindGroupImage = "group_image"
	JobKindComicPanel = "comic_panel"
)

// JobResultPlaceholder is stored as the result location until a worker fills it in.
const JobResultPlaceholder = "placeholder://pending"

type Job struct {
	ID        string          `json:"id"`
	UserID    uuid.UUID       `json:"userId"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Status    string          `json:"status"`
	ResultURL string          `json:"resultUrl"`
	Cost      int             `json:"cost"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// IsTerminal reports whether the job has reached done or failed.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusDone || j.Status == JobStatusFailed
}

// JobStatusPredecessors lists, per target status, the statuses it may be reached from.
var JobStatusPredecessors = map[string][]string{
	JobStatusPending: {JobStatusInitializing},
	JobStatusDone:    {JobStatusInitializing, JobStatusPending},
	JobStatusFailed:  {JobStatusInitializing, JobStatusPending},
}
