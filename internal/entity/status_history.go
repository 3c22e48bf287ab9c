package entity

import (
	"time"
)

// StatusHistory is one immutable audit entry for a request status change.
// Entries are append-only; nothing edits or deletes them.
type StatusHistory struct {
	ID        int64     `json:"id"`
	RequestID int64     `json:"request_id"`
	OldStatus *string   `json:"old_status,omitempty"` // nil for the creation entry
	NewStatus string    `json:"new_status"`
	ChangedAt time.Time `json:"changed_at"`
}
