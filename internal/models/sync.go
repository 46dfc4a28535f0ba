package models

import "time"

// SyncJob acknowledges a queued warm-up of an account's school data.
type SyncJob struct {
	ID         string    `json:"job_id"`
	AccountID  string    `json:"account_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
