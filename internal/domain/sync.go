package domain

import "time"

type SyncStatus string

const (
	SyncNoData  SyncStatus = "no_data"
	SyncNewData SyncStatus = "new_data"
	SyncFailed  SyncStatus = "failed"
)

// SyncResult holds statistics about a background sync run.
type SyncResult struct {
	Status         SyncStatus    `json:"status"`
	Topics         int           `json:"topics"`
	Fetched        int           `json:"fetched"`
	New            int           `json:"new"`
	NotificationID string        `json:"notification_id,omitempty"`
	Duration       time.Duration `json:"duration"`
}
