package domain

import "time"

// BroadcastStatus is the delivery state of a broadcast job
type BroadcastStatus string

const (
	BroadcastPending    BroadcastStatus = "pending"
	BroadcastInProgress BroadcastStatus = "in_progress"
	BroadcastCompleted  BroadcastStatus = "completed"
	BroadcastFailed     BroadcastStatus = "failed"
)

// Broadcast is a mass-send job definition with mutable delivery counters
type Broadcast struct {
	ID               int64
	Title            string
	Text             string
	MediaFileID      string
	MediaType        string
	TargetDepartment *Department
	TargetRole       *Role
	TotalRecipients  int
	SentCount        int
	FailedCount      int
	Status           BroadcastStatus
	CreatedAt        time.Time
	ScheduledAt      *time.Time
	SentAt           *time.Time
}
