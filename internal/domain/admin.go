package domain

import (
	"errors"
	"time"
)

// ErrForbidden is returned by privileged operations when the caller's
// role does not clear the operation's floor
var ErrForbidden = errors.New("forbidden")

// AdminLog is an append-only audit record of a privileged action
type AdminLog struct {
	ID           int64
	AdminID      int64
	Action       string
	TargetType   string
	TargetID     *int64
	Details      map[string]any
	Success      bool
	ErrorMessage string
	CreatedAt    time.Time
}

// AdminLogFilter narrows audit log queries
type AdminLogFilter struct {
	AdminID *int64
	Action  string
	Since   time.Time
	Limit   int
}

// AdminAttempt is the password gate's verdict for one login attempt
type AdminAttempt struct {
	OK         bool
	Locked     bool
	RetryAfter time.Duration
	Remaining  int
}

// AdminSession tracks an authenticated admin. Kept in the session state
// store keyed by the admin's user id, never as process-wide state.
type AdminSession struct {
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
}
