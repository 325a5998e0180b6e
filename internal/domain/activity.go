package domain

import "time"

// Activity is an append-only record of a single user action.
// Rows are never updated after creation.
type Activity struct {
	ID           int64
	UserID       int64
	Action       string
	Section      string
	Subsection   string
	Details      map[string]any
	CallbackData string
	MessageText  string
	CreatedAt    time.Time
}

// ActivityWithUser pairs an activity row with the acting user's identity.
// The user fields are populated only when the caller asked for them.
type ActivityWithUser struct {
	Activity
	TelegramID int64
	Username   string
	FirstName  string
}

// SectionCount is an aggregate of views per section
type SectionCount struct {
	Section string
	Views   int
}

// ActivityStats summarizes activity over a window
type ActivityStats struct {
	TotalActions int
	UniqueUsers  int
	PeriodDays   int
}

// Statistics is the admin-facing overview of the user base
type Statistics struct {
	TotalUsers   int
	ActiveToday  int
	ActiveWeek   int
	NewThisWeek  int
	BlockedUsers int
	TotalActions int
}
