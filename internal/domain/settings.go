package domain

import "time"

// Setting is a flat key/value configuration row with a declared type
type Setting struct {
	ID          int64
	Key         string
	Value       string
	ValueType   string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
