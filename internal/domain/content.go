package domain

import "time"

// Content is a keyed unit of informational material shown in menu sections
type Content struct {
	ID          int64
	Section     string
	Key         string
	Title       string
	Text        string
	MediaPath   string
	MediaType   string
	MediaFileID string
	Tags        []string
	OrderIndex  int
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ContentPatch enumerates the mergeable content fields. Nil keeps the
// stored value, mirroring the upsert-by-key merge discipline.
type ContentPatch struct {
	Title       *string
	Text        *string
	MediaPath   *string
	MediaType   *string
	MediaFileID *string
	Tags        []string
	OrderIndex  *int
}
