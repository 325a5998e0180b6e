package testutil

import (
	"time"

	"trainingbot/internal/domain"

	"go.uber.org/zap"
)

// NewTestLogger creates a no-op logger for tests
func NewTestLogger() *zap.Logger {
	return zap.NewNop()
}

// NewTestUser creates a user with a finished profile
func NewTestUser(telegramID int64, role domain.Role) *domain.User {
	return &domain.User{
		ID:           telegramID,
		TelegramID:   telegramID,
		Username:     "tester",
		FirstName:    "Anna",
		LastName:     "Petrova",
		Department:   domain.DepartmentSales,
		Role:         role,
		Position:     "manager",
		ParkLocation: "North Park",
		IsActive:     true,
		RegisteredAt: time.Now().Add(-24 * time.Hour),
		LastActivity: time.Now(),
	}
}

// NewUnregisteredUser creates a user that has not finished registration
func NewUnregisteredUser(telegramID int64) *domain.User {
	return &domain.User{
		ID:         telegramID,
		TelegramID: telegramID,
		Username:   "newbie",
		FirstName:  "Ivan",
		Role:       domain.RoleUser,
		IsActive:   true,
	}
}

// NewTestQuestion creates a quiz question with four options
func NewTestQuestion(id int64, category string, correct int) domain.Question {
	return domain.Question{
		ID:           id,
		Category:     category,
		Text:         "Test question",
		Options:      []string{"A", "B", "C", "D"},
		CorrectIndex: correct,
		Points:       1,
		IsActive:     true,
	}
}

// NewTestContent creates an active content unit
func NewTestContent(key, section, text string) *domain.Content {
	return &domain.Content{
		ID:       1,
		Section:  section,
		Key:      key,
		Title:    "Title for " + key,
		Text:     text,
		IsActive: true,
	}
}
