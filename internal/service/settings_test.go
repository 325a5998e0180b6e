package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"trainingbot/internal/domain"
	"trainingbot/internal/repository"
	"trainingbot/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestSettingsService_Float(t *testing.T) {
	tests := []struct {
		name     string
		setting  *domain.Setting
		err      error
		expected float64
	}{
		{
			name:     "stored value wins",
			setting:  &domain.Setting{Key: "quiz_pass_score", Value: "0.8", ValueType: "float"},
			expected: 0.8,
		},
		{
			name:     "missing row falls back",
			err:      repository.ErrNotFound,
			expected: 0.7,
		},
		{
			name:     "storage error falls back",
			err:      errors.New("connection refused"),
			expected: 0.7,
		},
		{
			name:     "malformed value falls back",
			setting:  &domain.Setting{Key: "quiz_pass_score", Value: "high", ValueType: "float"},
			expected: 0.7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := new(testutil.MockSettingsRepository)
			settings.On("Get", mock.Anything, "quiz_pass_score").Return(tt.setting, tt.err)
			svc := NewSettingsService(settings, testutil.NewTestLogger())

			got := svc.Float(context.Background(), "quiz_pass_score", 0.7)

			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSettingsService_Duration(t *testing.T) {
	settings := new(testutil.MockSettingsRepository)
	settings.On("Get", mock.Anything, "broadcast_interval").
		Return(&domain.Setting{Key: "broadcast_interval", Value: "30s", ValueType: "duration"}, nil)
	svc := NewSettingsService(settings, testutil.NewTestLogger())

	got := svc.Duration(context.Background(), "broadcast_interval", 15*time.Second)

	assert.Equal(t, 30*time.Second, got)
}
