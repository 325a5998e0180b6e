package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"trainingbot/internal/repository"

	"go.uber.org/zap"
)

// SettingsService reads typed values from the system_settings table.
// A missing or malformed row falls back to the supplied default, so a
// broken settings table can never keep the bot from starting.
type SettingsService struct {
	settings repository.SettingsRepository
	logger   *zap.Logger
}

// NewSettingsService creates a new settings service
func NewSettingsService(settings repository.SettingsRepository, logger *zap.Logger) *SettingsService {
	return &SettingsService{settings: settings, logger: logger}
}

// Float returns the stored float value for key, or fallback
func (s *SettingsService) Float(ctx context.Context, key string, fallback float64) float64 {
	raw, ok := s.fetch(ctx, key)
	if !ok {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		s.logger.Warn("Setting is not a valid float, using default",
			zap.String("key", key),
			zap.String("value", raw),
		)
		return fallback
	}
	return v
}

// Duration returns the stored duration value for key, or fallback
func (s *SettingsService) Duration(ctx context.Context, key string, fallback time.Duration) time.Duration {
	raw, ok := s.fetch(ctx, key)
	if !ok {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		s.logger.Warn("Setting is not a valid duration, using default",
			zap.String("key", key),
			zap.String("value", raw),
		)
		return fallback
	}
	return v
}

func (s *SettingsService) fetch(ctx context.Context, key string) (string, bool) {
	setting, err := s.settings.Get(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return "", false
	}
	if err != nil {
		s.logger.Warn("Failed to read setting, using default",
			zap.String("key", key),
			zap.Error(err),
		)
		return "", false
	}
	return setting.Value, true
}
