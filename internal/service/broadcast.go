package service

import (
	"context"
	"time"

	"trainingbot/internal/domain"
	"trainingbot/internal/repository"

	"go.uber.org/zap"
)

// BroadcastSender delivers one message to one recipient. The transport
// layer provides the implementation.
type BroadcastSender interface {
	Send(ctx context.Context, telegramID int64, text string) error
}

// BroadcastWorker drains the broadcast queue in the background. Jobs are
// claimed one at a time with a skip-locked update so several bot
// instances can share the queue without double delivery.
type BroadcastWorker struct {
	broadcasts repository.BroadcastRepository
	users      repository.UserRepository
	sender     BroadcastSender
	interval   time.Duration
	sendPause  time.Duration
	logger     *zap.Logger
}

// NewBroadcastWorker creates the queue worker. interval is how often the
// queue is polled; sendPause spaces out deliveries to stay under the
// transport's rate limit.
func NewBroadcastWorker(
	broadcasts repository.BroadcastRepository,
	users repository.UserRepository,
	sender BroadcastSender,
	interval time.Duration,
	logger *zap.Logger,
) *BroadcastWorker {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &BroadcastWorker{
		broadcasts: broadcasts,
		users:      users,
		sender:     sender,
		interval:   interval,
		sendPause:  50 * time.Millisecond,
		logger:     logger,
	}
}

// Run polls the queue until the context is cancelled
func (w *BroadcastWorker) Run(ctx context.Context) {
	w.logger.Info("Broadcast worker started", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Broadcast worker stopped")
			return
		case <-ticker.C:
			if err := w.ProcessOne(ctx); err != nil {
				w.logger.Error("Broadcast delivery failed", zap.Error(err))
			}
		}
	}
}

// ProcessOne claims and fully delivers the oldest pending job, if any
func (w *BroadcastWorker) ProcessOne(ctx context.Context) error {
	job, err := w.broadcasts.ClaimPending(ctx)
	if err != nil {
		return err
	}
	if job == nil {
		return nil
	}

	targets, err := w.users.BroadcastTargets(ctx, job.TargetDepartment, job.TargetRole)
	if err != nil {
		w.finish(ctx, job.ID, domain.BroadcastFailed)
		return err
	}

	w.logger.Info("Delivering broadcast",
		zap.Int64("broadcast_id", job.ID),
		zap.Int("recipients", len(targets)),
	)

	sent, failed := 0, 0
	for _, telegramID := range targets {
		if ctx.Err() != nil {
			// Shutdown mid-delivery; persist counters past the cancelled
			// context so a restart resumes with accurate numbers.
			w.updateCounters(context.WithoutCancel(ctx), job.ID, sent, failed, len(targets))
			return ctx.Err()
		}

		if err := w.sender.Send(ctx, telegramID, job.Text); err != nil {
			failed++
			w.logger.Debug("Broadcast recipient unreachable",
				zap.Int64("broadcast_id", job.ID),
				zap.Int64("telegram_id", telegramID),
				zap.Error(err),
			)
		} else {
			sent++
		}

		if (sent+failed)%25 == 0 {
			w.updateCounters(ctx, job.ID, sent, failed, len(targets))
		}
		time.Sleep(w.sendPause)
	}

	w.updateCounters(ctx, job.ID, sent, failed, len(targets))

	status := domain.BroadcastCompleted
	if sent == 0 && failed > 0 {
		status = domain.BroadcastFailed
	}
	w.finish(ctx, job.ID, status)

	w.logger.Info("Broadcast finished",
		zap.Int64("broadcast_id", job.ID),
		zap.Int("sent", sent),
		zap.Int("failed", failed),
		zap.String("status", string(status)),
	)
	return nil
}

func (w *BroadcastWorker) updateCounters(ctx context.Context, id int64, sent, failed, total int) {
	if err := w.broadcasts.UpdateCounters(ctx, id, sent, failed, total); err != nil {
		w.logger.Error("Failed to update broadcast counters",
			zap.Int64("broadcast_id", id), zap.Error(err))
	}
}

func (w *BroadcastWorker) finish(ctx context.Context, id int64, status domain.BroadcastStatus) {
	if err := w.broadcasts.Finish(ctx, id, status); err != nil {
		w.logger.Error("Failed to finalize broadcast",
			zap.Int64("broadcast_id", id), zap.Error(err))
	}
}
