package dispatcher

import (
	"context"
	"strings"
	"time"

	"trainingbot/internal/domain"
	"trainingbot/internal/fsm"
	"trainingbot/internal/repository"
	"trainingbot/internal/throttle"

	"go.uber.org/zap"
)

// Transitioner computes one conversation step
type Transitioner interface {
	Transition(ctx context.Context, user *domain.User, sess domain.Session, ev domain.Event) (fsm.Result, error)
}

// SessionStore keeps per-user conversation state between events
type SessionStore interface {
	Load(ctx context.Context, userID int64) (domain.Session, bool, error)
	Save(ctx context.Context, userID int64, sess domain.Session) error
	Delete(ctx context.Context, userID int64) error
}

// RateLimiter admits or rejects an event before any processing
type RateLimiter interface {
	Allow(ctx context.Context, userID int64, class throttle.Class) throttle.Decision
	Degraded() bool
}

// Dispatcher runs the unit of work for one inbound event: throttle
// check, per-user lock, user row refresh, block check, session load,
// transition, effect application, session save. Events for the same user
// are strictly serialized; concurrent ones are rejected, never queued.
type Dispatcher struct {
	machine  Transitioner
	users    repository.UserRepository
	activity repository.ActivityRepository
	quiz     repository.QuizRepository
	sessions SessionStore
	limiter  RateLimiter
	locks    *keyedLock
	lockWait time.Duration
	logger   *zap.Logger
}

// NewDispatcher creates the event dispatcher. lockWait bounds how long an
// event waits for the same user's previous event to finish.
func NewDispatcher(
	machine Transitioner,
	users repository.UserRepository,
	activity repository.ActivityRepository,
	quiz repository.QuizRepository,
	sessions SessionStore,
	limiter RateLimiter,
	lockWait time.Duration,
	logger *zap.Logger,
) *Dispatcher {
	if lockWait <= 0 {
		lockWait = 2 * time.Second
	}
	return &Dispatcher{
		machine:  machine,
		users:    users,
		activity: activity,
		quiz:     quiz,
		sessions: sessions,
		limiter:  limiter,
		locks:    newKeyedLock(),
		lockWait: lockWait,
		logger:   logger,
	}
}

var (
	throttledResponse = domain.TextResponse("Too many requests, please slow down.")
	busyResponse      = domain.TextResponse("Still working on your previous action, one moment.")
	blockedResponse   = domain.TextResponse("Your access to the bot is restricted. Contact your manager if you believe this is a mistake.")
	retryResponse     = domain.TextResponse("Something went wrong, please try again.")
)

// Handle processes one normalized event end to end. The returned response
// is always renderable; a non-nil error marks an internal failure that
// was answered with a generic retry message.
func (d *Dispatcher) Handle(ctx context.Context, sender domain.Sender, ev domain.Event) (domain.Response, error) {
	decision := d.limiter.Allow(ctx, sender.ID, eventClass(ev))
	if !decision.Allowed {
		resp := throttledResponse
		resp.Alert = ev.Kind == domain.EventCallback
		return resp, nil
	}

	if !d.locks.acquire(ctx, sender.ID, d.lockWait) {
		resp := busyResponse
		resp.Alert = ev.Kind == domain.EventCallback
		return resp, nil
	}
	defer d.locks.release(sender.ID)

	// Refreshes last activity on every event, including ones that end in
	// a clarification or a blocked notice.
	user, err := d.users.GetOrCreate(ctx, sender.ID, senderPatch(sender))
	if err != nil {
		d.logger.Error("Failed to load user", zap.Int64("telegram_id", sender.ID), zap.Error(err))
		return retryResponse, err
	}

	if user.IsBlocked {
		return blockedResponse, nil
	}

	sess, found, err := d.sessions.Load(ctx, user.TelegramID)
	if err != nil {
		d.logger.Error("Failed to load session", zap.Int64("telegram_id", sender.ID), zap.Error(err))
		return retryResponse, err
	}
	if !found {
		sess = domain.Session{}
	}

	res, err := d.machine.Transition(ctx, user, sess, ev)
	if err != nil {
		d.logger.Error("Transition failed",
			zap.Int64("telegram_id", sender.ID),
			zap.String("state", string(sess.State)),
			zap.Error(err),
		)
		return retryResponse, err
	}

	// Effects are applied before the session is saved. If one fails the
	// session stays put and the user retries; effects are written so a
	// repeat is safe.
	if err := d.applyEffects(ctx, user, res.Effects); err != nil {
		d.logger.Error("Failed to apply effects", zap.Int64("telegram_id", sender.ID), zap.Error(err))
		return retryResponse, err
	}

	d.recordActivity(ctx, user, ev, res)
	d.bumpCounter(ctx, user, ev)

	if err := d.sessions.Save(ctx, user.TelegramID, res.Session); err != nil {
		d.logger.Error("Failed to save session", zap.Int64("telegram_id", sender.ID), zap.Error(err))
		return retryResponse, err
	}

	return res.Response, nil
}

// Degraded reports whether the throttle counter store was unreachable on
// the most recent admission check. Exposed for the health surface.
func (d *Dispatcher) Degraded() bool {
	return d.limiter.Degraded()
}

func (d *Dispatcher) applyEffects(ctx context.Context, user *domain.User, effects []fsm.Effect) error {
	for _, e := range effects {
		switch eff := e.(type) {
		case fsm.SaveProfileEffect:
			if err := d.users.UpdateProfile(ctx, user.TelegramID, eff.Patch); err != nil {
				return err
			}
		case fsm.SaveQuizResultEffect:
			result := eff.Result
			result.UserID = user.ID
			if err := d.quiz.SaveResult(ctx, &result); err != nil {
				return err
			}
		}
	}
	return nil
}

// recordActivity appends the transition to the activity log. A write
// failure is logged and swallowed; analytics must never break the
// conversation.
func (d *Dispatcher) recordActivity(ctx context.Context, user *domain.User, ev domain.Event, res fsm.Result) {
	act := res.Activity
	if act.Action == "" {
		return
	}
	act.UserID = user.ID
	if !res.Sensitive {
		act.MessageText = ev.Text
		act.CallbackData = ev.Token
	}
	if err := d.activity.Log(ctx, act); err != nil {
		d.logger.Error("Failed to log activity",
			zap.Int64("telegram_id", user.TelegramID),
			zap.String("action", act.Action),
			zap.Error(err),
		)
	}
}

func (d *Dispatcher) bumpCounter(ctx context.Context, user *domain.User, ev domain.Event) {
	var counter domain.CounterKind
	switch {
	case ev.Kind == domain.EventStart:
		counter = domain.CounterCommands
	case ev.Kind == domain.EventText && strings.HasPrefix(strings.TrimSpace(ev.Text), "/"):
		counter = domain.CounterCommands
	case ev.Kind == domain.EventText:
		counter = domain.CounterMessages
	default:
		return
	}
	if err := d.users.IncrementCounter(ctx, user.TelegramID, counter); err != nil {
		d.logger.Error("Failed to bump usage counter",
			zap.Int64("telegram_id", user.TelegramID),
			zap.Error(err),
		)
	}
}

func eventClass(ev domain.Event) throttle.Class {
	if ev.Kind == domain.EventCallback {
		return throttle.ClassCallback
	}
	return throttle.ClassMessage
}

func senderPatch(sender domain.Sender) domain.UserPatch {
	patch := domain.UserPatch{}
	if sender.Username != "" {
		patch.Username = &sender.Username
	}
	if sender.FirstName != "" {
		patch.FirstName = &sender.FirstName
	}
	if sender.LastName != "" {
		patch.LastName = &sender.LastName
	}
	if sender.LanguageCode != "" {
		patch.LanguageCode = &sender.LanguageCode
	}
	return patch
}
