package fsm

import (
	"context"
	"strings"

	"trainingbot/internal/domain"

	"go.uber.org/zap"
)

// QuestionSource supplies the active question bank for a quiz category
type QuestionSource interface {
	ActiveQuestions(ctx context.Context, category string) ([]domain.Question, error)
}

// ContentSource supplies stored section content by key
type ContentSource interface {
	GetByKey(ctx context.Context, key string) (*domain.Content, error)
}

// Result is the outcome of one transition. The dispatcher commits the
// effects to the persistent store, then writes Session back; the
// transition is not complete until both succeed.
type Result struct {
	Session  domain.Session
	Effects  []Effect
	Response domain.Response
	// Activity describes the transition for the append-only log. The
	// dispatcher fills in the user id and raw event payload.
	Activity domain.Activity
	// Sensitive suppresses the raw event payload in the activity log,
	// e.g. while a password is being collected.
	Sensitive bool
}

// Machine maps (state, data, event) to (next state, effects, response).
// It performs reads against the question and content sources but never
// writes; all writes travel as effects or through the admin services.
type Machine struct {
	questions QuestionSource
	content   ContentSource
	gate      AdminGate
	ops       AdminOps
	passScore float64
	logger    *zap.Logger
}

// NewMachine creates the conversation state machine
func NewMachine(
	questions QuestionSource,
	content ContentSource,
	gate AdminGate,
	ops AdminOps,
	passScore float64,
	logger *zap.Logger,
) *Machine {
	if passScore <= 0 {
		passScore = 0.7
	}
	return &Machine{
		questions: questions,
		content:   content,
		gate:      gate,
		ops:       ops,
		passScore: passScore,
		logger:    logger,
	}
}

// Transition computes the next conversation step. A returned error means
// a dependency failed mid-transition; the caller must not commit the
// session and should answer with a generic retry message.
func (m *Machine) Transition(ctx context.Context, user *domain.User, sess domain.Session, ev domain.Event) (Result, error) {
	if ev.Kind == domain.EventStart {
		return m.start(user), nil
	}

	// Commands preempt whatever state the conversation is in
	if ev.Kind == domain.EventText {
		switch strings.TrimSpace(ev.Text) {
		case "/menu":
			if !user.ProfileComplete() {
				return m.beginRegistration(), nil
			}
			return m.toMainMenu("menu_command"), nil
		case "/admin":
			return m.adminEntry(ctx, user)
		}
	}

	// First contact, expired session, or an unfinished profile always
	// routes through the registration sub-flow before anything else.
	if sess.State == "" || sess.State == domain.StateIdle {
		if !user.ProfileComplete() {
			return m.beginRegistration(), nil
		}
		sess = domain.NewSession(domain.StateMainMenu)
	}

	switch sess.State {
	case domain.StateAwaitingFullName, domain.StateAwaitingDepartment,
		domain.StateAwaitingPosition, domain.StateAwaitingPark:
		return m.registrationStep(user, sess, ev), nil

	case domain.StateMainMenu, domain.StateQuizComplete:
		return m.mainMenuStep(ctx, sess, ev)

	case domain.StateMenuSection:
		return m.sectionStep(ctx, sess, ev)

	case domain.StateQuizCategory, domain.StateQuizQuestion:
		return m.quizStep(ctx, user, sess, ev)

	case domain.StateAdminPassword, domain.StateAdminMenu,
		domain.StateAdminUserID, domain.StateAdminBlockReason,
		domain.StateAdminBroadcastText, domain.StateAdminBroadcastDept,
		domain.StateAdminBroadcastCheck, domain.StateAdminContentKey,
		domain.StateAdminContentText:
		return m.adminStep(ctx, user, sess, ev)
	}

	m.logger.Warn("Unknown conversation state, resetting to main menu",
		zap.String("state", string(sess.State)),
		zap.Int64("telegram_id", user.TelegramID),
	)
	return m.toMainMenu("main_menu_reset"), nil
}

// start handles the start command from any state
func (m *Machine) start(user *domain.User) Result {
	if !user.ProfileComplete() {
		res := m.beginRegistration()
		res.Activity = domain.Activity{Action: "start_command"}
		return res
	}
	return m.toMainMenu("start_command")
}

// toMainMenu returns the steady state with a cleared navigation stack
func (m *Machine) toMainMenu(action string) Result {
	return Result{
		Session:  domain.NewSession(domain.StateMainMenu),
		Response: mainMenuResponse(),
		Activity: domain.Activity{Action: action, Section: "main_menu"},
	}
}

// clarify leaves the session untouched and asks the user to retry. Used
// whenever the event shape does not match the current state; the flow
// must never advance silently.
func clarify(sess domain.Session, action, text string) Result {
	return Result{
		Session:  sess,
		Response: domain.TextResponse(text),
		Activity: domain.Activity{Action: action, Section: string(sess.State)},
	}
}
