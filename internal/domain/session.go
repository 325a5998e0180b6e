package domain

import "time"

// State names the conversation position of a user. It is the state
// machine's program counter, persisted externally between events.
type State string

const (
	StateIdle State = "idle"

	// Registration sub-flow
	StateAwaitingFullName   State = "awaiting_full_name"
	StateAwaitingDepartment State = "awaiting_department"
	StateAwaitingPosition   State = "awaiting_position"
	StateAwaitingPark       State = "awaiting_park"

	// Steady state and menu navigation
	StateMainMenu    State = "main_menu"
	StateMenuSection State = "menu_section"

	// Quiz sub-machine
	StateQuizCategory State = "quiz_category"
	StateQuizQuestion State = "quiz_question"
	StateQuizComplete State = "quiz_complete"

	// Admin flow
	StateAdminPassword       State = "admin_password"
	StateAdminMenu           State = "admin_menu"
	StateAdminUserID         State = "admin_user_id"
	StateAdminBlockReason    State = "admin_block_reason"
	StateAdminBroadcastText  State = "admin_broadcast_text"
	StateAdminBroadcastDept  State = "admin_broadcast_dept"
	StateAdminBroadcastCheck State = "admin_broadcast_check"
	StateAdminContentKey     State = "admin_content_key"
	StateAdminContentText    State = "admin_content_text"
)

// QuizProgress is the quiz sub-machine's scratch data. Answers accumulate
// here and are only persisted when the final question is answered.
type QuizProgress struct {
	Category    string     `json:"category"`
	QuestionIDs []int64    `json:"question_ids"`
	Index       int        `json:"index"`
	Answers     []QuizPick `json:"answers"`
	StartedAt   time.Time  `json:"started_at"`
	AskedAt     time.Time  `json:"asked_at"`
}

// QuizPick records one in-flight answer before the attempt is committed
type QuizPick struct {
	QuestionID    int64 `json:"question_id"`
	SelectedIndex int   `json:"selected_index"`
	IsCorrect     bool  `json:"is_correct"`
	TimeSpent     int   `json:"time_spent"`
}

// SessionData is the free-form blob attached to a conversation state
type SessionData struct {
	// Registration scratch fields
	FullName   string     `json:"full_name,omitempty"`
	Department Department `json:"department,omitempty"`
	Position   string     `json:"position,omitempty"`

	// Menu navigation path, innermost section last
	MenuPath []string `json:"menu_path,omitempty"`

	Quiz *QuizProgress `json:"quiz,omitempty"`

	// Admin operation scratch fields
	AdminTarget    int64      `json:"admin_target,omitempty"`
	AdminUnblock   bool       `json:"admin_unblock,omitempty"`
	BroadcastText  string     `json:"broadcast_text,omitempty"`
	BroadcastDept  Department `json:"broadcast_dept,omitempty"`
	ContentKey     string     `json:"content_key,omitempty"`
	ContentSection string     `json:"content_section,omitempty"`
}

// Session is one user's conversation state machine instance
type Session struct {
	State State       `json:"state"`
	Data  SessionData `json:"data"`
}

// NewSession returns a session positioned at the given state with empty data
func NewSession(state State) Session {
	return Session{State: state}
}

// CurrentSection returns the innermost menu section, or "" at the top level
func (s *Session) CurrentSection() string {
	if len(s.Data.MenuPath) == 0 {
		return ""
	}
	return s.Data.MenuPath[len(s.Data.MenuPath)-1]
}
