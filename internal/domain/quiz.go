package domain

import "time"

// Question is a quiz question from the bank
type Question struct {
	ID           int64
	Category     string
	Subcategory  string
	Text         string
	Options      []string
	CorrectIndex int
	Explanation  string
	Difficulty   int
	Points       int
	IsActive     bool
}

// QuizResult records one completed quiz attempt. Immutable once written;
// deleting a result cascades its answers.
type QuizResult struct {
	ID              int64
	UserID          int64
	Category        string
	TotalQuestions  int
	CorrectAnswers  int
	Score           float64
	StartedAt       time.Time
	CompletedAt     time.Time
	DurationSeconds int
	IsPassed        bool
	Answers         []QuizAnswer
}

// QuizAnswer is a single answered question within a result
type QuizAnswer struct {
	ID               int64
	ResultID         int64
	QuestionID       int64
	SelectedIndex    int
	IsCorrect        bool
	TimeSpentSeconds int
	AnsweredAt       time.Time
}
