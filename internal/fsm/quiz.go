package fsm

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"trainingbot/internal/domain"
)

// quizLength caps a single attempt regardless of bank size
const quizLength = 10

var quizCategories = []struct {
	Key   string
	Title string
}{
	{Key: "sales", Title: "Sales"},
	{Key: "sport", Title: "Sport"},
}

func (m *Machine) quizCategoryPrompt(sess domain.Session) Result {
	rows := make([][]domain.Button, 0, len(quizCategories)+1)
	for _, c := range quizCategories {
		rows = append(rows, []domain.Button{{Label: c.Title, Token: "quiz:" + c.Key}})
	}
	rows = append(rows, []domain.Button{{Label: "Main menu", Token: "home"}})

	sess.State = domain.StateQuizCategory
	sess.Data.Quiz = nil
	return Result{
		Session: sess,
		Response: domain.Response{
			Text:    "Knowledge check. Pick a category:",
			Buttons: rows,
		},
		Activity: domain.Activity{Action: "quiz_categories", Section: "quiz"},
	}
}

func (m *Machine) quizStep(ctx context.Context, user *domain.User, sess domain.Session, ev domain.Event) (Result, error) {
	if ev.Kind != domain.EventCallback {
		return clarify(sess, "quiz_hint", "Answer with the option buttons below."), nil
	}

	switch sess.State {
	case domain.StateQuizCategory:
		switch {
		case ev.Token == "home":
			return m.toMainMenu("menu_home"), nil
		case strings.HasPrefix(ev.Token, "quiz:"):
			return m.startQuiz(ctx, sess, strings.TrimPrefix(ev.Token, "quiz:"))
		}
		return m.quizCategoryPrompt(sess), nil

	case domain.StateQuizQuestion:
		switch {
		case ev.Token == "quiz_cancel":
			return m.cancelQuiz(sess), nil
		case strings.HasPrefix(ev.Token, "ans:"):
			return m.answerQuestion(ctx, user, sess, strings.TrimPrefix(ev.Token, "ans:"))
		}
		return clarify(sess, "quiz_hint", "Answer with the option buttons below."), nil
	}

	return m.toMainMenu("menu_resync"), nil
}

// startQuiz snapshots the question set into the session so the attempt
// stays stable even if the bank changes mid-quiz
func (m *Machine) startQuiz(ctx context.Context, sess domain.Session, category string) (Result, error) {
	if !validQuizCategory(category) {
		return m.quizCategoryPrompt(sess), nil
	}

	questions, err := m.questions.ActiveQuestions(ctx, category)
	if err != nil {
		return Result{}, err
	}
	if len(questions) == 0 {
		res := m.toMainMenu("quiz_empty")
		res.Response.Text = "No questions in this category yet, check back later.\n\n" + res.Response.Text
		return res, nil
	}
	if len(questions) > quizLength {
		questions = questions[:quizLength]
	}

	now := time.Now().UTC()
	ids := make([]int64, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}

	sess.State = domain.StateQuizQuestion
	sess.Data.Quiz = &domain.QuizProgress{
		Category:    category,
		QuestionIDs: ids,
		StartedAt:   now,
		AskedAt:     now,
	}

	return Result{
		Session:  sess,
		Response: questionResponse(questions[0], 0, len(ids)),
		Activity: domain.Activity{
			Action:  "quiz_start",
			Section: "quiz",
			Details: map[string]any{"category": category, "questions": len(ids)},
		},
	}, nil
}

// answerQuestion scores one pick and either advances or finalizes the
// attempt. Nothing is persisted until the final answer; an abandoned
// attempt leaves no trace in the results.
func (m *Machine) answerQuestion(ctx context.Context, user *domain.User, sess domain.Session, rawIndex string) (Result, error) {
	progress := sess.Data.Quiz
	if progress == nil || progress.Index >= len(progress.QuestionIDs) {
		return m.toMainMenu("menu_resync"), nil
	}

	byID, err := m.questionIndex(ctx, progress.Category)
	if err != nil {
		return Result{}, err
	}
	question, ok := byID[progress.QuestionIDs[progress.Index]]
	if !ok {
		// Question deactivated mid-attempt; the snapshot can no longer be
		// scored fairly, so the attempt is dropped.
		return m.cancelQuiz(sess), nil
	}

	selected, err := strconv.Atoi(rawIndex)
	if err != nil || selected < 0 || selected >= len(question.Options) {
		res := clarify(sess, "quiz_hint", "Answer with the option buttons below.")
		res.Response = questionResponse(question, progress.Index, len(progress.QuestionIDs))
		return res, nil
	}

	now := time.Now().UTC()
	progress.Answers = append(progress.Answers, domain.QuizPick{
		QuestionID:    question.ID,
		SelectedIndex: selected,
		IsCorrect:     selected == question.CorrectIndex,
		TimeSpent:     int(now.Sub(progress.AskedAt).Seconds()),
	})
	progress.Index++

	if progress.Index < len(progress.QuestionIDs) {
		next, ok := byID[progress.QuestionIDs[progress.Index]]
		if !ok {
			return m.cancelQuiz(sess), nil
		}
		progress.AskedAt = now
		return Result{
			Session:  sess,
			Response: questionResponse(next, progress.Index, len(progress.QuestionIDs)),
			Activity: domain.Activity{
				Action:  "quiz_answer",
				Section: "quiz",
				Details: map[string]any{"category": progress.Category, "correct": selected == question.CorrectIndex},
			},
		}, nil
	}

	return m.finishQuiz(user, sess, now), nil
}

// finishQuiz builds the persistent result from the accumulated picks
func (m *Machine) finishQuiz(user *domain.User, sess domain.Session, now time.Time) Result {
	progress := sess.Data.Quiz

	correct := 0
	answers := make([]domain.QuizAnswer, len(progress.Answers))
	for i, pick := range progress.Answers {
		if pick.IsCorrect {
			correct++
		}
		answers[i] = domain.QuizAnswer{
			QuestionID:       pick.QuestionID,
			SelectedIndex:    pick.SelectedIndex,
			IsCorrect:        pick.IsCorrect,
			TimeSpentSeconds: pick.TimeSpent,
		}
	}

	total := len(progress.Answers)
	score := float64(correct) / float64(total)
	passed := score >= m.passScore

	result := domain.QuizResult{
		UserID:          user.ID,
		Category:        progress.Category,
		TotalQuestions:  total,
		CorrectAnswers:  correct,
		Score:           score,
		StartedAt:       progress.StartedAt,
		CompletedAt:     now,
		DurationSeconds: int(now.Sub(progress.StartedAt).Seconds()),
		IsPassed:        passed,
		Answers:         answers,
	}

	verdict := "Keep studying and try again!"
	if passed {
		verdict = "Well done, you passed!"
	}
	text := fmt.Sprintf("Quiz finished!\n\nCorrect answers: %d of %d (%.0f%%)\n%s",
		correct, total, score*100, verdict)

	category := progress.Category
	sess.State = domain.StateQuizComplete
	sess.Data.Quiz = nil

	return Result{
		Session: sess,
		Effects: []Effect{SaveQuizResultEffect{Result: result}},
		Response: domain.Response{
			Text: text,
			Buttons: [][]domain.Button{
				{{Label: "Try again", Token: "quiz:" + category}},
				{{Label: "Main menu", Token: "home"}},
			},
		},
		Activity: domain.Activity{
			Action:  "quiz_complete",
			Section: "quiz",
			Details: map[string]any{"category": category, "score": score, "passed": passed},
		},
	}
}

func (m *Machine) cancelQuiz(sess domain.Session) Result {
	category := ""
	if sess.Data.Quiz != nil {
		category = sess.Data.Quiz.Category
	}
	res := m.toMainMenu("quiz_cancelled")
	res.Response.Text = "Quiz cancelled, nothing was recorded.\n\n" + res.Response.Text
	res.Activity = domain.Activity{
		Action:  "quiz_cancelled",
		Section: "quiz",
		Details: map[string]any{"category": category},
	}
	return res
}

func (m *Machine) questionIndex(ctx context.Context, category string) (map[int64]domain.Question, error) {
	questions, err := m.questions.ActiveQuestions(ctx, category)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	return byID, nil
}

func questionResponse(q domain.Question, index, total int) domain.Response {
	rows := make([][]domain.Button, 0, len(q.Options)+1)
	for i, option := range q.Options {
		rows = append(rows, []domain.Button{{Label: option, Token: "ans:" + strconv.Itoa(i)}})
	}
	rows = append(rows, []domain.Button{{Label: "Cancel", Token: "quiz_cancel"}})
	return domain.Response{
		Text:    fmt.Sprintf("Question %d of %d\n\n%s", index+1, total, q.Text),
		Buttons: rows,
	}
}

func validQuizCategory(category string) bool {
	for _, c := range quizCategories {
		if c.Key == category {
			return true
		}
	}
	return false
}
