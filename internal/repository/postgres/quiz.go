package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"trainingbot/internal/domain"
)

// QuizRepo implements repository.QuizRepository
type QuizRepo struct {
	db *sql.DB
}

// NewQuizRepo creates a new quiz repository
func NewQuizRepo(db *sql.DB) *QuizRepo {
	return &QuizRepo{db: db}
}

// ActiveQuestions returns the active question bank for a category
func (r *QuizRepo) ActiveQuestions(ctx context.Context, category string) ([]domain.Question, error) {
	query := `
		SELECT id, category, subcategory, question, options, correct_index,
			explanation, difficulty, points, is_active
		FROM test_questions
		WHERE category = $1 AND is_active = TRUE
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("questions for %s: %w", category, err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		var q domain.Question
		var subcategory, explanation sql.NullString
		var options []byte
		err := rows.Scan(
			&q.ID, &q.Category, &subcategory, &q.Text, &options, &q.CorrectIndex,
			&explanation, &q.Difficulty, &q.Points, &q.IsActive,
		)
		if err != nil {
			return nil, err
		}
		q.Subcategory = subcategory.String
		q.Explanation = explanation.String
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("question %d options: %w", q.ID, err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// SaveResult writes the result row and all answer rows in one transaction.
// Either everything becomes visible or nothing does.
func (r *QuizRepo) SaveResult(ctx context.Context, result *domain.QuizResult) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save quiz result: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO test_results (user_id, category, total_questions, correct_answers,
			score, started_at, completed_at, duration_seconds, is_passed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err = tx.QueryRowContext(ctx, query,
		result.UserID, result.Category, result.TotalQuestions, result.CorrectAnswers,
		result.Score, result.StartedAt, result.CompletedAt, result.DurationSeconds, result.IsPassed,
	).Scan(&result.ID)
	if err != nil {
		return fmt.Errorf("save quiz result for user %d: %w", result.UserID, err)
	}

	answerQuery := `
		INSERT INTO test_answers (test_result_id, question_id, selected_index, is_correct, time_spent_seconds)
		VALUES ($1, $2, $3, $4, $5)`

	for i := range result.Answers {
		a := &result.Answers[i]
		a.ResultID = result.ID
		if _, err := tx.ExecContext(ctx, answerQuery,
			result.ID, a.QuestionID, a.SelectedIndex, a.IsCorrect, a.TimeSpentSeconds,
		); err != nil {
			return fmt.Errorf("save quiz answer %d: %w", a.QuestionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save quiz result: %w", err)
	}
	return nil
}

// ResultsByUser returns past attempts, newest first. Answer rows are
// loaded only on explicit request.
func (r *QuizRepo) ResultsByUser(ctx context.Context, userID int64, limit int, withAnswers bool) ([]domain.QuizResult, error) {
	query := `
		SELECT id, user_id, category, total_questions, correct_answers,
			score, started_at, completed_at, duration_seconds, is_passed
		FROM test_results
		WHERE user_id = $1
		ORDER BY completed_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("results for user %d: %w", userID, err)
	}
	defer rows.Close()

	var out []domain.QuizResult
	for rows.Next() {
		var res domain.QuizResult
		err := rows.Scan(
			&res.ID, &res.UserID, &res.Category, &res.TotalQuestions, &res.CorrectAnswers,
			&res.Score, &res.StartedAt, &res.CompletedAt, &res.DurationSeconds, &res.IsPassed,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if withAnswers {
		for i := range out {
			answers, err := r.answersForResult(ctx, out[i].ID)
			if err != nil {
				return nil, err
			}
			out[i].Answers = answers
		}
	}
	return out, nil
}

func (r *QuizRepo) answersForResult(ctx context.Context, resultID int64) ([]domain.QuizAnswer, error) {
	query := `
		SELECT id, test_result_id, question_id, selected_index, is_correct, time_spent_seconds, answered_at
		FROM test_answers
		WHERE test_result_id = $1
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, resultID)
	if err != nil {
		return nil, fmt.Errorf("answers for result %d: %w", resultID, err)
	}
	defer rows.Close()

	var out []domain.QuizAnswer
	for rows.Next() {
		var a domain.QuizAnswer
		var timeSpent sql.NullInt64
		err := rows.Scan(&a.ID, &a.ResultID, &a.QuestionID, &a.SelectedIndex, &a.IsCorrect, &timeSpent, &a.AnsweredAt)
		if err != nil {
			return nil, err
		}
		a.TimeSpentSeconds = int(timeSpent.Int64)
		out = append(out, a)
	}
	return out, rows.Err()
}
