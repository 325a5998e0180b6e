package postgres

import (
	"context"
	"testing"
	"time"

	"trainingbot/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityRepo_Log(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewActivityRepo(db)

	mock.ExpectExec("INSERT INTO user_activity").
		WithArgs(int64(42), "section_view", "sales", "", nil, "menu:sales_scripts", "").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.Log(context.Background(), domain.Activity{
		UserID:       42,
		Action:       "section_view",
		Section:      "sales",
		CallbackData: "menu:sales_scripts",
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepo_LogSerializesDetails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewActivityRepo(db)

	mock.ExpectExec("INSERT INTO user_activity").
		WithArgs(int64(42), "quiz_complete", "", "", []byte(`{"score":0.5}`), "", "").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.Log(context.Background(), domain.Activity{
		UserID:  42,
		Action:  "quiz_complete",
		Details: map[string]any{"score": 0.5},
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepo_PopularSections(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewActivityRepo(db)

	since := time.Now().AddDate(0, 0, -7)
	rows := sqlmock.NewRows([]string{"section", "views"}).
		AddRow("sales", 19).
		AddRow("general", 11)

	mock.ExpectQuery("GROUP BY section").
		WithArgs(since, 10).
		WillReturnRows(rows)

	sections, err := repo.PopularSections(context.Background(), since, 10)

	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, "sales", sections[0].Section)
	assert.Equal(t, 19, sections[0].Views)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepo_Stats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewActivityRepo(db)

	since := time.Now().AddDate(0, 0, -30)
	mock.ExpectQuery("SELECT COUNT\\(id\\), COUNT\\(DISTINCT user_id\\)").
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"count", "count"}).AddRow(5400, 88))

	stats, err := repo.Stats(context.Background(), since)

	require.NoError(t, err)
	assert.Equal(t, 5400, stats.TotalActions)
	assert.Equal(t, 88, stats.UniqueUsers)
}

func TestActivityRepo_RecentWithUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewActivityRepo(db)

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "action", "section", "subsection", "details",
		"callback_data", "message_text", "created_at",
		"telegram_id", "username", "first_name",
	}).AddRow(1, 42, "section_view", "sales", nil, nil, "menu:sales", nil, time.Now(), 100, "anna", "Anna")

	mock.ExpectQuery("JOIN users u ON u.id = a.user_id").
		WithArgs(20).
		WillReturnRows(rows)

	activity, err := repo.Recent(context.Background(), 20, true)

	require.NoError(t, err)
	require.Len(t, activity, 1)
	assert.Equal(t, int64(100), activity[0].TelegramID)
	assert.Equal(t, "Anna", activity[0].FirstName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepo_ByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewActivityRepo(db)

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "action", "section", "subsection", "details", "callback_data", "message_text", "created_at",
	}).AddRow(1, 42, "section_view", "sales", nil, nil, "menu:sales", nil, time.Now())

	mock.ExpectQuery("FROM user_activity").
		WithArgs(int64(42), 20, 0).
		WillReturnRows(rows)

	activity, err := repo.ByUser(context.Background(), 42, 20, 0)

	require.NoError(t, err)
	require.Len(t, activity, 1)
	assert.Equal(t, "section_view", activity[0].Action)
	assert.Equal(t, "menu:sales", activity[0].CallbackData)
	assert.NoError(t, mock.ExpectationsWereMet())
}
