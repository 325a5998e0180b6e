package postgres

import (
	"context"
	"testing"
	"time"

	"trainingbot/internal/domain"
	"trainingbot/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contentRows(key, section, text string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "section", "key", "title", "text", "media_path", "media_type", "media_file_id",
		"tags", "order_index", "is_active", "created_at", "updated_at",
	}).AddRow(1, section, key, "Title for "+key, text, nil, nil, nil, nil, 0, true, now, now)
}

func TestContentRepo_GetByKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewContentRepo(db)

	mock.ExpectQuery("FROM content WHERE key = \\$1 AND is_active = TRUE").
		WithArgs("sales.scripts").
		WillReturnRows(contentRows("sales.scripts", "sales", "Greet every guest."))

	content, err := repo.GetByKey(context.Background(), "sales.scripts")

	require.NoError(t, err)
	assert.Equal(t, "sales.scripts", content.Key)
	assert.Equal(t, "Greet every guest.", content.Text)
	assert.True(t, content.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepo_GetByKeyNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewContentRepo(db)

	mock.ExpectQuery("FROM content WHERE key = \\$1 AND is_active = TRUE").
		WithArgs("general.missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	content, err := repo.GetByKey(context.Background(), "general.missing")

	assert.Nil(t, content)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestContentRepo_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewContentRepo(db)

	mock.ExpectQuery("INSERT INTO content").
		WithArgs("sales.scripts", "sales", nil, "Updated script", nil, nil, nil, nil, nil).
		WillReturnRows(contentRows("sales.scripts", "sales", "Updated script"))

	text := "Updated script"
	content, err := repo.Upsert(context.Background(), "sales.scripts", "sales", domain.ContentPatch{Text: &text})

	require.NoError(t, err)
	assert.Equal(t, "Updated script", content.Text)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepo_BySection(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewContentRepo(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "section", "key", "title", "text", "media_path", "media_type", "media_file_id",
		"tags", "order_index", "is_active", "created_at", "updated_at",
	}).
		AddRow(1, "general", "general.park_addresses", "Park addresses", "Main street 1", nil, nil, nil, nil, 0, true, now, now).
		AddRow(2, "general", "general.phone_numbers", "Phone numbers", "+7 900 000 00 00", nil, nil, nil, nil, 1, true, now, now)

	mock.ExpectQuery("FROM content").
		WithArgs("general").
		WillReturnRows(rows)

	content, err := repo.BySection(context.Background(), "general")

	require.NoError(t, err)
	require.Len(t, content, 2)
	assert.Equal(t, "general.park_addresses", content[0].Key)
	assert.Equal(t, 1, content[1].OrderIndex)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepo_Search(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewContentRepo(db)

	mock.ExpectQuery("title ILIKE \\$1 OR text ILIKE \\$1 OR key ILIKE \\$1").
		WithArgs("%register%", 10).
		WillReturnRows(contentRows("sales.cash_register", "sales", "Open the register with your badge."))

	content, err := repo.Search(context.Background(), "register", 10)

	require.NoError(t, err)
	require.Len(t, content, 1)
	assert.Equal(t, "sales.cash_register", content[0].Key)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepo_Deactivate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewContentRepo(db)

	mock.ExpectExec("UPDATE content SET is_active = FALSE").
		WithArgs("sales.scripts").
		WillReturnResult(sqlmock.NewResult(0, 1))

	changed, err := repo.Deactivate(context.Background(), "sales.scripts")

	require.NoError(t, err)
	assert.True(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepo_DeactivateUnknownKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewContentRepo(db)

	mock.ExpectExec("UPDATE content SET is_active = FALSE").
		WithArgs("nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.Deactivate(context.Background(), "nope")

	require.NoError(t, err)
	assert.False(t, changed)
}
