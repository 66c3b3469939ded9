package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hopes-corner-sync/internal/models"
	"hopes-corner-sync/internal/store"
)

func setupMealRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *MealRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewMealRepository(db, zap.NewNop())
	return db, mock, repo
}

func TestMealInsert_ReturnsCanonicalRow(t *testing.T) {
	db, mock, repo := setupMealRepo(t)
	defer db.Close()

	servedAt := time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"meal_id", "served_at"}).
		AddRow("meal-123", servedAt)

	mock.ExpectQuery(`INSERT INTO meals`).
		WithArgs(sqlmock.AnyArg(), "guest", 1, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	got, err := repo.Insert(context.Background(), models.Meal{
		GuestID:  "guest-1",
		Kind:     models.MealGuest,
		Quantity: 1,
	})

	require.NoError(t, err)
	assert.Equal(t, "meal-123", got.ID)
	assert.Equal(t, servedAt, got.ServedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMealInsert_UniqueViolationWithKey(t *testing.T) {
	db, mock, repo := setupMealRepo(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO meals`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "meals_idempotency_key_key"})

	_, err := repo.Insert(context.Background(), models.Meal{
		Kind:           models.MealRV,
		Quantity:       100,
		IdempotencyKey: "rv_2025-01-06",
	})

	// The store recognizes this sentinel and treats the insert as a no-op.
	require.ErrorIs(t, err, store.ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMealInsert_UniqueViolationWithoutKeyIsAnError(t *testing.T) {
	db, mock, repo := setupMealRepo(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO meals`).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.Insert(context.Background(), models.Meal{
		Kind:     models.MealGuest,
		GuestID:  "guest-1",
		Quantity: 1,
	})

	require.Error(t, err)
	assert.False(t, errors.Is(err, store.ErrDuplicateKey))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMealDelete_Success(t *testing.T) {
	db, mock, repo := setupMealRepo(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM meals`).
		WithArgs("meal-123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(context.Background(), "meal-123")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMealListAll_ScansRows(t *testing.T) {
	db, mock, repo := setupMealRepo(t)
	defer db.Close()

	servedAt := time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"meal_id", "guest_id", "kind", "quantity", "notes", "idempotency_key", "served_at"}).
		AddRow("meal-1", "guest-1", "guest", 1, "", "", servedAt).
		AddRow("meal-2", "", "lunch_bag", 40, "", "lb_2025-01-06", servedAt)

	mock.ExpectQuery(`SELECT`).WillReturnRows(rows)

	meals, err := repo.ListAll(context.Background())

	require.NoError(t, err)
	require.Len(t, meals, 2)
	assert.Equal(t, models.MealGuest, meals[0].Kind)
	assert.Equal(t, "", meals[1].GuestID)
	assert.Equal(t, 40, meals[1].Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}
