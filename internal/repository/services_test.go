package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hopes-corner-sync/internal/models"
)

func setupServiceRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *ServiceRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewServiceRepository(db, zap.NewNop())
	return db, mock, repo
}

func TestServiceInsert_Success(t *testing.T) {
	db, mock, repo := setupServiceRepo(t)
	defer db.Close()

	now := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"service_id", "created_at", "updated_at"}).
		AddRow("svc-1", now, now)

	mock.ExpectQuery(`INSERT INTO services`).
		WithArgs("guest-1", "shower", "booked", sqlmock.AnyArg()).
		WillReturnRows(rows)

	got, err := repo.Insert(context.Background(), models.Service{
		GuestID: "guest-1",
		Kind:    models.ServiceShower,
		Status:  models.StatusBooked,
	})

	require.NoError(t, err)
	assert.Equal(t, "svc-1", got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceUpdateStatusBulk_SingleStatement(t *testing.T) {
	db, mock, repo := setupServiceRepo(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE services`).
		WithArgs("done", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.UpdateStatusBulk(context.Background(), []string{"svc-1", "svc-2"}, models.StatusDone)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceUpdateStatusBulk_Failure(t *testing.T) {
	db, mock, repo := setupServiceRepo(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE services`).
		WillReturnError(errors.New("connection reset"))

	err := repo.UpdateStatusBulk(context.Background(), []string{"svc-1"}, models.StatusDone)

	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceListByKind_FiltersOnKind(t *testing.T) {
	db, mock, repo := setupServiceRepo(t)
	defer db.Close()

	now := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"service_id", "guest_id", "kind", "status", "notes", "created_at", "updated_at"}).
		AddRow("svc-1", "guest-1", "laundry", "waiting", "", now, now)

	mock.ExpectQuery(`SELECT`).
		WithArgs("laundry").
		WillReturnRows(rows)

	services, err := repo.ListByKind(context.Background(), models.ServiceLaundry)

	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, models.ServiceLaundry, services[0].Kind)
	assert.Equal(t, models.StatusWaiting, services[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKindScopedServices_InsertForcesKind(t *testing.T) {
	db, mock, repo := setupServiceRepo(t)
	defer db.Close()

	now := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"service_id", "created_at", "updated_at"}).
		AddRow("svc-9", now, now)

	// Kind comes from the scope, not from the caller-supplied record.
	mock.ExpectQuery(`INSERT INTO services`).
		WithArgs("guest-1", "bicycle", "waiting", sqlmock.AnyArg()).
		WillReturnRows(rows)

	scoped := repo.ForKind(models.ServiceBicycle)
	got, err := scoped.Insert(context.Background(), models.Service{
		GuestID: "guest-1",
		Status:  models.StatusWaiting,
	})

	require.NoError(t, err)
	assert.Equal(t, models.ServiceBicycle, got.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}
