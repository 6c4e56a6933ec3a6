package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/fleet-replanner/internal/domain"
	"github.com/pageza/fleet-replanner/internal/store"
)

// newMockStore wires a Store to a sqlmock connection, grounded on the
// teacher's TestCustomerRepository_Unit (tests/repositories/
// customer_repository_test.go).
func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Store{db: sqlx.NewDb(db, "postgres")}, mock
}

func TestGetActiveTechniciansMapsJoinedColumns(t *testing.T) {
	s, mock := newMockStore(t)

	vanID := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "van_id", "current_lat", "current_lng", "home_lat", "home_lng"}).
		AddRow(1, vanID.String(), 40.1, -73.1, 40.5, -73.5).
		AddRow(2, nil, nil, nil, nil, nil)

	mock.ExpectQuery("SELECT id, van_id, current_lat, current_lng, home_lat, home_lng").
		WillReturnRows(rows)

	technicians, err := s.GetActiveTechnicians(context.Background())

	require.NoError(t, err)
	require.Len(t, technicians, 2)

	require.NotNil(t, technicians[0].VanID)
	assert.Equal(t, vanID, uuid.UUID(*technicians[0].VanID))
	require.NotNil(t, technicians[0].Current)
	assert.Equal(t, domain.Coordinate{Lat: 40.1, Lng: -73.1}, *technicians[0].Current)
	require.NotNil(t, technicians[0].Home)
	assert.Equal(t, domain.Coordinate{Lat: 40.5, Lng: -73.5}, *technicians[0].Home)

	assert.Nil(t, technicians[1].VanID, "a technician with no assigned van has a nil VanID")
	assert.Nil(t, technicians[1].Current)
	assert.Nil(t, technicians[1].Home)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyUpdatesCommitsOneTransactionPerBatch(t *testing.T) {
	s, mock := newMockStore(t)

	scheduled := time.Now()
	techID := domain.TechnicianID(5)
	updates := []store.JobUpdate{
		store.NewQueuedUpdate(1, techID, scheduled),
		store.NewPendingReviewUpdate(2),
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE jobs").WithArgs(1, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE jobs").WithArgs(2, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.ApplyUpdates(context.Background(), updates)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyUpdatesRollsBackWhenJobNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	updates := []store.JobUpdate{store.NewPendingReviewUpdate(99)}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE jobs").WithArgs(99, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.ApplyUpdates(context.Background(), updates)

	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
