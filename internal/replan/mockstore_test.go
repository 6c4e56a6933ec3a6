package replan_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pageza/fleet-replanner/internal/domain"
	"github.com/pageza/fleet-replanner/internal/store"
)

// mockJobStore is a testify mock of store.JobStore, grounded on the
// teacher's MockCustomerRepository pattern (tests/services/
// customer_service_test.go).
type mockJobStore struct {
	mock.Mock
}

func (m *mockJobStore) GetActiveTechnicians(ctx context.Context) ([]domain.Technician, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Technician), args.Error(1)
}

func (m *mockJobStore) GetRelevantJobs(ctx context.Context) ([]domain.Job, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Job), args.Error(1)
}

func (m *mockJobStore) GetJobsByStatus(ctx context.Context, statuses []domain.JobStatus) ([]domain.Job, error) {
	args := m.Called(ctx, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Job), args.Error(1)
}

func (m *mockJobStore) GetEquipmentForVans(ctx context.Context, vanIDs []domain.VanID) (map[domain.VanID][]domain.EquipmentItem, error) {
	args := m.Called(ctx, vanIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.VanID][]domain.EquipmentItem), args.Error(1)
}

func (m *mockJobStore) GetRequiredEquipmentForJob(ctx context.Context, job domain.Job) ([]string, error) {
	args := m.Called(ctx, job)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockJobStore) GetYmmIdForOrder(ctx context.Context, orderID domain.OrderID) (int, error) {
	args := m.Called(ctx, orderID)
	return args.Int(0), args.Error(1)
}

func (m *mockJobStore) ApplyUpdates(ctx context.Context, updates []store.JobUpdate) error {
	args := m.Called(ctx, updates)
	return args.Error(0)
}

var _ store.JobStore = (*mockJobStore)(nil)
