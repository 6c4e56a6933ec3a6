package replan_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pageza/fleet-replanner/internal/domain"
	"github.com/pageza/fleet-replanner/internal/replan"
)

func TestEligibilityFiltersTechniciansLackingEquipment(t *testing.T) {
	van1 := domain.VanID(uuid.New())
	van2 := domain.VanID(uuid.New())

	technicians := []domain.Technician{
		{ID: 1, VanID: &van1},
		{ID: 2, VanID: &van2},
	}

	job := domain.Job{ID: 1, OrderID: 100, ServiceCategory: "install", ServiceID: 5}
	jobsByID := map[domain.JobID]domain.Job{1: job}
	items := []domain.SchedulableItem{{Kind: domain.KindSingleJob, JobIDs: []domain.JobID{1}}}

	store := &mockJobStore{}
	store.On("GetEquipmentForVans", mock.Anything, []domain.VanID{van1, van2}).Return(
		map[domain.VanID][]domain.EquipmentItem{
			van1: {{Model: "lift"}},
		}, nil)
	store.On("GetRequiredEquipmentForJob", mock.Anything, job).Return([]string{"lift"}, nil)

	filter := replan.NewEligibilityFilter(store)
	result, err := filter.Apply(context.Background(), items, technicians, jobsByID)

	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, []domain.TechnicianID{1}, result[0].EligibleTechnicians)
	store.AssertExpectations(t)
}

func TestEligibilitySplitsUncoverableBundle(t *testing.T) {
	van1 := domain.VanID(uuid.New())
	technicians := []domain.Technician{{ID: 1, VanID: &van1}}

	jobA := domain.Job{ID: 1, OrderID: 900}
	jobB := domain.Job{ID: 2, OrderID: 900}
	jobsByID := map[domain.JobID]domain.Job{1: jobA, 2: jobB}
	bundle := domain.SchedulableItem{Kind: domain.KindBundle, JobIDs: []domain.JobID{1, 2}, OrderID: 900}

	store := &mockJobStore{}
	store.On("GetEquipmentForVans", mock.Anything, []domain.VanID{van1}).Return(
		map[domain.VanID][]domain.EquipmentItem{van1: {}}, nil)
	// No technician has "rig", so the bundle as a whole is uncoverable and
	// must split into its constituent jobs (which have no requirement).
	store.On("GetRequiredEquipmentForJob", mock.Anything, jobA).Return([]string{"rig"}, nil).Once()
	store.On("GetRequiredEquipmentForJob", mock.Anything, jobB).Return([]string{"rig"}, nil).Once()
	store.On("GetRequiredEquipmentForJob", mock.Anything, jobA).Return([]string{}, nil).Once()
	store.On("GetRequiredEquipmentForJob", mock.Anything, jobB).Return([]string{}, nil).Once()

	filter := replan.NewEligibilityFilter(store)
	result, err := filter.Apply(context.Background(), []domain.SchedulableItem{bundle}, technicians, jobsByID)

	require.NoError(t, err)
	require.Len(t, result, 2, "an uncoverable bundle splits into its constituent SingleJobs")
	for _, item := range result {
		assert.Equal(t, domain.KindSingleJob, item.Kind)
		assert.Equal(t, []domain.TechnicianID{1}, item.EligibleTechnicians)
	}
}

func TestEligibilityEmptyRequirementAllowsEveryTechnicianWithVan(t *testing.T) {
	van1 := domain.VanID(uuid.New())
	technicians := []domain.Technician{{ID: 1, VanID: &van1}, {ID: 2}}

	job := domain.Job{ID: 1, OrderID: 1}
	jobsByID := map[domain.JobID]domain.Job{1: job}
	items := []domain.SchedulableItem{{Kind: domain.KindSingleJob, JobIDs: []domain.JobID{1}}}

	store := &mockJobStore{}
	store.On("GetEquipmentForVans", mock.Anything, []domain.VanID{van1}).Return(
		map[domain.VanID][]domain.EquipmentItem{}, nil)
	store.On("GetRequiredEquipmentForJob", mock.Anything, job).Return([]string{}, nil)

	filter := replan.NewEligibilityFilter(store)
	result, err := filter.Apply(context.Background(), items, technicians, jobsByID)

	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, []domain.TechnicianID{1}, result[0].EligibleTechnicians, "technician without a van is never eligible")
}
