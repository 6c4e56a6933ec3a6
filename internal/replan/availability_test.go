package replan_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/fleet-replanner/internal/domain"
	"github.com/pageza/fleet-replanner/internal/replan"
)

func newTestWindow() replan.WorkingWindow {
	return replan.WorkingWindow{
		Start:    9 * time.Hour,
		End:      18*time.Hour + 30*time.Minute,
		Location: time.UTC,
	}
}

func TestTodayAdvancesStartPastLockedJobs(t *testing.T) {
	window := newTestWindow()
	reference := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC) // Monday

	avail := &replan.Availability{Window: window, Now: func() time.Time { return reference }}

	techID := domain.TechnicianID(1)
	addr := domain.Coordinate{Lat: 40.0, Lng: -73.0}
	fixedStart := reference.Add(30 * time.Minute)

	technicians := []domain.Technician{{ID: techID}}
	lockedJobs := []domain.Job{
		{
			ID:                 1,
			AssignedTechnician: &techID,
			Status:             domain.StatusFixedTime,
			FixedStartTime:     &fixedStart,
			DurationMinutes:    60,
			Address:            addr,
		},
	}

	results, windowEnd := avail.Today(technicians, lockedJobs)

	require.Len(t, results, 1)
	assert.Equal(t, fixedStart.Add(60*time.Minute), results[0].EarliestStart)
	require.NotNil(t, results[0].StartCoordinate)
	assert.Equal(t, addr, *results[0].StartCoordinate)
	assert.Equal(t, window.EndInstant(reference), windowEnd)
}

func TestTodayClampsEarliestStartToWindowEnd(t *testing.T) {
	window := newTestWindow()
	reference := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)
	avail := &replan.Availability{Window: window, Now: func() time.Time { return reference }}

	techID := domain.TechnicianID(1)
	lateStart := window.EndInstant(reference).Add(-10 * time.Minute)

	technicians := []domain.Technician{{ID: techID}}
	lockedJobs := []domain.Job{
		{
			ID:                 1,
			AssignedTechnician: &techID,
			Status:             domain.StatusInProgress,
			EstimatedStart:     &lateStart,
			DurationMinutes:    60, // would run past window end
		},
	}

	results, windowEnd := avail.Today(technicians, lockedJobs)

	require.Len(t, results, 1)
	assert.True(t, results[0].EarliestStart.Equal(windowEnd), "a locked job running past the window end clamps to it, never past it")
}

func TestToAvailabilityDefaultsToTechnicianCurrentLocation(t *testing.T) {
	techID := domain.TechnicianID(1)
	current := domain.Coordinate{Lat: 1, Lng: 2}
	technicians := []domain.Technician{{ID: techID, Current: &current}}

	results := []replan.TodayResult{{TechnicianID: techID, EarliestStart: time.Now(), StartCoordinate: nil}}
	windowEnd := time.Now().Add(time.Hour)

	out := replan.ToAvailability(results, windowEnd, technicians)

	require.Len(t, out, 1)
	require.NotNil(t, out[0].StartCoordinate)
	assert.Equal(t, current, *out[0].StartCoordinate)
}

func TestFutureDaySkipsTechniciansWithoutHome(t *testing.T) {
	window := newTestWindow()
	avail := replan.NewAvailability(window)

	home := domain.Coordinate{Lat: 3, Lng: 4}
	technicians := []domain.Technician{
		{ID: 1, Home: &home},
		{ID: 2, Home: nil},
	}

	monday := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	results := avail.FutureDay(technicians, monday)

	require.Len(t, results, 1)
	assert.Equal(t, domain.TechnicianID(1), results[0].TechnicianID)
}

func TestFutureDayReturnsNoneOnWeekend(t *testing.T) {
	window := newTestWindow()
	avail := replan.NewAvailability(window)

	home := domain.Coordinate{Lat: 3, Lng: 4}
	technicians := []domain.Technician{{ID: 1, Home: &home}}

	saturday := time.Date(2026, 8, 8, 0, 0, 0, 0, time.UTC)
	results := avail.FutureDay(technicians, saturday)

	assert.Empty(t, results)
}

func TestIsWorkingDayExcludesWeekends(t *testing.T) {
	window := newTestWindow()
	assert.True(t, window.IsWorkingDay(time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)))  // Monday
	assert.False(t, window.IsWorkingDay(time.Date(2026, 8, 8, 12, 0, 0, 0, time.UTC))) // Saturday
	assert.False(t, window.IsWorkingDay(time.Date(2026, 8, 9, 12, 0, 0, 0, time.UTC))) // Sunday
}
