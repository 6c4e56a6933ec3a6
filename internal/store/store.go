// Package store defines the job store's query/update surface (spec.md §6).
// The core planning algorithm in internal/replan depends only on this
// interface; internal/store/postgres provides the concrete implementation.
package store

import (
	"context"
	"time"

	"github.com/pageza/fleet-replanner/internal/domain"
)

// JobStore is the job store query/update surface spec.md §6 specifies.
type JobStore interface {
	// GetActiveTechnicians returns every active technician, with van id,
	// current coordinate, and home coordinate joined in.
	GetActiveTechnicians(ctx context.Context) ([]domain.Technician, error)

	// GetRelevantJobs returns every job with status in
	// {queued, en_route, in_progress, fixed_time}.
	GetRelevantJobs(ctx context.Context) ([]domain.Job, error)

	// GetJobsByStatus is reserved: spec.md §9 Open Questions notes the
	// orchestrator never calls it, reusing its initial fetch instead. It
	// exists so the store interface is complete and independently testable.
	GetJobsByStatus(ctx context.Context, statuses []domain.JobStatus) ([]domain.Job, error)

	// GetEquipmentForVans batch-fetches equipment inventories for the given
	// vans.
	GetEquipmentForVans(ctx context.Context, vanIDs []domain.VanID) (map[domain.VanID][]domain.EquipmentItem, error)

	// GetRequiredEquipmentForJob returns the equipment models a job
	// requires, derived from (service category, service id, order's
	// vehicle year/make/model). Empty if undeterminable.
	GetRequiredEquipmentForJob(ctx context.Context, job domain.Job) ([]string, error)

	// GetYmmIdForOrder returns the integer id keying the equipment
	// requirements table for an order's vehicle.
	GetYmmIdForOrder(ctx context.Context, orderID domain.OrderID) (int, error)

	// ApplyUpdates applies a batch of job updates (spec.md §6 update
	// surface). An empty batch is a no-op.
	ApplyUpdates(ctx context.Context, updates []JobUpdate) error
}

// JobUpdate is one record of the job store's update batch: {jobId, data}.
// Fields are always fully specified by the two constructors below — the
// core never leaves a JobUpdate partially populated.
type JobUpdate struct {
	JobID              domain.JobID
	Status             domain.JobStatus
	AssignedTechnician *domain.TechnicianID // nil clears the field
	EstimatedSched     *time.Time           // nil clears the field
}

// NewQueuedUpdate builds the "planned" update: status stays queued, with a
// technician and schedule committed (spec.md §4.8 step 4).
func NewQueuedUpdate(jobID domain.JobID, techID domain.TechnicianID, scheduled time.Time) JobUpdate {
	return JobUpdate{
		JobID:              jobID,
		Status:             domain.StatusQueued,
		AssignedTechnician: &techID,
		EstimatedSched:     &scheduled,
	}
}

// NewPendingReviewUpdate builds the "needs human review" update: status
// becomes pending_review, technician and schedule are cleared.
func NewPendingReviewUpdate(jobID domain.JobID) JobUpdate {
	return JobUpdate{
		JobID:              jobID,
		Status:             domain.StatusPendingReview,
		AssignedTechnician: nil,
		EstimatedSched:     nil,
	}
}
