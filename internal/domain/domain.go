// Package domain holds the plain value types shared by every layer of the
// replanner: technicians, vans, jobs, and the schedulable units the core
// planning algorithm operates on.
package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// TechnicianID is a stable integer identifier, per the job store's schema.
type TechnicianID int

// JobID is a stable integer identifier, per the job store's schema.
type JobID int

// OrderID groups jobs that must be scheduled as a single unit.
type OrderID int

// VanID and EquipmentID are UUIDs; the spec leaves their representation
// unspecified so we follow the teacher's convention for entity ids whose
// type isn't externally constrained.
type VanID uuid.UUID
type EquipmentID uuid.UUID

// JobStatus enumerates the statuses the core cares about.
type JobStatus string

const (
	StatusQueued        JobStatus = "queued"
	StatusEnRoute       JobStatus = "en_route"
	StatusInProgress    JobStatus = "in_progress"
	StatusFixedTime     JobStatus = "fixed_time"
	StatusPendingReview JobStatus = "pending_review"
)

// IsLocked reports whether a job in this status consumes technician time
// but must never be replanned (spec.md §3).
func (s JobStatus) IsLocked() bool {
	switch s {
	case StatusEnRoute, StatusInProgress, StatusFixedTime:
		return true
	default:
		return false
	}
}

// Coordinate is a geographic point.
type Coordinate struct {
	Lat float64
	Lng float64
}

// Equal compares two coordinates for the deduplication spec.md §3/§4.5 requires.
func (c Coordinate) Equal(o Coordinate) bool {
	return c.Lat == o.Lat && c.Lng == o.Lng
}

// Van is a technician's vehicle and the source of their equipment inventory.
type Van struct {
	ID      VanID
	Current Coordinate
}

// EquipmentItem is one piece of equipment carried by a van.
type EquipmentItem struct {
	ID    EquipmentID
	Model string
}

// Technician is read-only for the duration of a replan cycle.
type Technician struct {
	ID TechnicianID

	// VanID is nil when the technician has no assigned van.
	VanID *VanID

	// Current is the technician's present coordinate; meaningful only for
	// today's pass. Nil when unknown.
	Current *Coordinate

	// Home is required for future-day passes; a technician lacking one is
	// excluded from those passes (spec.md §3).
	Home *Coordinate
}

// Job is a unit of work the store tracks.
type Job struct {
	ID      JobID
	OrderID OrderID

	Address  Coordinate
	Priority int
	// DurationMinutes is the job's service duration.
	DurationMinutes int

	ServiceCategory string
	ServiceID       int

	Status JobStatus

	// FixedStartTime is meaningful only when Status == StatusFixedTime.
	FixedStartTime *time.Time

	// AssignedTechnician and EstimatedStart reflect the job's prior
	// scheduling state as fetched from the store; the core never trusts
	// them for locked jobs beyond reading EstimatedStart as a fallback
	// effective start (spec.md §4.1).
	AssignedTechnician *TechnicianID
	EstimatedStart     *time.Time
}

// EffectiveStart returns the instant the core should treat this locked job
// as starting: its fixed start time if status is fixed_time, otherwise its
// estimated start.
func (j Job) EffectiveStart() (time.Time, bool) {
	if j.Status == StatusFixedTime && j.FixedStartTime != nil {
		return *j.FixedStartTime, true
	}
	if j.EstimatedStart != nil {
		return *j.EstimatedStart, true
	}
	return time.Time{}, false
}

// Duration returns the job's duration as a time.Duration.
func (j Job) Duration() time.Duration {
	return time.Duration(j.DurationMinutes) * time.Minute
}

// ItemKind tags the SchedulableItem union (Design Note §9: tagged variant,
// not a base type with an optional field).
type ItemKind int

const (
	KindSingleJob ItemKind = iota
	KindBundle
)

// SchedulableItem is a SingleJob or a Bundle of jobs sharing an order id.
// Downstream code switches on Kind; bundles only expand into constituent
// job ids at the ingestion boundary (§4.7/§4.8), never earlier.
type SchedulableItem struct {
	Kind ItemKind

	// JobIDs holds exactly one id for a SingleJob, >=2 for a Bundle.
	JobIDs []JobID

	// OrderID is set only for a Bundle (its grouping key).
	OrderID OrderID

	Address  Coordinate
	Priority int
	Duration time.Duration

	// RequiredEquipment is the union of constituents' requirements,
	// populated by the eligibility filter (C3). Nil until then.
	RequiredEquipment []string

	// EligibleTechnicians is populated by the eligibility filter (C3), in
	// technician input order (spec.md §4.3 tie-break rule).
	EligibleTechnicians []TechnicianID
}

// ID returns the solver-facing item id: "job_<n>" for a SingleJob,
// "bundle_<orderId>" for a Bundle (spec.md §4.5/§4.7).
func (si SchedulableItem) ID() string {
	if si.Kind == KindBundle {
		return bundleItemID(si.OrderID)
	}
	return jobItemID(si.JobIDs[0])
}

func jobItemID(id JobID) string {
	return "job_" + strconv.Itoa(int(id))
}

func bundleItemID(id OrderID) string {
	return "bundle_" + strconv.Itoa(int(id))
}

// TechnicianAvailability describes one technician's free window for a pass.
type TechnicianAvailability struct {
	TechnicianID TechnicianID
	Start        time.Time
	End          time.Time
	// StartCoordinate is nil when undeterminable (spec.md §4.1 failure mode).
	StartCoordinate *Coordinate
}

// Location is a coordinate paired with the dense index assigned during
// payload assembly (spec.md §3).
type Location struct {
	Index int
	Coord Coordinate
}
