package replan

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/pageza/fleet-replanner/internal/domain"
	"github.com/pageza/fleet-replanner/internal/solver"
	"github.com/pageza/fleet-replanner/internal/store"
	"github.com/pageza/fleet-replanner/internal/travel"
)

// FinalAssignment is the committed outcome for one job: a technician and an
// estimated start time (spec.md §3 "finalAssignments").
type FinalAssignment struct {
	TechnicianID   domain.TechnicianID
	EstimatedSched time.Time
}

// CycleResult summarizes one completed replan cycle.
type CycleResult struct {
	Scheduled     map[domain.JobID]FinalAssignment
	PendingReview []domain.JobID
	PassesRun     int
}

// Orchestrator runs the multi-pass replan loop (C8, spec.md §4.8). It owns
// all cycle-local mutable state; no other component mutates it.
type Orchestrator struct {
	Store       store.JobStore
	Solver      solver.Client
	TravelCache travel.Cache
	Applier     *WriteApplier
	Logger      *log.Logger

	Window               WorkingWindow
	Depot                domain.Coordinate
	PenaltySeconds       int
	MaxOverflowAttempts  int

	// Now returns the cycle's reference clock; overridable for tests.
	Now func() time.Time
}

// NewOrchestrator builds a C8 orchestrator with the real clock.
func NewOrchestrator(s store.JobStore, sv solver.Client, cache travel.Cache, applier *WriteApplier, window WorkingWindow, depot domain.Coordinate, penaltySeconds, maxOverflowAttempts int, logger *log.Logger) *Orchestrator {
	return &Orchestrator{
		Store:               s,
		Solver:              sv,
		TravelCache:         cache,
		Applier:             applier,
		Logger:              logger,
		Window:              window,
		Depot:               depot,
		PenaltySeconds:      penaltySeconds,
		MaxOverflowAttempts: maxOverflowAttempts,
		Now:                 time.Now,
	}
}

type fetchResult struct {
	technicians []domain.Technician
	jobs        []domain.Job
	err         error
}

// Run executes one full replan cycle (spec.md §4.8). A return of
// (nil, ErrNoTechnicians) or (nil, ErrNoJobs) is the spec's "not an error;
// cycle exits with no write" outcome — callers should treat those two
// sentinels as a clean no-op, not a failure, via errors.Is.
func (o *Orchestrator) Run(ctx context.Context) (*CycleResult, error) {
	availability := &Availability{Window: o.Window, Now: o.Now}
	baseDate := o.Now().In(o.Window.Location)

	// Step 0: fetch technicians and all relevant jobs, in parallel.
	technicians, allJobs, err := o.fetchInitialState(ctx)
	if err != nil {
		return nil, err
	}
	if len(technicians) == 0 {
		return nil, ErrNoTechnicians
	}

	allFetchedJobsMap := make(map[domain.JobID]domain.Job, len(allJobs))
	jobsToPlan := make(map[domain.JobID]bool)
	var lockedJobsToday []domain.Job
	var fixedTimeJobsToday []domain.Job

	for _, job := range allJobs {
		allFetchedJobsMap[job.ID] = job
		switch {
		case job.Status == domain.StatusQueued:
			jobsToPlan[job.ID] = true
		case job.Status.IsLocked():
			lockedJobsToday = append(lockedJobsToday, job)
			if job.Status == domain.StatusFixedTime && job.FixedStartTime != nil {
				fixedTimeJobsToday = append(fixedTimeJobsToday, job)
			}
		}
	}

	if len(jobsToPlan) == 0 {
		return nil, ErrNoJobs
	}

	finalAssignments := make(map[domain.JobID]FinalAssignment)
	passesRun := 0

	// Pass 1: today.
	if len(jobsToPlan) > 0 {
		todayResults, windowEnd := availability.Today(technicians, lockedJobsToday)
		availabilities := ToAvailability(todayResults, windowEnd, technicians)

		if err := o.runPass(ctx, availabilities, technicians, jobsToPlan, finalAssignments, allFetchedJobsMap, fixedTimeJobsToday, &passesRun); err != nil {
			return nil, err
		}
	}

	// Overflow loop: up to MaxOverflowAttempts future days.
	for k := 1; k <= o.MaxOverflowAttempts && len(jobsToPlan) > 0; k++ {
		targetDate := baseDate.AddDate(0, 0, k)

		technicians, err = o.Store.GetActiveTechnicians(ctx)
		if err != nil {
			return nil, &StoreQueryFailure{Op: "GetActiveTechnicians(overflow)", Err: err}
		}

		futureResults := availability.FutureDay(technicians, targetDate)
		if len(futureResults) == 0 {
			// Weekend, holiday, or nobody with a home coordinate: advance
			// the loop counter without consuming a solver call.
			continue
		}

		available := make(map[domain.TechnicianID]bool, len(futureResults))
		for _, r := range futureResults {
			available[r.TechnicianID] = true
		}
		restricted := make([]domain.Technician, 0, len(futureResults))
		for _, tech := range technicians {
			if available[tech.ID] {
				restricted = append(restricted, tech)
			}
		}

		availabilities := FutureToAvailability(futureResults)
		if err := o.runPass(ctx, availabilities, restricted, jobsToPlan, finalAssignments, allFetchedJobsMap, nil, &passesRun); err != nil {
			return nil, err
		}
	}

	// Final write.
	if err := o.finalWrite(ctx, finalAssignments, jobsToPlan); err != nil {
		return nil, err
	}

	pending := make([]domain.JobID, 0, len(jobsToPlan))
	for id := range jobsToPlan {
		pending = append(pending, id)
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i] < pending[j] })

	return &CycleResult{
		Scheduled:     finalAssignments,
		PendingReview: pending,
		PassesRun:     passesRun,
	}, nil
}

// runPass executes one pass's pipeline: bundler -> eligibility -> payload ->
// solver -> ingest, then folds the result into jobsToPlan/finalAssignments
// (spec.md §4.8 steps 2-3, shared between pass 1 and every overflow pass).
func (o *Orchestrator) runPass(ctx context.Context, availabilities []domain.TechnicianAvailability, technicians []domain.Technician, jobsToPlan map[domain.JobID]bool, finalAssignments map[domain.JobID]FinalAssignment, allFetchedJobsMap map[domain.JobID]domain.Job, fixedJobs []domain.Job, passesRun *int) error {
	jobs := jobsForIDs(jobsToPlan, allFetchedJobsMap)
	if len(jobs) == 0 {
		return nil
	}

	items := Bundle(jobs)

	filter := NewEligibilityFilter(o.Store)
	items, err := filter.Apply(ctx, items, technicians, allFetchedJobsMap)
	if err != nil {
		return err
	}

	eligibleItemMapForPass := make(map[string]domain.SchedulableItem, len(items))
	for _, item := range items {
		eligibleItemMapForPass[item.ID()] = item
	}

	// Fixed-time jobs ride along as their own items purely so the payload
	// assembler can give them a location index and reach them by item id
	// when emitting fixed constraints (spec.md §4.5 step 5); they never go
	// through eligibility and are never added to eligibleItemMapForPass, so
	// an assignment or unassigned-item result for one is simply dropped by
	// the jobsToPlan/eligibleItemMapForPass checks below.
	assembleItems := items
	for _, job := range fixedJobs {
		assembleItems = append(assembleItems, singleJobItem(job))
	}

	assembler := NewPayloadAssembler(o.Depot, o.TravelCache, o.PenaltySeconds, o.Logger)
	assembled := assembler.Assemble(ctx, availabilities, assembleItems, fixedJobs)
	if assembled.Skipped {
		return nil
	}

	*passesRun++
	resp, err := o.Solver.Solve(ctx, assembled.Request)
	if err != nil {
		return fmt.Errorf("solver call failed: %w", err)
	}

	ingested := Ingest(resp, eligibleItemMapForPass, o.Logger)

	for _, assignment := range ingested.Assignments {
		if !jobsToPlan[assignment.JobID] {
			o.logf("assignment for job %d which is not in jobsToPlan (ignored as stale)", assignment.JobID)
			continue
		}
		finalAssignments[assignment.JobID] = FinalAssignment{
			TechnicianID:   assignment.TechnicianID,
			EstimatedSched: assignment.EstimatedSched,
		}
		delete(jobsToPlan, assignment.JobID)
	}

	for _, itemID := range ingested.UnassignedItemIDs {
		item, ok := eligibleItemMapForPass[itemID]
		if !ok {
			continue
		}
		for _, jobID := range item.JobIDs {
			if jobsToPlan[jobID] {
				continue
			}
			if _, placed := finalAssignments[jobID]; placed {
				continue
			}
			job, known := allFetchedJobsMap[jobID]
			if !known || job.Status != domain.StatusQueued {
				continue
			}
			o.logf("re-adding job %d to jobsToPlan after unassigned item %s (should already have been there)", jobID, itemID)
			jobsToPlan[jobID] = true
		}
	}

	return nil
}

// fetchInitialState runs step 0's two fetches in parallel (spec.md §5).
func (o *Orchestrator) fetchInitialState(ctx context.Context) ([]domain.Technician, []domain.Job, error) {
	techCh := make(chan fetchResult, 1)
	jobCh := make(chan fetchResult, 1)

	go func() {
		technicians, err := o.Store.GetActiveTechnicians(ctx)
		techCh <- fetchResult{technicians: technicians, err: err}
	}()
	go func() {
		jobs, err := o.Store.GetRelevantJobs(ctx)
		jobCh <- fetchResult{jobs: jobs, err: err}
	}()

	techRes := <-techCh
	jobRes := <-jobCh

	if techRes.err != nil {
		return nil, nil, &StoreQueryFailure{Op: "GetActiveTechnicians", Err: techRes.err}
	}
	if jobRes.err != nil {
		return nil, nil, &StoreQueryFailure{Op: "GetRelevantJobs", Err: jobRes.err}
	}

	return techRes.technicians, jobRes.jobs, nil
}

// finalWrite emits the single batch write (spec.md §4.8 step 4).
func (o *Orchestrator) finalWrite(ctx context.Context, finalAssignments map[domain.JobID]FinalAssignment, jobsToPlan map[domain.JobID]bool) error {
	updates := make([]store.JobUpdate, 0, len(finalAssignments)+len(jobsToPlan))

	for jobID, assignment := range finalAssignments {
		updates = append(updates, store.NewQueuedUpdate(jobID, assignment.TechnicianID, assignment.EstimatedSched))
	}
	for jobID := range jobsToPlan {
		updates = append(updates, store.NewPendingReviewUpdate(jobID))
	}

	if len(updates) == 0 {
		return nil
	}

	return o.Applier.Apply(ctx, updates)
}

func jobsForIDs(ids map[domain.JobID]bool, byID map[domain.JobID]domain.Job) []domain.Job {
	sorted := make([]domain.JobID, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	jobs := make([]domain.Job, 0, len(sorted))
	for _, id := range sorted {
		if job, ok := byID[id]; ok {
			jobs = append(jobs, job)
		}
	}
	return jobs
}

func (o *Orchestrator) logf(format string, args ...interface{}) {
	if o.Logger != nil {
		o.Logger.Printf(format, args...)
	}
}
