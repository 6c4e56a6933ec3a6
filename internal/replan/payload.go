package replan

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/pageza/fleet-replanner/internal/domain"
	"github.com/pageza/fleet-replanner/internal/solver"
	"github.com/pageza/fleet-replanner/internal/travel"
)

// PayloadAssembler builds the solver request from availability, eligible
// items, and fixed constraints (C5, spec.md §4.5).
type PayloadAssembler struct {
	Depot          domain.Coordinate
	Cache          travel.Cache
	PenaltySeconds int
	Logger         *log.Logger
}

// NewPayloadAssembler builds a C5 assembler.
func NewPayloadAssembler(depot domain.Coordinate, cache travel.Cache, penaltySeconds int, logger *log.Logger) *PayloadAssembler {
	return &PayloadAssembler{Depot: depot, Cache: cache, PenaltySeconds: penaltySeconds, Logger: logger}
}

// Result is the assembled payload, or a skip signal when no items remain.
type Result struct {
	Request solver.Request
	Skipped bool
}

// Assemble builds the solver request (spec.md §4.5 steps 1-5). fixedJobs is
// the set of fixed-time jobs to honor for this pass (empty for overflow
// passes, per spec.md §4.8 step 3).
func (a *PayloadAssembler) Assemble(ctx context.Context, availabilities []domain.TechnicianAvailability, items []domain.SchedulableItem, fixedJobs []domain.Job) Result {
	// Step 1: location set, starting with the depot.
	locations := []domain.Location{{Index: 0, Coord: a.Depot}}
	index := func(coord domain.Coordinate) int {
		for _, loc := range locations {
			if loc.Coord.Equal(coord) {
				return loc.Index
			}
		}
		idx := len(locations)
		locations = append(locations, domain.Location{Index: idx, Coord: coord})
		return idx
	}

	techLocationIndex := make(map[domain.TechnicianID]int, len(availabilities))
	for _, avail := range availabilities {
		if avail.StartCoordinate == nil {
			continue
		}
		techLocationIndex[avail.TechnicianID] = index(*avail.StartCoordinate)
	}

	itemLocationIndex := make(map[string]int, len(items))
	keptItems := make([]domain.SchedulableItem, 0, len(items))
	for _, item := range items {
		if item.Address == (domain.Coordinate{}) {
			a.logf("skipping item %s: no coordinates", item.ID())
			continue
		}
		itemLocationIndex[item.ID()] = index(item.Address)
		keptItems = append(keptItems, item)
	}

	if len(keptItems) == 0 {
		// spec.md §4.5 failure semantics: empty item list skips the pass.
		return Result{Skipped: true}
	}

	// Step 2: travel matrix.
	matrix := BuildTravelMatrix(ctx, locations, a.Cache, a.PenaltySeconds)

	req := solver.Request{
		Locations:        make([]solver.Location, len(locations)),
		TravelTimeMatrix: matrixToWire(matrix),
	}
	for _, loc := range locations {
		req.Locations[loc.Index] = solver.Location{
			ID:     "loc_" + strconv.Itoa(loc.Index),
			Index:  loc.Index,
			Coords: [2]float64{loc.Coord.Lat, loc.Coord.Lng},
		}
	}

	// Step 3: technicians.
	for _, avail := range availabilities {
		startIdx, ok := techLocationIndex[avail.TechnicianID]
		if !ok {
			a.logf("skipping technician %d: no start coordinate", avail.TechnicianID)
			continue
		}
		req.Technicians = append(req.Technicians, solver.TechnicianInput{
			ID:                 int(avail.TechnicianID),
			StartLocationIndex: startIdx,
			EndLocationIndex:   0,
			EarliestStartISO:   avail.Start.Format(time.RFC3339),
			LatestEndISO:       avail.End.Format(time.RFC3339),
		})
	}

	// Step 4: items.
	for _, item := range keptItems {
		eligible := make([]int, len(item.EligibleTechnicians))
		for i, id := range item.EligibleTechnicians {
			eligible[i] = int(id)
		}
		req.Items = append(req.Items, solver.Item{
			ID:                    item.ID(),
			LocationIndex:         itemLocationIndex[item.ID()],
			DurationSeconds:       int(item.Duration.Seconds()),
			Priority:              item.Priority,
			EligibleTechnicianIDs: eligible,
		})
	}

	// Step 5: fixed constraints, only for fixed-time jobs present among items.
	presentJobIDs := make(map[domain.JobID]bool)
	for _, item := range keptItems {
		for _, jobID := range item.JobIDs {
			presentJobIDs[jobID] = true
		}
	}
	itemIDForJob := make(map[domain.JobID]string)
	for _, item := range keptItems {
		for _, jobID := range item.JobIDs {
			itemIDForJob[jobID] = item.ID()
		}
	}
	for _, job := range fixedJobs {
		if job.FixedStartTime == nil {
			continue
		}
		if !presentJobIDs[job.ID] {
			a.logf("skipping fixed-time constraint for job %d: not among this pass's items", job.ID)
			continue
		}
		req.FixedConstraints = append(req.FixedConstraints, solver.FixedConstraint{
			ItemID:       itemIDForJob[job.ID],
			FixedTimeISO: job.FixedStartTime.Format(time.RFC3339),
		})
	}

	return Result{Request: req}
}

func matrixToWire(matrix [][]int) map[string]map[string]int {
	out := make(map[string]map[string]int, len(matrix))
	for i, row := range matrix {
		inner := make(map[string]int, len(row))
		for j, v := range row {
			inner[strconv.Itoa(j)] = v
		}
		out[strconv.Itoa(i)] = inner
	}
	return out
}

func (a *PayloadAssembler) logf(format string, args ...interface{}) {
	if a.Logger != nil {
		a.Logger.Printf(format, args...)
	}
}
