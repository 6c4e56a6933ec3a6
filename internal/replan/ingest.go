package replan

import (
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/pageza/fleet-replanner/internal/domain"
	"github.com/pageza/fleet-replanner/internal/solver"
)

// Assignment is one job-level assignment parsed from a solver response
// (C7, spec.md §4.7).
type Assignment struct {
	JobID          domain.JobID
	TechnicianID   domain.TechnicianID
	EstimatedSched time.Time
}

// IngestResult is the result of parsing a solver response.
type IngestResult struct {
	Assignments       []Assignment
	UnassignedItemIDs []string
}

// Ingest parses resp into per-job assignments and unassigned item ids
// (C7, spec.md §4.7). itemsByID is the pass's eligible-item map, keyed by
// SchedulableItem.ID(); it is consulted to expand an assigned bundle stop
// into one Assignment per constituent job, all sharing the bundle's
// technician and start time. Stops with unparseable ids or timestamps, or
// an unrecognized item id, are skipped with a warning; the pass is not
// aborted.
func Ingest(resp *solver.Response, itemsByID map[string]domain.SchedulableItem, logger *log.Logger) IngestResult {
	result := IngestResult{
		UnassignedItemIDs: resp.UnassignedItemIDs,
	}
	if result.UnassignedItemIDs == nil {
		result.UnassignedItemIDs = []string{}
	}

	for _, route := range resp.Routes {
		for _, stop := range route.Stops {
			scheduled, err := time.Parse(time.RFC3339, stop.StartTimeISO)
			if err != nil {
				logf(logger, "ingest: unparseable start time %q for item %q: %v", stop.StartTimeISO, stop.ItemID, err)
				continue
			}

			switch {
			case strings.HasPrefix(stop.ItemID, "job_"):
				jobNum, err := strconv.Atoi(strings.TrimPrefix(stop.ItemID, "job_"))
				if err != nil {
					logf(logger, "ingest: unparseable job item id %q: %v", stop.ItemID, err)
					continue
				}
				result.Assignments = append(result.Assignments, Assignment{
					JobID:          domain.JobID(jobNum),
					TechnicianID:   domain.TechnicianID(route.TechnicianID),
					EstimatedSched: scheduled,
				})

			case strings.HasPrefix(stop.ItemID, "bundle_"):
				item, ok := itemsByID[stop.ItemID]
				if !ok {
					logf(logger, "ingest: unrecognized bundle item id %q", stop.ItemID)
					continue
				}
				for _, jobID := range item.JobIDs {
					result.Assignments = append(result.Assignments, Assignment{
						JobID:          jobID,
						TechnicianID:   domain.TechnicianID(route.TechnicianID),
						EstimatedSched: scheduled,
					})
				}

			default:
				logf(logger, "ingest: unrecognized item id %q", stop.ItemID)
			}
		}
	}

	return result
}

func logf(logger *log.Logger, format string, args ...interface{}) {
	if logger != nil {
		logger.Printf(format, args...)
	}
}
