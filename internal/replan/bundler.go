package replan

import (
	"github.com/pageza/fleet-replanner/internal/domain"
)

// Bundle groups currently-unplaced jobs sharing an order id into a single
// schedulable unit (C2, spec.md §4.2). Deterministic for a fixed input
// order: partitions preserve first-seen order id order, and within a
// partition preserve input order.
func Bundle(jobs []domain.Job) []domain.SchedulableItem {
	order := make([]domain.OrderID, 0)
	byOrder := make(map[domain.OrderID][]domain.Job)

	for _, job := range jobs {
		if _, seen := byOrder[job.OrderID]; !seen {
			order = append(order, job.OrderID)
		}
		byOrder[job.OrderID] = append(byOrder[job.OrderID], job)
	}

	items := make([]domain.SchedulableItem, 0, len(order))
	for _, orderID := range order {
		group := byOrder[orderID]
		if len(group) == 1 {
			items = append(items, singleJobItem(group[0]))
			continue
		}
		items = append(items, bundleItem(orderID, group))
	}
	return items
}

func singleJobItem(job domain.Job) domain.SchedulableItem {
	return domain.SchedulableItem{
		Kind:     domain.KindSingleJob,
		JobIDs:   []domain.JobID{job.ID},
		Address:  job.Address,
		Priority: job.Priority,
		Duration: job.Duration(),
	}
}

func bundleItem(orderID domain.OrderID, jobs []domain.Job) domain.SchedulableItem {
	jobIDs := make([]domain.JobID, len(jobs))
	var duration int64
	priority := jobs[0].Priority
	address := jobs[0].Address

	for i, job := range jobs {
		jobIDs[i] = job.ID
		duration += int64(job.DurationMinutes)
		if job.Priority > priority {
			priority = job.Priority
		}
	}

	return domain.SchedulableItem{
		Kind:     domain.KindBundle,
		JobIDs:   jobIDs,
		OrderID:  orderID,
		Address:  address,
		Priority: priority,
		Duration: domain.Job{DurationMinutes: int(duration)}.Duration(),
	}
}
