package replan

import (
	"context"
	"fmt"

	"github.com/pageza/fleet-replanner/internal/domain"
	"github.com/pageza/fleet-replanner/internal/store"
)

// EligibilityFilter rejects technicians lacking required equipment and
// breaks up bundles that no single technician can cover (C3, spec.md §4.3).
type EligibilityFilter struct {
	Store store.JobStore
}

// NewEligibilityFilter builds a C3 filter bound to a job store.
func NewEligibilityFilter(s store.JobStore) *EligibilityFilter {
	return &EligibilityFilter{Store: s}
}

// Apply computes eligible-technician lists for each item and breaks any
// bundle with an empty eligible list into its constituent SingleJobs.
// jobsByID must contain every job id referenced by items.
func (f *EligibilityFilter) Apply(ctx context.Context, items []domain.SchedulableItem, technicians []domain.Technician, jobsByID map[domain.JobID]domain.Job) ([]domain.SchedulableItem, error) {
	vanIDs := distinctVanIDs(technicians)
	vanEquipment, err := f.Store.GetEquipmentForVans(ctx, vanIDs)
	if err != nil {
		return nil, &StoreQueryFailure{Op: "GetEquipmentForVans", Err: err}
	}

	vanModels := make(map[domain.VanID]map[string]bool, len(vanEquipment))
	for vanID, equipment := range vanEquipment {
		models := make(map[string]bool, len(equipment))
		for _, e := range equipment {
			models[e.Model] = true
		}
		vanModels[vanID] = models
	}

	result := make([]domain.SchedulableItem, 0, len(items))
	for _, item := range items {
		required, err := f.requiredEquipment(ctx, item, jobsByID)
		if err != nil {
			return nil, err
		}
		item.RequiredEquipment = required
		item.EligibleTechnicians = eligibleTechnicians(technicians, vanModels, required)

		if item.Kind == domain.KindBundle && len(item.EligibleTechnicians) == 0 && len(item.JobIDs) >= 2 {
			for _, jobID := range item.JobIDs {
				job, ok := jobsByID[jobID]
				if !ok {
					continue
				}
				single := singleJobItem(job)
				singleRequired, err := f.requiredEquipment(ctx, single, jobsByID)
				if err != nil {
					return nil, err
				}
				single.RequiredEquipment = singleRequired
				single.EligibleTechnicians = eligibleTechnicians(technicians, vanModels, singleRequired)
				result = append(result, single)
			}
			continue
		}

		result = append(result, item)
	}

	return result, nil
}

// requiredEquipment is the union of constituents' requirements (spec.md
// §4.3 step 2).
func (f *EligibilityFilter) requiredEquipment(ctx context.Context, item domain.SchedulableItem, jobsByID map[domain.JobID]domain.Job) ([]string, error) {
	seen := make(map[string]bool)
	var models []string

	for _, jobID := range item.JobIDs {
		job, ok := jobsByID[jobID]
		if !ok {
			continue
		}
		required, err := f.Store.GetRequiredEquipmentForJob(ctx, job)
		if err != nil {
			return nil, &StoreQueryFailure{Op: fmt.Sprintf("GetRequiredEquipmentForJob(%d)", job.ID), Err: err}
		}
		for _, model := range required {
			if !seen[model] {
				seen[model] = true
				models = append(models, model)
			}
		}
	}

	return models, nil
}

// eligibleTechnicians returns technicians whose van's equipment models are a
// superset of required, in technician input order (spec.md §4.3 tie-break).
// Empty requirements makes every technician with a van eligible.
func eligibleTechnicians(technicians []domain.Technician, vanModels map[domain.VanID]map[string]bool, required []string) []domain.TechnicianID {
	var eligible []domain.TechnicianID
	for _, tech := range technicians {
		if tech.VanID == nil {
			continue
		}
		if len(required) == 0 {
			eligible = append(eligible, tech.ID)
			continue
		}
		models := vanModels[*tech.VanID]
		hasAll := true
		for _, model := range required {
			if !models[model] {
				hasAll = false
				break
			}
		}
		if hasAll {
			eligible = append(eligible, tech.ID)
		}
	}
	return eligible
}

func distinctVanIDs(technicians []domain.Technician) []domain.VanID {
	seen := make(map[domain.VanID]bool)
	var ids []domain.VanID
	for _, tech := range technicians {
		if tech.VanID == nil {
			continue
		}
		if !seen[*tech.VanID] {
			seen[*tech.VanID] = true
			ids = append(ids, *tech.VanID)
		}
	}
	return ids
}
