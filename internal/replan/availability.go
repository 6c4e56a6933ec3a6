package replan

import (
	"sort"
	"time"

	"github.com/pageza/fleet-replanner/internal/domain"
)

// WorkingWindow is the configurable working day (spec.md §3), applied in a
// single fixed time zone for every availability computation (Design Note
// §9: never host-local time).
type WorkingWindow struct {
	Start    time.Duration // offset from midnight, e.g. 9h for 09:00:00
	End      time.Duration // e.g. 18h30m for 18:30:00
	Location *time.Location
}

// startOfDay returns midnight of t in the window's time zone.
func (w WorkingWindow) startOfDay(t time.Time) time.Time {
	t = t.In(w.Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, w.Location)
}

// StartInstant returns the working-window start instant for the calendar
// date containing t.
func (w WorkingWindow) StartInstant(t time.Time) time.Time {
	return w.startOfDay(t).Add(w.Start)
}

// EndInstant returns the working-window end instant for the calendar date
// containing t.
func (w WorkingWindow) EndInstant(t time.Time) time.Time {
	return w.startOfDay(t).Add(w.End)
}

// IsWorkingDay reports whether t's weekday is a working day (spec.md §3:
// "Weekdays only; calendar exceptions must be surfaced by the availability
// data source, not computed here" — so this is purely the weekday check).
func (w WorkingWindow) IsWorkingDay(t time.Time) bool {
	d := t.In(w.Location).Weekday()
	return d != time.Saturday && d != time.Sunday
}

// Availability computes per-technician availability (C1, spec.md §4.1).
type Availability struct {
	Window WorkingWindow
	// Now returns the reference instant; overridable for tests.
	Now func() time.Time
}

// NewAvailability builds a C1 calculator bound to window, using the real
// clock.
func NewAvailability(window WorkingWindow) *Availability {
	return &Availability{Window: window, Now: time.Now}
}

// TodayResult is one technician's computed today-availability.
type TodayResult struct {
	TechnicianID    domain.TechnicianID
	EarliestStart   time.Time
	StartCoordinate *domain.Coordinate
}

// Today computes today's availability for every technician, given the
// locked jobs (status in {en_route, in_progress, fixed_time}) already
// assigned to them (spec.md §4.1 "Today's availability"). The second
// return value is today's working-window end, the "latest end" every
// technician shares for the pass (spec.md §4.5 step 3).
func (a *Availability) Today(technicians []domain.Technician, lockedJobs []domain.Job) ([]TodayResult, time.Time) {
	reference := a.referenceInstant()

	byTechnician := make(map[domain.TechnicianID][]domain.Job)
	for _, job := range lockedJobs {
		if job.AssignedTechnician == nil {
			continue
		}
		byTechnician[*job.AssignedTechnician] = append(byTechnician[*job.AssignedTechnician], job)
	}
	for techID, jobs := range byTechnician {
		sort.SliceStable(jobs, func(i, j int) bool {
			si, oki := jobs[i].EffectiveStart()
			sj, okj := jobs[j].EffectiveStart()
			if !oki {
				return false
			}
			if !okj {
				return true
			}
			return si.Before(sj)
		})
		byTechnician[techID] = jobs
	}

	results := make([]TodayResult, 0, len(technicians))
	for _, tech := range technicians {
		earliest := reference
		var startCoord *domain.Coordinate

		for _, job := range byTechnician[tech.ID] {
			start, ok := job.EffectiveStart()
			if !ok {
				continue
			}
			end := start.Add(job.Duration())
			if end.After(earliest) {
				earliest = end
				addr := job.Address
				startCoord = &addr
			}
		}

		windowEnd := a.Window.EndInstant(reference)
		if earliest.After(windowEnd) {
			earliest = windowEnd
		}

		results = append(results, TodayResult{
			TechnicianID:    tech.ID,
			EarliestStart:   earliest,
			StartCoordinate: startCoord,
		})
	}

	return results, a.Window.EndInstant(reference)
}

// ToAvailability converts today's results into the canonical
// domain.TechnicianAvailability shape the payload assembler (C5) consumes,
// defaulting a technician's start coordinate to their current location when
// no locked job advanced it (spec.md §4.1 failure mode: "downstream must
// default").
func ToAvailability(results []TodayResult, windowEnd time.Time, technicians []domain.Technician) []domain.TechnicianAvailability {
	currentByID := make(map[domain.TechnicianID]*domain.Coordinate, len(technicians))
	for _, tech := range technicians {
		currentByID[tech.ID] = tech.Current
	}

	out := make([]domain.TechnicianAvailability, 0, len(results))
	for _, r := range results {
		coord := r.StartCoordinate
		if coord == nil {
			coord = currentByID[r.TechnicianID]
		}
		out = append(out, domain.TechnicianAvailability{
			TechnicianID:    r.TechnicianID,
			Start:           r.EarliestStart,
			End:             windowEnd,
			StartCoordinate: coord,
		})
	}
	return out
}

// referenceInstant clamps the real current time into the working window,
// per spec.md §4.1 step 1.
func (a *Availability) referenceInstant() time.Time {
	now := a.Now().In(a.Window.Location)

	if !a.Window.IsWorkingDay(now) {
		return a.Window.EndInstant(now)
	}

	start := a.Window.StartInstant(now)
	end := a.Window.EndInstant(now)

	if now.Before(start) {
		return start
	}
	if now.After(end) {
		return end
	}
	return now
}

// FutureResult is one technician's availability window for a future day.
type FutureResult struct {
	TechnicianID    domain.TechnicianID
	Start           time.Time
	End             time.Time
	StartCoordinate domain.Coordinate
}

// FutureDay computes availability for a target calendar date, ignoring
// locked jobs entirely — future days are a blank slate for this tool
// (spec.md §4.1 "Future-day availability"). Technicians without a home
// coordinate are skipped. Returns empty if targetDate is not a working day.
func (a *Availability) FutureDay(technicians []domain.Technician, targetDate time.Time) []FutureResult {
	if !a.Window.IsWorkingDay(targetDate) {
		return nil
	}

	start := a.Window.StartInstant(targetDate)
	end := a.Window.EndInstant(targetDate)

	results := make([]FutureResult, 0, len(technicians))
	for _, tech := range technicians {
		if tech.Home == nil {
			continue
		}
		results = append(results, FutureResult{
			TechnicianID:    tech.ID,
			Start:           start,
			End:             end,
			StartCoordinate: *tech.Home,
		})
	}
	return results
}

// FutureToAvailability converts future-day results into the canonical
// domain.TechnicianAvailability shape the payload assembler (C5) consumes.
func FutureToAvailability(results []FutureResult) []domain.TechnicianAvailability {
	out := make([]domain.TechnicianAvailability, 0, len(results))
	for _, r := range results {
		coord := r.StartCoordinate
		out = append(out, domain.TechnicianAvailability{
			TechnicianID:    r.TechnicianID,
			Start:           r.Start,
			End:             r.End,
			StartCoordinate: &coord,
		})
	}
	return out
}
