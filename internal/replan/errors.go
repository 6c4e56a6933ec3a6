package replan

import (
	"errors"
	"fmt"

	"github.com/pageza/fleet-replanner/internal/domain"
)

// ErrNoTechnicians and ErrNoJobs are not failures: the cycle exits cleanly
// with no write (spec.md §7).
var (
	ErrNoTechnicians = errors.New("no active technicians")
	ErrNoJobs        = errors.New("no queued jobs to plan")
)

// StoreQueryFailure wraps any fetch failure; fatal, cycle aborts without
// writing (spec.md §7).
type StoreQueryFailure struct {
	Op  string
	Err error
}

func (e *StoreQueryFailure) Error() string {
	return fmt.Sprintf("store query failed (%s): %v", e.Op, e.Err)
}

func (e *StoreQueryFailure) Unwrap() error { return e.Err }

// WriteFailure aggregates the job ids whose individual write failed
// (spec.md §7: "per-job write errors are collected and surfaced as one
// aggregate failure; successful updates are not rolled back").
type WriteFailure struct {
	FailedJobIDs []domain.JobID
	Errs         []error
}

func (e *WriteFailure) Error() string {
	return fmt.Sprintf("write failed for %d job(s): %v", len(e.FailedJobIDs), errors.Join(e.Errs...))
}

func (e *WriteFailure) Unwrap() []error { return e.Errs }
