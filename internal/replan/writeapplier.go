package replan

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/pageza/fleet-replanner/internal/domain"
	"github.com/pageza/fleet-replanner/internal/store"
)

// WriteApplier translates the cycle's final internal state into the job
// store's update batch (C9, spec.md §4.9). Per-job writes are dispatched
// concurrently, bounded by a rate limiter so a large batch cannot overrun
// the store's own connection pool — grounded on the teacher's
// MemoryRateLimiter (pkg/security/ratelimit.go), generalized from
// per-request throttling to per-write throttling.
type WriteApplier struct {
	Store   store.JobStore
	Limiter *rate.Limiter
}

// NewWriteApplier builds a C9 applier. writesPerSecond/burst bound the
// concurrent dispatch of the update batch; 0 disables limiting.
func NewWriteApplier(s store.JobStore, writesPerSecond float64, burst int) *WriteApplier {
	var limiter *rate.Limiter
	if writesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(writesPerSecond), burst)
	}
	return &WriteApplier{Store: s, Limiter: limiter}
}

// Apply issues one store update per entry, concurrently. Individual write
// failures don't stop the others; all failures are collected into a single
// *WriteFailure (spec.md §4.9: "not transactional; partial failure is
// reported, not rolled back").
//
// Each update is sent as its own one-element ApplyUpdates call; the batch
// is never handed to the store in a single call.
func (w *WriteApplier) Apply(ctx context.Context, updates []store.JobUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		failedIDs []domain.JobID
		errs      []error
	)

	for _, update := range updates {
		update := update
		wg.Add(1)
		go func() {
			defer wg.Done()

			if w.Limiter != nil {
				if err := w.Limiter.Wait(ctx); err != nil {
					mu.Lock()
					failedIDs = append(failedIDs, update.JobID)
					errs = append(errs, err)
					mu.Unlock()
					return
				}
			}

			if err := w.Store.ApplyUpdates(ctx, []store.JobUpdate{update}); err != nil {
				mu.Lock()
				failedIDs = append(failedIDs, update.JobID)
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	if len(failedIDs) > 0 {
		return &WriteFailure{FailedJobIDs: failedIDs, Errs: errs}
	}
	return nil
}
