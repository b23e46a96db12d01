package checker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TaskFunc performs the work for a single item (one session folder in a scan).
type TaskFunc[T, R any] func(ctx context.Context, item T) (R, error)

// AuditFunc is a callback invoked after each item completes
type AuditFunc[T, R any] func(item T, result R, err error, duration float64)

// Outcome is the result of one item, kept at the item's input position.
type Outcome[R any] struct {
	Value    R
	Err      error
	Duration time.Duration
}

// Runner orchestrates the execution of tasks with concurrency and rate limiting
type Runner struct {
	Concurrency int           // Maximum number of concurrent tasks
	RateLimit   int           // Task starts per second (global); 0 disables limiting
	Timeout     time.Duration // Timeout for each task; 0 disables it
}

// Run executes fn for every item using a worker pool. Outcomes are returned in
// input order. Items not started before ctx is done get ctx.Err().
func Run[T, R any](ctx context.Context, r *Runner, items []T, fn TaskFunc[T, R], auditFn AuditFunc[T, R]) []Outcome[R] {
	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	// Rate limiter
	limiter := rate.NewLimiter(rate.Inf, 0)
	if r.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.RateLimit), r.RateLimit)
	}

	// Worker pool
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	outcomes := make([]Outcome[R], len(items))

	for i, item := range items {
		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()

			// Acquire semaphore
			sem <- struct{}{}
			defer func() { <-sem }()

			var out Outcome[R]
			if err := limiter.Wait(ctx); err != nil {
				out.Err = err
			} else {
				start := time.Now()

				taskCtx, cancel := ctx, context.CancelFunc(func() {})
				if r.Timeout > 0 {
					taskCtx, cancel = context.WithTimeout(ctx, r.Timeout)
				}
				out.Value, out.Err = fn(taskCtx, item)
				cancel()

				out.Duration = time.Since(start)
			}

			// Call audit function if provided
			if auditFn != nil {
				auditFn(item, out.Value, out.Err, out.Duration.Seconds())
			}

			mu.Lock()
			outcomes[i] = out
			mu.Unlock()
		}(i, item)
	}

	wg.Wait()
	return outcomes
}
