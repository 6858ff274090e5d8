package scan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Result is the outcome of interrogating one batch target.
type Result struct {
	Target string  `json:"target"`
	Report *Report `json:"report,omitempty"`
	Error  string  `json:"error,omitempty"`
	// Err is the underlying failure behind Error.
	Err error `json:"-"`
}

// ResultFunc is called once per target as soon as its scan finishes.
// Calls may happen concurrently.
type ResultFunc func(result Result, duration time.Duration)

// Runner orchestrates batch interrogation with concurrency and rate limiting
type Runner struct {
	Concurrency int           // Maximum number of concurrent scans
	RateLimit   int           // Scans started per second (global), 0 for unlimited
	Timeout     time.Duration // Timeout for each scan, 0 for none
}

// Run interrogates every target using a worker pool. Results are returned in
// the order of targets.
func (r *Runner) Run(ctx context.Context, targets []string, scanner Interrogator, opts Options, onResult ResultFunc) []Result {
	limit := rate.Inf
	burst := 1
	if r.RateLimit > 0 {
		limit = rate.Limit(r.RateLimit)
		burst = r.RateLimit
	}
	limiter := rate.NewLimiter(limit, burst)

	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	// Worker pool
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]Result, len(targets))

	for i, target := range targets {
		wg.Add(1)
		go func(idx int, t string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			start := time.Now()
			result := Result{Target: t}

			if err := waitTurn(ctx, limiter); err != nil {
				result.Err = err
				result.Error = err.Error()
			} else {
				scanCtx, cancel := r.scanContext(ctx)
				report, err := scanner.Scan(scanCtx, t, opts)
				cancel()
				if err != nil {
					result.Err = err
					result.Error = err.Error()
				} else {
					result.Report = report
				}
			}

			if onResult != nil {
				onResult(result, time.Since(start))
			}

			// Each goroutine owns its own slot.
			results[idx] = result
		}(i, target)
	}

	wg.Wait()
	return results
}

// waitTurn blocks until limiter admits a scan. A wait that would outlast the
// batch deadline is reported as context.DeadlineExceeded.
func waitTurn(ctx context.Context, limiter *rate.Limiter) error {
	err := limiter.Wait(ctx)
	if err == nil || ctx.Err() != nil {
		return err
	}
	return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
}

func (r *Runner) scanContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.Timeout)
}
