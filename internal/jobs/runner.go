// Package jobs runs the webhook-triggered pipeline work that is detached
// from the HTTP response cycle. Each job carries its own error boundary: a
// failure or panic is logged and terminates that job only.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/desokroshan/truckflow-ai/internal/metrics"
)

// Runner executes background jobs submitted by webhook handlers
type Runner struct {
	wg      sync.WaitGroup
	metrics *metrics.Metrics
}

// NewRunner constructs a runner
func NewRunner(m *metrics.Metrics) *Runner {
	return &Runner{metrics: m}
}

// Submit starts fn in the background. The job gets its own context; the
// triggering HTTP response has usually been sent before fn finishes.
func (r *Runner) Submit(name string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Str("job", name).Interface("panic", rec).Msg("Background job panicked")
				r.metrics.RecordError(name)
			}
		}()

		start := time.Now()
		log.Info().Str("job", name).Msg("Background job started")

		if err := fn(context.Background()); err != nil {
			log.Error().Err(err).Str("job", name).Dur("elapsed", time.Since(start)).
				Msg("Background job failed")
			r.metrics.RecordError(name)
			return
		}

		log.Info().Str("job", name).Dur("elapsed", time.Since(start)).
			Msg("Background job finished")
		r.metrics.RecordSuccess(name)
	}()
}

// Wait blocks until all in-flight jobs finish or ctx expires. Used during
// graceful shutdown.
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
