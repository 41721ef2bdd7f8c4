// Package worker runs the periodic reconciliation of article counters and
// child indexes.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/rs/zerolog"

	"github.com/MyNameIsWhaaat/commentthread/internal/comment/model"
)

type Reconciler interface {
	ReconcileAll(ctx context.Context) ([]model.ReconcileReport, error)
}

type Reconcile struct {
	cron string
	r    Reconciler
	log  zerolog.Logger

	mu      sync.Mutex
	running bool
}

func NewReconcile(cron string, r Reconciler, log zerolog.Logger) (*Reconcile, error) {
	if !gronx.IsValid(cron) {
		return nil, fmt.Errorf("invalid cron expression %q", cron)
	}
	return &Reconcile{cron: cron, r: r, log: log}, nil
}

// Run blocks, reconciling on every cron tick until ctx is cancelled.
func (w *Reconcile) Run(ctx context.Context) {
	w.log.Info().Str("cron", w.cron).Msg("reconcile_scheduled")
	for {
		next, err := gronx.NextTickAfter(w.cron, time.Now(), false)
		if err != nil {
			w.log.Error().Err(err).Str("cron", w.cron).Msg("reconcile_nexttick_failed")
			select {
			case <-time.After(30 * time.Second):
				continue
			case <-ctx.Done():
				return
			}
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.log.Error().Err(err).Msg("reconcile_run_failed")
			}
		case <-ctx.Done():
			timer.Stop()
			w.log.Info().Msg("reconcile_stopped")
			return
		}
	}
}

// RunOnce reconciles every article now. It is a no-op, reporting false, while
// another run is in progress.
func (w *Reconcile) RunOnce(ctx context.Context) (bool, error) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return false, nil
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	start := time.Now()
	reports, err := w.r.ReconcileAll(ctx)

	fixed := 0
	for _, rep := range reports {
		if rep.CounterBefore != rep.CounterAfter || len(rep.ChildIndexFix) > 0 {
			fixed++
		}
	}
	w.log.Info().
		Int("articles", len(reports)).
		Int("articles_fixed", fixed).
		Dur("took", time.Since(start)).
		Msg("reconcile_run_done")
	return true, err
}
