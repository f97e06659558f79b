package authcore

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/keelworks/authcore/internal/audit"
)

const sweepTimeout = 30 * time.Second

// Sweeper drives the periodic reclamation jobs: expired revocation entries
// and expired refresh rows. It runs inside the Engine's process; overlapping
// runs across instances are safe because both sweeps are idempotent.
type Sweeper struct {
	cron *cron.Cron
}

// newSweeper schedules the configured sweeps and starts the cron runner.
// Returns nil when both schedules are empty.
func newSweeper(engine *Engine, cfg SweepConfig) (*Sweeper, error) {
	if cfg.RevocationSchedule == "" && cfg.RefreshSchedule == "" {
		return nil, nil
	}

	runner := cron.New()

	if cfg.RevocationSchedule != "" {
		if _, err := runner.AddFunc(cfg.RevocationSchedule, engine.sweepRevocation); err != nil {
			return nil, fmt.Errorf("invalid revocation sweep schedule: %w", err)
		}
	}

	if cfg.RefreshSchedule != "" {
		if _, err := runner.AddFunc(cfg.RefreshSchedule, engine.purgeRefresh); err != nil {
			return nil, fmt.Errorf("invalid refresh sweep schedule: %w", err)
		}
	}

	runner.Start()
	return &Sweeper{cron: runner}, nil
}

// sweepRevocation reclaims expired revocation entries. Failures surface in
// the audit trail so a persistently failing sweep is visible to operators.
func (e *Engine) sweepRevocation() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	swept, err := e.revocation.Sweep(ctx, e.now())
	if err != nil {
		e.emit(ctx, audit.Event{EventType: audit.TypeProviderFailure, Error: fmt.Sprintf("revocation sweep: %v", err)})
		return
	}
	e.metrics.Add(MetricRevocationSwept, uint64(swept))
}

// purgeRefresh reclaims expired refresh rows. Failures surface in the audit
// trail like any other backend outage.
func (e *Engine) purgeRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	purged, err := e.refresh.PurgeExpired(ctx, e.now())
	if err != nil {
		e.emit(ctx, audit.Event{EventType: audit.TypeProviderFailure, Error: fmt.Sprintf("refresh purge: %v", err)})
		return
	}
	e.metrics.Add(MetricRefreshPurged, uint64(purged))
}

// Stop halts scheduling and waits for any in-flight sweep to finish.
func (s *Sweeper) Stop() {
	if s == nil || s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
