package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ykvlv/dailyping/internal/billing"
	"github.com/ykvlv/dailyping/internal/trigger"
)

// Evaluator runs one trigger pass. trigger.Evaluator implements it.
type Evaluator interface {
	OnTick(ctx context.Context, now time.Time) trigger.Report
}

// Reconciler runs one subscription pass. billing.Reconciler implements it.
type Reconciler interface {
	OnReconciliationTick(ctx context.Context, now time.Time) billing.Report
}

// Scheduler drives the trigger and reconciliation passes from two
// independent tickers. A slow pass never delays the next tick; passes may
// overlap and rely on the ledger and compare-and-set for safety.
type Scheduler struct {
	eval      Evaluator
	recon     Reconciler
	log       *zap.Logger
	tick      time.Duration
	reconcile time.Duration
	now       func() time.Time
	wg        sync.WaitGroup
}

// New creates a new Scheduler. recon may be nil when billing is not configured.
func New(eval Evaluator, recon Reconciler, tick, reconcile time.Duration, log *zap.Logger) *Scheduler {
	if tick <= 0 {
		tick = time.Minute
	}
	if reconcile <= 0 {
		reconcile = 15 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		eval:      eval,
		recon:     recon,
		log:       log,
		tick:      tick,
		reconcile: reconcile,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run starts both loops until ctx is canceled, then waits for in-flight passes.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	var reconC <-chan time.Time
	if s.recon != nil {
		rt := time.NewTicker(s.reconcile)
		defer rt.Stop()
		reconC = rt.C
	}

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping, waiting for running passes")
			s.wg.Wait()
			return
		case <-ticker.C:
			s.spawn(func() { s.runTick(ctx) })
		case <-reconC:
			s.spawn(func() { s.runReconcile(ctx) })
		}
	}
}

func (s *Scheduler) spawn(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// runTick performs one trigger pass.
func (s *Scheduler) runTick(ctx context.Context) {
	rep := s.eval.OnTick(ctx, s.now())
	if rep.Err != nil {
		s.log.Error("trigger pass failed", zap.Error(rep.Err))
	}
	for userID, err := range rep.Errors {
		s.log.Warn("trigger user error", zap.String("user_id", userID), zap.Error(err))
	}
}

// runReconcile performs one subscription pass.
func (s *Scheduler) runReconcile(ctx context.Context) {
	rep := s.recon.OnReconciliationTick(ctx, s.now())
	if rep.Err != nil {
		s.log.Error("reconciliation pass failed", zap.Error(rep.Err))
	}
}
