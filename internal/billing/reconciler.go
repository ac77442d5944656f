package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ykvlv/dailyping/internal/domain"
	"github.com/ykvlv/dailyping/internal/metrics"
)

type Store interface {
	ListUsersWithSubscriptionRef(ctx context.Context) ([]domain.User, error)
	CompareAndSetSubscriptionState(ctx context.Context, userID string, old, next domain.SubscriptionState) (bool, error)
}

type Reconciler struct {
	store    Store
	provider Provider
	log      *zap.Logger
	workers  int
	timeout  time.Duration
}

func NewReconciler(store Store, provider Provider, workers int, timeout time.Duration, log *zap.Logger) *Reconciler {
	if workers <= 0 {
		workers = 4
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{store: store, provider: provider, log: log, workers: workers, timeout: timeout}
}

// Report summarizes one reconciliation pass.
type Report struct {
	Users     int
	Updated   int
	Unchanged int
	Transient int // lookup failed or status unknown; state kept
	Conflicts int // state changed during the pass; left for the next one
	Err       error
	Errors    map[string]error
}

type outcome int

const (
	outcomeUnchanged outcome = iota
	outcomeUpdated
	outcomeTransient
	outcomeConflict
	outcomeError
)

var outcomeNames = map[outcome]string{
	outcomeUnchanged: "unchanged",
	outcomeUpdated:   "updated",
	outcomeTransient: "transient",
	outcomeConflict:  "conflict",
	outcomeError:     "error",
}

// OnReconciliationTick refreshes every user that has an external reference.
// Transient failures freeze the current state; only a definitive answer
// changes it, and only through compare-and-set against the value read at
// the start of the pass.
func (r *Reconciler) OnReconciliationTick(ctx context.Context, now time.Time) Report {
	start := time.Now()
	defer func() { metrics.TickDuration.WithLabelValues("reconcile").Observe(time.Since(start).Seconds()) }()

	var rep Report
	users, err := r.store.ListUsersWithSubscriptionRef(ctx)
	if err != nil {
		rep.Err = fmt.Errorf("list users: %w", err)
		r.log.Error("list subscribed users failed", zap.Error(err))
		return rep
	}
	rep.Users = len(users)

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(r.workers)
	for _, u := range users {
		g.Go(func() error {
			out, err := r.reconcileUser(ctx, u)
			metrics.Reconciliations.WithLabelValues(outcomeNames[out]).Inc()

			mu.Lock()
			defer mu.Unlock()
			switch out {
			case outcomeUpdated:
				rep.Updated++
			case outcomeUnchanged:
				rep.Unchanged++
			case outcomeTransient:
				rep.Transient++
			case outcomeConflict:
				rep.Conflicts++
			}
			if err != nil {
				if rep.Errors == nil {
					rep.Errors = make(map[string]error)
				}
				rep.Errors[u.ID] = err
			}
			return nil
		})
	}
	_ = g.Wait()

	r.log.Info("reconciliation done",
		zap.Time("at", now),
		zap.Int("users", rep.Users),
		zap.Int("updated", rep.Updated),
		zap.Int("transient", rep.Transient),
		zap.Int("conflicts", rep.Conflicts),
	)
	return rep
}

func (r *Reconciler) reconcileUser(ctx context.Context, u domain.User) (out outcome, err error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	defer func() {
		if p := recover(); p != nil {
			out, err = outcomeError, fmt.Errorf("panic: %v", p)
		}
	}()

	log := r.log.With(zap.String("user_id", u.ID), zap.String("ref", u.Subscription.ExternalRef))
	old := u.Subscription.State

	var next domain.SubscriptionState
	status, err := r.provider.GetExternalSubscriptionStatus(ctx, u.Subscription.ExternalRef)
	switch {
	case errors.Is(err, ErrSubscriptionNotFound):
		next = domain.SubscriptionInactive
	case err != nil:
		log.Warn("subscription lookup failed, keeping state", zap.String("state", string(old)), zap.Error(err))
		return outcomeTransient, err
	default:
		next, err = MapStatus(status)
		if err != nil {
			log.Warn("unrecognized subscription status, keeping state", zap.String("status", string(status)))
			return outcomeTransient, err
		}
	}

	if next == old {
		return outcomeUnchanged, nil
	}
	ok, err := r.store.CompareAndSetSubscriptionState(ctx, u.ID, old, next)
	if err != nil {
		return outcomeError, fmt.Errorf("update subscription state: %w", err)
	}
	if !ok {
		log.Info("subscription state changed during pass, skipping",
			zap.String("expected", string(old)), zap.String("next", string(next)))
		return outcomeConflict, nil
	}
	log.Info("subscription state updated", zap.String("from", string(old)), zap.String("to", string(next)))
	return outcomeUpdated, nil
}
