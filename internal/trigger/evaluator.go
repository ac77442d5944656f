// Package trigger decides, once per tick, which users are due a daily ping
// or a reminder, claims each firing in the ledger and hands it to delivery.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ykvlv/dailyping/internal/delivery"
	"github.com/ykvlv/dailyping/internal/domain"
	"github.com/ykvlv/dailyping/internal/ledger"
	"github.com/ykvlv/dailyping/internal/metrics"
)

type UserSource interface {
	LoadUsersWithActiveTriggers(ctx context.Context) ([]domain.User, error)
}

type EntrySource interface {
	LoadEntryForDay(ctx context.Context, userID string, day domain.Day) (*domain.Entry, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, in delivery.Intent) delivery.Result
}

type Renderer interface {
	Ping(u domain.User) (delivery.Message, delivery.Payload, error)
	Reminder(u domain.User, text string) (delivery.Message, delivery.Payload, error)
}

type Config struct {
	DefaultTrigger domain.HHMM
	Workers        int
	UserTimeout    time.Duration
}

type Evaluator struct {
	users      UserSource
	entries    EntrySource
	ledger     ledger.Ledger
	dispatcher Dispatcher
	renderer   Renderer
	part       *domain.Partitioner
	cfg        Config
	log        *zap.Logger
}

func New(users UserSource, entries EntrySource, l ledger.Ledger, d Dispatcher, r Renderer,
	part *domain.Partitioner, cfg Config, log *zap.Logger) *Evaluator {
	if cfg.DefaultTrigger == "" {
		cfg.DefaultTrigger = "08:00"
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.UserTimeout <= 0 {
		cfg.UserTimeout = 20 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{
		users:      users,
		entries:    entries,
		ledger:     l,
		dispatcher: d,
		renderer:   r,
		part:       part,
		cfg:        cfg,
		log:        log,
	}
}

// Report summarizes one tick.
type Report struct {
	Users      int
	Fired      int // claims won
	Delivered  int
	Failed     int
	Duplicates int
	Err        error            // the user list could not be loaded
	Errors     map[string]error // per user
}

func (r *Report) addErr(userID string, err error) {
	if r.Errors == nil {
		r.Errors = make(map[string]error)
	}
	r.Errors[userID] = errors.Join(r.Errors[userID], err)
}

// OnTick evaluates every user with an active trigger at instant now.
// No single user's failure stops the pass; errors land in the report.
func (e *Evaluator) OnTick(ctx context.Context, now time.Time) Report {
	start := time.Now()
	defer func() { metrics.TickDuration.WithLabelValues("trigger").Observe(time.Since(start).Seconds()) }()

	var rep Report
	users, err := e.users.LoadUsersWithActiveTriggers(ctx)
	if err != nil {
		rep.Err = fmt.Errorf("load users: %w", err)
		e.log.Error("load users failed", zap.Error(err))
		return rep
	}
	rep.Users = len(users)

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(e.cfg.Workers)
	for _, u := range users {
		g.Go(func() error {
			ur := e.evaluateUser(ctx, u, now)
			mu.Lock()
			rep.Fired += ur.Fired
			rep.Delivered += ur.Delivered
			rep.Failed += ur.Failed
			rep.Duplicates += ur.Duplicates
			if ur.err != nil {
				rep.addErr(u.ID, ur.err)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if rep.Fired > 0 || len(rep.Errors) > 0 {
		e.log.Info("tick done",
			zap.Int("users", rep.Users),
			zap.Int("fired", rep.Fired),
			zap.Int("delivered", rep.Delivered),
			zap.Int("failed", rep.Failed),
			zap.Int("duplicates", rep.Duplicates),
			zap.Int("user_errors", len(rep.Errors)),
		)
	}
	return rep
}

type userReport struct {
	Fired, Delivered, Failed, Duplicates int
	err                                  error
}

func (e *Evaluator) evaluateUser(ctx context.Context, u domain.User, now time.Time) (ur userReport) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.UserTimeout)
	defer cancel()
	defer func() {
		if p := recover(); p != nil {
			ur.err = errors.Join(ur.err, fmt.Errorf("panic: %v", p))
			e.log.Error("user evaluation panicked", zap.String("user_id", u.ID), zap.Any("panic", p))
		}
	}()

	lt := e.part.LocalClock(now, u.Timezone)

	entry, err := e.entries.LoadEntryForDay(ctx, u.ID, lt.Day)
	if err != nil {
		entry = nil
		if !errors.Is(err, domain.ErrNotFound) {
			ur.err = fmt.Errorf("load entry %s: %w", lt.Day, err)
		}
	}

	for _, f := range Matches(u, entry, lt, e.cfg.DefaultTrigger) {
		if err := ctx.Err(); err != nil {
			ur.err = errors.Join(ur.err, err)
			return ur
		}
		won, err := e.ledger.Claim(ctx, ledger.Key{UserID: u.ID, Channel: ChannelGroup, PeriodKey: f.PeriodKey})
		switch {
		case err != nil:
			metrics.Claims.WithLabelValues(f.Kind, "error").Inc()
			ur.err = errors.Join(ur.err, err)
			continue
		case !won:
			metrics.Claims.WithLabelValues(f.Kind, "duplicate").Inc()
			ur.Duplicates++
			continue
		}
		metrics.Claims.WithLabelValues(f.Kind, "won").Inc()
		ur.Fired++

		res, err := e.fire(ctx, u, f)
		if err != nil {
			ur.Failed++
			ur.err = errors.Join(ur.err, err)
			continue
		}
		if !res.Delivered() {
			ur.Failed++
			ur.err = errors.Join(ur.err, fmt.Errorf("%s: %w", f.PeriodKey, res.EmailErr))
			e.log.Warn("delivery failed",
				zap.String("user_id", u.ID),
				zap.String("period_key", f.PeriodKey),
				zap.Error(res.EmailErr),
			)
			continue
		}
		ur.Delivered++
		e.log.Debug("delivered",
			zap.String("user_id", u.ID),
			zap.String("period_key", f.PeriodKey),
			zap.String("push", string(res.Push)),
		)
	}
	return ur
}

func (e *Evaluator) fire(ctx context.Context, u domain.User, f Fire) (delivery.Result, error) {
	var (
		msg delivery.Message
		p   delivery.Payload
		err error
	)
	if f.Kind == KindPing {
		msg, p, err = e.renderer.Ping(u)
	} else {
		msg, p, err = e.renderer.Reminder(u, f.Text)
	}
	if err != nil {
		return delivery.Result{}, fmt.Errorf("render %s: %w", f.PeriodKey, err)
	}
	return e.dispatcher.Dispatch(ctx, delivery.Intent{
		User:      u,
		Kind:      f.Kind,
		PeriodKey: f.PeriodKey,
		Message:   msg,
		Payload:   p,
	}), nil
}
