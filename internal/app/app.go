package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ykvlv/dailyping/internal/api"
	"github.com/ykvlv/dailyping/internal/billing"
	"github.com/ykvlv/dailyping/internal/config"
	"github.com/ykvlv/dailyping/internal/delivery"
	"github.com/ykvlv/dailyping/internal/domain"
	"github.com/ykvlv/dailyping/internal/ledger"
	"github.com/ykvlv/dailyping/internal/scheduler"
	"github.com/ykvlv/dailyping/internal/store"
	"github.com/ykvlv/dailyping/internal/streak"
	"github.com/ykvlv/dailyping/internal/trigger"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	repo    *store.SQLRepo
	closers []func() error
	httpSrv *http.Server
	sched   *scheduler.Scheduler
}

// New opens storage and wires every component.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	repo, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, log: log, repo: repo, closers: []func() error{repo.Close}}

	l, err := a.buildLedger()
	if err != nil {
		_ = a.close()
		return nil, err
	}
	renderer, err := delivery.NewRenderer(cfg.AppURL)
	if err != nil {
		_ = a.close()
		return nil, err
	}
	push, err := a.buildPush()
	if err != nil {
		_ = a.close()
		return nil, err
	}

	part := domain.NewPartitioner(cfg.DefaultTZ)
	defTrigger, err := domain.ParseHHMM(cfg.DefaultTriggerTime)
	if err != nil {
		log.Warn("invalid DEFAULT_TRIGGER_TIME, using 08:00", zap.String("value", cfg.DefaultTriggerTime))
		defTrigger = "08:00"
	}

	dispatcher := delivery.NewDispatcher(a.buildEmail(), push, repo, log.Named("delivery"))
	eval := trigger.New(repo, repo, l, dispatcher, renderer, part, trigger.Config{
		DefaultTrigger: defTrigger,
		Workers:        cfg.Workers,
		UserTimeout:    cfg.UserTimeout,
	}, log.Named("trigger"))

	var recon scheduler.Reconciler
	if cfg.StripeSecretKey != "" {
		recon = billing.NewReconciler(repo, billing.NewStripeProvider(cfg.StripeSecretKey),
			cfg.Workers, cfg.UserTimeout, log.Named("billing"))
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, subscription reconciliation disabled")
	}
	a.sched = scheduler.New(eval, recon, cfg.TickInterval, cfg.ReconcileInterval, log.Named("scheduler"))

	streaks := streak.NewService(repo, part, log.Named("streak"))
	a.httpSrv = api.NewServer(cfg.HTTPAddr, api.NewRouter(api.NewHandler(repo, streaks, log.Named("api"))), log)
	return a, nil
}

// OpenStore opens the configured database and applies migrations.
func OpenStore(ctx context.Context, cfg config.Config) (*store.SQLRepo, error) {
	switch cfg.DBDriver {
	case "postgres":
		return store.OpenPostgres(ctx, cfg.DatabaseDSN)
	case "sqlite", "":
		return store.OpenSQLite(ctx, cfg.DBPath)
	}
	return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
}

func (a *App) buildLedger() (ledger.Ledger, error) {
	switch a.cfg.LedgerBackend {
	case "memory":
		a.log.Warn("in-memory ledger: duplicate protection is per process and lost on restart")
		return ledger.NewMemory(), nil
	case "redis":
		client := ledger.NewRedisClient(a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisCluster)
		a.closers = append(a.closers, client.Close)
		return ledger.NewRedis(client, "dailyping:claim", a.cfg.LedgerTTL), nil
	case "sql", "":
		return ledger.NewSQL(a.repo.DB(), a.repo.Dialect()), nil
	}
	return nil, fmt.Errorf("unknown LEDGER_BACKEND %q", a.cfg.LedgerBackend)
}

func (a *App) buildEmail() delivery.EmailSender {
	if a.cfg.SMTPHost == "" {
		a.log.Warn("SMTP_HOST not set, emails are logged instead of sent")
		return logSender{log: a.log.Named("email")}
	}
	return delivery.NewSMTPSender(a.cfg.SMTPHost, a.cfg.SMTPPort, a.cfg.SMTPUser, a.cfg.SMTPPassword, a.cfg.SMTPFrom)
}

func (a *App) buildPush() (delivery.PushSender, error) {
	router := delivery.NewPushRouter()
	if a.cfg.VAPIDPublicKey != "" && a.cfg.VAPIDPrivateKey != "" {
		router.Handle(domain.PushWeb, delivery.NewWebPushSender(
			a.cfg.VAPIDPublicKey, a.cfg.VAPIDPrivateKey, a.cfg.VAPIDSubscriber, nil))
	}
	if a.cfg.TelegramBotToken != "" {
		tg, err := delivery.NewTelegramSender(a.cfg.TelegramBotToken)
		if err != nil {
			return nil, fmt.Errorf("telegram: %w", err)
		}
		router.Handle(domain.PushTelegram, tg)
	}
	return router, nil
}

// Run serves HTTP and drives the scheduler until ctx is canceled or a signal arrives.
func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting dailyping",
		zap.String("http", a.cfg.HTTPAddr),
		zap.String("db", a.cfg.DBDriver),
		zap.String("ledger", a.cfg.LedgerBackend),
		zap.Duration("tick", a.cfg.TickInterval),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.sched.Run(ctx)
	}()

	<-ctx.Done()
	a.log.Info("shutdown signal received")

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := a.httpSrv.Shutdown(shCtx)
	cancel()
	if err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}

	wg.Wait()
	return a.close()
}

func (a *App) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// logSender stands in for SMTP in development.
type logSender struct {
	log *zap.Logger
}

func (s logSender) SendEmail(_ context.Context, address string, msg delivery.Message) error {
	s.log.Info("email", zap.String("to", address), zap.String("subject", msg.Subject))
	return nil
}
