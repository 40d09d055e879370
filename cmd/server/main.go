package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"activityboard/internal/adapters/activityapi"
	emailPkg "activityboard/internal/adapters/email"
	web "activityboard/internal/adapters/http"
	"activityboard/internal/adapters/http/middleware"
	"activityboard/internal/adapters/http/perf"
	"activityboard/internal/adapters/storage"
	auditStore "activityboard/internal/adapters/storage/audit"
	"activityboard/internal/application/board"
	"activityboard/internal/application/orchestrators"
	"activityboard/internal/config"
	"activityboard/internal/jobs"
	"activityboard/internal/logging"
	"activityboard/internal/metrics"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// limiterIdle is how long an idle client's rate limit bucket is kept.
const limiterIdle = 10 * time.Minute

func main() {
	configPath := flag.String("config", os.Getenv("ACTIVITYBOARD_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Close()
	slog.SetDefault(logger.Logger)

	if err := run(cfg); err != nil {
		slog.Error("server_failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := metrics.New(cfg.Monitoring.MetricsPrefix)
	if err != nil {
		return err
	}
	collector := perf.NewCollector(perf.DefaultRingSize)

	api := activityapi.New(cfg.API.BaseURL,
		activityapi.WithTimeout(cfg.API.Timeout),
		activityapi.WithMetrics(m),
		activityapi.WithCollector(collector),
	)

	recorder := &orchestrators.ActionRecorder{
		Record: orchestrators.RecordBoardActionDeps{Counter: m},
	}

	webDeps := web.Deps{
		Collector:      collector,
		Metrics:        m,
		SecureCookies:  cfg.Security.SecureCookies,
		TrustedOrigins: cfg.Security.TrustedOrigins,
		SlowRequest:    time.Duration(cfg.Server.SlowRequestMs) * time.Millisecond,
		Markdown:       cfg.Board.MarkdownDescriptions,
	}

	// Audit trail
	var audit *auditStore.SQLiteStore
	if cfg.AuditEnabled() {
		db, err := storage.Open(cfg.Storage.AuditDB)
		if err != nil {
			return err
		}
		defer db.Close()
		timedDB := storage.NewTimedDB(db, collector, time.Duration(cfg.Storage.SlowQueryMs)*time.Millisecond)
		audit = auditStore.NewSQLiteStore(timedDB)
		recorder.Record.AuditStore = audit
		webDeps.AuditStore = audit
		webDeps.AuditDB = timedDB
		slog.Info("startup", "event", "audit_enabled", "path", cfg.Storage.AuditDB)
	} else {
		slog.Info("startup", "event", "audit_disabled")
	}

	// Signup confirmations
	if cfg.Notify.ConfirmSignups {
		recorder.Confirm = orchestrators.SendSignupConfirmationDeps{FromAddress: cfg.Notify.From, ReplyTo: cfg.Notify.ReplyTo}
		if cfg.Notify.ResendKey != "" {
			recorder.Confirm.EmailSender = emailPkg.NewResendSender(cfg.Notify.ResendKey, cfg.Notify.From, cfg.Notify.ReplyTo)
			slog.Info("startup", "event", "email_sender", "provider", "resend")
		} else {
			recorder.Confirm.EmailSender = emailPkg.NewNoopSender()
			if cfg.IsProduction() {
				slog.Warn("startup", "event", "email_sender", "provider", "noop", "detail", "ACTIVITYBOARD_RESEND_KEY is not set; confirmations are not delivered")
			} else {
				slog.Info("startup", "event", "email_sender", "provider", "noop")
			}
		}
	}

	boardOpts := board.Options{ReenableOnFailure: cfg.ReenableOnFailure()}
	sessions := middleware.NewSessionStore(cfg.Server.SessionTTL,
		func(id string) *board.Controller {
			return board.New(board.Deps{
				API:       api,
				Clock:     board.SystemClock{},
				Observer:  recorder,
				SessionID: id,
				Options:   boardOpts,
			})
		},
		middleware.WithActiveSessionsHook(m.SetActiveSessions),
	)
	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitPerSecond, time.Second)

	csrfKey, err := web.LoadCSRFKey(cfg.Security.CSRFKey, cfg.Security.Secret, cfg.IsProduction())
	if err != nil {
		return err
	}
	webDeps.Sessions = sessions
	webDeps.Limiter = limiter
	webDeps.CSRFKey = csrfKey

	// Background maintenance
	scheduler := jobs.NewScheduler(ctx)
	if err := scheduler.Add(jobs.Job{
		Name: "session_sweep",
		Spec: cfg.Jobs.SessionSweep,
		Run: func(ctx context.Context) error {
			return orchestrators.ExecuteSweepSessions(ctx, orchestrators.SweepSessionsDeps{Sessions: sessions, Limiter: limiter, LimiterIdle: limiterIdle})
		},
	}); err != nil {
		return err
	}
	if audit != nil {
		if err := scheduler.Add(jobs.Job{
			Name: "audit_prune",
			Spec: cfg.Jobs.AuditPrune,
			Run: func(ctx context.Context) error {
				return orchestrators.ExecutePruneAudit(ctx, orchestrators.PruneAuditDeps{AuditStore: audit, Retention: cfg.Storage.AuditRetention})
			},
		}); err != nil {
			return err
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           web.NewMux(webDeps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("startup", "event", "listening", "version", version, "addr", cfg.Server.Addr, "env", cfg.Env, "api", cfg.API.BaseURL)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutdown", "event", "draining")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "event", "http_shutdown_failed", "error", err)
	}
	recorder.Wait()
	return nil
}
