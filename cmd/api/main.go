package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"academihub.org/internal/audit"
	"academihub.org/internal/auth"
	"academihub.org/internal/config"
	"academihub.org/internal/course"
	"academihub.org/internal/coursework"
	"academihub.org/internal/enrollment"
	"academihub.org/internal/events"
	"academihub.org/internal/httpapi"
	"academihub.org/internal/migrate"
	"academihub.org/internal/notify"
	"academihub.org/internal/obs"
	"academihub.org/internal/stats"
	"academihub.org/internal/store/pg"
	"academihub.org/ops"
)

// Set with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	if err := run(); err != nil {
		obs.Logger().Error("academihub-api stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	obs.SetLevel(cfg.LogLevel)
	obs.Init()
	obs.InitBuildInfo(version, commit)
	obs.InitReporting(cfg.Rollbar.Token, cfg.Env, version)
	defer obs.FlushReports()
	log := obs.Logger()

	store, err := pg.Open(cfg.DB.DSN, cfg.DB.MaxOpen, cfg.DB.MaxIdle)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.DB.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		applied, err := migrate.NewManager(store.DB(), ops.FS, ops.MigrationsDir, ops.SeedsDir).Up(ctx)
		cancel()
		if err != nil {
			return err
		}
		log.Info("migrations applied", "count", len(applied))
	}

	tokens, err := auth.NewTokens(cfg.Auth.JWTSecret,
		auth.WithIssuer(cfg.Auth.Issuer),
		auth.WithTTL(cfg.Auth.TokenTTL),
	)
	if err != nil {
		return err
	}
	authOpts := []auth.ServiceOption{auth.WithAdminSignupCode(cfg.Auth.AdminSignupCode)}
	if cfg.Auth.GoogleClientID != "" {
		authOpts = append(authOpts, auth.WithGoogle(auth.NewGoogleVerifier(cfg.Auth.GoogleClientID)))
	}
	authSvc, err := auth.NewService(store, tokens, authOpts...)
	if err != nil {
		return err
	}

	bus := events.NewBus(64)
	mailer := notify.NewMailer(cfg.Mail.SendGridKey, cfg.Mail.FromEmail, cfg.Mail.FromName, "AcademiHub")

	lifecycle := course.NewManager(store,
		func(_ context.Context, r course.Result) {
			obs.RecordTransition(string(r.From), string(r.To), r.Outcome())
		},
		audit.CourseTransitions,
		func(_ context.Context, r course.Result) {
			if r.Err != nil {
				return
			}
			bus.Publish(events.Event{Type: events.CourseTransitioned, Data: map[string]any{
				"course_id": r.CourseID,
				"action":    string(r.Action),
				"from":      string(r.From),
				"to":        string(r.To),
			}})
		},
	)

	svc := httpapi.Services{
		Auth:        authSvc,
		Guard:       auth.NewGuard(tokens, store),
		Authz:       auth.NewAuthorizer(store.Resolvers()),
		Courses:     course.NewService(store, store),
		Lifecycle:   lifecycle,
		Enrollments: enrollment.NewService(store, store),
		Coursework:  coursework.NewService(store, store, store, coursework.WithMailer(mailer)),
		Stats:       stats.NewService(store, store),
		Events:      bus,
	}

	proxies, err := httpapi.ParseTrustedProxies(cfg.HTTP.TrustedProxies)
	if err != nil {
		return err
	}

	api := httpapi.New(svc, httpapi.Options{
		Version:        version,
		Ready:          httpapi.ReadyProbe{DB: store.DB()},
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		AuthRateLimit:  cfg.Auth.RateLimit,
		AuthRateWindow: cfg.Auth.RateWindow,
		TrustedProxies: proxies,
	})

	var sched *notify.Scheduler
	if cfg.Jobs.Enabled {
		sched, err = notify.NewScheduler(mailer, store, store, notify.SchedulerConfig{
			ReminderSchedule: cfg.Jobs.ReminderSchedule,
			ReminderWindow:   cfg.Jobs.ReminderWindow,
			GaugeSchedule:    cfg.Jobs.GaugeSchedule,
		})
		if err != nil {
			return err
		}
		sched.Start()
	}

	srv := httpapi.NewServer(httpapi.ServerConfig{
		Addr:         cfg.HTTP.Addr,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}, api.Handler())

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting academihub-api", "version", version, "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if sched != nil {
		sched.Stop(ctx)
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("shutdown", "err", err)
	}
	log.Info("stopped")
	return nil
}
