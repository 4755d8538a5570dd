// Command notifier runs the quest notification engine.
//
// Usage:
//
//	notifier serve
//	notifier scan-deadlines
//	notifier ingest-calendars
//	notifier login-bonus
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quest_notifier/internal/app"
	"quest_notifier/internal/domain/push"
	"quest_notifier/internal/domain/timetable"
	"quest_notifier/internal/infra/calendar"
	"quest_notifier/internal/infra/config"
	idb "quest_notifier/internal/infra/database"
	"quest_notifier/internal/infra/gateway"
	"quest_notifier/internal/infra/httpapi"
	"quest_notifier/internal/infra/logger"
	"quest_notifier/internal/infra/scheduler"
	"quest_notifier/internal/infra/trigger"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/telebot.v3"
)

func main() {
	root := &cobra.Command{
		Use:           "notifier",
		Short:         "Quest notification dispatch engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(scanDeadlinesCmd())
	root.AddCommand(ingestCalendarsCmd())
	root.AddCommand(loginBonusCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}

// runtime is everything a command needs once configuration is loaded.
type runtime struct {
	cfg *config.AppConfig
	log *logrus.Logger
	db  *sql.DB
	svc *app.NotificationServiceImpl
}

func bootstrap(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("could not load application configuration: %w", err)
	}

	log := logger.New(cfg)
	mainLogger := logger.Component(log, "main")
	mainLogger.WithFields(logrus.Fields{
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
		"gateway":     cfg.PushGateway,
		"timezone":    cfg.Timezone,
	}).Info("Configuration loaded")

	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}
	mainLogger.Info("Database connection established successfully.")

	gw, err := newGateway(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	mainLogger.WithField("gateway", cfg.PushGateway).Info("Push gateway initialized.")

	userRepo := idb.NewPostgresUserRepository(db)
	questRepo := idb.NewPostgresQuestRepository(db)
	notifRepo := idb.NewPostgresNotificationRepository(db)
	timetableRepo := idb.NewPostgresTimetableRepository(db)

	loc := cfg.Location()
	dispatcher := app.NewPushDispatcher(gw, logger.Component(log, "dispatcher"))
	resolver := app.NewTokenResolver(userRepo, logger.Component(log, "token_resolver"))
	recipients := app.NewRecipientSetBuilder(resolver, cfg.FanoutConcurrency, logger.Component(log, "recipients"))

	handlers := app.NewEventHandlers(resolver, recipients, dispatcher, logger.Component(log, "event_handlers"))
	scanner := app.NewDeadlineScanner(
		questRepo, recipients, dispatcher,
		cfg.DeadlineLookahead, loc, cfg.FanoutConcurrency,
		logger.Component(log, "deadline_scanner"),
	)
	feed := calendar.NewClient(cfg.CalendarFetchTimeout, cfg.CalendarFetchPerMinute, loc, logger.Component(log, "calendar_feed"))
	ingestion := app.NewCalendarIngestion(
		userRepo, timetableRepo, feed, dispatcher,
		timetable.MarkerPolicy(timetable.DefaultCancellationMarker),
		loc, cfg.FanoutConcurrency,
		logger.Component(log, "calendar_ingestion"),
	)
	loginBonus := app.NewLoginBonusBroadcaster(userRepo, dispatcher, loc, logger.Component(log, "login_bonus"))

	svc := app.NewNotificationServiceImpl(
		questRepo, notifRepo,
		handlers, scanner, ingestion, loginBonus,
		logger.Component(log, "notification_service"),
	)

	return &runtime{
		cfg: cfg,
		log: log,
		db:  db,
		svc: svc,
	}, nil
}

func newGateway(ctx context.Context, cfg *config.AppConfig) (push.Gateway, error) {
	switch cfg.PushGateway {
	case config.GatewayTelegram:
		bot, err := telebot.NewBot(telebot.Settings{Token: cfg.TelegramToken})
		if err != nil {
			return nil, fmt.Errorf("could not create Telegram bot: %w", err)
		}
		return gateway.NewTelegramGateway(bot), nil
	default:
		gw, err := gateway.NewFCMGateway(ctx, cfg.FirebaseCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("could not create FCM gateway: %w", err)
		}
		return gw, nil
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the trigger listener, cron jobs and HTTP entry points",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer rt.db.Close()
			mainLogger := logger.Component(rt.log, "main")

			if err := idb.EnsureSchema(ctx, rt.db); err != nil {
				return err
			}
			mainLogger.Info("Database schema ensured.")

			sched := scheduler.NewNotificationScheduler(
				rt.svc,
				logger.Component(rt.log, "scheduler"),
				scheduler.Specs{
					DeadlineScan:   rt.cfg.CronSpecDeadlineScan,
					CalendarIngest: rt.cfg.CronSpecCalendarIngest,
					LoginBonus:     rt.cfg.CronSpecLoginBonus,
				},
				rt.cfg.Location(),
				rt.cfg.JobTimeout,
			)
			if err := sched.Start(); err != nil {
				return err
			}

			listener := trigger.NewListener(rt.cfg.DatabaseURL, rt.svc, rt.cfg.JobTimeout, logger.Component(rt.log, "trigger"))
			listenerDone := make(chan error, 1)
			go func() { listenerDone <- listener.Run(ctx) }()

			srv := &http.Server{
				Addr:              rt.cfg.HTTPAddr,
				Handler:           httpapi.NewRouter(rt.svc, rt.db, rt.cfg.JobTimeout, logger.Component(rt.log, "http")),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				mainLogger.WithField("addr", srv.Addr).Info("HTTP server listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					mainLogger.WithError(err).Error("HTTP server failed")
					stop()
				}
			}()

			mainLogger.Info("Application setup complete. Listener, scheduler and HTTP server are running.")

			select {
			case <-ctx.Done():
			case err := <-listenerDone:
				if err != nil {
					mainLogger.WithError(err).Error("Trigger listener exited")
				}
			}

			mainLogger.Info("Shutting down application...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				mainLogger.WithError(err).Warn("HTTP server shutdown")
			}
			stop()
			sched.Stop()
			mainLogger.Info("Application shut down gracefully.")
			return nil
		},
	}
}

// runOnce bootstraps, runs job under the configured timeout and tears down.
func runOnce(job func(ctx context.Context, rt *runtime) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	ctx, cancel := context.WithTimeout(ctx, rt.cfg.JobTimeout)
	defer cancel()
	return job(ctx, rt)
}

func scanDeadlinesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan-deadlines",
		Short: "Remind enrolled users of quests due within the lookahead window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(func(ctx context.Context, rt *runtime) error {
				report, err := rt.svc.ScanDeadlines(ctx)
				if err != nil {
					return err
				}
				logger.Component(rt.log, "main").WithFields(logrus.Fields{
					"found":            report.Found,
					"notified":         report.Notified,
					"already_notified": report.AlreadyNotified,
					"no_recipients":    report.NoRecipients,
					"failed":           report.Failed,
				}).Info("Deadline scan finished")
				return nil
			})
		},
	}
}

func ingestCalendarsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest-calendars",
		Short: "Rebuild today's timetables from linked calendars and announce cancellations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(func(ctx context.Context, rt *runtime) error {
				report, err := rt.svc.IngestCalendars(ctx)
				if err != nil {
					return err
				}
				logger.Component(rt.log, "main").WithFields(logrus.Fields{
					"users":         report.Users,
					"ingested":      report.Ingested,
					"skipped":       report.Skipped,
					"failed":        report.Failed,
					"cancellations": report.Cancellations,
				}).Info("Calendar ingestion finished")
				return nil
			})
		},
	}
}

func loginBonusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login-bonus",
		Short: "Broadcast the daily login bonus reminder",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(func(ctx context.Context, rt *runtime) error {
				result, err := rt.svc.BroadcastLoginBonus(ctx)
				if err != nil {
					return err
				}
				entry := logger.Component(rt.log, "main")
				if result == nil {
					entry.Info("Login bonus broadcast had no recipients")
					return nil
				}
				entry.WithFields(logrus.Fields{
					"success_count": result.SuccessCount,
					"failure_count": result.FailureCount,
				}).Info("Login bonus broadcast finished")
				return nil
			})
		},
	}
}
