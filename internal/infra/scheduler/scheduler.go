package scheduler

import (
	"context"
	"fmt"
	"time"

	"quest_notifier/internal/app" // For NotificationService interface

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Specs holds the cron expressions for the periodic jobs.
type Specs struct {
	DeadlineScan   string // e.g. "*/15 * * * *"
	CalendarIngest string // e.g. "0 7 * * *"
	LoginBonus     string // e.g. "0 9 * * *"
}

type NotificationScheduler struct {
	cronEngine   *cron.Cron
	notifService app.NotificationService
	logger       *logrus.Entry
	specs        Specs
	jobTimeout   time.Duration
}

func NewNotificationScheduler(
	notifService app.NotificationService,
	logger *logrus.Entry,
	specs Specs,
	location *time.Location,
	jobTimeout time.Duration,
) *NotificationScheduler {
	return &NotificationScheduler{
		// SkipIfStillRunning keeps a slow deadline scan from overlapping the next tick.
		cronEngine: cron.New(
			cron.WithLocation(location),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		notifService: notifService,
		logger:       logger,
		specs:        specs,
		jobTimeout:   jobTimeout,
	}
}

// Start registers the jobs and starts the cron engine. An empty spec disables
// its job.
func (s *NotificationScheduler) Start() error {
	s.logger.Info("Starting notification scheduler...")

	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context)
	}{
		{"deadline_scan", s.specs.DeadlineScan, s.runDeadlineScan},
		{"calendar_ingest", s.specs.CalendarIngest, s.runCalendarIngest},
		{"login_bonus", s.specs.LoginBonus, s.runLoginBonus},
	}

	for _, job := range jobs {
		if job.spec == "" {
			s.logger.WithField("job", job.name).Info("Job disabled")
			continue
		}
		_, err := s.cronEngine.AddFunc(job.spec, func() {
			s.logger.WithField("job", job.name).Info("Cron job triggered")
			ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
			defer cancel()
			job.run(ctx)
		})
		if err != nil {
			return fmt.Errorf("could not add %s cron job: %w", job.name, err)
		}
	}

	s.cronEngine.Start()
	s.logger.WithField("jobs", len(s.cronEngine.Entries())).Info("Notification scheduler started with jobs.")
	return nil
}

func (s *NotificationScheduler) runDeadlineScan(ctx context.Context) {
	report, err := s.notifService.ScanDeadlines(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Error during deadline scan")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"found":            report.Found,
		"notified":         report.Notified,
		"already_notified": report.AlreadyNotified,
		"no_recipients":    report.NoRecipients,
		"failed":           report.Failed,
	}).Info("Deadline scan finished")
}

func (s *NotificationScheduler) runCalendarIngest(ctx context.Context) {
	report, err := s.notifService.IngestCalendars(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Error during calendar ingestion")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"users":         report.Users,
		"ingested":      report.Ingested,
		"skipped":       report.Skipped,
		"failed":        report.Failed,
		"cancellations": report.Cancellations,
	}).Info("Calendar ingestion finished")
}

func (s *NotificationScheduler) runLoginBonus(ctx context.Context) {
	result, err := s.notifService.BroadcastLoginBonus(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Error during login bonus broadcast")
		return
	}
	if result == nil {
		s.logger.Info("Login bonus broadcast had no recipients")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"success_count": result.SuccessCount,
		"failure_count": result.FailureCount,
	}).Info("Login bonus broadcast finished")
}

func (s *NotificationScheduler) Stop() {
	s.logger.Info("Stopping notification scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Notification scheduler gracefully stopped.")
}
