// Package cron schedules background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/FACorreiaa/statement-pipeline/internal/domain/recurring"
)

// rescanTimeout bounds one full re-scan. Detection is linear in stored
// transactions, so anything near this limit indicates a stuck database.
const rescanTimeout = 10 * time.Minute

// Scheduler owns the periodic recurring re-scan.
type Scheduler struct {
	cron      *cron.Cron
	recurring *recurring.Service
	schedule  string
	logger    *slog.Logger

	// onResult, when set, receives each successful scan's output.
	onResult func(ctx context.Context, groups []recurring.Group, anomalies []recurring.Anomaly)
}

// NewScheduler creates the scheduler. schedule is a standard 5-field cron
// expression.
func NewScheduler(svc *recurring.Service, schedule string, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:      c,
		recurring: svc,
		schedule:  schedule,
		logger:    logger,
	}
}

// OnRescanResult registers a callback for successful scans. Must be called
// before Start.
func (s *Scheduler) OnRescanResult(fn func(ctx context.Context, groups []recurring.Group, anomalies []recurring.Anomaly)) {
	s.onResult = fn
}

// Start registers the jobs and begins the schedule.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.runRescan); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.String("schedule", s.schedule),
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop stops the schedule; the returned context is done when running jobs
// finish.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow triggers a re-scan outside the schedule.
func (s *Scheduler) RunNow() {
	go s.runRescan()
}

func (s *Scheduler) runRescan() {
	ctx, cancel := context.WithTimeout(context.Background(), rescanTimeout)
	defer cancel()

	start := time.Now()
	groups, anomalies, err := s.recurring.Rescan(ctx)
	if err != nil {
		s.logger.Error("scheduled rescan failed", slog.Any("error", err))
		return
	}

	s.logger.Info("scheduled rescan finished",
		slog.Int("groups", len(groups)),
		slog.Int("anomalies", len(anomalies)),
		slog.Duration("took", time.Since(start)),
	)

	if s.onResult != nil {
		s.onResult(ctx, groups, anomalies)
	}
}
