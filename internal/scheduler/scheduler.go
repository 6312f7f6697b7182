package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"rental-order-backend/internal/jobs"
	"rental-order-backend/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a scheduler with every sweep registered. A job whose
// previous run is still going is skipped for that tick.
func NewScheduler(jobRunner *jobs.JobRunner) (*Scheduler, error) {
	log := cronLogger{}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithLogger(log),
		cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) registerJobs() error {
	cfg := s.jobs.Config().Scheduler

	var errs []error
	register := func(name, spec string, fn func()) {
		if _, err := s.cron.AddFunc(spec, fn); err != nil {
			logger.Error("Failed to register job", "job", name, "spec", spec, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		logger.Debug("Registered job", "job", name, "spec", spec)
	}

	register(jobs.JobCancelExpiredOrders, cfg.CancelExpiredOrders, s.jobs.CancelExpiredPendingOrders)
	register(jobs.JobEscalateOverdueDisputes, cfg.EscalateOverdueDisputes, s.jobs.EscalateOverdueDisputes)
	register(jobs.JobSendDisputeReminders, cfg.SendDisputeReminders, s.jobs.SendDisputeReminders)

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	logger.Info("All cron jobs registered successfully", "count", len(s.cron.Entries()))
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// Entries returns the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// cronLogger routes cron's own logging into the application logger
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
