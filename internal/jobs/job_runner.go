package jobs

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"rental-order-backend/internal/clock"
	"rental-order-backend/internal/config"
	"rental-order-backend/internal/domain"
	"rental-order-backend/internal/logger"
	"rental-order-backend/internal/repository"
	"rental-order-backend/internal/service"
)

// Job names accepted by cmd/cronjob -run-once
const (
	JobCancelExpiredOrders     = "cancel-expired-orders"
	JobEscalateOverdueDisputes = "escalate-overdue-disputes"
	JobSendDisputeReminders    = "send-dispute-reminders"
	JobAllSweeps               = "all-sweeps"
)

// JobRunner coordinates the reconciler sweeps
type JobRunner struct {
	orders   repository.OrderRepository
	disputes repository.DisputeRepository
	services *Services
	clock    clock.Clock
	config   *config.Config
	retry    *retryGate
}

// Services holds the service dependencies needed by jobs
type Services struct {
	Order   service.OrderService
	Dispute service.DisputeService
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(orders repository.OrderRepository, disputes repository.DisputeRepository, services *Services, clk clock.Clock, cfg *config.Config) *JobRunner {
	return &JobRunner{
		orders:   orders,
		disputes: disputes,
		services: services,
		clock:    clk,
		config:   cfg,
		retry:    newRetryGate(cfg.Maintenance.RetryBackoff, cfg.Maintenance.RetryBackoffMax),
	}
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// SweepResult counts what one sweep did with the items it scanned.
// Deferred items failed on an earlier run and are waiting out their backoff.
type SweepResult struct {
	Scanned  int
	Applied  int
	Skipped  int
	Failed   int
	Deferred int
}

func (r *SweepResult) add(o SweepResult) {
	r.Scanned += o.Scanned
	r.Applied += o.Applied
	r.Skipped += o.Skipped
	r.Failed += o.Failed
	r.Deferred += o.Deferred
}

// record classifies the outcome of one item. Guard failures mean a request
// or an earlier run got there first, so they are skipped quietly.
func (r *SweepResult) record(job string, id any, applied bool, err error) {
	switch {
	case err == nil && applied:
		r.Applied++
	case err == nil:
		r.Skipped++
	case isGuard(err):
		r.Skipped++
		logger.Debug("Sweep item no longer due", "job", job, "id", id, "reason", err)
	default:
		r.Failed++
		logger.Error("Sweep item failed", "job", job, "id", id, "error", err)
	}
}

// fetchLimit widens the batch by the items of job that are parked, so a
// run of failing items at the head of the ordering cannot fill it.
func (jr *JobRunner) fetchLimit(job string) int {
	return jr.config.Maintenance.BatchSize + jr.retry.parkedCount(job, jr.clock.Now())
}

// sweep applies fn to ids in order, passing over parked ones, until a full
// batch has been processed. Failures park the item; any other outcome
// clears it.
func (jr *JobRunner) sweep(ctx context.Context, job string, ids []uuid.UUID, fn func(ctx context.Context, id uuid.UUID) (bool, error)) SweepResult {
	var res SweepResult
	batch := jr.config.Maintenance.BatchSize
	for _, id := range ids {
		if batch > 0 && res.Scanned == batch {
			break
		}
		now := jr.clock.Now()
		if !jr.retry.ready(job, id, now) {
			res.Deferred++
			continue
		}
		res.Scanned++
		applied, err := fn(ctx, id)
		res.record(job, id, applied, err)
		if err != nil && !isGuard(err) {
			retryAt := jr.retry.fail(job, id, now)
			logger.Debug("Sweep item parked", "job", job, "id", id, "retry_at", retryAt)
		} else {
			jr.retry.clear(job, id)
		}
	}
	return res
}

func isGuard(err error) bool {
	return errors.Is(err, domain.ErrInvalidStateTransition) ||
		errors.Is(err, domain.ErrConcurrentModification) ||
		errors.Is(err, domain.ErrNotFound)
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) SweepResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	log := logger.WithJob(jobName)
	log.Debug("Starting job")
	res := jobFunc(context.Background())
	if res.Scanned > 0 {
		log.Info("Job completed", "scanned", res.Scanned, "applied", res.Applied, "skipped", res.Skipped, "failed", res.Failed, "deferred", res.Deferred)
	} else {
		log.Debug("Job completed, nothing due")
	}
}

// RunAllSweeps runs every sweep once (for manual execution)
func (jr *JobRunner) RunAllSweeps() {
	jr.CancelExpiredPendingOrders()
	jr.EscalateOverdueDisputes()
	jr.SendDisputeReminders()
}

// Run executes the named job. It returns false for an unknown name.
func (jr *JobRunner) Run(name string) bool {
	switch name {
	case JobCancelExpiredOrders:
		jr.CancelExpiredPendingOrders()
	case JobEscalateOverdueDisputes:
		jr.EscalateOverdueDisputes()
	case JobSendDisputeReminders:
		jr.SendDisputeReminders()
	case JobAllSweeps:
		jr.RunAllSweeps()
	default:
		return false
	}
	return true
}

// JobNames lists the names Run accepts
func JobNames() []string {
	return []string{JobCancelExpiredOrders, JobEscalateOverdueDisputes, JobSendDisputeReminders, JobAllSweeps}
}
