package jobs

import (
	"context"

	"github.com/google/uuid"

	"rental-order-backend/internal/logger"
)

// CancelExpiredPendingOrders cancels unpaid orders older than the payment
// grace period and releases their stock.
func (jr *JobRunner) CancelExpiredPendingOrders() {
	jr.runWithRecovery(JobCancelExpiredOrders, jr.cancelExpiredPendingOrders)
}

func (jr *JobRunner) cancelExpiredPendingOrders(ctx context.Context) SweepResult {
	cutoff := jr.clock.Now().Add(-jr.config.Maintenance.PendingPaymentGrace)

	ids, err := jr.orders.ListExpiredPendingPayment(ctx, cutoff, jr.fetchLimit(JobCancelExpiredOrders))
	if err != nil {
		logger.Error("Failed to list expired pending orders", "error", err)
		return SweepResult{}
	}

	return jr.sweep(ctx, JobCancelExpiredOrders, ids, func(ctx context.Context, id uuid.UUID) (bool, error) {
		return jr.services.Order.CancelExpiredOrder(ctx, id, cutoff)
	})
}
