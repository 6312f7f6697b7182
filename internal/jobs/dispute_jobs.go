package jobs

import (
	"context"

	"github.com/google/uuid"

	"rental-order-backend/internal/logger"
	"rental-order-backend/internal/reminder"
	"rental-order-backend/internal/repository"
)

// EscalateOverdueDisputes hands OPEN disputes whose negotiation window has
// elapsed to the platform.
func (jr *JobRunner) EscalateOverdueDisputes() {
	jr.runWithRecovery(JobEscalateOverdueDisputes, jr.escalateOverdueDisputes)
}

func (jr *JobRunner) escalateOverdueDisputes(ctx context.Context) SweepResult {
	refs, err := jr.disputes.ListOverdueOpen(ctx, jr.clock.Now(), jr.fetchLimit(JobEscalateOverdueDisputes))
	if err != nil {
		logger.Error("Failed to list overdue disputes", "error", err)
		return SweepResult{}
	}
	return jr.sweep(ctx, JobEscalateOverdueDisputes, disputeIDs(refs), jr.services.Dispute.EscalateDueToTimeout)
}

// SendDisputeReminders sends the countdown notice for every OPEN dispute
// that crossed a new reminder level.
func (jr *JobRunner) SendDisputeReminders() {
	jr.runWithRecovery(JobSendDisputeReminders, jr.sendDisputeReminders)
}

// sendDisputeReminders queries one ladder step at a time, tightest first,
// and only for disputes still below that step's level. A dispute that has
// already been reminded for its current window never comes back, so it
// cannot crowd later deadlines out of the batch.
func (jr *JobRunner) sendDisputeReminders(ctx context.Context) SweepResult {
	var res SweepResult
	for _, step := range reminder.Ladder() {
		refs, err := jr.disputes.ListDueForReminder(ctx, jr.clock.Now(), step.Within, step.Level, jr.fetchLimit(JobSendDisputeReminders))
		if err != nil {
			logger.Error("Failed to list disputes due for a reminder", "level", step.Level, "error", err)
			continue
		}
		res.add(jr.sweep(ctx, JobSendDisputeReminders, disputeIDs(refs), jr.services.Dispute.SendCountdownReminder))
	}
	return res
}

func disputeIDs(refs []repository.DisputeRef) []uuid.UUID {
	ids := make([]uuid.UUID, len(refs))
	for i, ref := range refs {
		ids[i] = ref.ID
	}
	return ids
}
