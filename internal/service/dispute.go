package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"

	"rental-order-backend/internal/client"
	"rental-order-backend/internal/clock"
	"rental-order-backend/internal/domain"
	"rental-order-backend/internal/logger"
	"rental-order-backend/internal/notify"
	"rental-order-backend/internal/reminder"
	"rental-order-backend/internal/repository"
)

type disputeService struct {
	aggregateTx
	disputes repository.DisputeRepository
	proofs   repository.ProofRepository
	advisor  Advisor
}

func NewDisputeService(
	tx repository.Transactor,
	orders repository.OrderRepository,
	disputes repository.DisputeRepository,
	proofs repository.ProofRepository,
	coord *Coordinator,
	advisor Advisor,
	clk clock.Clock,
) DisputeService {
	return &disputeService{
		aggregateTx: aggregateTx{tx: tx, orders: orders, coord: coord, clock: clk},
		disputes:    disputes,
		proofs:      proofs,
		advisor:     advisor,
	}
}

func (s *disputeService) List(ctx context.Context, actor domain.Actor, orderID uuid.UUID) ([]domain.Dispute, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorize(o, actor, viewerRoles...); err != nil {
		return nil, err
	}
	return s.disputes.ListByOrder(ctx, orderID)
}

func (s *disputeService) Create(ctx context.Context, actor domain.Actor, orderID uuid.UUID, in CreateDisputeInput) (*domain.Dispute, error) {
	var out domain.Dispute
	_, err := s.mutate(ctx, orderID, "disputeService.Create", func(ctx context.Context, o *domain.Order, now time.Time, fx *Effects) error {
		if err := authorize(o, actor, partyRoles...); err != nil {
			return err
		}
		if o.Status == domain.OrderStatusPendingPayment || o.Status == domain.OrderStatusCancelled {
			return domain.Validationf("order %s is %s and cannot be disputed", o.ID, o.Status)
		}
		if err := s.checkAttachments(ctx, o.ID, actor, in.AttachmentProofIDs); err != nil {
			return err
		}
		d, err := o.OpenDispute(domain.Party{
			Role:   actor.Role,
			ID:     actor.ID,
			Option: in.Option,
			Reason: in.Reason,
			Remark: in.Remark,
		}, in.AttachmentProofIDs, now)
		if err != nil {
			return err
		}
		out = *d

		o.Record(domain.EventDisputeOpened, actor, "dispute opened", map[string]string{
			"dispute_id": d.ID.String(),
			"option":     string(d.Initiator.Option),
		}, now)
		counterparty, _ := o.Counterparty(actor.Role)
		s.coord.Notify(fx, counterparty, notify.TemplateDisputeOpened, domain.NotificationContextDispute, d.ID.String(), o, map[string]string{
			"deadline": d.DeadlineAt.Format(time.RFC3339),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *disputeService) Respond(ctx context.Context, actor domain.Actor, orderID, disputeID uuid.UUID, in RespondDisputeInput) (*domain.Dispute, error) {
	return s.mutateDispute(ctx, orderID, disputeID, "disputeService.Respond", func(ctx context.Context, o *domain.Order, d *domain.Dispute, now time.Time, fx *Effects) error {
		if err := authorize(o, actor, partyRoles...); err != nil {
			return err
		}
		if err := s.checkAttachments(ctx, o.ID, actor, in.AttachmentProofIDs); err != nil {
			return err
		}
		err := d.RecordResponse(domain.Response{
			Role:   actor.Role,
			ID:     actor.ID,
			Option: in.Option,
			Remark: in.Remark,
		}, in.Accept, now)
		if err != nil {
			return err
		}
		if err := d.AttachProofs(in.AttachmentProofIDs); err != nil {
			return err
		}

		vars := map[string]string{
			"dispute_id": d.ID.String(),
			"accepted":   strconv.FormatBool(in.Accept),
			"option":     string(in.Option),
		}
		o.Record(domain.EventDisputeResponded, actor, "dispute response", vars, now)
		counterparty, _ := o.Counterparty(actor.Role)
		s.coord.Notify(fx, counterparty, notify.TemplateDisputeResponded, domain.NotificationContextDispute, d.ID.String(), o, vars)
		if in.Accept {
			s.coord.CreditEvent(fx, o.UserID, domain.CreditEventFriendlyDispute, o)
		}
		return nil
	})
}

func (s *disputeService) Escalate(ctx context.Context, actor domain.Actor, orderID, disputeID uuid.UUID, reason string) (*domain.Dispute, error) {
	return s.mutateDispute(ctx, orderID, disputeID, "disputeService.Escalate", func(ctx context.Context, o *domain.Order, d *domain.Dispute, now time.Time, fx *Effects) error {
		if err := authorize(o, actor, partyRoles...); err != nil {
			return err
		}
		if err := d.Escalate(actor.IDPtr(), reason, now); err != nil {
			return err
		}
		o.Record(domain.EventDisputeEscalated, actor, "dispute escalated", map[string]string{"dispute_id": d.ID.String(), "reason": reason}, now)
		s.coord.NotifyParties(fx, notify.TemplateDisputeEscalated, domain.NotificationContextDispute, d.ID.String(), o, nil)
		return nil
	})
}

func (s *disputeService) Appeal(ctx context.Context, actor domain.Actor, orderID, disputeID uuid.UUID, reason string) (*domain.Dispute, error) {
	return s.mutateDispute(ctx, orderID, disputeID, "disputeService.Appeal", func(ctx context.Context, o *domain.Order, d *domain.Dispute, now time.Time, fx *Effects) error {
		if err := authorize(o, actor, partyRoles...); err != nil {
			return err
		}
		if err := d.Appeal(actor.ID, reason, now); err != nil {
			return err
		}
		o.Record(domain.EventDisputeAppealed, actor, "ruling appealed", map[string]string{"dispute_id": d.ID.String(), "reason": reason}, now)
		s.coord.NotifyParties(fx, notify.TemplateDisputeAppealed, domain.NotificationContextDispute, d.ID.String(), o, nil)
		return nil
	})
}

func (s *disputeService) Resolve(ctx context.Context, actor domain.Actor, orderID, disputeID uuid.UUID, in ResolveDisputeInput) (*domain.Dispute, error) {
	return s.mutateDispute(ctx, orderID, disputeID, "disputeService.Resolve", func(ctx context.Context, o *domain.Order, d *domain.Dispute, now time.Time, fx *Effects) error {
		if err := authorize(o, actor, staffRoles...); err != nil {
			return err
		}
		delta, err := d.ResolveByAdmin(domain.AdminResolution{
			Option:      in.Option,
			Remark:      in.Remark,
			By:          actor.ID,
			Role:        actor.Role,
			CreditDelta: in.CreditDelta,
			Malicious:   in.Malicious,
		}, now)
		if err != nil {
			return err
		}

		vars := map[string]string{
			"dispute_id": d.ID.String(),
			"option":     string(in.Option),
			"remark":     in.Remark,
			"malicious":  strconv.FormatBool(in.Malicious),
		}
		if delta != nil {
			vars["credit_delta"] = strconv.Itoa(*delta)
		}
		o.Record(domain.EventDisputeResolved, actor, "dispute resolved by platform", vars, now)
		s.coord.NotifyParties(fx, notify.TemplateDisputeResolved, domain.NotificationContextDispute, d.ID.String(), o, map[string]string{
			"option": string(in.Option),
			"remark": in.Remark,
		})

		switch {
		case in.Malicious:
			s.coord.PenalizeMalicious(fx, o.UserID, o, d, now)
		case delta != nil && *delta != 0:
			s.coord.AdjustCredit(fx, o.UserID, *delta, o, d)
		}
		return nil
	})
}

// Suggest asks the advisory generator for a recommendation. The generator
// is untrusted: failures or malformed answers fall back to the initiator's
// own proposal.
func (s *disputeService) Suggest(ctx context.Context, actor domain.Actor, orderID, disputeID uuid.UUID) (*domain.Suggestion, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorize(o, actor, staffRoles...); err != nil {
		return nil, err
	}
	d, err := o.DisputeByID(disputeID)
	if err != nil {
		return nil, err
	}

	fallback := &domain.Suggestion{
		Option:    d.Initiator.Option,
		Rationale: "advisory unavailable; showing the initiator's proposal",
	}
	sug, err := s.advisor.Suggest(ctx, client.NewDisputeSnapshot(o, d))
	if err != nil {
		logger.Warn("Dispute advisory failed", "dispute_id", d.ID, "error", err)
		return fallback, nil
	}
	if sug == nil || !sug.Option.Valid() {
		logger.Warn("Dispute advisory returned an unusable suggestion", "dispute_id", d.ID)
		return fallback, nil
	}
	if sug.CreditDelta > domain.MaxCreditDelta {
		sug.CreditDelta = domain.MaxCreditDelta
	}
	if sug.CreditDelta < -domain.MaxCreditDelta {
		sug.CreditDelta = -domain.MaxCreditDelta
	}
	return sug, nil
}

func (s *disputeService) EscalateDueToTimeout(ctx context.Context, disputeID uuid.UUID) (bool, error) {
	ref, err := s.disputes.GetRef(ctx, disputeID)
	if err != nil {
		return false, err
	}
	actor := domain.SystemActor()
	_, err = s.mutateDispute(ctx, ref.OrderID, disputeID, "disputeService.EscalateDueToTimeout", func(ctx context.Context, o *domain.Order, d *domain.Dispute, now time.Time, fx *Effects) error {
		if !d.NegotiationOverdue(now) {
			return errSkip
		}
		if err := d.Escalate(nil, "negotiation window elapsed", now); err != nil {
			return err
		}
		o.Record(domain.EventDisputeEscalated, actor, "negotiation window elapsed", map[string]string{"dispute_id": d.ID.String(), "reason": "timeout"}, now)
		s.coord.NotifyParties(fx, notify.TemplateDisputeEscalated, domain.NotificationContextDispute, d.ID.String(), o, nil)
		return nil
	})
	if errors.Is(err, errSkip) {
		return false, nil
	}
	return err == nil, err
}

func (s *disputeService) SendCountdownReminder(ctx context.Context, disputeID uuid.UUID) (bool, error) {
	ref, err := s.disputes.GetRef(ctx, disputeID)
	if err != nil {
		return false, err
	}
	actor := domain.SystemActor()
	_, err = s.mutateDispute(ctx, ref.OrderID, disputeID, "disputeService.SendCountdownReminder", func(ctx context.Context, o *domain.Order, d *domain.Dispute, now time.Time, fx *Effects) error {
		if d.Status != domain.DisputeStatusOpen {
			return errSkip
		}
		decision := reminder.Decide(d.DeadlineAt, now, d.ReminderLevel)
		if decision.Action != reminder.ActionRemind || !d.AdvanceReminderLevel(decision.Level) {
			return errSkip
		}
		d.UpdatedAt = now

		vars := map[string]string{
			"dispute_id": d.ID.String(),
			"level":      strconv.Itoa(decision.Level),
			"hours_left": strconv.Itoa(decision.HoursLeft()),
		}
		o.Record(domain.EventDisputeReminderSent, actor, "countdown reminder sent", vars, now)
		s.coord.NotifyParties(fx, notify.TemplateDisputeCountdown, domain.NotificationContextDispute, d.ID.String(), o, vars)
		return nil
	})
	if errors.Is(err, errSkip) {
		return false, nil
	}
	return err == nil, err
}

type disputeMutation func(ctx context.Context, o *domain.Order, d *domain.Dispute, now time.Time, fx *Effects) error

func (s *disputeService) mutateDispute(ctx context.Context, orderID, disputeID uuid.UUID, op string, fn disputeMutation) (*domain.Dispute, error) {
	var out domain.Dispute
	_, err := s.mutate(ctx, orderID, op, func(ctx context.Context, o *domain.Order, now time.Time, fx *Effects) error {
		d, err := o.DisputeByID(disputeID)
		if err != nil {
			return err
		}
		if err := fn(ctx, o, d, now, fx); err != nil {
			return err
		}
		o.UpdatedAt = now
		out = *d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// checkAttachments verifies every cited proof belongs to the order and was
// uploaded by the citing actor.
func (s *disputeService) checkAttachments(ctx context.Context, orderID uuid.UUID, actor domain.Actor, ids []uuid.UUID) error {
	if len(ids) > domain.MaxDisputeAttachments {
		return domain.Validationf("a dispute may cite at most %d attachments", domain.MaxDisputeAttachments)
	}
	for _, id := range ids {
		p, err := s.proofs.FindByIDAndOrder(ctx, id, orderID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Validationf("attachment %s does not belong to order %s", id, orderID)
		}
		if err != nil {
			return err
		}
		if p.UploadedBy != actor.ID {
			return domain.Validationf("attachment %s was not uploaded by %s", id, actor.ID)
		}
	}
	return nil
}
