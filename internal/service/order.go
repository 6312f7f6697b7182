package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"rental-order-backend/internal/clock"
	"rental-order-backend/internal/domain"
	"rental-order-backend/internal/logger"
	"rental-order-backend/internal/notify"
	"rental-order-backend/internal/repository"
)

// earlyReturnGrace is how late a return may complete after the planned
// lease end and still earn the early-return credit event.
const earlyReturnGrace = 24 * time.Hour

// messageSnippetRunes bounds the message excerpt carried by a notification
const messageSnippetRunes = 120

type orderService struct {
	aggregateTx
}

func NewOrderService(tx repository.Transactor, orders repository.OrderRepository, coord *Coordinator, clk clock.Clock) OrderService {
	return &orderService{aggregateTx{tx: tx, orders: orders, coord: coord, clock: clk}}
}

func (s *orderService) CreateOrder(ctx context.Context, actor domain.Actor, in CreateOrderInput) (*domain.Order, error) {
	logger.EnterMethod("orderService.CreateOrder", "user_id", actor.ID, "vendor_id", in.VendorID)

	if actor.Role != domain.RoleUser {
		return nil, domain.Forbiddenf("only a user may place an order")
	}
	o, err := domain.NewOrder(domain.NewOrderParams{
		UserID:       actor.ID,
		VendorID:     in.VendorID,
		PlanType:     in.PlanType,
		DepositCents: in.DepositCents,
		RentCents:    in.RentCents,
		BuyoutCents:  in.BuyoutCents,
		TotalCents:   in.TotalCents,
		LeaseMonths:  in.LeaseMonths,
		Items:        in.Items,
	}, s.clock.Now())
	if err != nil {
		return nil, err
	}

	fx := NewEffects("orderService.CreateOrder")
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		return s.orders.Create(ctx, o)
	})
	if err != nil {
		logger.ExitMethodWithError("orderService.CreateOrder", err, "user_id", actor.ID)
		return nil, err
	}

	s.coord.Reserve(fx, o)
	s.coord.Notify(fx, o.VendorID, notify.TemplateOrderCreated, domain.NotificationContextOrder, o.ID.String(), o, nil)
	fx.Run(ctx)

	logger.ExitMethod("orderService.CreateOrder", "order_id", o.ID, "order_no", o.OrderNo)
	return o, nil
}

func (s *orderService) GetOrder(ctx context.Context, actor domain.Actor, orderID uuid.UUID) (*domain.Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorize(o, actor, viewerRoles...); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *orderService) ListOrdersForUser(ctx context.Context, actor domain.Actor, status domain.OrderStatus, page, pageSize int32) (*OrderPage, error) {
	if actor.Role != domain.RoleUser {
		return nil, domain.Forbiddenf("role %s may not list user orders", actor.Role)
	}
	id := actor.ID
	return s.listOrders(ctx, repository.OrderFilter{UserID: &id, Status: status}, page, pageSize)
}

func (s *orderService) ListOrdersForVendor(ctx context.Context, actor domain.Actor, status domain.OrderStatus, page, pageSize int32) (*OrderPage, error) {
	if actor.Role != domain.RoleVendor {
		return nil, domain.Forbiddenf("role %s may not list vendor orders", actor.Role)
	}
	id := actor.ID
	return s.listOrders(ctx, repository.OrderFilter{VendorID: &id, Status: status}, page, pageSize)
}

func (s *orderService) ListOrdersForAdmin(ctx context.Context, actor domain.Actor, q OrderQuery, page, pageSize int32) (*OrderPage, error) {
	if !actor.Role.IsStaff() && !actor.IsSystem() {
		return nil, domain.Forbiddenf("role %s may not list all orders", actor.Role)
	}
	if q.UserID != nil && q.VendorID != nil {
		return nil, domain.Validationf("user_id and vendor_id cannot both be set")
	}
	return s.listOrders(ctx, repository.OrderFilter{UserID: q.UserID, VendorID: q.VendorID, Status: q.Status}, page, pageSize)
}

func (s *orderService) listOrders(ctx context.Context, filter repository.OrderFilter, page, pageSize int32) (*OrderPage, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.Validationf("unknown order status %q", filter.Status)
	}
	page, pageSize = normalizePage(page, pageSize)
	orders, total, err := s.orders.ListOrders(ctx, filter, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return &OrderPage{Orders: orders, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *orderService) PostConversationMessage(ctx context.Context, actor domain.Actor, orderID uuid.UUID, message string) (*domain.Order, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, domain.Validationf("message must not be empty")
	}
	return s.mutate(ctx, orderID, "orderService.PostConversationMessage", func(ctx context.Context, o *domain.Order, now time.Time, fx *Effects) error {
		if err := authorize(o, actor, viewerRoles...); err != nil {
			return err
		}
		o.Record(domain.EventCommunicationNote, actor, message, nil, now)

		vars := map[string]string{"sender": senderLabel(actor.Role), "snippet": snippet(message)}
		ref := o.ID.String()
		switch actor.Role {
		case domain.RoleUser:
			s.coord.Notify(fx, o.VendorID, notify.TemplateOrderMessage, domain.NotificationContextOrder, ref, o, vars)
		case domain.RoleVendor:
			s.coord.Notify(fx, o.UserID, notify.TemplateOrderMessage, domain.NotificationContextOrder, ref, o, vars)
		default:
			s.coord.NotifyParties(fx, notify.TemplateOrderMessage, domain.NotificationContextOrder, ref, o, vars)
		}
		return nil
	})
}

func senderLabel(r domain.Role) string {
	switch r {
	case domain.RoleUser:
		return "The user"
	case domain.RoleVendor:
		return "The vendor"
	}
	return "The platform"
}

func snippet(message string) string {
	if utf8.RuneCountInString(message) <= messageSnippetRunes {
		return message
	}
	return string([]rune(message)[:messageSnippetRunes]) + "..."
}

func (s *orderService) ConfirmPayment(ctx context.Context, actor domain.Actor, orderID uuid.UUID) (*domain.Order, error) {
	return s.mutate(ctx, orderID, "orderService.ConfirmPayment", func(ctx context.Context, o *domain.Order, now time.Time, fx *Effects) error {
		if err := authorize(o, actor, domain.RoleUser, domain.RoleInternal); err != nil {
			return err
		}
		if err := o.MarkPaid(now); err != nil {
			return err
		}
		o.Record(domain.EventPaymentConfirmed, actor, "payment confirmed", nil, now)
		s.coord.CreditEvent(fx, o.UserID, domain.CreditEventOnTimePayment, o)
		s.coord.Notify(fx, o.VendorID, notify.TemplateOrderPaid, domain.NotificationContextOrder, o.ID.String(), o, nil)
		return nil
	})
}

func (s *orderService) CancelOrder(ctx context.Context, actor domain.Actor, orderID uuid.UUID, reason string) (*domain.Order, error) {
	return s.mutate(ctx, orderID, "orderService.CancelOrder", func(ctx context.Context, o *domain.Order, now time.Time, fx *Effects) error {
		if err := authorize(o, actor, domain.RoleUser, domain.RoleAdmin); err != nil {
			return err
		}
		if err := o.Cancel(now); err != nil {
			return err
		}
		o.Record(domain.EventOrderCancelled, actor, "order cancelled", map[string]string{"reason": reason}, now)
		s.coord.Release(fx, o)
		s.coord.Notify(fx, o.VendorID, notify.TemplateOrderCancelled, domain.NotificationContextOrder, o.ID.String(), o, map[string]string{"reason": reason})
		return nil
	})
}

func (s *orderService) CancelExpiredOrder(ctx context.Context, orderID uuid.UUID, cutoff time.Time) (bool, error) {
	actor := domain.SystemActor()
	_, err := s.mutate(ctx, orderID, "orderService.CancelExpiredOrder", func(ctx context.Context, o *domain.Order, now time.Time, fx *Effects) error {
		if !o.CreatedAt.Before(cutoff) {
			return errSkip
		}
		if err := o.Cancel(now); err != nil {
			return err
		}
		o.Record(domain.EventOrderCancelled, actor, "payment window expired", map[string]string{"reason": "payment_timeout"}, now)
		s.coord.Release(fx, o)
		s.coord.NotifyParties(fx, notify.TemplateOrderExpired, domain.NotificationContextOrder, o.ID.String(), o, nil)
		return nil
	})
	if errors.Is(err, errSkip) {
		return false, nil
	}
	return err == nil, err
}

func (s *orderService) ShipOrder(ctx context.Context, actor domain.Actor, orderID uuid.UUID, in ShipInput) (*domain.Order, error) {
	return s.mutate(ctx, orderID, "orderService.ShipOrder", func(ctx context.Context, o *domain.Order, now time.Time, fx *Effects) error {
		if err := authorize(o, actor, domain.RoleVendor); err != nil {
			return err
		}
		if err := o.Ship(in.Carrier, in.TrackingNo, now); err != nil {
			return err
		}
		vars := map[string]string{"carrier": in.Carrier, "tracking_no": in.TrackingNo}
		o.Record(domain.EventOrderShipped, actor, "order shipped", vars, now)
		s.coord.Outbound(fx, o)
		s.coord.Notify(fx, o.UserID, notify.TemplateOrderShipped, domain.NotificationContextOrder, o.ID.String(), o, vars)
		return nil
	})
}

func (s *orderService) ConfirmReceive(ctx context.Context, actor domain.Actor, orderID uuid.UUID) (*domain.Order, error) {
	return s.mutate(ctx, orderID, "orderService.ConfirmReceive", func(ctx context.Context, o *domain.Order, now time.Time, fx *Effects) error {
		if err := authorize(o, actor, domain.RoleUser); err != nil {
			return err
		}
		if err := o.ConfirmReceive(now); err != nil {
			return err
		}
		o.Record(domain.EventOrderReceived, actor, "receipt confirmed", nil, now)
		s.coord.Notify(fx, o.VendorID, notify.TemplateOrderReceived, domain.NotificationContextOrder, o.ID.String(), o, nil)
		return nil
	})
}

func (s *orderService) ApplyExtension(ctx context.Context, actor domain.Actor, orderID uuid.UUID, months int, remark string) (*domain.Order, error) {
	return s.mutate(ctx, orderID, "orderService.ApplyExtension", func(ctx context.Context, o *domain.Order, now time.Time, fx *Effects) error {
		if err := authorize(o, actor, domain.RoleUser); err != nil {
			return err
		}
		req, err := o.OpenExtensionRequest(actor, months, remark, now)
		if err != nil {
			return err
		}
		vars := map[string]string{"request_id": req.ID.String(), "months": strconv.Itoa(months)}
		o.Record(domain.EventExtensionRequested, actor, "extension requested", vars, now)
		s.coord.Notify(fx, o.VendorID, notify.TemplateExtensionRequest, domain.NotificationContextOrder, o.ID.String(), o, vars)
		return nil
	})
}

func (s *orderService) DecideExtension(ctx context.Context, actor domain.Actor, orderID, requestID uuid.UUID, approve bool, remark string) (*domain.Order, error) {
	return s.mutate(ctx, orderID, "orderService.DecideExtension", func(ctx context.Context, o *domain.Order, now time.Time, fx *Effects) error {
		if err := authorize(o, actor, domain.RoleVendor, domain.RoleAdmin); err != nil {
			return err
		}
		req, err := o.DecideExtension(requestID, approve, actor, remark, now)
		if err != nil {
			return err
		}
		event, decision := domain.EventExtensionRejected, "rejected"
		if approve {
			event, decision = domain.EventExtensionApproved, "approved"
		}
		vars := map[string]string{"request_id": req.ID.String(), "decision": decision, "remark": remark}
		if approve {
			vars["months"] = strconv.Itoa(req.AdditionalMonths)
		}
		o.Record(event, actor, "extension "+decision, vars, now)
		s.coord.Notify(fx, o.UserID, notify.TemplateExtensionDecided, domain.NotificationContextOrder, o.ID.String(), o, vars)
		return nil
	})
}

func (s *orderService) ApplyReturn(ctx context.Context, actor domain.Actor, orderID uuid.UUID, in ReturnInput) (*domain.Order, error) {
	return s.mutate(ctx, orderID, "orderService.ApplyReturn", func(ctx context.Context, o *domain.Order, now time.Time, fx *Effects) error {
		if err := authorize(o, actor, domain.RoleUser); err != nil {
			return err
		}
		req, err := o.OpenReturnRequest(actor, domain.ReturnDetails{
			Reason:           in.Reason,
			LogisticsCompany: in.LogisticsCompany,
			TrackingNumber:   in.TrackingNumber,
		}, now)
		if err != nil {
			return err
		}
		vars := map[string]string{"request_id": req.ID.String(), "reason": in.Reason}
		o.Record(domain.EventReturnRequested, actor, "return requested", vars, now)
		s.coord.Notify(fx, o.VendorID, notify.TemplateReturnRequested, domain.NotificationContextOrder, o.ID.String(), o, vars)
		return nil
	})
}

func (s *orderService) MarkReturnInTransit(ctx context.Context, actor domain.Actor, orderID uuid.UUID, in ShipInput) (*domain.Order, error) {
	return s.mutate(ctx, orderID, "orderService.MarkReturnInTransit", func(ctx context.Context, o *domain.Order, now time.Time, fx *Effects) error {
		if err := authorize(o, actor, domain.RoleUser); err != nil {
			return err
		}
		if err := o.MarkReturnInProgress(now); err != nil {
			return err
		}
		vars := map[string]string{"carrier": in.Carrier, "tracking_no": in.TrackingNo}
		o.Record(domain.EventReturnInTransit, actor, "return shipped back", vars, now)
		s.coord.Notify(fx, o.VendorID, notify.TemplateReturnInTransit, domain.NotificationContextOrder, o.ID.String(), o, vars)
		return nil
	})
}

func (s *orderService) DecideReturn(ctx context.Context, actor domain.Actor, orderID, requestID uuid.UUID, approve bool, remark string) (*domain.Order, error) {
	return s.mutate(ctx, orderID, "orderService.DecideReturn", func(ctx context.Context, o *domain.Order, now time.Time, fx *Effects) error {
		if err := authorize(o, actor, domain.RoleVendor, domain.RoleAdmin); err != nil {
			return err
		}
		var plannedEnd *time.Time
		if o.LeaseEndAt != nil {
			end := *o.LeaseEndAt
			plannedEnd = &end
		}
		req, err := o.DecideReturn(requestID, approve, actor, remark, now)
		if err != nil {
			return err
		}

		event, decision := domain.EventReturnRejected, "rejected"
		if approve {
			event, decision = domain.EventReturnApproved, "approved"
		}
		vars := map[string]string{"request_id": req.ID.String(), "decision": decision, "remark": remark}
		o.Record(event, actor, "return "+decision, vars, now)

		if approve {
			s.coord.Inbound(fx, o)
			// An open-ended lease has no planned end, so any return is on time.
			if plannedEnd == nil || !now.After(plannedEnd.Add(earlyReturnGrace)) {
				s.coord.CreditEvent(fx, o.UserID, domain.CreditEventEarlyReturn, o)
			}
		}
		s.coord.Notify(fx, o.UserID, notify.TemplateReturnDecided, domain.NotificationContextOrder, o.ID.String(), o, vars)
		return nil
	})
}

func (s *orderService) ApplyBuyout(ctx context.Context, actor domain.Actor, orderID uuid.UUID, amountCents int64, remark string) (*domain.Order, error) {
	return s.mutate(ctx, orderID, "orderService.ApplyBuyout", func(ctx context.Context, o *domain.Order, now time.Time, fx *Effects) error {
		if err := authorize(o, actor, domain.RoleUser); err != nil {
			return err
		}
		if amountCents > 0 {
			if err := o.UpdateBuyoutAmount(amountCents, now); err != nil {
				return err
			}
		}
		if err := o.RequestBuyout(now); err != nil {
			return err
		}
		vars := map[string]string{"amount": formatCents(o.BuyoutCents), "remark": remark}
		o.Record(domain.EventBuyoutRequested, actor, "buyout requested", vars, now)
		s.coord.Notify(fx, o.VendorID, notify.TemplateBuyoutRequested, domain.NotificationContextOrder, o.ID.String(), o, vars)
		return nil
	})
}

func (s *orderService) DecideBuyout(ctx context.Context, actor domain.Actor, orderID uuid.UUID, approve bool, remark string) (*domain.Order, error) {
	return s.mutate(ctx, orderID, "orderService.DecideBuyout", func(ctx context.Context, o *domain.Order, now time.Time, fx *Effects) error {
		if err := authorize(o, actor, domain.RoleVendor, domain.RoleAdmin); err != nil {
			return err
		}
		event, decision := domain.EventBuyoutRejected, "rejected"
		var err error
		if approve {
			event, decision = domain.EventBuyoutConfirmed, "approved"
			err = o.ConfirmBuyout(now)
		} else {
			err = o.RejectBuyout(now)
		}
		if err != nil {
			return err
		}
		vars := map[string]string{"decision": decision, "remark": remark}
		o.Record(event, actor, "buyout "+decision, vars, now)
		s.coord.Notify(fx, o.UserID, notify.TemplateBuyoutDecided, domain.NotificationContextOrder, o.ID.String(), o, vars)
		return nil
	})
}

func (s *orderService) ForceClose(ctx context.Context, actor domain.Actor, orderID uuid.UUID, reason string) (*domain.Order, error) {
	return s.mutate(ctx, orderID, "orderService.ForceClose", func(ctx context.Context, o *domain.Order, now time.Time, fx *Effects) error {
		if err := authorize(o, actor, domain.RoleAdmin); err != nil {
			return err
		}
		neverShipped := o.Status == domain.OrderStatusPendingPayment || o.Status == domain.OrderStatusAwaitingShipment
		if err := o.ForceClose(now); err != nil {
			return err
		}
		vars := map[string]string{"reason": reason}
		o.Record(domain.EventOrderForceClosed, actor, "order closed by platform", vars, now)
		if neverShipped {
			s.coord.Release(fx, o)
		}
		s.coord.NotifyParties(fx, notify.TemplateOrderForceClosed, domain.NotificationContextOrder, o.ID.String(), o, vars)
		return nil
	})
}

func formatCents(c int64) string {
	sign := ""
	if c < 0 {
		sign, c = "-", -c
	}
	cents := strconv.FormatInt(c%100, 10)
	if len(cents) == 1 {
		cents = "0" + cents
	}
	return sign + strconv.FormatInt(c/100, 10) + "." + cents
}
