package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"rental-order-backend/internal/domain"
	"rental-order-backend/internal/logger"
	"rental-order-backend/internal/notify"
)

// Hook is one post-commit side effect
type Hook struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Effects collects the side effects of one operation while its transaction
// runs. They are executed only after commit and discarded otherwise.
type Effects struct {
	op    string
	hooks []Hook
}

func NewEffects(op string) *Effects {
	return &Effects{op: op}
}

func (e *Effects) Add(name string, fn func(ctx context.Context) error) {
	e.hooks = append(e.hooks, Hook{Name: name, Fn: fn})
}

func (e *Effects) Len() int {
	return len(e.hooks)
}

// Run executes every hook independently. Failures and panics are logged and
// never reach the caller. The transaction has committed by now, so the hooks
// keep the caller's values but not its cancellation.
func (e *Effects) Run(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for _, h := range e.hooks {
		e.runHook(ctx, h)
	}
}

func (e *Effects) runHook(ctx context.Context, h Hook) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Side effect panicked", "operation", e.op, "hook", h.Name, "panic", r)
		}
	}()
	if err := h.Fn(ctx); err != nil {
		logger.Warn("Side effect failed", "operation", e.op, "hook", h.Name, "error", err)
		return
	}
	logger.Debug("Side effect done", "operation", e.op, "hook", h.Name)
}

// Coordinator turns domain outcomes into hooks against the inventory,
// credit and notification collaborators.
type Coordinator struct {
	inventory Inventory
	credit    CreditProfile
	notifier  notify.Notifier
}

func NewCoordinator(inventory Inventory, credit CreditProfile, notifier notify.Notifier) *Coordinator {
	return &Coordinator{inventory: inventory, credit: credit, notifier: notifier}
}

func (c *Coordinator) Reserve(fx *Effects, o *domain.Order) {
	ref, lines := o.OrderNo, o.InventoryLines()
	fx.Add("inventory.reserve", func(ctx context.Context) error { return c.inventory.Reserve(ctx, ref, lines) })
}

// Release frees every line item of the order in a single command
func (c *Coordinator) Release(fx *Effects, o *domain.Order) {
	ref, lines := o.OrderNo, o.InventoryLines()
	fx.Add("inventory.release", func(ctx context.Context) error { return c.inventory.Release(ctx, ref, lines) })
}

func (c *Coordinator) Outbound(fx *Effects, o *domain.Order) {
	ref, lines := o.OrderNo, o.InventoryLines()
	fx.Add("inventory.outbound", func(ctx context.Context) error { return c.inventory.Outbound(ctx, ref, lines) })
}

func (c *Coordinator) Inbound(fx *Effects, o *domain.Order) {
	ref, lines := o.OrderNo, o.InventoryLines()
	fx.Add("inventory.inbound", func(ctx context.Context) error { return c.inventory.Inbound(ctx, ref, lines) })
}

func (c *Coordinator) CreditEvent(fx *Effects, userID uuid.UUID, eventType domain.CreditEventType, o *domain.Order) {
	attrs := map[string]string{"order_id": o.ID.String(), "order_no": o.OrderNo}
	fx.Add("credit.event."+string(eventType), func(ctx context.Context) error {
		return c.credit.RecordCreditEvent(ctx, userID, eventType, attrs)
	})
}

// AdjustCredit applies a ruling's credit delta and tells the user about it
func (c *Coordinator) AdjustCredit(fx *Effects, userID uuid.UUID, delta int, o *domain.Order, d *domain.Dispute) {
	reason := fmt.Sprintf("dispute %s on order %s", d.ID, o.OrderNo)
	fx.Add("credit.adjust", func(ctx context.Context) error { return c.credit.AdjustCredit(ctx, userID, delta, reason) })
	c.CreditEvent(fx, userID, domain.CreditEventDisputeRuling, o)
	c.Notify(fx, userID, notify.TemplateCreditChanged, domain.NotificationContextCredit, d.ID.String(), o, map[string]string{
		"delta": strconv.Itoa(delta),
	})
}

// PenalizeMalicious applies the fixed penalty for a malicious dispute: the
// maximum credit deduction plus a temporary account freeze.
func (c *Coordinator) PenalizeMalicious(fx *Effects, userID uuid.UUID, o *domain.Order, d *domain.Dispute, now time.Time) {
	reason := fmt.Sprintf("malicious behaviour in dispute %s on order %s", d.ID, o.OrderNo)
	c.CreditEvent(fx, userID, domain.CreditEventMaliciousBehavior, o)
	fx.Add("credit.adjust", func(ctx context.Context) error {
		return c.credit.AdjustCredit(ctx, userID, domain.MaliciousCreditDelta, reason)
	})
	fx.Add("account.freeze", func(ctx context.Context) error {
		return c.credit.FreezeAccount(ctx, userID, domain.MaliciousFreezeDuration, reason)
	})
	c.Notify(fx, userID, notify.TemplateCreditChanged, domain.NotificationContextCredit, d.ID.String(), o, map[string]string{
		"delta": strconv.Itoa(domain.MaliciousCreditDelta),
	})
	c.Notify(fx, userID, notify.TemplateAccountRestricted, domain.NotificationContextCredit, d.ID.String(), o, map[string]string{
		"until": now.Add(domain.MaliciousFreezeDuration).Format(time.RFC3339),
	})
}

// Notify queues a templated notification. order_no is always available to
// the template.
func (c *Coordinator) Notify(fx *Effects, recipient uuid.UUID, template, contextType, referenceID string, o *domain.Order, vars map[string]string) {
	v := map[string]string{"order_no": o.OrderNo, "order_id": o.ID.String()}
	for k, val := range vars {
		v[k] = val
	}
	req := notify.Request{
		RecipientID:  recipient,
		TemplateCode: template,
		Variables:    v,
		ContextType:  contextType,
		ReferenceID:  referenceID,
	}
	fx.Add("notify."+template, func(ctx context.Context) error { return c.notifier.Send(ctx, req) })
}

// NotifyParties sends the same notification to user and vendor
func (c *Coordinator) NotifyParties(fx *Effects, template, contextType, referenceID string, o *domain.Order, vars map[string]string) {
	c.Notify(fx, o.UserID, template, contextType, referenceID, o, vars)
	c.Notify(fx, o.VendorID, template, contextType, referenceID, o, vars)
}
