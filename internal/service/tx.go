package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"rental-order-backend/internal/clock"
	"rental-order-backend/internal/domain"
	"rental-order-backend/internal/logger"
	"rental-order-backend/internal/repository"
)

// errSkip aborts a mutation that found nothing to do. The transaction is
// rolled back and the caller reports "not applied" instead of an error.
var errSkip = errors.New("service: nothing to do")

type mutation func(ctx context.Context, o *domain.Order, now time.Time, fx *Effects) error

// aggregateTx is the transaction script shared by the order and dispute
// services: lock the order, mutate it, save it conditionally on the status
// it was loaded with, commit, then run the side effects.
type aggregateTx struct {
	tx     repository.Transactor
	orders repository.OrderRepository
	coord  *Coordinator
	clock  clock.Clock
}

func (a *aggregateTx) mutate(ctx context.Context, orderID uuid.UUID, op string, fn mutation) (*domain.Order, error) {
	logger.EnterMethod(op, "order_id", orderID)

	fx := NewEffects(op)
	var out *domain.Order
	err := a.tx.InTx(ctx, func(ctx context.Context) error {
		o, err := a.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		from := o.Status
		now := a.clock.Now()
		if err := fn(ctx, o, now, fx); err != nil {
			return err
		}
		if err := a.orders.Save(ctx, o, from); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		if errors.Is(err, errSkip) {
			logger.ExitMethod(op, "order_id", orderID, "applied", false)
		} else {
			logger.ExitMethodWithError(op, err, "order_id", orderID)
		}
		return nil, err
	}

	fx.Run(ctx)
	logger.ExitMethod(op, "order_id", orderID, "status", out.Status, "side_effects", fx.Len())
	return out, nil
}

// authorize checks the actor's role against allowed and, for the two
// parties, that the actor is the party of this order.
func authorize(o *domain.Order, actor domain.Actor, allowed ...domain.Role) error {
	for _, r := range allowed {
		if actor.Role != r {
			continue
		}
		if r == domain.RoleUser || r == domain.RoleVendor {
			if !o.IsParty(actor) {
				return domain.Forbiddenf("%s %s is not a party of order %s", actor.Role, actor.ID, o.ID)
			}
		}
		return nil
	}
	return domain.Forbiddenf("role %s may not perform this operation", actor.Role)
}

var (
	partyRoles  = []domain.Role{domain.RoleUser, domain.RoleVendor}
	viewerRoles = []domain.Role{domain.RoleUser, domain.RoleVendor, domain.RoleAdmin, domain.RoleArbitrator, domain.RoleReviewPanel}
	staffRoles  = []domain.Role{domain.RoleAdmin, domain.RoleArbitrator, domain.RoleReviewPanel}
)
