package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"rental-order-backend/internal/domain"
	"rental-order-backend/internal/repository"
)

type orderRepository struct {
	s *state
}

func (r *orderRepository) Create(ctx context.Context, o *domain.Order) error {
	return r.s.do(ctx, func() error {
		if _, ok := r.s.orders[o.ID]; ok {
			return fmt.Errorf("order %s already exists: %w", o.ID, domain.ErrConcurrentModification)
		}
		r.s.touchOrder(o.ID)
		r.s.orders[o.ID] = cloneOrder(o)
		return nil
	})
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var out *domain.Order
	err := r.s.do(ctx, func() error {
		o, ok := r.s.orders[id]
		if !ok {
			return domain.NotFoundf("order %s not found", id)
		}
		out = cloneOrder(o)
		return nil
	})
	return out, err
}

// GetForUpdate is GetByID: the transaction already holds the store lock
func (r *orderRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *orderRepository) Save(ctx context.Context, o *domain.Order, expected domain.OrderStatus) error {
	return r.s.do(ctx, func() error {
		cur, ok := r.s.orders[o.ID]
		if !ok {
			return domain.NotFoundf("order %s not found", o.ID)
		}
		if cur.Status != expected {
			return fmt.Errorf("order %s no longer %s: %w", o.ID, expected, domain.ErrConcurrentModification)
		}
		r.s.touchOrder(o.ID)
		r.s.orders[o.ID] = cloneOrder(o)
		return nil
	})
}

func (r *orderRepository) ListExpiredPendingPayment(ctx context.Context, createdBefore time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.s.do(ctx, func() error {
		var due []*domain.Order
		for _, o := range r.s.orders {
			if o.Status == domain.OrderStatusPendingPayment && o.CreatedAt.Before(createdBefore) {
				due = append(due, o)
			}
		}
		sort.Slice(due, func(i, j int) bool { return due[i].CreatedAt.Before(due[j].CreatedAt) })
		for i, o := range due {
			if limit > 0 && i == limit {
				break
			}
			ids = append(ids, o.ID)
		}
		return nil
	})
	return ids, err
}

func (r *orderRepository) ListOrders(ctx context.Context, filter repository.OrderFilter, limit, offset int32) ([]domain.Order, int32, error) {
	var page []domain.Order
	var count int32
	err := r.s.do(ctx, func() error {
		var hits []*domain.Order
		for _, o := range r.s.orders {
			if matches(o, filter) {
				hits = append(hits, o)
			}
		}
		sort.Slice(hits, func(i, j int) bool {
			if !hits[i].CreatedAt.Equal(hits[j].CreatedAt) {
				return hits[i].CreatedAt.After(hits[j].CreatedAt)
			}
			return hits[i].ID.String() < hits[j].ID.String()
		})
		count = int32(len(hits))
		if int(offset) >= len(hits) {
			return nil
		}
		end := len(hits)
		if limit > 0 && int(offset+limit) < end {
			end = int(offset + limit)
		}
		for _, o := range hits[offset:end] {
			page = append(page, orderRow(o))
		}
		return nil
	})
	return page, count, err
}

func matches(o *domain.Order, f repository.OrderFilter) bool {
	if f.UserID != nil && o.UserID != *f.UserID {
		return false
	}
	if f.VendorID != nil && o.VendorID != *f.VendorID {
		return false
	}
	return f.Status == "" || o.Status == f.Status
}

// orderRow copies the order without its child collections
func orderRow(o *domain.Order) domain.Order {
	return domain.Order{
		ID:                 o.ID,
		OrderNo:            o.OrderNo,
		UserID:             o.UserID,
		VendorID:           o.VendorID,
		Status:             o.Status,
		PlanType:           o.PlanType,
		DepositCents:       o.DepositCents,
		RentCents:          o.RentCents,
		BuyoutCents:        o.BuyoutCents,
		TotalCents:         o.TotalCents,
		LeaseMonths:        o.LeaseMonths,
		LeaseStartAt:       cloneTime(o.LeaseStartAt),
		LeaseEndAt:         cloneTime(o.LeaseEndAt),
		ExtensionCount:     o.ExtensionCount,
		ShippingCarrier:    o.ShippingCarrier,
		ShippingTrackingNo: o.ShippingTrackingNo,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.LeaseStartAt = cloneTime(o.LeaseStartAt)
	c.LeaseEndAt = cloneTime(o.LeaseEndAt)
	c.Items = append([]domain.OrderItem(nil), o.Items...)

	c.Events = make([]domain.OrderEvent, len(o.Events))
	for i, ev := range o.Events {
		ev.ActorID = cloneUUID(ev.ActorID)
		if ev.Attributes != nil {
			attrs := make(map[string]string, len(ev.Attributes))
			for k, v := range ev.Attributes {
				attrs[k] = v
			}
			ev.Attributes = attrs
		}
		c.Events[i] = ev
	}

	c.Disputes = make([]domain.Dispute, len(o.Disputes))
	for i := range o.Disputes {
		c.Disputes[i] = cloneDispute(o.Disputes[i])
	}

	c.ExtensionRequests = make([]domain.ExtensionRequest, len(o.ExtensionRequests))
	for i, req := range o.ExtensionRequests {
		req.DecisionBy = cloneUUID(req.DecisionBy)
		req.DecisionAt = cloneTime(req.DecisionAt)
		c.ExtensionRequests[i] = req
	}
	c.ReturnRequests = make([]domain.ReturnRequest, len(o.ReturnRequests))
	for i, req := range o.ReturnRequests {
		req.DecisionBy = cloneUUID(req.DecisionBy)
		req.DecisionAt = cloneTime(req.DecisionAt)
		c.ReturnRequests[i] = req
	}
	return &c
}

func cloneDispute(d domain.Dispute) domain.Dispute {
	if d.Respondent != nil {
		r := *d.Respondent
		d.Respondent = &r
	}
	if d.Escalation != nil {
		e := *d.Escalation
		e.By = cloneUUID(e.By)
		d.Escalation = &e
	}
	if d.Decision != nil {
		dec := *d.Decision
		if dec.CreditDelta != nil {
			v := *dec.CreditDelta
			dec.CreditDelta = &v
		}
		d.Decision = &dec
	}
	d.AttachmentProofIDs = append([]uuid.UUID(nil), d.AttachmentProofIDs...)
	return d
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
