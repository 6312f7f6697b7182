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

type disputeRepository struct {
	s *state
}

func (r *disputeRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.Dispute, error) {
	var out []domain.Dispute
	err := r.s.do(ctx, func() error {
		o, ok := r.s.orders[orderID]
		if !ok {
			return nil
		}
		for _, d := range o.Disputes {
			out = append(out, cloneDispute(d))
		}
		return nil
	})
	return out, err
}

func (r *disputeRepository) GetRef(ctx context.Context, id uuid.UUID) (*repository.DisputeRef, error) {
	var ref *repository.DisputeRef
	err := r.s.do(ctx, func() error {
		for _, o := range r.s.orders {
			for _, d := range o.Disputes {
				if d.ID == id {
					ref = &repository.DisputeRef{ID: d.ID, OrderID: o.ID}
					return nil
				}
			}
		}
		return domain.NotFoundf("dispute %s not found", id)
	})
	return ref, err
}

func (r *disputeRepository) ListOverdueOpen(ctx context.Context, now time.Time, limit int) ([]repository.DisputeRef, error) {
	return r.list(ctx, limit, func(d *domain.Dispute) bool {
		return d.Status == domain.DisputeStatusOpen && d.DeadlineAt.Before(now)
	})
}

func (r *disputeRepository) ListDueForReminder(ctx context.Context, now time.Time, window time.Duration, level, limit int) ([]repository.DisputeRef, error) {
	until := now.Add(window)
	return r.list(ctx, limit, func(d *domain.Dispute) bool {
		return d.Status == domain.DisputeStatusOpen &&
			!d.DeadlineAt.Before(now) && !d.DeadlineAt.After(until) &&
			d.ReminderLevel < level
	})
}

func (r *disputeRepository) list(ctx context.Context, limit int, match func(*domain.Dispute) bool) ([]repository.DisputeRef, error) {
	type hit struct {
		ref      repository.DisputeRef
		deadline time.Time
	}
	var refs []repository.DisputeRef
	err := r.s.do(ctx, func() error {
		var hits []hit
		for _, o := range r.s.orders {
			for i := range o.Disputes {
				if d := &o.Disputes[i]; match(d) {
					hits = append(hits, hit{repository.DisputeRef{ID: d.ID, OrderID: o.ID}, d.DeadlineAt})
				}
			}
		}
		sort.Slice(hits, func(i, j int) bool { return hits[i].deadline.Before(hits[j].deadline) })
		for i, h := range hits {
			if limit > 0 && i == limit {
				break
			}
			refs = append(refs, h.ref)
		}
		return nil
	})
	return refs, err
}

type proofRepository struct {
	s *state
}

func (r *proofRepository) Create(ctx context.Context, proof *domain.Proof) error {
	return r.s.do(ctx, func() error {
		if _, ok := r.s.proofs[proof.ID]; ok {
			return fmt.Errorf("proof %s already exists", proof.ID)
		}
		r.s.touchProof(proof.ID)
		r.s.proofs[proof.ID] = *proof
		return nil
	})
}

func (r *proofRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.Proof, error) {
	var out []domain.Proof
	err := r.s.do(ctx, func() error {
		for _, p := range r.s.proofs {
			if p.OrderID == orderID {
				out = append(out, p)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	return out, err
}

func (r *proofRepository) FindByIDAndOrder(ctx context.Context, id, orderID uuid.UUID) (*domain.Proof, error) {
	var out *domain.Proof
	err := r.s.do(ctx, func() error {
		p, ok := r.s.proofs[id]
		if !ok || p.OrderID != orderID {
			return domain.NotFoundf("proof %s not found on order %s", id, orderID)
		}
		out = &p
		return nil
	})
	return out, err
}
