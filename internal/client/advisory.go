package client

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"rental-order-backend/internal/domain"
)

// DisputeSnapshot is what the advisory generator sees of a dispute
type DisputeSnapshot struct {
	OrderID      uuid.UUID          `json:"order_id"`
	OrderNo      string             `json:"order_no"`
	OrderStatus  domain.OrderStatus `json:"order_status"`
	DepositCents int64              `json:"deposit_cents"`
	RentCents    int64              `json:"rent_cents"`
	BuyoutCents  int64              `json:"buyout_cents"`
	Dispute      domain.Dispute     `json:"dispute"`
	Timeline     []TimelineEntry    `json:"timeline"`
}

type TimelineEntry struct {
	Type        domain.EventType `json:"type"`
	Description string           `json:"description"`
	ActorRole   domain.Role      `json:"actor_role"`
	At          time.Time        `json:"at"`
}

func NewDisputeSnapshot(o *domain.Order, d *domain.Dispute) DisputeSnapshot {
	s := DisputeSnapshot{
		OrderID:      o.ID,
		OrderNo:      o.OrderNo,
		OrderStatus:  o.Status,
		DepositCents: o.DepositCents,
		RentCents:    o.RentCents,
		BuyoutCents:  o.BuyoutCents,
		Dispute:      *d,
	}
	for _, ev := range o.Events {
		s.Timeline = append(s.Timeline, TimelineEntry{Type: ev.Type, Description: ev.Description, ActorRole: ev.ActorRole, At: ev.CreatedAt})
	}
	return s
}

// AdvisoryClient asks the dispute advisory generator for a recommendation.
// The answer is never applied by this service.
type AdvisoryClient struct {
	http *httpClient
}

func NewAdvisoryClient(cfg Config) *AdvisoryClient {
	return &AdvisoryClient{http: newHTTPClient("advisory", cfg)}
}

func (c *AdvisoryClient) Suggest(ctx context.Context, snapshot DisputeSnapshot) (*domain.Suggestion, error) {
	if !c.http.configured() {
		return nil, ErrNotConfigured
	}
	s := &domain.Suggestion{}
	if err := c.http.do(ctx, http.MethodPost, "suggest", "/api/v1/disputes/suggestions", snapshot, s); err != nil {
		return nil, err
	}
	return s, nil
}
