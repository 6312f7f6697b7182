package client

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"rental-order-backend/internal/domain"
	"rental-order-backend/internal/logger"
)

var ErrNotConfigured = errors.New("client: service not configured")

// UserProfileClient talks to the user service, which owns credit scores,
// credit history and account freezes.
type UserProfileClient struct {
	http *httpClient
}

func NewUserProfileClient(cfg Config) *UserProfileClient {
	return &UserProfileClient{http: newHTTPClient("user-profile", cfg)}
}

type creditAdjustment struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

type creditEvent struct {
	EventType  domain.CreditEventType `json:"event_type"`
	Attributes map[string]string      `json:"attributes,omitempty"`
}

type accountFreeze struct {
	Until  time.Time `json:"until"`
	Reason string    `json:"reason"`
}

func (c *UserProfileClient) AdjustCredit(ctx context.Context, userID uuid.UUID, delta int, reason string) error {
	if !c.http.configured() {
		logger.Warn("User service not configured, credit adjustment dropped", "user_id", userID, "delta", delta)
		return nil
	}
	return c.http.do(ctx, http.MethodPost, "adjust_credit", "/api/v1/internal/users/"+userID.String()+"/credit/adjustments", creditAdjustment{Delta: delta, Reason: reason}, nil)
}

func (c *UserProfileClient) RecordCreditEvent(ctx context.Context, userID uuid.UUID, eventType domain.CreditEventType, attrs map[string]string) error {
	if !c.http.configured() {
		logger.Warn("User service not configured, credit event dropped", "user_id", userID, "event_type", eventType)
		return nil
	}
	return c.http.do(ctx, http.MethodPost, "record_credit_event", "/api/v1/internal/users/"+userID.String()+"/credit/events", creditEvent{EventType: eventType, Attributes: attrs}, nil)
}

func (c *UserProfileClient) FreezeAccount(ctx context.Context, userID uuid.UUID, d time.Duration, reason string) error {
	if !c.http.configured() {
		logger.Warn("User service not configured, account freeze dropped", "user_id", userID)
		return nil
	}
	until := time.Now().UTC().Add(d)
	return c.http.do(ctx, http.MethodPost, "freeze_account", "/api/v1/internal/users/"+userID.String()+"/freeze", accountFreeze{Until: until, Reason: reason}, nil)
}

func (c *UserProfileClient) GetContact(ctx context.Context, userID uuid.UUID) (*domain.Contact, error) {
	if !c.http.configured() {
		return nil, ErrNotConfigured
	}
	contact := &domain.Contact{}
	if err := c.http.do(ctx, http.MethodGet, "get_contact", "/api/v1/internal/users/"+userID.String()+"/contact", nil, contact); err != nil {
		return nil, err
	}
	if contact.UserID == uuid.Nil {
		contact.UserID = userID
	}
	return contact, nil
}
