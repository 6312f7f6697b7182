package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventOrderCreated        EventType = "ORDER_CREATED"
	EventPaymentConfirmed    EventType = "PAYMENT_CONFIRMED"
	EventOrderCancelled      EventType = "ORDER_CANCELLED"
	EventOrderShipped        EventType = "ORDER_SHIPPED"
	EventOrderReceived       EventType = "ORDER_RECEIVED"
	EventExtensionRequested  EventType = "EXTENSION_REQUESTED"
	EventExtensionApproved   EventType = "EXTENSION_APPROVED"
	EventExtensionRejected   EventType = "EXTENSION_REJECTED"
	EventReturnRequested     EventType = "RETURN_REQUESTED"
	EventReturnInTransit     EventType = "RETURN_IN_TRANSIT"
	EventReturnApproved      EventType = "RETURN_APPROVED"
	EventReturnRejected      EventType = "RETURN_REJECTED"
	EventBuyoutRequested     EventType = "BUYOUT_REQUESTED"
	EventBuyoutConfirmed     EventType = "BUYOUT_CONFIRMED"
	EventBuyoutRejected      EventType = "BUYOUT_REJECTED"
	EventOrderForceClosed    EventType = "ORDER_FORCE_CLOSED"
	EventDisputeOpened       EventType = "DISPUTE_OPENED"
	EventDisputeResponded    EventType = "DISPUTE_RESPONDED"
	EventDisputeEscalated    EventType = "DISPUTE_ESCALATED"
	EventDisputeAppealed     EventType = "DISPUTE_APPEALED"
	EventDisputeResolved     EventType = "DISPUTE_RESOLVED"
	EventDisputeReminderSent EventType = "DISPUTE_REMINDER_SENT"
	EventProofUploaded       EventType = "PROOF_UPLOADED"
	EventCommunicationNote   EventType = "COMMUNICATION_NOTE"
)

// OrderEvent is an append-only timeline entry
type OrderEvent struct {
	ID          uuid.UUID         `json:"id"`
	OrderID     uuid.UUID         `json:"order_id"`
	Type        EventType         `json:"type"`
	Description string            `json:"description"`
	ActorID     *uuid.UUID        `json:"actor_id,omitempty"`
	ActorRole   Role              `json:"actor_role"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}
