package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationContextOrder   = "ORDER"
	NotificationContextDispute = "DISPUTE"
	NotificationContextCredit  = "CREDIT"
)

type Notification struct {
	ID           int64             `json:"id"`
	RecipientID  uuid.UUID         `json:"recipient_id"`
	Title        string            `json:"title"`
	Message      string            `json:"message"`
	TemplateCode string            `json:"template_code,omitempty"`
	ContextType  string            `json:"context_type"`
	ReferenceID  string            `json:"reference_id"`
	IsRead       bool              `json:"is_read"`
	Attributes   map[string]string `json:"attributes"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Contact is what the email channel needs to reach a user
type Contact struct {
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
}
