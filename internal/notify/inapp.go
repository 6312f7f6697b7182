package notify

import (
	"context"

	"rental-order-backend/internal/domain"
	"rental-order-backend/internal/repository"
)

// InAppChannel writes to the user's notification inbox
type InAppChannel struct {
	repo repository.NotificationRepository
}

func NewInAppChannel(repo repository.NotificationRepository) *InAppChannel {
	return &InAppChannel{repo: repo}
}

func (c *InAppChannel) Name() string { return "in_app" }

func (c *InAppChannel) Deliver(ctx context.Context, msg Message) error {
	return c.repo.Create(ctx, &domain.Notification{
		RecipientID:  msg.RecipientID,
		Title:        msg.Title,
		Message:      msg.Body,
		TemplateCode: msg.TemplateCode,
		ContextType:  msg.ContextType,
		ReferenceID:  msg.ReferenceID,
		Attributes:   msg.Attributes,
	})
}
