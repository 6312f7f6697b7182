// Package notify fans a notification request out to the configured delivery
// channels: in-app inbox, email and push.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"rental-order-backend/internal/logger"
)

// Request addresses one recipient. Either TemplateCode (rendered with
// Variables) or a literal Subject/Body is set.
type Request struct {
	RecipientID  uuid.UUID
	TemplateCode string
	Variables    map[string]string
	Subject      string
	Body         string
	ContextType  string
	ReferenceID  string
}

// Message is a rendered request, ready for a channel
type Message struct {
	RecipientID  uuid.UUID
	TemplateCode string
	Title        string
	Body         string
	ContextType  string
	ReferenceID  string
	Attributes   map[string]string
}

type Notifier interface {
	Send(ctx context.Context, req Request) error
}

type Channel interface {
	Name() string
	Deliver(ctx context.Context, msg Message) error
}

type Dispatcher struct {
	catalog  *Catalog
	channels []Channel
}

func NewDispatcher(catalog *Catalog, channels ...Channel) *Dispatcher {
	return &Dispatcher{catalog: catalog, channels: channels}
}

// Send renders req and hands it to every channel. All channels are tried;
// their failures are joined into the returned error.
func (d *Dispatcher) Send(ctx context.Context, req Request) error {
	if req.RecipientID == uuid.Nil {
		return errors.New("notify: recipient is required")
	}
	msg, err := d.render(req)
	if err != nil {
		return err
	}

	var errs []error
	for _, ch := range d.channels {
		if err := ch.Deliver(ctx, msg); err != nil {
			logger.Warn("Notification channel failed", "channel", ch.Name(), "recipient_id", req.RecipientID, "template", req.TemplateCode, "error", err)
			errs = append(errs, fmt.Errorf("notify: %s: %w", ch.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) render(req Request) (Message, error) {
	msg := Message{
		RecipientID:  req.RecipientID,
		TemplateCode: req.TemplateCode,
		Title:        req.Subject,
		Body:         req.Body,
		ContextType:  req.ContextType,
		ReferenceID:  req.ReferenceID,
		Attributes:   req.Variables,
	}
	if req.TemplateCode == "" {
		return msg, nil
	}
	title, body, err := d.catalog.Render(req.TemplateCode, req.Variables)
	if err != nil {
		return Message{}, err
	}
	msg.Title, msg.Body = title, body
	return msg, nil
}
