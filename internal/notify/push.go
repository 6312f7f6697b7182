package notify

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"rental-order-backend/internal/logger"
)

// PushSender is satisfied by *messaging.Client
type PushSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// PushChannel publishes to the per-user FCM topic "user-<id>" that the
// mobile apps subscribe to after login.
type PushChannel struct {
	sender PushSender
}

func NewPushChannel(sender PushSender) *PushChannel {
	return &PushChannel{sender: sender}
}

// NewFirebasePushChannel builds a push channel from a service account file
func NewFirebasePushChannel(ctx context.Context, credentialsFile string) (*PushChannel, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	return NewPushChannel(client), nil
}

func (c *PushChannel) Name() string { return "push" }

func (c *PushChannel) Deliver(ctx context.Context, msg Message) error {
	data := map[string]string{
		"context_type": msg.ContextType,
		"reference_id": msg.ReferenceID,
	}
	if msg.TemplateCode != "" {
		data["template_code"] = msg.TemplateCode
	}

	logger.ExternalServiceCall("fcm", "send", "recipient_id", msg.RecipientID)
	id, err := c.sender.Send(ctx, &messaging.Message{
		Topic:        "user-" + msg.RecipientID.String(),
		Notification: &messaging.Notification{Title: msg.Title, Body: msg.Body},
		Data:         data,
	})
	logger.ExternalServiceResult("fcm", "send", err, "message_id", id)
	return err
}
