package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"gopkg.in/gomail.v2"

	"rental-order-backend/internal/domain"
	"rental-order-backend/internal/logger"
)

type Email struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

type EmailSender interface {
	SendEmail(ctx context.Context, e Email) error
}

// ContactLookup resolves a user id to an email address
type ContactLookup interface {
	GetContact(ctx context.Context, userID uuid.UUID) (*domain.Contact, error)
}

type EmailChannel struct {
	contacts ContactLookup
	sender   EmailSender
}

func NewEmailChannel(contacts ContactLookup, sender EmailSender) *EmailChannel {
	return &EmailChannel{contacts: contacts, sender: sender}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Deliver(ctx context.Context, msg Message) error {
	contact, err := c.contacts.GetContact(ctx, msg.RecipientID)
	if err != nil {
		return fmt.Errorf("lookup contact: %w", err)
	}
	if contact.Email == "" {
		logger.Debug("Recipient has no email address, skipping", "recipient_id", msg.RecipientID)
		return nil
	}
	return c.sender.SendEmail(ctx, Email{To: contact.Email, ToName: contact.Name, Subject: msg.Title, Body: msg.Body})
}

type SendGridSender struct {
	apiKey    string
	fromEmail string
	fromName  string
}

func NewSendGridSender(apiKey, fromEmail, fromName string) *SendGridSender {
	return &SendGridSender{apiKey: apiKey, fromEmail: fromEmail, fromName: fromName}
}

func (s *SendGridSender) SendEmail(ctx context.Context, e Email) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail(e.ToName, e.To)
	message := mail.NewSingleEmail(from, e.Subject, recipient, e.Body, "")

	logger.ExternalServiceCall("sendgrid", "send", "to", e.To)
	response, err := sendgrid.NewSendClient(s.apiKey).Send(message)
	if err != nil {
		err = fmt.Errorf("failed to send email: %w", err)
		logger.ExternalServiceResult("sendgrid", "send", err)
		return err
	}
	if response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
		logger.ExternalServiceResult("sendgrid", "send", err)
		return err
	}
	logger.ExternalServiceResult("sendgrid", "send", nil, "status", response.StatusCode)
	return nil
}

type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{host: host, port: port, username: username, password: password, from: from}
}

func (s *SMTPSender) message(e Email) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	if e.ToName != "" {
		m.SetAddressHeader("To", e.To, e.ToName)
	} else {
		m.SetHeader("To", e.To)
	}
	m.SetHeader("Subject", e.Subject)
	m.SetBody("text/plain", e.Body)
	return m
}

func (s *SMTPSender) SendEmail(ctx context.Context, e Email) error {
	d := gomail.NewDialer(s.host, s.port, s.username, s.password)
	logger.ExternalServiceCall("smtp", "send", "to", e.To)
	if err := d.DialAndSend(s.message(e)); err != nil {
		err = fmt.Errorf("failed to send email via gomail: %w", err)
		logger.ExternalServiceResult("smtp", "send", err)
		return err
	}
	logger.ExternalServiceResult("smtp", "send", nil)
	return nil
}
