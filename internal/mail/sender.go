// Package mail delivers transactional email such as guest invitations.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eventhub-saas/eventhub/internal/config"
	"github.com/google/uuid"
	"github.com/resend/resend-go/v2"
	log "github.com/sirupsen/logrus"
)

// SendTimeout bounds a single delivery attempt.
const SendTimeout = 10 * time.Second

// ErrNoRecipient is returned when a message has no destination address.
var ErrNoRecipient = errors.New("mail: missing recipient")

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a message and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// NewSender returns a Resend sender when an API key is configured, else a LogSender.
func NewSender(cfg config.EmailConfig) Sender {
	if strings.TrimSpace(cfg.ResendAPIKey) == "" {
		log.Warn("mail: no resend api key configured, emails are only logged")
		return LogSender{}
	}
	return NewResendSender(cfg.ResendAPIKey, cfg.From)
}

// ResendSender delivers through the Resend HTTP API.
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender constructs a ResendSender.
func NewResendSender(apiKey, from string) *ResendSender {
	httpClient := &http.Client{Timeout: SendTimeout}
	return &ResendSender{client: resend.NewCustomClient(httpClient, apiKey), from: from}
}

// WithBaseURL points the sender at another API endpoint.
func (s *ResendSender) WithBaseURL(raw string) (*ResendSender, error) {
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	parsed, errParse := url.Parse(raw)
	if errParse != nil {
		return nil, fmt.Errorf("mail: parse base url: %w", errParse)
	}
	s.client.BaseURL = parsed
	return s, nil
}

// Send implements Sender.
func (s *ResendSender) Send(ctx context.Context, msg Message) (string, error) {
	if strings.TrimSpace(msg.To) == "" {
		return "", ErrNoRecipient
	}
	ctx, cancel := context.WithTimeout(ctx, SendTimeout)
	defer cancel()

	resp, errSend := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if errSend != nil {
		return "", fmt.Errorf("mail: resend: %w", errSend)
	}
	return resp.Id, nil
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct{}

// Send implements Sender.
func (LogSender) Send(_ context.Context, msg Message) (string, error) {
	if strings.TrimSpace(msg.To) == "" {
		return "", ErrNoRecipient
	}
	id := "log-" + uuid.NewString()
	log.WithFields(log.Fields{"to": msg.To, "subject": msg.Subject, "message_id": id}).Info("mail: message logged")
	return id, nil
}
