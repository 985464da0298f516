// Package email delivers transactional mail (password reset codes) through SES,
// SendGrid or the application log.
package email

import (
	"context"
	"fmt"
	"sync"

	"github.com/zfogg/vlogbook/backend/internal/config"
	"github.com/zfogg/vlogbook/backend/internal/logger"
	"github.com/zfogg/vlogbook/backend/internal/metrics"
	"go.uber.org/zap"
)

// Providers accepted in EMAIL_PROVIDER
const (
	ProviderSES      = "ses"
	ProviderSendGrid = "sendgrid"
	ProviderLog      = "log"
)

// Body is a message in both renderings. Text is required; HTML is optional.
type Body struct {
	Text string
	HTML string
}

// Notifier sends one message to one address
type Notifier interface {
	Send(ctx context.Context, address, subject string, body Body) error
}

// NewNotifier builds the notifier selected by cfg.Provider
func NewNotifier(ctx context.Context, cfg config.EmailConfig, region string) (Notifier, error) {
	switch cfg.Provider {
	case ProviderSES:
		return NewSESNotifier(ctx, region, cfg.FromAddress, cfg.FromName)
	case ProviderSendGrid:
		if cfg.SendGridAPIKey == "" {
			return nil, fmt.Errorf("SENDGRID_API_KEY is required for the sendgrid provider")
		}
		return NewSendGridNotifier(cfg.SendGridAPIKey, cfg.FromAddress, cfg.FromName), nil
	case ProviderLog, "":
		return LogNotifier{}, nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}

func recordSend(provider string, err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	metrics.Get().App.NotifierSendsTotal.WithLabelValues(provider, status).Inc()
}

// LogNotifier writes messages to the application log instead of sending them.
// It is the development default.
type LogNotifier struct{}

func (LogNotifier) Send(ctx context.Context, address, subject string, body Body) error {
	logger.Log.Info("Email (log provider)",
		zap.String("to", address),
		zap.String("subject", subject),
		zap.String("body", body.Text),
	)
	recordSend(ProviderLog, nil)
	return nil
}

// Message is one message captured by MemoryNotifier
type Message struct {
	Address string
	Subject string
	Body    Body
}

// MemoryNotifier keeps sent messages in memory
type MemoryNotifier struct {
	mu       sync.Mutex
	messages []Message
	Err      error
}

func (n *MemoryNotifier) Send(ctx context.Context, address, subject string, body Body) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.messages = append(n.messages, Message{Address: address, Subject: subject, Body: body})
	return nil
}

// Messages returns a copy of everything sent so far
func (n *MemoryNotifier) Messages() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Message(nil), n.messages...)
}

// Last returns the most recent message, or false if none was sent
func (n *MemoryNotifier) Last() (Message, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		return Message{}, false
	}
	return n.messages[len(n.messages)-1], true
}
