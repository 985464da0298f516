package email

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/zfogg/vlogbook/backend/internal/telemetry"
)

// SendGridNotifier sends mail through the SendGrid v3 API
type SendGridNotifier struct {
	client *sendgrid.Client
	from   *mail.Email
}

// NewSendGridNotifier creates a SendGrid notifier
func NewSendGridNotifier(apiKey, fromEmail, fromName string) *SendGridNotifier {
	return &SendGridNotifier{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromEmail),
	}
}

func (n *SendGridNotifier) Send(ctx context.Context, address, subject string, body Body) error {
	ctx, span := telemetry.TraceExternalCall(ctx, telemetry.ExternalCallAttrs{Service: "sendgrid", Operation: "send"})

	to := mail.NewPersonalization()
	to.AddTos(mail.NewEmail("", address))

	msg := mail.NewV3Mail()
	msg.SetFrom(n.from)
	msg.Subject = subject
	msg.AddPersonalizations(to)
	msg.AddContent(mail.NewContent("text/plain", body.Text))
	if body.HTML != "" {
		msg.AddContent(mail.NewContent("text/html", body.HTML))
	}

	resp, err := n.client.SendWithContext(ctx, msg)
	if err == nil && resp.StatusCode >= 300 {
		err = fmt.Errorf("sendgrid returned %d: %s", resp.StatusCode, resp.Body)
	}

	telemetry.EndExternalCall(span, err)
	recordSend(ProviderSendGrid, err)
	if err != nil {
		return fmt.Errorf("failed to send email via SendGrid: %w", err)
	}
	return nil
}
