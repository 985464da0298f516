package email

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/zfogg/vlogbook/backend/internal/telemetry"
)

// SESNotifier sends mail via AWS SES
type SESNotifier struct {
	client    *ses.Client
	fromEmail string
	fromName  string
}

// NewSESNotifier creates an SES notifier using the default AWS credential chain
func NewSESNotifier(ctx context.Context, region, fromEmail, fromName string) (*SESNotifier, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithHTTPClient(telemetry.NewInstrumentedHTTPClient(telemetry.HTTPClientConfig{ServiceName: "ses"})),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESNotifier{
		client:    ses.NewFromConfig(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
	}, nil
}

func (n *SESNotifier) Send(ctx context.Context, address, subject string, body Body) error {
	ctx, span := telemetry.TraceExternalCall(ctx, telemetry.ExternalCallAttrs{Service: "ses", Operation: "send_email"})

	from := n.fromEmail
	if n.fromName != "" {
		from = fmt.Sprintf("%s <%s>", n.fromName, n.fromEmail)
	}

	content := &types.Body{
		Text: &types.Content{Data: aws.String(body.Text), Charset: aws.String("UTF-8")},
	}
	if body.HTML != "" {
		content.Html = &types.Content{Data: aws.String(body.HTML), Charset: aws.String("UTF-8")}
	}

	_, err := n.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(from),
		Destination: &types.Destination{ToAddresses: []string{address}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body:    content,
		},
	})
	telemetry.EndExternalCall(span, err)
	recordSend(ProviderSES, err)
	if err != nil {
		return fmt.Errorf("failed to send email via SES: %w", err)
	}
	return nil
}
