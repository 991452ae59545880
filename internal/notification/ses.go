package notification

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the subset of the SES client used by SESProvider.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESProvider delivers notifications through AWS SES.
type SESProvider struct {
	client SESAPI
}

// NewSESProvider loads the default AWS configuration for the region and
// returns a provider backed by a real SES client.
func NewSESProvider(ctx context.Context, config SESConfig) (*SESProvider, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(config.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &SESProvider{client: ses.NewFromConfig(cfg)}, nil
}

// NewSESProviderWithClient wraps an existing SES client.
func NewSESProviderWithClient(client SESAPI) *SESProvider {
	return &SESProvider{client: client}
}

// Name returns the provider identifier.
func (p *SESProvider) Name() string { return "ses" }

// Send delivers msg with a single SendEmail call.
func (p *SESProvider) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("%w: no recipients", ErrDelivery)
	}

	body := &types.Body{
		Text: &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")},
	}
	if msg.HTML != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")}
	}

	_, err := p.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(msg.From),
		Destination: &types.Destination{ToAddresses: msg.To},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body:    body,
		},
	})
	if err != nil {
		return fmt.Errorf("%w: ses: %v", ErrDelivery, err)
	}
	return nil
}
