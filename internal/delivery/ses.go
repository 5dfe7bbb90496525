package delivery

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	appconfig "github.com/sugils/Email-tracker-Backend/internal/config"
)

// SESTransport submits mail through the SES v2 API. Messages go out as raw
// RFC 5322 payloads so the composed headers, including List-Unsubscribe,
// survive intact.
type SESTransport struct {
	cfg    appconfig.SESConfig
	client *sesv2.Client
}

// NewSESTransport creates an SES transport from config
func NewSESTransport(ctx context.Context, cfg appconfig.SESConfig) (*SESTransport, error) {
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &SESTransport{
		cfg:    cfg,
		client: sesv2.NewFromConfig(awsCfg),
	}, nil
}

// Open is a no-op; the SES client is connectionless
func (t *SESTransport) Open() error {
	return nil
}

// Send submits one message through the API
func (t *SESTransport) Send(msg *Message) error {
	payload, err := msg.Compose()
	if err != nil {
		return fmt.Errorf("compose: %w", err)
	}

	_, err = t.client.SendEmail(context.Background(), &sesv2.SendEmailInput{
		Content: &types.EmailContent{
			Raw: &types.RawMessage{Data: payload},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}

// Close is a no-op
func (t *SESTransport) Close() error {
	return nil
}
