package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/ignite/seatwatch/internal/config"
	"github.com/ignite/seatwatch/internal/domain"
	"github.com/ignite/seatwatch/internal/pkg/logger"
)

// sesAPI is the subset of the SES v2 client used for email.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailSender sends plain-text email through AWS SES.
type EmailSender struct {
	client    sesAPI
	fromEmail string
	fromName  string
}

// NewEmailSender creates an SES-backed sender.
func NewEmailSender(ctx context.Context, cfg config.EmailConfig) (*EmailSender, error) {
	if cfg.FromEmail == "" {
		return nil, fmt.Errorf("email sender: from_email is required")
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return newEmailSender(sesv2.NewFromConfig(awsCfg), cfg), nil
}

func newEmailSender(client sesAPI, cfg config.EmailConfig) *EmailSender {
	return &EmailSender{client: client, fromEmail: cfg.FromEmail, fromName: cfg.FromName}
}

// Send delivers msg to one address.
func (s *EmailSender) Send(ctx context.Context, address string, msg domain.Message) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)),
		Destination:      &types.Destination{ToAddresses: []string{address}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	logger.Debug("notify: email sent", "email", address, "message_id", aws.ToString(out.MessageId))
	return nil
}
