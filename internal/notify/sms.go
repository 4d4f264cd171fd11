package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/ignite/seatwatch/internal/config"
	"github.com/ignite/seatwatch/internal/domain"
	"github.com/ignite/seatwatch/internal/pkg/logger"
)

// snsAPI is the subset of the SNS client used for SMS.
type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SMSSender sends text messages through AWS SNS.
type SMSSender struct {
	client        snsAPI
	senderID      string
	countryPrefix string
}

// NewSMSSender creates an SNS-backed sender. Static credentials are used
// when configured; otherwise the default AWS credential chain applies.
func NewSMSSender(ctx context.Context, cfg config.SMSConfig) (*SMSSender, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return newSMSSender(sns.NewFromConfig(awsCfg), cfg), nil
}

func newSMSSender(client snsAPI, cfg config.SMSConfig) *SMSSender {
	return &SMSSender{client: client, senderID: cfg.SenderID, countryPrefix: cfg.CountryPrefix}
}

// Send publishes msg.Body to the phone number.
func (s *SMSSender) Send(ctx context.Context, number string, msg domain.Message) error {
	phone, err := normalizePhone(number, s.countryPrefix)
	if err != nil {
		return err
	}

	input := &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(msg.Body),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {DataType: aws.String("String"), StringValue: aws.String("Transactional")},
		},
	}
	if s.senderID != "" {
		input.MessageAttributes["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType: aws.String("String"), StringValue: aws.String(s.senderID),
		}
	}

	out, err := s.client.Publish(ctx, input)
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	logger.Debug("notify: sms sent", "phone", phone, "message_id", aws.ToString(out.MessageId))
	return nil
}

// normalizePhone converts a stored number to E.164, adding prefix to
// numbers stored without a country code.
func normalizePhone(number, prefix string) (string, error) {
	number = strings.TrimSpace(number)
	var digits strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) < 7 {
		return "", fmt.Errorf("invalid phone number %q", number)
	}
	if strings.HasPrefix(number, "+") {
		return "+" + d, nil
	}
	return prefix + d, nil
}
