package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"overdue-watchdog/internal/common/config"
	"overdue-watchdog/internal/common/errors"
)

// SNSService is the subset of the SNS client used here, so tests can mock it.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSTransport struct {
	client   SNSService
	senderID string
}

func NewSNSTransport(client SNSService, senderID string) *SNSTransport {
	return &SNSTransport{client: client, senderID: senderID}
}

// NewSNSTransportFromConfig resolves credentials through the default AWS chain.
func NewSNSTransportFromConfig(ctx context.Context, cfg config.SNSConfig) (*SNSTransport, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewSNSTransport(sns.NewFromConfig(awsCfg), cfg.SenderID), nil
}

func (s *SNSTransport) Send(ctx context.Context, to, body string) error {
	attrs := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {
			DataType:    aws.String("String"),
			StringValue: aws.String("Transactional"),
		},
	}
	if s.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.senderID),
		}
	}

	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(to),
		Message:           aws.String(body),
		MessageAttributes: attrs,
	})
	if err != nil {
		return errors.NewNotificationSendFailedError(config.ProviderSNS, err)
	}
	return nil
}

func (s *SNSTransport) Mode() string { return config.ProviderSNS }
