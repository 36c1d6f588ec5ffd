package events

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/goccy/go-json"

	"github.com/relabs-tech/vitrine/core/logger"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSConfiguration configures the SQS publisher
type SQSConfiguration struct {
	QueueURL  string
	AWSRegion string
	AccessID  string
	AccessKey string
}

// SQS publishes notifications to an AWS SQS queue
type SQS struct {
	client   sqsAPI
	queueURL string
}

// NewSQS returns a publisher sending to the configured queue
func NewSQS(ctx context.Context, sqsConfig SQSConfiguration) (*SQS, error) {
	if sqsConfig.QueueURL == "" {
		return nil, fmt.Errorf("QueueURL must not be empty")
	}
	options := []func(*config.LoadOptions) error{config.WithRegion(sqsConfig.AWSRegion)}
	if sqsConfig.AccessID != "" {
		options = append(options, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(sqsConfig.AccessID, sqsConfig.AccessKey, "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, err
	}
	logger.Default().Infoln("publishing notifications to sqs queue", sqsConfig.QueueURL)
	return &SQS{client: sqs.NewFromConfig(cfg), queueURL: sqsConfig.QueueURL}, nil
}

// Publish implements Publisher
func (s *SQS) Publish(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}
	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"resource":  {DataType: aws.String("String"), StringValue: aws.String(n.Resource)},
			"operation": {DataType: aws.String("String"), StringValue: aws.String(string(n.Operation))},
		},
	})
	if err != nil {
		return fmt.Errorf("cannot send to sqs: %w", err)
	}
	return nil
}

// Close implements Publisher
func (s *SQS) Close() error { return nil }
