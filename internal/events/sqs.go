package events

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// sqsPublisher is the slice of the SQS client the delivery handler needs.
type sqsPublisher interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSDeliveryHandler pushes outbox entries onto an SQS queue with the event
// type attached as a message attribute, so consumers can filter without
// decoding the envelope.
type SQSDeliveryHandler struct {
	client   sqsPublisher
	queueURL string
}

var _ DeliveryHandler = (*SQSDeliveryHandler)(nil)

func NewSQSDeliveryHandler(client *sqs.Client, queueURL string) *SQSDeliveryHandler {
	if client == nil {
		panic("events: SQS client cannot be nil")
	}
	if queueURL == "" {
		panic("events: SQS queue URL cannot be empty")
	}
	return &SQSDeliveryHandler{client: client, queueURL: queueURL}
}

func newSQSDeliveryHandlerWithClient(client sqsPublisher, queueURL string) *SQSDeliveryHandler {
	if client == nil {
		panic("events: publisher required")
	}
	return &SQSDeliveryHandler{client: client, queueURL: queueURL}
}

func (h *SQSDeliveryHandler) Handle(ctx context.Context, entry OutboxEntry) error {
	_, err := h.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(h.queueURL),
		MessageBody: aws.String(string(entry.Payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(entry.Type),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("events: publish %s: %w", entry.Type, err)
	}
	return nil
}
