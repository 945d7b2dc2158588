package events

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
)

type stubSQSPublisher struct {
	input   *sqs.SendMessageInput
	sendErr error
}

func (s *stubSQSPublisher) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	s.input = params
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	return &sqs.SendMessageOutput{}, nil
}

func TestSQSDeliveryHandlerPublishesEnvelope(t *testing.T) {
	pub := &stubSQSPublisher{}
	handler := newSQSDeliveryHandlerWithClient(pub, "https://sqs.test/dispatch")

	entry := OutboxEntry{
		ID:        uuid.New(),
		Aggregate: "case:patient-3",
		Type:      "triage.case.dispatch_requested.v1",
		Payload:   []byte(`{"event_type":"triage.case.dispatch_requested.v1"}`),
	}
	if err := handler.Handle(context.Background(), entry); err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	if pub.input == nil {
		t.Fatal("expected a send")
	}
	if aws.ToString(pub.input.QueueUrl) != "https://sqs.test/dispatch" {
		t.Fatalf("unexpected queue url: %s", aws.ToString(pub.input.QueueUrl))
	}
	if aws.ToString(pub.input.MessageBody) != string(entry.Payload) {
		t.Fatalf("unexpected body: %s", aws.ToString(pub.input.MessageBody))
	}
	attr, ok := pub.input.MessageAttributes["event_type"]
	if !ok {
		t.Fatal("expected event_type attribute")
	}
	if aws.ToString(attr.StringValue) != entry.Type {
		t.Fatalf("unexpected attribute value: %s", aws.ToString(attr.StringValue))
	}
}

func TestSQSDeliveryHandlerWrapsSendErrors(t *testing.T) {
	pub := &stubSQSPublisher{sendErr: errors.New("throttled")}
	handler := newSQSDeliveryHandlerWithClient(pub, "https://sqs.test/dispatch")

	err := handler.Handle(context.Background(), OutboxEntry{Type: "event.v1"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "event.v1") {
		t.Fatalf("error should name the event type: %v", err)
	}
}
