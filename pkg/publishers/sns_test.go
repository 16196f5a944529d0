package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type fakeSNSClient struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNSClient) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-123")}, nil
}

func TestSNSPublisherSendSuccess(t *testing.T) {
	client := &fakeSNSClient{}
	pub := &snsPublisher{
		id:       "topic",
		topicARN: "arn:aws:sns:::topic",
		client:   client,
		log:      noopLogger{},
	}

	if err := pub.Publish(context.Background(), NewEvent("7", "7:ff", map[string]any{"id": 7})); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.TopicArn); got != "arn:aws:sns:::topic" {
		t.Fatalf("TopicArn = %s", got)
	}
	attr, ok := client.input.MessageAttributes["invoice_id"]
	if !ok || aws.ToString(attr.StringValue) != "7" {
		t.Fatalf("invoice_id attribute missing or wrong: %#v", attr)
	}
	if !strings.Contains(aws.ToString(client.input.Message), `"fingerprint":"7:ff"`) {
		t.Fatalf("Message missing fingerprint: %s", aws.ToString(client.input.Message))
	}
}

func TestSNSPublisherSendError(t *testing.T) {
	pub := &snsPublisher{
		id:       "topic",
		topicARN: "arn:aws:sns:::topic",
		client:   &fakeSNSClient{err: errors.New("boom")},
		log:      noopLogger{},
	}

	if err := pub.Publish(context.Background(), NewEvent("7", "7:ff", nil)); err == nil {
		t.Fatalf("expected error from Publish")
	}
}
