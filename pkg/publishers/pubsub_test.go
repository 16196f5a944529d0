package publishers

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
)

func TestPubSubPublisherPublishes(t *testing.T) {
	// Use the in-memory Pub/Sub emulator.
	server := pstest.NewServer()
	defer server.Close()
	t.Setenv("PUBSUB_EMULATOR_HOST", server.Addr)

	ctx := context.Background()
	admin, err := pubsub.NewClient(ctx, "test-project")
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	defer admin.Close()
	if _, err := admin.CreateTopic(ctx, "invoices"); err != nil {
		t.Fatalf("create topic: %v", err)
	}

	pub, err := newPubSubPublisher(ctx, PublisherConfig{
		ID:     "gcp",
		Type:   TypePubSub,
		PubSub: &PubSubPublisherConfig{ProjectID: "test-project", Topic: "invoices"},
	}, nil)
	if err != nil {
		t.Fatalf("newPubSubPublisher: %v", err)
	}
	defer pub.(Closer).Close()

	if err := pub.Publish(ctx, NewEvent("42", "42:abc", map[string]any{"id": 42})); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	msgs := server.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Attributes["invoice_id"] != "42" {
		t.Fatalf("attributes = %#v", msgs[0].Attributes)
	}
	var evt Event
	if err := json.Unmarshal(msgs[0].Data, &evt); err != nil || evt.Fingerprint != "42:abc" {
		t.Fatalf("payload = %s (%v)", msgs[0].Data, err)
	}
}
