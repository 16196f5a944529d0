package publishers

import "context"

// Publisher sends invoice events to a downstream sink (SQS, SNS, Pub/Sub, HTTP).
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

// Closer is implemented by publishers holding client resources.
type Closer interface {
	Close() error
}
