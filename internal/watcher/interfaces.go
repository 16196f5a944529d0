package watcher

import (
	"context"

	"github.com/samvad-hq/coinify-go/pkg/coinify"
	"github.com/samvad-hq/coinify-go/pkg/publishers"
)

// InvoiceLister lists invoices; *coinify.Client satisfies it.
type InvoiceLister interface {
	InvoicesList(ctx context.Context) (*coinify.Response, error)
}

// EventPublisher fans invoice events out and reports how many sinks accepted them.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Deduper remembers the last forwarded fingerprint of each invoice.
type Deduper interface {
	Seen(id, fingerprint string) (bool, error)
	Mark(id, fingerprint string) error
}
