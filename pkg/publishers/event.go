package publishers

import (
	"time"

	"github.com/google/uuid"
)

// Event is the payload published downstream for one invoice snapshot.
type Event struct {
	ID          string         `json:"event_id"`
	InvoiceID   string         `json:"invoice_id"`
	Fingerprint string         `json:"fingerprint"`
	Invoice     map[string]any `json:"invoice"`
	ObservedAt  time.Time      `json:"observed_at"`
}

// NewEvent constructs an Event for the given invoice snapshot.
func NewEvent(invoiceID, fingerprint string, invoice map[string]any) Event {
	return Event{
		ID:          uuid.NewString(),
		InvoiceID:   invoiceID,
		Fingerprint: fingerprint,
		Invoice:     invoice,
		ObservedAt:  time.Now().UTC(),
	}
}

// attributes are the routing keys carried next to the payload by every sink
// that supports message metadata.
func (e Event) attributes() map[string]string {
	attrs := map[string]string{"invoice_id": e.InvoiceID}
	if e.ID != "" {
		attrs["event_id"] = e.ID
	}
	return attrs
}
