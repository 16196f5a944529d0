package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
)

// Domain contains core models shared by the watcher and publishers.

// InvoiceSnapshot is one invoice object as returned by the list endpoint.
// Data is kept as decoded JSON; nothing in it is interpreted beyond the id.
type InvoiceSnapshot struct {
	ID          string
	Fingerprint string
	Data        map[string]any
}

// NewInvoiceSnapshot derives the id and a content fingerprint of an invoice.
// encoding/json sorts map keys, so equal invoices hash equally.
func NewInvoiceSnapshot(data map[string]any) (InvoiceSnapshot, error) {
	id, err := invoiceID(data["id"])
	if err != nil {
		return InvoiceSnapshot{}, err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return InvoiceSnapshot{}, fmt.Errorf("encode invoice %s: %w", id, err)
	}
	sum := sha256.Sum256(raw)
	return InvoiceSnapshot{
		ID:          id,
		Fingerprint: id + ":" + hex.EncodeToString(sum[:]),
		Data:        data,
	}, nil
}

func invoiceID(v any) (string, error) {
	switch id := v.(type) {
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), nil
	case json.Number:
		return id.String(), nil
	case string:
		if id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("invoice has no usable id: %v", v)
}
