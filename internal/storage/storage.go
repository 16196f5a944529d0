package storage

import (
	"fmt"
	"strings"
	"time"
)

// Package storage keeps the last forwarded fingerprint of every invoice.

// Store maps an invoice id to the fingerprint of the snapshot last forwarded
// for it. A snapshot is new when its fingerprint differs from that record.
type Store interface {
	Close() error
	// Seen reports whether fingerprint is the one last recorded for id.
	Seen(id, fingerprint string) (bool, error)
	// Mark replaces the record for id.
	Mark(id, fingerprint string) error
}

// Options controls how long an invoice record survives without being marked
// again, and how often stale records are swept.
type Options struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

const (
	defaultTTL             = 30 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = defaultTTL
	}
	if o.CleanupInterval <= 0 {
		o.CleanupInterval = defaultCleanupInterval
	}
	return o
}

// NewStore opens the backend named by typ: "bbolt", or "none" to forward
// every snapshot.
func NewStore(typ, path string, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		store, err := openBolt(path, opts.withDefaults())
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

type noopStore struct{}

func (noopStore) Close() error                      { return nil }
func (noopStore) Seen(string, string) (bool, error) { return false, nil }
func (noopStore) Mark(string, string) error         { return nil }
