package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var fingerprintBucket = []byte("invoice_fingerprints")

var errBucketMissing = errors.New("invoice fingerprint bucket missing")

// invoiceRecord is the value stored under an invoice id.
type invoiceRecord struct {
	Fingerprint string `json:"fingerprint"`
	ExpiresAt   int64  `json:"expires_at"`
}

func (r invoiceRecord) live(now time.Time) bool {
	return r.ExpiresAt > now.Unix()
}

func decodeRecord(raw []byte) (invoiceRecord, bool) {
	var rec invoiceRecord
	if err := json.Unmarshal(raw, &rec); err != nil || rec.Fingerprint == "" {
		return invoiceRecord{}, false
	}
	return rec, true
}

// boltStore keeps one invoiceRecord per invoice id in a single bucket.
type boltStore struct {
	db   *bolt.DB
	opts Options
	now  func() time.Time

	sweepMu   sync.Mutex
	lastSweep time.Time
}

func openBolt(path string, opts Options) (*boltStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(fingerprintBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	return &boltStore{db: db, opts: opts, now: time.Now, lastSweep: time.Now()}, nil
}

func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Seen is a read-only lookup; expired records count as absent and are left
// for the sweeper.
func (b *boltStore) Seen(id, fingerprint string) (bool, error) {
	if b == nil || b.db == nil {
		return false, nil
	}
	now := b.now()
	if err := b.sweep(now); err != nil {
		return false, err
	}

	var same bool
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(fingerprintBucket)
		if bucket == nil {
			return errBucketMissing
		}
		rec, ok := decodeRecord(bucket.Get([]byte(id)))
		same = ok && rec.live(now) && rec.Fingerprint == fingerprint
		return nil
	})
	return same, err
}

func (b *boltStore) Mark(id, fingerprint string) error {
	if b == nil || b.db == nil {
		return nil
	}
	now := b.now()
	if err := b.sweep(now); err != nil {
		return err
	}

	raw, err := json.Marshal(invoiceRecord{
		Fingerprint: fingerprint,
		ExpiresAt:   now.Add(b.opts.TTL).Unix(),
	})
	if err != nil {
		return fmt.Errorf("encode record for invoice %s: %w", id, err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(fingerprintBucket)
		if bucket == nil {
			return errBucketMissing
		}
		return bucket.Put([]byte(id), raw)
	})
}

// sweep drops expired or unreadable records at most once per CleanupInterval.
func (b *boltStore) sweep(now time.Time) error {
	b.sweepMu.Lock()
	defer b.sweepMu.Unlock()
	if now.Sub(b.lastSweep) < b.opts.CleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(fingerprintBucket)
		if bucket == nil {
			return errBucketMissing
		}
		var stale [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			if rec, ok := decodeRecord(v); !ok || !rec.live(now) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sweep expired invoices: %w", err)
	}
	b.lastSweep = now
	return nil
}
