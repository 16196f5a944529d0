package watcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/samvad-hq/coinify-go/internal/domain"
	"github.com/samvad-hq/coinify-go/internal/logger"
	"github.com/samvad-hq/coinify-go/pkg/publishers"
)

// Service forwards invoice snapshots whose content changed since the last poll.
type Service struct {
	lister    InvoiceLister
	publisher EventPublisher
	deduper   Deduper
	log       logger.Logger
}

// Result summarizes one poll.
type Result struct {
	Listed    int
	Published int
	Skipped   int
}

// NewService wires a watcher. A nil deduper forwards every snapshot.
func NewService(lister InvoiceLister, pub EventPublisher, deduper Deduper, log logger.Logger) *Service {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Service{lister: lister, publisher: pub, deduper: deduper, log: log}
}

// RunOnce lists invoices and publishes the new or changed ones.
func (s *Service) RunOnce(ctx context.Context) (Result, error) {
	var res Result
	if s == nil || s.lister == nil || s.publisher == nil {
		return res, fmt.Errorf("watcher service is not initialized")
	}

	snapshots, err := s.list(ctx)
	if err != nil {
		return res, err
	}
	res.Listed = len(snapshots)

	var errs []error
	for _, snap := range s.filterNew(snapshots) {
		if ctx.Err() != nil {
			break
		}
		evt := publishers.NewEvent(snap.ID, snap.Fingerprint, snap.Data)
		count, err := s.publisher.Publish(ctx, evt)
		if err != nil {
			errs = append(errs, fmt.Errorf("publish invoice %s: %w", snap.ID, err))
		}
		if count == 0 {
			continue
		}
		res.Published++
		if s.deduper != nil {
			if err := s.deduper.Mark(snap.ID, snap.Fingerprint); err != nil {
				errs = append(errs, fmt.Errorf("mark invoice %s: %w", snap.ID, err))
			}
		}
	}
	res.Skipped = res.Listed - res.Published

	s.log.InfoObj("invoice poll completed", "watch_result", map[string]any{
		"listed":    res.Listed,
		"published": res.Published,
		"skipped":   res.Skipped,
	})
	return res, errors.Join(errs...)
}

func (s *Service) list(ctx context.Context) ([]domain.InvoiceSnapshot, error) {
	resp, err := s.lister.InvoicesList(ctx)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	if !resp.Success() {
		if apiErr := resp.APIError(); apiErr != nil {
			return nil, fmt.Errorf("list invoices: %w", apiErr)
		}
		return nil, fmt.Errorf("list invoices: unsuccessful response (status %d)", resp.StatusCode)
	}

	items, ok := resp.Data().([]any)
	if !ok {
		return nil, fmt.Errorf("list invoices: data is %T, expected array", resp.Data())
	}

	out := make([]domain.InvoiceSnapshot, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			s.log.WarnObj("skipping non-object invoice", "invoice_index", i)
			continue
		}
		snap, err := domain.NewInvoiceSnapshot(obj)
		if err != nil {
			s.log.WarnObj("skipping invoice", "invoice_error", map[string]any{
				"index": i,
				"error": err.Error(),
			})
			continue
		}
		out = append(out, snap)
	}
	return out, nil
}

// filterNew drops snapshots whose fingerprint matches the one last forwarded
// for the same invoice. Lookup failures count as changed.
func (s *Service) filterNew(snapshots []domain.InvoiceSnapshot) []domain.InvoiceSnapshot {
	if s.deduper == nil {
		return snapshots
	}
	out := make([]domain.InvoiceSnapshot, 0, len(snapshots))
	for _, snap := range snapshots {
		seen, err := s.deduper.Seen(snap.ID, snap.Fingerprint)
		if err != nil {
			s.log.WarnObj("dedupe lookup failed", "dedupe_error", map[string]any{
				"invoice_id": snap.ID,
				"error":      err.Error(),
			})
		}
		if seen && err == nil {
			continue
		}
		out = append(out, snap)
	}
	return out
}
