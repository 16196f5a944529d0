package app

import (
	"context"
	"fmt"
	"time"

	"github.com/samvad-hq/coinify-go/internal/config"
	"github.com/samvad-hq/coinify-go/internal/logger"
	"github.com/samvad-hq/coinify-go/internal/storage"
	"github.com/samvad-hq/coinify-go/internal/watcher"
	"github.com/samvad-hq/coinify-go/pkg/publishers"
)

// Watcher represents the invoice watch runtime. It manages the poll loop,
// coordinating between the Coinify client, the dedupe store and publishers.
type Watcher struct {
	cfg      *config.Config
	fanout   *publishers.Fanout
	service  *watcher.Service
	interval time.Duration
	log      logger.Logger
	store    storage.Store
}

// NewWatcher builds a watcher runtime from config files.
func NewWatcher(ctx context.Context, cfg *config.Config, log logger.Logger) (*Watcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := NewCoinifyClient(cfg, log)
	if err != nil {
		return nil, err
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabledPublishers := publisherReg.Enabled()
	if len(enabledPublishers) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	fanout := publishers.NewFanout(pubClients)
	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})

	storeOpts := storage.Options{
		TTL:             cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	}
	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storeOpts)
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"ttl_seconds":              int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	return &Watcher{
		cfg:      cfg,
		fanout:   fanout,
		service:  watcher.NewService(client, fanout, store, log),
		interval: cfg.WatchInterval,
		log:      log,
		store:    store,
	}, nil
}

// Run starts the poll loop until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w == nil || w.service == nil {
		return fmt.Errorf("watcher is not initialized")
	}
	defer w.close()

	w.log.InfoObj("watch loop starting", "watch_state", map[string]any{
		"publishers_count": w.fanout.Size(),
		"interval":         w.interval.String(),
	})

	if err := w.runOnce(ctx); err != nil {
		w.log.ErrorObj("initial poll failed", "error", err.Error())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.InfoObj("watch loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if err := w.runOnce(ctx); err != nil {
				w.log.ErrorObj("scheduled poll failed", "error", err.Error())
			}
		}
	}
}

// runOnce performs a single poll.
func (w *Watcher) runOnce(ctx context.Context) error {
	start := time.Now()
	res, err := w.service.RunOnce(ctx)
	w.log.DebugObj("poll finished", "poll_meta", map[string]any{
		"listed":     res.Listed,
		"published":  res.Published,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return err
}

// close releases the storage backend and publisher clients, logging any errors encountered.
func (w *Watcher) close() {
	if w == nil {
		return
	}
	if w.store != nil {
		if err := w.store.Close(); err != nil {
			w.log.ErrorObj("storage close failed", "error", err.Error())
		}
	}
	if err := w.fanout.Close(); err != nil {
		w.log.ErrorObj("publishers close failed", "error", err.Error())
	}
}
