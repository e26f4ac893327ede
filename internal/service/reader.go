package service

import (
	"context"
	"sync/atomic"
	"time"

	"bank-ledger-core/internal/core/ports"

	"github.com/rs/zerolog"
)

// ReaderService implements ports.LedgerReader: it periodically drains
// entries committed past its watermark into the balance cache, then
// persists the watermark so a restart does not replay the whole ledger.
// A missing persisted watermark is a cold start: the cache begins empty
// and every account replays lazily on first Get.
type ReaderService struct {
	store      ports.LedgerStore
	cache      ports.BalanceCache
	watermarks ports.WatermarkStore // nil = watermark not persisted
	interval   time.Duration
	batchSize  int

	watermark uint64
	restored  bool
	alive     atomic.Bool

	log zerolog.Logger
}

// NewReaderService creates a ReaderService. watermarks may be nil, in which
// case every start is a cold start.
func NewReaderService(
	store ports.LedgerStore,
	cache ports.BalanceCache,
	watermarks ports.WatermarkStore,
	interval time.Duration,
	batchSize int,
	log zerolog.Logger,
) *ReaderService {
	r := &ReaderService{
		store:      store,
		cache:      cache,
		watermarks: watermarks,
		interval:   interval,
		batchSize:  batchSize,
		log:        log,
	}
	r.alive.Store(true)
	return r
}

// restoreWatermark loads the persisted watermark once, before first poll.
func (r *ReaderService) restoreWatermark(ctx context.Context) {
	if r.restored {
		return
	}
	r.restored = true
	if r.watermarks == nil {
		return
	}
	seq, ok, err := r.watermarks.Get(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("failed to restore watermark, starting cold")
		return
	}
	if ok {
		r.watermark = seq
		r.log.Info().Uint64("watermark", seq).Msg("watermark restored")
	}
}

// PollOnce fetches entries past the watermark, applies them to the cache in
// sequence order, and advances the watermark. Idempotent: re-polling after
// a partial failure re-offers entries the cache already no-ops on.
func (r *ReaderService) PollOnce(ctx context.Context) (int, error) {
	r.restoreWatermark(ctx)

	applied := 0
	for {
		entries, err := r.store.EntriesSince(ctx, r.watermark, r.batchSize)
		if err != nil {
			r.alive.Store(false)
			return applied, err
		}
		if len(entries) == 0 {
			break
		}
		for i := range entries {
			r.cache.ApplyEntry(&entries[i])
			r.watermark = entries[i].Seq
		}
		applied += len(entries)
		if len(entries) < r.batchSize {
			break
		}
	}

	if applied > 0 && r.watermarks != nil {
		if err := r.watermarks.Set(ctx, r.watermark); err != nil {
			// Worst case a restart re-applies entries the cache ignores.
			r.log.Warn().Err(err).Uint64("watermark", r.watermark).Msg("failed to persist watermark")
		}
	}

	r.alive.Store(true)
	return applied, nil
}

// Healthy reports whether the most recent poll succeeded.
func (r *ReaderService) Healthy() bool {
	return r.alive.Load()
}

// Run polls on a fixed interval until ctx is cancelled. Intended to run in
// its own goroutine.
func (r *ReaderService) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info().Dur("interval", r.interval).Msg("ledger reader started")
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("ledger reader stopped")
			return
		case <-ticker.C:
			if n, err := r.PollOnce(ctx); err != nil {
				r.log.Error().Err(err).Msg("ledger poll failed")
			} else if n > 0 {
				r.log.Debug().Int("entries", n).Uint64("watermark", r.watermark).Msg("ledger entries applied")
			}
		}
	}
}
