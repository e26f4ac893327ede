package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bank-ledger-core/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingCache captures the entries a reader offers, in order.
type recordingCache struct {
	mu      sync.Mutex
	offered []uint64
}

func (c *recordingCache) Get(context.Context, string) (int64, error) { return 0, nil }

func (c *recordingCache) ApplyEntry(entry *domain.LedgerEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offered = append(c.offered, entry.Seq)
}

func (c *recordingCache) Invalidate(string) {}

func (c *recordingCache) offeredSeqs() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uint64, len(c.offered))
	copy(out, c.offered)
	return out
}

func seedEntries(t *testing.T, store *fakeLedgerStore, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := store.Append(context.Background(), depositTx(acctA, 100))
		require.NoError(t, err)
	}
}

func TestReader_PollOnceAppliesInOrder(t *testing.T) {
	store := newFakeLedgerStore(testLocalRouting)
	seedEntries(t, store, 3)
	cache := &recordingCache{}
	watermarks := &fakeWatermarkStore{}
	r := NewReaderService(store, cache, watermarks, time.Millisecond, 100, zerolog.Nop())

	n, err := r.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []uint64{1, 2, 3}, cache.offeredSeqs())

	seq, ok, err := watermarks.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(3), seq, "watermark advances to the tail")
}

func TestReader_PollOnceDrainsInBatches(t *testing.T) {
	store := newFakeLedgerStore(testLocalRouting)
	seedEntries(t, store, 7)
	cache := &recordingCache{}
	r := NewReaderService(store, cache, nil, time.Millisecond, 2, zerolog.Nop())

	n, err := r.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 6, 7}, cache.offeredSeqs())
}

func TestReader_PollOnceNoNewEntries(t *testing.T) {
	store := newFakeLedgerStore(testLocalRouting)
	seedEntries(t, store, 2)
	cache := &recordingCache{}
	r := NewReaderService(store, cache, nil, time.Millisecond, 100, zerolog.Nop())

	n, err := r.PollOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = r.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, []uint64{1, 2}, cache.offeredSeqs(), "no entries re-offered")
}

func TestReader_RestoresWatermark(t *testing.T) {
	store := newFakeLedgerStore(testLocalRouting)
	seedEntries(t, store, 5)
	cache := &recordingCache{}
	watermarks := &fakeWatermarkStore{}
	require.NoError(t, watermarks.Set(context.Background(), 3))

	r := NewReaderService(store, cache, watermarks, time.Millisecond, 100, zerolog.Nop())
	n, err := r.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []uint64{4, 5}, cache.offeredSeqs(), "entries at or below the watermark are skipped")
}

func TestReader_ColdStartWithoutWatermarkStore(t *testing.T) {
	store := newFakeLedgerStore(testLocalRouting)
	seedEntries(t, store, 4)
	cache := &recordingCache{}
	r := NewReaderService(store, cache, nil, time.Millisecond, 100, zerolog.Nop())

	n, err := r.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n, "cold start drains from the beginning")
}

func TestReader_WatermarkRestoreFailureStartsCold(t *testing.T) {
	store := newFakeLedgerStore(testLocalRouting)
	seedEntries(t, store, 3)
	cache := &recordingCache{}
	watermarks := &fakeWatermarkStore{getErr: errors.New("redis down")}
	r := NewReaderService(store, cache, watermarks, time.Millisecond, 100, zerolog.Nop())

	n, err := r.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestReader_WatermarkPersistFailureIsNonFatal(t *testing.T) {
	store := newFakeLedgerStore(testLocalRouting)
	seedEntries(t, store, 2)
	cache := &recordingCache{}
	watermarks := &fakeWatermarkStore{setErr: errors.New("redis down")}
	r := NewReaderService(store, cache, watermarks, time.Millisecond, 100, zerolog.Nop())

	n, err := r.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, r.Healthy())
}

func TestReader_HealthTracksPollOutcome(t *testing.T) {
	store := newFakeLedgerStore(testLocalRouting)
	cache := &recordingCache{}

	failing := &failingStore{fakeLedgerStore: store, fail: true}
	rf := NewReaderService(failing, cache, nil, time.Millisecond, 100, zerolog.Nop())
	assert.True(t, rf.Healthy())
	_, err := rf.PollOnce(context.Background())
	require.Error(t, err)
	assert.False(t, rf.Healthy())

	failing.fail = false
	seedEntries(t, store, 1)
	_, err = rf.PollOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, rf.Healthy(), "health recovers after a successful poll")
}

type failingStore struct {
	*fakeLedgerStore
	fail bool
}

func (s *failingStore) EntriesSince(ctx context.Context, afterSeq uint64, limit int) ([]domain.LedgerEntry, error) {
	if s.fail {
		return nil, errors.New("connection reset")
	}
	return s.fakeLedgerStore.EntriesSince(ctx, afterSeq, limit)
}

func TestReader_RunStopsOnCancel(t *testing.T) {
	store := newFakeLedgerStore(testLocalRouting)
	seedEntries(t, store, 3)
	cache := &recordingCache{}
	r := NewReaderService(store, cache, nil, time.Millisecond, 100, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return len(cache.offeredSeqs()) == 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
