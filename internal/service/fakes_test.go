package service

import (
	"context"
	"sync"
	"time"

	"bank-ledger-core/internal/core/domain"

	"github.com/google/uuid"
)

// fakeLedgerStore is an in-memory ports.LedgerStore with the same
// atomicity guarantees as the real backends: one lock covers the
// duplicate check and the sequence assignment.
type fakeLedgerStore struct {
	mu              sync.Mutex
	entries         []domain.LedgerEntry
	byTxID          map[uuid.UUID]int
	localRoutingNum string

	appendErr  error // forced failure for the next Append
	balanceErr error // forced failure for BalanceAsOf
}

func newFakeLedgerStore(localRoutingNum string) *fakeLedgerStore {
	return &fakeLedgerStore{
		byTxID:          make(map[uuid.UUID]int),
		localRoutingNum: localRoutingNum,
	}
}

func (s *fakeLedgerStore) Append(_ context.Context, tx *domain.Transaction) (*domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return nil, s.appendErr
	}
	if _, ok := s.byTxID[tx.ID]; ok {
		return nil, domain.ErrDuplicateTransaction
	}
	entry := domain.LedgerEntry{
		Seq:         uint64(len(s.entries)) + 1,
		Transaction: *tx,
		CommittedAt: time.Now().UTC(),
	}
	s.entries = append(s.entries, entry)
	s.byTxID[tx.ID] = len(s.entries) - 1
	return &entry, nil
}

func (s *fakeLedgerStore) EntriesSince(_ context.Context, afterSeq uint64, limit int) ([]domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if afterSeq >= uint64(len(s.entries)) {
		return nil, nil
	}
	out := s.entries[afterSeq:]
	if len(out) > limit {
		out = out[:limit]
	}
	result := make([]domain.LedgerEntry, len(out))
	copy(result, out)
	return result, nil
}

func (s *fakeLedgerStore) GetByTransactionID(_ context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byTxID[id]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	entry := s.entries[idx]
	return &entry, nil
}

func (s *fakeLedgerStore) BalanceAsOf(_ context.Context, accountNum string) (int64, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balanceErr != nil {
		return 0, 0, s.balanceErr
	}
	var balance int64
	for i := range s.entries {
		balance += s.entries[i].DeltaFor(accountNum, s.localRoutingNum)
	}
	return balance, uint64(len(s.entries)), nil
}

func (s *fakeLedgerStore) TailSeq(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(len(s.entries)), nil
}

// replayCount counts BalanceAsOf calls, for asserting cache hit behavior.
type countingStore struct {
	*fakeLedgerStore
	mu      sync.Mutex
	replays map[string]int
}

func newCountingStore(localRoutingNum string) *countingStore {
	return &countingStore{
		fakeLedgerStore: newFakeLedgerStore(localRoutingNum),
		replays:         make(map[string]int),
	}
}

func (s *countingStore) BalanceAsOf(ctx context.Context, accountNum string) (int64, uint64, error) {
	s.mu.Lock()
	s.replays[accountNum]++
	s.mu.Unlock()
	return s.fakeLedgerStore.BalanceAsOf(ctx, accountNum)
}

func (s *countingStore) replayCount(accountNum string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replays[accountNum]
}

// fakeWatermarkStore is an in-memory ports.WatermarkStore.
type fakeWatermarkStore struct {
	mu     sync.Mutex
	seq    uint64
	set    bool
	getErr error
	setErr error
}

func (s *fakeWatermarkStore) Get(context.Context) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return 0, false, s.getErr
	}
	return s.seq, s.set, nil
}

func (s *fakeWatermarkStore) Set(_ context.Context, seq uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.seq, s.set = seq, true
	return nil
}

// recordingPublisher captures published entries.
type recordingPublisher struct {
	mu      sync.Mutex
	entries []domain.LedgerEntry
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, entry *domain.LedgerEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.entries = append(p.entries, *entry)
	return nil
}

func (p *recordingPublisher) published() []domain.LedgerEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.LedgerEntry, len(p.entries))
	copy(out, p.entries)
	return out
}

func transferTx(from, to string, amount int64) *domain.Transaction {
	return &domain.Transaction{
		ID:             uuid.New(),
		FromAccountNum: from,
		FromRoutingNum: testLocalRouting,
		ToAccountNum:   to,
		ToRoutingNum:   testLocalRouting,
		Amount:         amount,
		Timestamp:      time.Now().UTC(),
	}
}

func depositTx(to string, amount int64) *domain.Transaction {
	return &domain.Transaction{
		ID:             uuid.New(),
		FromAccountNum: "9999999999",
		FromRoutingNum: testExternalRouting,
		ToAccountNum:   to,
		ToRoutingNum:   testLocalRouting,
		Amount:         amount,
		Timestamp:      time.Now().UTC(),
	}
}
