package memory

import (
	"context"
	"sync"
	"time"

	"bank-ledger-core/internal/core/domain"

	"github.com/google/uuid"
)

// LedgerStore is an in-memory implementation of ports.LedgerStore, used by
// tests and the "memory" backend. A single mutex covers both the sequence
// counter and the duplicate check, making Append atomic: no two concurrent
// appends can observe the absence of a duplicate and both proceed.
type LedgerStore struct {
	mu      sync.RWMutex
	entries []domain.LedgerEntry
	byTxID  map[uuid.UUID]uint64 // transaction ID -> seq

	localRoutingNum string
}

// NewLedgerStore creates an empty in-memory ledger.
func NewLedgerStore(localRoutingNum string) *LedgerStore {
	return &LedgerStore{
		byTxID:          make(map[uuid.UUID]uint64),
		localRoutingNum: localRoutingNum,
	}
}

// Append commits a transaction with the next contiguous sequence number.
func (s *LedgerStore) Append(ctx context.Context, tx *domain.Transaction) (*domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byTxID[tx.ID]; exists {
		return nil, domain.ErrDuplicateTransaction
	}

	entry := domain.LedgerEntry{
		Seq:         uint64(len(s.entries)) + 1,
		Transaction: *tx,
		CommittedAt: time.Now().UTC(),
	}
	s.entries = append(s.entries, entry)
	s.byTxID[tx.ID] = entry.Seq
	return &entry, nil
}

// EntriesSince returns up to limit entries with seq > afterSeq in order.
func (s *LedgerStore) EntriesSince(ctx context.Context, afterSeq uint64, limit int) ([]domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if afterSeq >= uint64(len(s.entries)) {
		return nil, nil
	}
	// Seqs are contiguous from 1, so the slice index is the seq itself.
	from := int(afterSeq)
	to := from + limit
	if limit <= 0 || to > len(s.entries) {
		to = len(s.entries)
	}
	out := make([]domain.LedgerEntry, to-from)
	copy(out, s.entries[from:to])
	return out, nil
}

// GetByTransactionID looks up the committed entry for a transaction ID.
func (s *LedgerStore) GetByTransactionID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seq, ok := s.byTxID[id]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	entry := s.entries[seq-1]
	return &entry, nil
}

// BalanceAsOf replays all entries for one account and returns the balance
// plus the tail sequence the result is consistent with.
func (s *LedgerStore) BalanceAsOf(ctx context.Context, accountNum string) (int64, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var balance int64
	for i := range s.entries {
		balance += s.entries[i].DeltaFor(accountNum, s.localRoutingNum)
	}
	return balance, uint64(len(s.entries)), nil
}

// TailSeq returns the highest assigned sequence number.
func (s *LedgerStore) TailSeq(ctx context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.entries)), nil
}
