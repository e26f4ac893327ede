package service

import (
	"context"
	"sync"

	"bank-ledger-core/internal/core/domain"
	"bank-ledger-core/internal/core/ports"
	"bank-ledger-core/pkg/apperror"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

// balanceEntry is the mutable cached state for one account. All reads and
// writes go through mu, which serializes balance mutations per account
// without contending across accounts.
type balanceEntry struct {
	mu             sync.Mutex
	balance        int64
	lastAppliedSeq uint64
	valid          bool
}

// BalanceCacheService implements ports.BalanceCache as a bounded LRU of
// per-account balances derived from the ledger. A miss (or an entry
// invalidated after a detected gap) is recomputed by full replay through
// LedgerStore.BalanceAsOf, so eviction never loses correctness.
//
// Coherence rule: an account's cached balance is consistent with some
// sequence number L (lastAppliedSeq). A touching entry with seq S may be
// folded in only when the cache can prove no touching entry in (L, S) was
// missed. Two proofs are accepted: S == L+1, or every sequence in (L, S)
// lies inside the contiguous run of entries whose application has fully
// COMPLETED (a completed entry that touched the account would have
// advanced L or invalidated it, so a still-valid L below it means the
// entry was delta-zero for this account). Anything else is a gap and
// invalidates the account.
type BalanceCacheService struct {
	store           ports.LedgerStore
	localRoutingNum string

	mu    sync.Mutex // guards cache lookups+inserts, not entry contents
	cache *lru.Cache[string, *balanceEntry]

	// Contiguous run (runBase, runHead] of sequence numbers whose
	// ApplyEntry has finished updating every resident account. The head
	// advances only after an entry's full application, never when it is
	// merely in flight; an entry arriving out of order (a writer racing
	// ahead of the reader) leaves the run untouched until the reader
	// re-offers the skipped sequences.
	seqMu   sync.Mutex
	runBase uint64
	runHead uint64

	log zerolog.Logger
}

// NewBalanceCacheService creates a cache bounded to size accounts.
func NewBalanceCacheService(store ports.LedgerStore, localRoutingNum string, size int, log zerolog.Logger) (*BalanceCacheService, error) {
	cache, err := lru.New[string, *balanceEntry](size)
	if err != nil {
		return nil, err
	}
	return &BalanceCacheService{
		store:           store,
		localRoutingNum: localRoutingNum,
		cache:           cache,
		log:             log,
	}, nil
}

// entryFor returns the cached entry for an account, inserting a fresh
// (invalid) one on miss.
func (c *BalanceCacheService) entryFor(accountNum string) *balanceEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.cache.Get(accountNum); ok {
		return e
	}
	e := &balanceEntry{}
	c.cache.Add(accountNum, e)
	return e
}

// peek returns the cached entry without inserting or promoting, so that
// ApplyEntry never populates accounts nobody has asked for.
func (c *BalanceCacheService) peek(accountNum string) (*balanceEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Peek(accountNum)
}

// completedRun returns the contiguous run of sequence numbers whose
// application has fully finished.
func (c *BalanceCacheService) completedRun() (base, head uint64) {
	c.seqMu.Lock()
	defer c.seqMu.Unlock()
	return c.runBase, c.runHead
}

// noteCompleted records that every per-account update for seq has finished,
// extending the completed run when seq is its direct successor.
func (c *BalanceCacheService) noteCompleted(seq uint64) {
	c.seqMu.Lock()
	defer c.seqMu.Unlock()
	switch {
	case c.runHead == 0 && c.runBase == 0:
		c.runBase = seq - 1
		c.runHead = seq
	case seq == c.runHead+1:
		c.runHead = seq
	}
}

// Get returns the cached balance, replaying the ledger on first access and
// memoizing the result pinned at the replay's tail sequence.
func (c *BalanceCacheService) Get(ctx context.Context, accountNum string) (int64, error) {
	e := c.entryFor(accountNum)
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.valid {
		balance, asOfSeq, err := c.store.BalanceAsOf(ctx, accountNum)
		if err != nil {
			return 0, apperror.ErrStorageUnavailable(err)
		}
		e.balance = balance
		e.lastAppliedSeq = asOfSeq
		e.valid = true
		c.log.Debug().
			Str("account", accountNum).
			Int64("balance", balance).
			Uint64("as_of_seq", asOfSeq).
			Msg("balance computed by full replay")
	}
	return e.balance, nil
}

// ApplyEntry folds a committed entry into the cached balances of the local
// accounts it touches. Only accounts already resident in the cache are
// updated; everyone else replays lazily on their next Get. Safe for
// concurrent use; entries at or below an account's applied sequence are
// idempotent no-ops, and unprovable jumps invalidate rather than drift.
func (c *BalanceCacheService) ApplyEntry(entry *domain.LedgerEntry) {
	// The run must be read before any per-account update: a sequence
	// inside the run at this point has fully completed, so its effect on
	// every resident account is already visible under that account's lock.
	runBase, runHead := c.completedRun()

	for _, accountNum := range entry.LocalAccounts(c.localRoutingNum) {
		e, ok := c.peek(accountNum)
		if !ok {
			continue
		}
		e.mu.Lock()
		switch {
		case !e.valid:
			// Will replay on next Get; nothing to fold into.
		case entry.Seq <= e.lastAppliedSeq:
			// Duplicate notification.
		case entry.Seq == e.lastAppliedSeq+1,
			e.lastAppliedSeq >= runBase && entry.Seq <= runHead+1:
			e.balance += entry.DeltaFor(accountNum, c.localRoutingNum)
			e.lastAppliedSeq = entry.Seq
		default:
			e.valid = false
			c.log.Warn().
				Str("account", accountNum).
				Uint64("entry_seq", entry.Seq).
				Uint64("last_applied_seq", e.lastAppliedSeq).
				Msg("sequence gap detected, invalidating cached balance")
		}
		e.mu.Unlock()
	}

	c.noteCompleted(entry.Seq)
}

// Invalidate drops the cached balance for an account, forcing a replay on
// the next Get.
func (c *BalanceCacheService) Invalidate(accountNum string) {
	if e, ok := c.peek(accountNum); ok {
		e.mu.Lock()
		e.valid = false
		e.mu.Unlock()
	}
}
