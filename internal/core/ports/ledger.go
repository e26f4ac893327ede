package ports

import (
	"context"

	"bank-ledger-core/internal/core/domain"

	"github.com/google/uuid"
)

// LedgerStore is the append-only, totally ordered store of committed
// transactions. Implementations must make sequence assignment and the
// uniqueness check on the transaction ID atomic with respect to each other:
// no two concurrent appends may both observe the absence of a duplicate and
// proceed. Sequence numbers are contiguous, starting at 1.
type LedgerStore interface {
	// Append commits a transaction, assigning the next sequence number.
	// Returns domain.ErrDuplicateTransaction if the transaction ID is
	// already committed.
	Append(ctx context.Context, tx *domain.Transaction) (*domain.LedgerEntry, error)

	// EntriesSince returns up to limit entries with seq > afterSeq, in
	// strictly increasing seq order. Callable repeatedly with an advancing
	// watermark; never reorders or skips.
	EntriesSince(ctx context.Context, afterSeq uint64, limit int) ([]domain.LedgerEntry, error)

	// GetByTransactionID looks up the committed entry for a transaction ID.
	// Returns domain.ErrEntryNotFound if no such entry exists.
	GetByTransactionID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error)

	// BalanceAsOf replays the full ledger for one account and returns the
	// balance together with the tail sequence the replay is consistent with.
	BalanceAsOf(ctx context.Context, accountNum string) (int64, uint64, error)

	// TailSeq returns the highest assigned sequence number (0 if empty).
	TailSeq(ctx context.Context) (uint64, error)
}

// BalanceCache is the per-account materialized view over the ledger. Get and
// ApplyEntry are safe for concurrent use; mutations for the same account are
// serialized internally.
type BalanceCache interface {
	// Get returns the account balance, computing it by full replay on a
	// cache miss and memoizing the result.
	Get(ctx context.Context, accountNum string) (int64, error)

	// ApplyEntry folds a newly committed entry into the cached balances of
	// the accounts it touches. Entries at or below an account's last applied
	// sequence are ignored; a gap invalidates the account, forcing replay on
	// the next Get.
	ApplyEntry(entry *domain.LedgerEntry)

	// Invalidate drops the cached balance for an account.
	Invalidate(accountNum string)
}

// WatermarkStore persists the ledger reader's poll watermark so a restart
// does not trigger a replay storm.
type WatermarkStore interface {
	// Get returns the persisted watermark. The boolean is false when no
	// watermark has ever been stored.
	Get(ctx context.Context) (uint64, bool, error)

	// Set stores the watermark.
	Set(ctx context.Context, seq uint64) error
}

// EntryPublisher emits committed entries to downstream consumers, such as
// the transaction history service. Publishing is best-effort from the
// writer's perspective; consumers re-read from EntriesSince on their own.
type EntryPublisher interface {
	Publish(ctx context.Context, entry *domain.LedgerEntry) error
}
