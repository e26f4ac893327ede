package ports

import (
	"context"

	"bank-ledger-core/internal/core/domain"
)

// --- Service Ports (Business Logic) ---

// LedgerWriter admits new transactions into the ledger.
type LedgerWriter interface {
	// Submit validates a candidate transaction, checks fund sufficiency for
	// a local sender, and appends it to the ledger. A retried submission
	// with an already committed transaction ID returns the original entry
	// together with apperror.ErrAlreadyProcessed.
	Submit(ctx context.Context, tx *domain.Transaction) (*domain.LedgerEntry, error)
}

// LedgerReader drains newly committed entries into the balance cache.
type LedgerReader interface {
	// PollOnce processes all entries past the current watermark and returns
	// how many were applied.
	PollOnce(ctx context.Context) (int, error)

	// Healthy reports whether the most recent poll succeeded.
	Healthy() bool
}
