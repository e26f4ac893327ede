package service

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"bank-ledger-core/internal/core/domain"
	"bank-ledger-core/internal/core/ports"
	"bank-ledger-core/pkg/apperror"

	"github.com/rs/zerolog"
)

// WriterService implements ports.LedgerWriter. It orchestrates
// validate -> fund check -> append, and keeps the balance cache coherent
// with its own writes so a caller immediately re-reading its balance never
// observes staleness (read-your-writes).
//
// The fund-sufficiency read and the append for the same sender are
// serialized through a striped submit lock; without it two concurrent
// submissions could both observe the same pre-debit balance and both pass
// the check. One account always maps to one stripe, so its submissions
// serialize; a stripe collision serializes two unrelated senders, which
// costs latency but never correctness, and the lock set stays bounded no
// matter how many accounts submit.
type WriterService struct {
	validator       *Validator
	store           ports.LedgerStore
	cache           ports.BalanceCache
	publisher       ports.EntryPublisher // nil = publishing disabled
	localRoutingNum string

	submitLocks [submitLockStripes]sync.Mutex
	log         zerolog.Logger
}

const submitLockStripes = 256

// NewWriterService creates a new WriterService. publisher may be nil.
func NewWriterService(
	validator *Validator,
	store ports.LedgerStore,
	cache ports.BalanceCache,
	publisher ports.EntryPublisher,
	localRoutingNum string,
	log zerolog.Logger,
) *WriterService {
	return &WriterService{
		validator:       validator,
		store:           store,
		cache:           cache,
		publisher:       publisher,
		localRoutingNum: localRoutingNum,
		log:             log,
	}
}

// submitLock returns the stripe serializing submissions from one account.
func (s *WriterService) submitLock(accountNum string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(accountNum))
	return &s.submitLocks[h.Sum32()%submitLockStripes]
}

// Submit validates and commits a candidate transaction.
//
// A rejected submission never partially commits: either the ledger contains
// the entry or it does not. A retried submission with an already committed
// ID returns the original entry together with apperror.ErrAlreadyProcessed,
// never a second side effect.
func (s *WriterService) Submit(ctx context.Context, tx *domain.Transaction) (*domain.LedgerEntry, error) {
	if err := s.validator.Validate(tx); err != nil {
		s.log.Debug().
			Str("tx_id", tx.ID.String()).
			Err(err).
			Msg("transaction rejected by validation")
		return nil, err
	}

	// Overdrafts only apply to local senders; an external deposit has no
	// local balance to check.
	if tx.IsFromLocal(s.localRoutingNum) {
		mu := s.submitLock(tx.FromAccountNum)
		mu.Lock()
		defer mu.Unlock()

		balance, err := s.cache.Get(ctx, tx.FromAccountNum)
		if err != nil {
			return nil, err
		}
		if balance-tx.Amount < 0 {
			s.log.Info().
				Str("tx_id", tx.ID.String()).
				Str("from_account", tx.FromAccountNum).
				Int64("balance", balance).
				Int64("amount", tx.Amount).
				Msg("transaction rejected, insufficient funds")
			return nil, apperror.ErrInsufficientFunds()
		}
	}

	entry, err := s.store.Append(ctx, tx)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateTransaction) {
			existing, lookupErr := s.store.GetByTransactionID(ctx, tx.ID)
			if lookupErr != nil {
				return nil, apperror.ErrStorageUnavailable(lookupErr)
			}
			s.log.Info().
				Str("tx_id", tx.ID.String()).
				Uint64("seq", existing.Seq).
				Msg("duplicate submission, returning original entry")
			return existing, apperror.ErrAlreadyProcessed()
		}
		return nil, apperror.ErrStorageUnavailable(err)
	}

	// Fold the committed entry into the cache before returning so the
	// caller's next read reflects this write.
	s.cache.ApplyEntry(entry)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, entry); err != nil {
			s.log.Warn().
				Err(err).
				Uint64("seq", entry.Seq).
				Msg("failed to publish ledger entry, consumers will catch up from the ledger")
		}
	}

	s.log.Info().
		Str("tx_id", tx.ID.String()).
		Uint64("seq", entry.Seq).
		Str("from_account", tx.FromAccountNum).
		Str("to_account", tx.ToAccountNum).
		Int64("amount", tx.Amount).
		Msg("transaction committed")

	return entry, nil
}
