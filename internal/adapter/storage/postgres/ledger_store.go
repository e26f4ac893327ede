package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bank-ledger-core/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// LedgerStore implements ports.LedgerStore on PostgreSQL.
//
// Sequence numbers come from a single-row counter table (ledger_seq), not a
// SERIAL column: the counter update and the entry insert commit in one
// database transaction, so assigned sequences are contiguous — a rolled
// back append rolls the counter back with it. The counter row's lock is
// the serialization point the uniqueness guarantee rides on; the UNIQUE
// constraint on transaction_id turns a racing duplicate into a constraint
// violation instead of a second commit.
//
// Schema:
//
//	CREATE TABLE ledger_entries (
//	    seq             BIGINT PRIMARY KEY,
//	    transaction_id  UUID NOT NULL UNIQUE,
//	    from_account    CHAR(10) NOT NULL,
//	    from_routing    CHAR(9) NOT NULL,
//	    to_account      CHAR(10) NOT NULL,
//	    to_routing      CHAR(9) NOT NULL,
//	    amount          BIGINT NOT NULL CHECK (amount > 0),
//	    ts              TIMESTAMPTZ NOT NULL,
//	    committed_at    TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX idx_ledger_entries_from ON ledger_entries (from_account);
//	CREATE INDEX idx_ledger_entries_to   ON ledger_entries (to_account);
//	CREATE TABLE ledger_seq (
//	    id    INT PRIMARY KEY CHECK (id = 1),
//	    value BIGINT NOT NULL
//	);
//	INSERT INTO ledger_seq (id, value) VALUES (1, 0);
type LedgerStore struct {
	pool            Pool
	localRoutingNum string
}

// NewLedgerStore creates a PostgreSQL-backed ledger store.
func NewLedgerStore(pool Pool, localRoutingNum string) *LedgerStore {
	return &LedgerStore{pool: pool, localRoutingNum: localRoutingNum}
}

const entryColumns = `seq, transaction_id, from_account, from_routing, to_account, to_routing, amount, ts, committed_at`

// Append commits a transaction, assigning the next contiguous sequence.
func (s *LedgerStore) Append(ctx context.Context, tx *domain.Transaction) (*domain.LedgerEntry, error) {
	dbTx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin append: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	var seq uint64
	err = dbTx.QueryRow(ctx,
		`UPDATE ledger_seq SET value = value + 1 WHERE id = 1 RETURNING value`,
	).Scan(&seq)
	if err != nil {
		return nil, fmt.Errorf("advance ledger sequence: %w", err)
	}

	committedAt := time.Now().UTC()
	_, err = dbTx.Exec(ctx,
		`INSERT INTO ledger_entries (`+entryColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		seq, tx.ID, tx.FromAccountNum, tx.FromRoutingNum, tx.ToAccountNum, tx.ToRoutingNum,
		tx.Amount, tx.Timestamp, committedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, domain.ErrDuplicateTransaction
		}
		return nil, fmt.Errorf("insert ledger entry: %w", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit append: %w", err)
	}

	return &domain.LedgerEntry{
		Seq:         seq,
		Transaction: *tx,
		CommittedAt: committedAt,
	}, nil
}

// EntriesSince returns up to limit entries with seq > afterSeq in order.
func (s *LedgerStore) EntriesSince(ctx context.Context, afterSeq uint64, limit int) ([]domain.LedgerEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries WHERE seq > $1 ORDER BY seq ASC LIMIT $2`,
		afterSeq, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query entries since %d: %w", afterSeq, err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// GetByTransactionID looks up the committed entry for a transaction ID.
func (s *LedgerStore) GetByTransactionID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries WHERE transaction_id = $1`, id,
	)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}
	return entry, nil
}

// BalanceAsOf replays the ledger for one account. The tail is read first:
// counter updates commit in sequence order, so every entry at or below an
// observed counter value is already visible, making the (balance, tail)
// pair a consistent snapshot.
func (s *LedgerStore) BalanceAsOf(ctx context.Context, accountNum string) (int64, uint64, error) {
	tail, err := s.TailSeq(ctx)
	if err != nil {
		return 0, 0, err
	}

	var balance int64
	err = s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(
		    CASE
		        WHEN to_account = $1 AND to_routing = $2 THEN amount
		        WHEN from_account = $1 AND from_routing = $2 THEN -amount
		        ELSE 0
		    END), 0)
		 FROM ledger_entries
		 WHERE (from_account = $1 OR to_account = $1) AND seq <= $3`,
		accountNum, s.localRoutingNum, tail,
	).Scan(&balance)
	if err != nil {
		return 0, 0, fmt.Errorf("replay balance for %s: %w", accountNum, err)
	}
	return balance, tail, nil
}

// TailSeq returns the highest assigned sequence number.
func (s *LedgerStore) TailSeq(ctx context.Context) (uint64, error) {
	var tail uint64
	err := s.pool.QueryRow(ctx, `SELECT value FROM ledger_seq WHERE id = 1`).Scan(&tail)
	if err != nil {
		return 0, fmt.Errorf("read ledger sequence: %w", err)
	}
	return tail, nil
}

// scanEntry reads one ledger entry from a row.
func scanEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	err := row.Scan(
		&e.Seq, &e.Transaction.ID,
		&e.Transaction.FromAccountNum, &e.Transaction.FromRoutingNum,
		&e.Transaction.ToAccountNum, &e.Transaction.ToRoutingNum,
		&e.Transaction.Amount, &e.Transaction.Timestamp, &e.CommittedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}
	return &e, nil
}
