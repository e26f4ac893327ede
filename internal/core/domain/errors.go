package domain

import "errors"

var (
	// ErrDuplicateTransaction is returned by ledger stores when an append
	// carries a transaction ID that is already committed.
	ErrDuplicateTransaction = errors.New("transaction already committed")

	// ErrEntryNotFound is returned when no ledger entry matches a lookup.
	ErrEntryNotFound = errors.New("ledger entry not found")
)
