package domain

import (
	"time"

	"github.com/google/uuid"
)

// Transaction represents a candidate money movement between two accounts.
// Accounts are identified by a 10-digit account number plus a 9-digit bank
// routing number; a routing number different from the local one marks the
// external side of a deposit or withdrawal. A Transaction is immutable once
// committed to the ledger.
type Transaction struct {
	ID             uuid.UUID `json:"uuid"`
	FromAccountNum string    `json:"from_account_num"`
	FromRoutingNum string    `json:"from_routing_num"`
	ToAccountNum   string    `json:"to_account_num"`
	ToRoutingNum   string    `json:"to_routing_num"`
	Amount         int64     `json:"amount"` // In smallest currency unit (cents)
	Timestamp      time.Time `json:"timestamp"`
}

// IsFromLocal returns true if the sending account is held at this bank.
func (t *Transaction) IsFromLocal(localRoutingNum string) bool {
	return t.FromRoutingNum == localRoutingNum
}

// IsToLocal returns true if the receiving account is held at this bank.
func (t *Transaction) IsToLocal(localRoutingNum string) bool {
	return t.ToRoutingNum == localRoutingNum
}

// IsExternalDeposit returns true if funds enter from another institution.
func (t *Transaction) IsExternalDeposit(localRoutingNum string) bool {
	return !t.IsFromLocal(localRoutingNum) && t.IsToLocal(localRoutingNum)
}

// IsExternalWithdrawal returns true if funds leave to another institution.
func (t *Transaction) IsExternalWithdrawal(localRoutingNum string) bool {
	return t.IsFromLocal(localRoutingNum) && !t.IsToLocal(localRoutingNum)
}

// LedgerEntry is a Transaction after commit: the ledger has assigned it a
// strictly increasing sequence number and a commit time. Seq is the only
// ordering authority for balance computation; timestamps are informational.
type LedgerEntry struct {
	Seq         uint64      `json:"seq"`
	Transaction Transaction `json:"transaction"`
	CommittedAt time.Time   `json:"committed_at"`
}

// DeltaFor returns the signed balance contribution of this entry for the
// given local account, or 0 if the entry does not touch it. A transfer from
// an account to itself on the external side contributes only one leg.
func (e *LedgerEntry) DeltaFor(accountNum, localRoutingNum string) int64 {
	var delta int64
	if e.Transaction.FromAccountNum == accountNum && e.Transaction.IsFromLocal(localRoutingNum) {
		delta -= e.Transaction.Amount
	}
	if e.Transaction.ToAccountNum == accountNum && e.Transaction.IsToLocal(localRoutingNum) {
		delta += e.Transaction.Amount
	}
	return delta
}

// LocalAccounts returns the accounts of this entry held at the local bank,
// in from/to order, without duplicates.
func (e *LedgerEntry) LocalAccounts(localRoutingNum string) []string {
	accounts := make([]string, 0, 2)
	if e.Transaction.IsFromLocal(localRoutingNum) {
		accounts = append(accounts, e.Transaction.FromAccountNum)
	}
	if e.Transaction.IsToLocal(localRoutingNum) && e.Transaction.ToAccountNum != e.Transaction.FromAccountNum {
		accounts = append(accounts, e.Transaction.ToAccountNum)
	}
	return accounts
}

// AccountBalance is the cached, derived balance of a single account.
// LastAppliedSeq is the highest ledger sequence folded into Balance; the
// pair is always reconstructable by replaying the ledger from seq 0.
type AccountBalance struct {
	AccountNum     string `json:"account_num"`
	Balance        int64  `json:"balance"`
	LastAppliedSeq uint64 `json:"last_applied_seq"`
}
