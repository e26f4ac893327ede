package service

import (
	"regexp"

	"bank-ledger-core/internal/core/domain"
	"bank-ledger-core/pkg/apperror"

	"github.com/google/uuid"
)

var (
	accountNumPattern = regexp.MustCompile(`^[0-9]{10}$`)
	routingNumPattern = regexp.MustCompile(`^[0-9]{9}$`)
)

// Validator performs the structural and business checks on a candidate
// transaction. It is pure: no I/O, no shared state, same input always
// yields the same verdict. Fund sufficiency is deliberately not checked
// here; that requires a consistent balance read and belongs to the writer.
type Validator struct {
	localRoutingNum string
	maxAmount       int64
}

// NewValidator creates a Validator for the given local routing number and
// maximum accepted amount (in smallest currency units).
func NewValidator(localRoutingNum string, maxAmount int64) *Validator {
	return &Validator{
		localRoutingNum: localRoutingNum,
		maxAmount:       maxAmount,
	}
}

// Validate checks a candidate transaction, stopping at the first failure.
func (v *Validator) Validate(tx *domain.Transaction) error {
	if tx.Amount <= 0 || tx.Amount > v.maxAmount {
		return apperror.ErrInvalidAmount()
	}
	if !accountNumPattern.MatchString(tx.FromAccountNum) {
		return apperror.ErrMalformedAccount("from_account_num")
	}
	if !routingNumPattern.MatchString(tx.FromRoutingNum) {
		return apperror.ErrMalformedAccount("from_routing_num")
	}
	if !accountNumPattern.MatchString(tx.ToAccountNum) {
		return apperror.ErrMalformedAccount("to_account_num")
	}
	if !routingNumPattern.MatchString(tx.ToRoutingNum) {
		return apperror.ErrMalformedAccount("to_routing_num")
	}
	// Self-transfers are only meaningful when one side is external.
	if tx.FromAccountNum == tx.ToAccountNum && tx.FromRoutingNum == tx.ToRoutingNum {
		return apperror.ErrMalformedAccount("to_account_num")
	}
	if !tx.IsFromLocal(v.localRoutingNum) && !tx.IsToLocal(v.localRoutingNum) {
		return apperror.ErrNoLocalAccount()
	}
	if tx.ID == uuid.Nil {
		return apperror.ErrInvalidTransactionID()
	}
	return nil
}
