package handler

import (
	"errors"
	"time"

	"bank-ledger-core/internal/adapter/http/dto"
	"bank-ledger-core/internal/adapter/http/middleware"
	"bank-ledger-core/internal/core/domain"
	"bank-ledger-core/internal/core/ports"
	"bank-ledger-core/pkg/apperror"
	"bank-ledger-core/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LedgerHandler handles transaction submission and balance queries.
type LedgerHandler struct {
	writer          ports.LedgerWriter
	cache           ports.BalanceCache
	localRoutingNum string
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(writer ports.LedgerWriter, cache ports.BalanceCache, localRoutingNum string) *LedgerHandler {
	return &LedgerHandler{writer: writer, cache: cache, localRoutingNum: localRoutingNum}
}

// SubmitTransaction handles POST /api/v1/transactions.
func (h *LedgerHandler) SubmitTransaction(c *gin.Context) {
	authedAcct, ok := c.Get(middleware.CtxAccountNum)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	txID, err := uuid.Parse(req.UUID)
	if err != nil {
		response.Error(c, apperror.ErrInvalidTransactionID())
		return
	}

	timestamp := time.Now().UTC()
	if req.Timestamp != nil {
		timestamp = time.Unix(*req.Timestamp, 0).UTC()
	}

	tx := &domain.Transaction{
		ID:             txID,
		FromAccountNum: req.FromAccountNum,
		FromRoutingNum: req.FromRoutingNum,
		ToAccountNum:   req.ToAccountNum,
		ToRoutingNum:   req.ToRoutingNum,
		Amount:         req.Amount,
		Timestamp:      timestamp,
	}

	// The token holder may only move their own money: a local sender must
	// be the authenticated account, and an external deposit may only target
	// the authenticated account.
	if tx.IsFromLocal(h.localRoutingNum) {
		if tx.FromAccountNum != authedAcct.(string) {
			response.Error(c, apperror.ErrAccountMismatch())
			return
		}
	} else if tx.ToAccountNum != authedAcct.(string) {
		response.Error(c, apperror.ErrAccountMismatch())
		return
	}

	entry, err := h.writer.Submit(c.Request.Context(), tx)
	if err != nil {
		// A retried duplicate is not a failure: the original entry is
		// returned so the caller can reconcile.
		if errors.Is(err, apperror.ErrAlreadyProcessed()) && entry != nil {
			response.OK(c, toTransactionResponse(entry))
			return
		}
		response.Error(c, err)
		return
	}

	response.Created(c, toTransactionResponse(entry))
}

// GetBalance handles GET /api/v1/balances/:account_num.
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	authedAcct, ok := c.Get(middleware.CtxAccountNum)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	accountNum := c.Param("account_num")
	if accountNum != authedAcct.(string) {
		response.Error(c, apperror.ErrAccountMismatch())
		return
	}

	balance, err := h.cache.Get(c.Request.Context(), accountNum)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{AccountNum: accountNum, Balance: balance})
}

// toTransactionResponse converts a ledger entry to its DTO.
func toTransactionResponse(entry *domain.LedgerEntry) dto.TransactionResponse {
	return dto.TransactionResponse{
		Seq:            entry.Seq,
		UUID:           entry.Transaction.ID.String(),
		FromAccountNum: entry.Transaction.FromAccountNum,
		FromRoutingNum: entry.Transaction.FromRoutingNum,
		ToAccountNum:   entry.Transaction.ToAccountNum,
		ToRoutingNum:   entry.Transaction.ToRoutingNum,
		Amount:         entry.Transaction.Amount,
		Timestamp:      entry.Transaction.Timestamp.Format(time.RFC3339),
		CommittedAt:    entry.CommittedAt.Format(time.RFC3339),
	}
}
