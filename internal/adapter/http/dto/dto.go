package dto

// TransactionRequest is the request body for submitting a transaction.
type TransactionRequest struct {
	UUID           string `json:"uuid" binding:"required"`
	FromAccountNum string `json:"from_account_num" binding:"required"`
	FromRoutingNum string `json:"from_routing_num" binding:"required"`
	ToAccountNum   string `json:"to_account_num" binding:"required"`
	ToRoutingNum   string `json:"to_routing_num" binding:"required"`
	Amount         int64  `json:"amount" binding:"required"`
	Timestamp      *int64 `json:"timestamp,omitempty"` // Unix seconds; defaults to now
}

// TransactionResponse is the response body for a committed ledger entry.
type TransactionResponse struct {
	Seq            uint64 `json:"seq"`
	UUID           string `json:"uuid"`
	FromAccountNum string `json:"from_account_num"`
	FromRoutingNum string `json:"from_routing_num"`
	ToAccountNum   string `json:"to_account_num"`
	ToRoutingNum   string `json:"to_routing_num"`
	Amount         int64  `json:"amount"`
	Timestamp      string `json:"timestamp"`
	CommittedAt    string `json:"committed_at"`
}

// BalanceResponse is the response body for a balance query.
type BalanceResponse struct {
	AccountNum string `json:"account_num"`
	Balance    int64  `json:"balance"`
}
