package credits

import (
	"context"

	"github.com/nxtgenia/miniaturia/api/rest/pagination"
	"github.com/nxtgenia/miniaturia/miniaturia/ledger"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type Ledger interface {
	GetBalance(ctx context.Context, accountID string) (*ledger.Balance, error)
	Debit(ctx context.Context, accountID string, amount int, reason string) (int, error)
	Transactions(ctx context.Context, accountID string, limit, offset int) ([]ledger.Transaction, int, error)
}

// SpendRequest represents a manual credit spend
type SpendRequest struct {
	Amount int    `json:"amount" binding:"required,min=1"`
	Reason string `json:"reason" binding:"max=200"`
}

type SpendResponse struct {
	Success bool `json:"success"`
	Credits int  `json:"credits"`
}

type TransactionsResponse struct {
	Transactions []ledger.Transaction `json:"transactions"`
	Pagination   pagination.Meta      `json:"pagination"`
}
