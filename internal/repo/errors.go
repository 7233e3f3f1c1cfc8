package repo

import "errors"

var (
	ErrInscriptionNotFound     = errors.New("inscription not found")
	ErrActiveInscriptionExists = errors.New("active inscription already exists for user")
	ErrStatusTransition        = errors.New("inscription status transition rejected")
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrBuyOrderExists          = errors.New("buy order already processed")
)

// TransactionFilter selects a transaction by buy order, optionally narrowed by
// owner and authorization code.
type TransactionFilter struct {
	BuyOrder string
	UserID   string
	AuthCode string
}
