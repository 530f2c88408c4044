package ledger

import "errors"

var (
	ErrProductNotFound   = errors.New("ledger: product not found")
	ErrProductExists     = errors.New("ledger: product already exists")
	ErrInvalidQuantity   = errors.New("ledger: quantity must be positive")
	ErrInvalidDirection  = errors.New("ledger: unknown stock update direction")
	ErrInsufficientStock = errors.New("ledger: insufficient stock")
	ErrNegativeStock     = errors.New("ledger: stock cannot go below zero")
	ErrDuplicateSale     = errors.New("ledger: duplicate sale submission")
)
