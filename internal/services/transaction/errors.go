package transaction

import (
	"errors"

	"coinbank/internal/models"
	"coinbank/internal/services/resilience"
	"coinbank/internal/services/strategy"
)

// Error taxonomy returned by the engine. Business-rule failures are never
// retried; they yield no balance change and no ledger entry.
var (
	ErrWalletNotFound     = errors.New("wallet not found")
	ErrUnauthorized       = errors.New("transfer not authorized")
	ErrInsufficientFunds  = strategy.ErrInsufficientFunds
	ErrInvalidCoinType    = models.ErrInvalidCoinType
	ErrServiceUnavailable = resilience.ErrServiceUnavailable
	ErrPersistenceFailure = errors.New("transfer could not be persisted")

	ErrInvalidAmount = errors.New("amount must be positive")
	ErrSelfTransfer  = errors.New("sender and receiver must differ")
)
