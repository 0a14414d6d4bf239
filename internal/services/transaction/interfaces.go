package transaction

import (
	"context"
	"time"

	"coinbank/internal/models"
	"coinbank/internal/services/strategy"

	"github.com/shopspring/decimal"
)

// Service is the transaction processing engine.
type Service interface {
	// CreateTransaction moves value between two wallets. On success the
	// ledger holds exactly one new record and both wallets reflect the
	// debit/credit atomically; on failure nothing changed.
	CreateTransaction(ctx context.Context, req TransferRequest) (*models.Transaction, error)

	// Listing queries, ordered by timestamp descending, read-through cached.
	GetUserTransactions(ctx context.Context, userID uint) ([]models.Transaction, error)
	GetUserSentTransactions(ctx context.Context, userID uint) ([]models.Transaction, error)
	GetUserReceivedTransactions(ctx context.Context, userID uint) ([]models.Transaction, error)
}

// AuthorizationGate decides whether a proposed transfer may proceed.
type AuthorizationGate interface {
	Authorize(ctx context.Context, userType models.UserType, amount decimal.Decimal) (bool, error)
}

// Notifier delivers best-effort notifications after a committed transfer.
type Notifier interface {
	Notify(ctx context.Context, userID uint, message string) error
}

// StrategySelector maps a transfer role to its balance mutation strategy.
type StrategySelector interface {
	Get(role models.TransactionRole) (strategy.CoinStrategy, error)
}

// Cache is the read-through cache used by the listing queries.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
