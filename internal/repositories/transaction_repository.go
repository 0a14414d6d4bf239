package repositories

import (
	"context"
	"errors"

	"coinbank/internal/models"
)

var ErrTransactionNotFound = errors.New("transaction not found")

// PageConfig is the explicit pagination configuration for ledger queries.
// Results are always ordered by timestamp descending.
type PageConfig struct {
	Size int
}

// TransactionRepository is the read side of the ledger. Writes go through
// WalletRepository.CreateTransaction so they share the wallet updates'
// transactional boundary.
type TransactionRepository interface {
	GetByReference(ctx context.Context, reference string) (*models.Transaction, error)
	// ListByUser returns transactions where the user is sender or receiver.
	ListByUser(ctx context.Context, userID uint, page PageConfig) ([]models.Transaction, error)
	ListBySender(ctx context.Context, userID uint, page PageConfig) ([]models.Transaction, error)
	ListByReceiver(ctx context.Context, userID uint, page PageConfig) ([]models.Transaction, error)
}
