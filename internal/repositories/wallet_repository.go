package repositories

import (
	"errors"

	"coinbank/internal/models"
)

var (
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrDuplicateWallet   = errors.New("wallet already exists")
	ErrTransactionFailed = errors.New("transaction failed")
)

// WalletRepository defines wallet persistence plus the ledger write that must
// share the wallet updates' atomic boundary. ExecuteInTransaction hands the
// callback a repository bound to one database transaction; every write made
// through it commits or rolls back as a unit.
type WalletRepository interface {
	Create(wallet *models.Wallet) error
	GetByUserID(userID uint) (*models.Wallet, error)
	// GetByUserIDForUpdate loads the wallet under an exclusive row lock.
	// Only valid inside ExecuteInTransaction.
	GetByUserIDForUpdate(userID uint) (*models.Wallet, error)
	Update(wallet *models.Wallet) error

	// CreateTransaction appends an immutable ledger record.
	CreateTransaction(tx *models.Transaction) error

	ExecuteInTransaction(fn func(WalletRepository) error) error
}
