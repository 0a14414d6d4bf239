package repositories

import (
	"context"
	"errors"
	"fmt"

	"coinbank/internal/models"

	"gorm.io/gorm"
)

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{
		db: db,
	}
}

func (r *transactionRepository) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &tx, nil
}

func (r *transactionRepository) ListByUser(ctx context.Context, userID uint, page PageConfig) ([]models.Transaction, error) {
	return r.list(ctx, page, "sender_id = ? OR receiver_id = ?", userID, userID)
}

func (r *transactionRepository) ListBySender(ctx context.Context, userID uint, page PageConfig) ([]models.Transaction, error) {
	return r.list(ctx, page, "sender_id = ?", userID)
}

func (r *transactionRepository) ListByReceiver(ctx context.Context, userID uint, page PageConfig) ([]models.Transaction, error) {
	return r.list(ctx, page, "receiver_id = ?", userID)
}

func (r *transactionRepository) list(ctx context.Context, page PageConfig, query string, args ...interface{}) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where(query, args...).
		Order("timestamp DESC").
		Limit(page.Size).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}
