package transaction

import (
	"time"

	"coinbank/internal/models"

	"github.com/shopspring/decimal"
)

// TransferRequest is the engine's input. It is validated and discarded per
// call, never persisted.
type TransferRequest struct {
	SenderID   uint            `json:"-"`
	ReceiverID uint            `json:"receiver_id"`
	Amount     decimal.Decimal `json:"amount"`
	CoinType   models.CoinType `json:"coin_type"`
}

// Config holds the engine's explicit configuration.
type Config struct {
	PageSize int
	CacheTTL time.Duration
}
