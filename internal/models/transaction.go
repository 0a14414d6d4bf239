package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRole identifies which side of a transfer a wallet plays.
type TransactionRole string

const (
	RoleSent     TransactionRole = "SENT"
	RoleReceived TransactionRole = "RECEIVED"
)

// Transaction is the immutable ledger record of a completed transfer.
// It is created exactly once per successful transfer and never updated.
type Transaction struct {
	ID         uint            `gorm:"primarykey" json:"id"`
	Reference  string          `gorm:"uniqueIndex;not null" json:"reference"`
	Amount     decimal.Decimal `gorm:"type:numeric(19,2);not null" json:"amount"`
	CoinType   CoinType        `gorm:"type:varchar(8);not null" json:"coin_type"`
	SenderID   uint            `gorm:"not null;index" json:"sender_id"`
	Sender     *User           `gorm:"foreignKey:SenderID" json:"-"`
	ReceiverID uint            `gorm:"not null;index" json:"receiver_id"`
	Receiver   *User           `gorm:"foreignKey:ReceiverID" json:"-"`
	Timestamp  time.Time       `gorm:"not null;index" json:"timestamp"`
	CreatedAt  time.Time       `json:"created_at"`
}
