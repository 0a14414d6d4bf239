package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrInvalidCoinType is returned when a coin type outside the supported
// enumeration reaches a balance operation.
var ErrInvalidCoinType = errors.New("invalid coin type")

// CoinType identifies one of the independently tracked balance categories
// inside a wallet.
type CoinType string

const (
	CoinBRL CoinType = "BRL"
	CoinUSD CoinType = "USD"
	CoinBTC CoinType = "BTC"
)

// Valid reports whether c is one of the supported coin types.
func (c CoinType) Valid() bool {
	switch c {
	case CoinBRL, CoinUSD, CoinBTC:
		return true
	}
	return false
}

// Wallet holds one user's balances, one column per coin type.
type Wallet struct {
	ID         uint            `gorm:"primarykey" json:"id"`
	UserID     uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	Owner      *User           `gorm:"foreignKey:UserID" json:"-"`
	BalanceBRL decimal.Decimal `gorm:"type:numeric(19,2);not null;default:0" json:"balance_brl"`
	BalanceUSD decimal.Decimal `gorm:"type:numeric(19,2);not null;default:0" json:"balance_usd"`
	BalanceBTC decimal.Decimal `gorm:"type:numeric(19,2);not null;default:0" json:"balance_btc"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// BeforeCreate ensures every wallet starts with zero balances.
func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	w.BalanceBRL = decimal.Zero
	w.BalanceUSD = decimal.Zero
	w.BalanceBTC = decimal.Zero
	return nil
}

// Balance returns the balance tracked for the given coin type.
func (w *Wallet) Balance(coin CoinType) (decimal.Decimal, error) {
	switch coin {
	case CoinBRL:
		return w.BalanceBRL, nil
	case CoinUSD:
		return w.BalanceUSD, nil
	case CoinBTC:
		return w.BalanceBTC, nil
	}
	return decimal.Zero, ErrInvalidCoinType
}

// SetBalance overwrites the balance tracked for the given coin type.
func (w *Wallet) SetBalance(coin CoinType, value decimal.Decimal) error {
	switch coin {
	case CoinBRL:
		w.BalanceBRL = value
	case CoinUSD:
		w.BalanceUSD = value
	case CoinBTC:
		w.BalanceBTC = value
	default:
		return ErrInvalidCoinType
	}
	return nil
}
