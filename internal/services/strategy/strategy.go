// Package strategy implements the per-role balance mutation strategies.
// A transfer debits the sender's wallet and credits the receiver's wallet
// for the same coin type; each side is a pure computation that returns an
// updated copy of the wallet and never touches storage.
package strategy

import (
	"errors"
	"fmt"

	"coinbank/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnknownRole       = errors.New("unknown transaction role")
)

// CoinStrategy computes a wallet's new balance for a coin type and amount.
type CoinStrategy interface {
	Pay(coin models.CoinType, wallet *models.Wallet, amount decimal.Decimal) (*models.Wallet, error)
}

// ValidateBalance checks that a debit of amount fits within balance.
// Draining the balance to exactly zero is allowed.
func ValidateBalance(balance, amount decimal.Decimal) error {
	if amount.GreaterThan(balance) {
		return fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientFunds, balance, amount)
	}
	return nil
}

type sentStrategy struct{}

// Pay decreases the matching coin-type balance by amount. It fails when the
// amount exceeds the current balance, so a wallet can never go negative.
func (sentStrategy) Pay(coin models.CoinType, wallet *models.Wallet, amount decimal.Decimal) (*models.Wallet, error) {
	balance, err := wallet.Balance(coin)
	if err != nil {
		return nil, err
	}
	if err := ValidateBalance(balance, amount); err != nil {
		return nil, err
	}

	updated := *wallet
	if err := updated.SetBalance(coin, balance.Sub(amount)); err != nil {
		return nil, err
	}
	return &updated, nil
}

type receiverStrategy struct{}

// Pay increases the matching coin-type balance by amount.
func (receiverStrategy) Pay(coin models.CoinType, wallet *models.Wallet, amount decimal.Decimal) (*models.Wallet, error) {
	balance, err := wallet.Balance(coin)
	if err != nil {
		return nil, err
	}

	updated := *wallet
	if err := updated.SetBalance(coin, balance.Add(amount)); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Selector maps a transaction role to its coin strategy. Stateless.
type Selector struct {
	sent     CoinStrategy
	received CoinStrategy
}

func NewSelector() *Selector {
	return &Selector{
		sent:     sentStrategy{},
		received: receiverStrategy{},
	}
}

// Get returns the strategy for the given role.
func (s *Selector) Get(role models.TransactionRole) (CoinStrategy, error) {
	switch role {
	case models.RoleSent:
		return s.sent, nil
	case models.RoleReceived:
		return s.received, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
}
