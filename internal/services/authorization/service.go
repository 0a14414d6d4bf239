// Package authorization decides whether a proposed transfer may proceed.
// The gate fails closed for merchant senders and delegates the rest to an
// external decision source behind a resilience guard.
package authorization

import (
	"context"
	"fmt"

	"coinbank/internal/models"
	"coinbank/internal/services/resilience"

	"github.com/shopspring/decimal"
)

// DecisionFallbackKey is the logical key under which the last successful
// authorization outcome is cached.
const DecisionFallbackKey = "authorization:last_decision"

// Gate authorizes transfers. No side effects.
type Gate interface {
	Authorize(ctx context.Context, userType models.UserType, amount decimal.Decimal) (bool, error)
}

type service struct {
	decider Decider
	guard   *resilience.Guard
}

// NewService creates the authorization gate. The guard wraps only the
// external decider call; the merchant rule never leaves the process.
func NewService(decider Decider, guard *resilience.Guard) Gate {
	if decider == nil {
		panic("decider is required")
	}
	if guard == nil {
		panic("guard is required")
	}

	return &service{
		decider: decider,
		guard:   guard,
	}
}

func (s *service) Authorize(ctx context.Context, userType models.UserType, amount decimal.Decimal) (bool, error) {
	// Merchants are categorically denied, independent of the external
	// authorizer. No network call is made.
	if userType == models.UserTypeMerchant {
		return false, nil
	}

	result, err := s.guard.Execute(ctx, DecisionFallbackKey, func() (interface{}, error) {
		return s.decider.Check(ctx, userType, amount)
	})
	if err != nil {
		return false, err
	}

	authorized, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("unexpected authorizer result type %T", result)
	}
	return authorized, nil
}
