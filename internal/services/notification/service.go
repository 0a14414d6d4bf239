// Package notification is the outbound notification port. Delivery is
// best-effort; a failed notification never affects a committed transfer.
package notification

import (
	"context"
	"log"

	"coinbank/internal/services/resilience"
)

// Port notifies a user about a transfer touching their wallet.
type Port interface {
	Notify(ctx context.Context, userID uint, message string) error
}

// Service is a minimal notification port implementation.
type Service struct{}

// NewService creates a new notification service.
func NewService() *Service { return &Service{} }

// Notify logs the notification. Real delivery (push, email) lives behind
// this port in deployments that have it.
func (s *Service) Notify(ctx context.Context, userID uint, message string) error {
	log.Printf("notify user %d: %s", userID, message)
	return nil
}

// guarded wraps a Port with a resilience guard so a failing notification
// channel gets short-circuited instead of slowing down transfers.
type guarded struct {
	port  Port
	guard *resilience.Guard
}

// NewGuarded wraps port with the given guard.
func NewGuarded(port Port, guard *resilience.Guard) Port {
	if port == nil {
		panic("port is required")
	}
	if guard == nil {
		panic("guard is required")
	}
	return &guarded{port: port, guard: guard}
}

func (g *guarded) Notify(ctx context.Context, userID uint, message string) error {
	_, err := g.guard.Execute(ctx, "", func() (interface{}, error) {
		return nil, g.port.Notify(ctx, userID, message)
	})
	return err
}
