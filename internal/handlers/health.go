package handlers

import (
	"coinbank/internal/services/resilience"
	"coinbank/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	guards map[string]*resilience.Guard
}

func NewHealthHandler(guards map[string]*resilience.Guard) *HealthHandler {
	return &HealthHandler{
		guards: guards,
	}
}

// Health reports process liveness and the state of each circuit breaker.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	breakers := make(map[string]string, len(h.guards))
	for name, guard := range h.guards {
		breakers[name] = string(guard.State())
	}

	return utils.Success(c, fiber.Map{
		"status":   "ok",
		"breakers": breakers,
	})
}
