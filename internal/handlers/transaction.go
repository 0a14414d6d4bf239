package handlers

import (
	"errors"
	"log"

	"coinbank/internal/models"
	"coinbank/internal/services/transaction"
	"coinbank/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type TransactionHandler struct {
	service transaction.Service
}

func NewTransactionHandler(service transaction.Service) *TransactionHandler {
	return &TransactionHandler{
		service: service,
	}
}

// CreateTransaction processes a transfer from the authenticated user.
func (h *TransactionHandler) CreateTransaction(c *fiber.Ctx) error {
	var req transaction.TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	claims := c.Locals("claims").(*models.UserClaims)
	req.SenderID = claims.UserID

	tx, err := h.service.CreateTransaction(c.Context(), req)
	if err != nil {
		return h.mapError(c, err)
	}

	return utils.Created(c, tx)
}

// GetTransactions returns the authenticated user's transaction page.
// The direction query parameter selects all, sent or received.
func (h *TransactionHandler) GetTransactions(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*models.UserClaims)

	var (
		txs []models.Transaction
		err error
	)
	switch c.Query("direction", "all") {
	case "sent":
		txs, err = h.service.GetUserSentTransactions(c.Context(), claims.UserID)
	case "received":
		txs, err = h.service.GetUserReceivedTransactions(c.Context(), claims.UserID)
	case "all":
		txs, err = h.service.GetUserTransactions(c.Context(), claims.UserID)
	default:
		return utils.BadRequest(c, "direction must be all, sent or received")
	}
	if err != nil {
		log.Printf("transaction listing error: %v", err)
		return utils.InternalError(c, "failed to retrieve transactions")
	}

	return utils.Success(c, fiber.Map{"transactions": txs})
}

func (h *TransactionHandler) mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, transaction.ErrWalletNotFound):
		return utils.NotFound(c, err.Error())
	case errors.Is(err, transaction.ErrUnauthorized):
		return utils.Forbidden(c, err.Error())
	case errors.Is(err, transaction.ErrInsufficientFunds):
		return utils.UnprocessableEntity(c, err.Error())
	case errors.Is(err, transaction.ErrInvalidCoinType),
		errors.Is(err, transaction.ErrInvalidAmount),
		errors.Is(err, transaction.ErrSelfTransfer):
		return utils.BadRequest(c, err.Error())
	case errors.Is(err, transaction.ErrServiceUnavailable):
		return utils.ServiceUnavailable(c, err.Error())
	default:
		log.Printf("transaction processing error: %v", err)
		return utils.InternalError(c, "failed to process transaction")
	}
}
