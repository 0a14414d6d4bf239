package handlers

import (
	"errors"
	"strconv"

	"coinbank/internal/repositories"
	"coinbank/internal/services/user"
	"coinbank/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	userService user.Service
}

func NewUserHandler(userService user.Service) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// RegisterUser creates a user together with their zero-balance wallet.
func (h *UserHandler) RegisterUser(c *fiber.Ctx) error {
	var input user.CreateUserInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}
	if input.Email == "" || input.Password == "" || input.Document == "" {
		return utils.BadRequest(c, "email, password and document are required")
	}

	newUser, err := h.userService.Create(&input)
	if err != nil {
		if errors.Is(err, repositories.ErrEmailTaken) || errors.Is(err, repositories.ErrDocumentTaken) {
			return utils.Respond(c, fiber.StatusConflict, fiber.Map{"error": err.Error()})
		}
		return utils.BadRequest(c, err.Error())
	}

	return utils.Created(c, newUser)
}

// GetUser returns a single user by id.
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.BadRequest(c, "invalid user id")
	}

	u, err := h.userService.GetByID(uint(id))
	if err != nil {
		return utils.NotFound(c, "user not found")
	}
	return utils.Success(c, u)
}

// ListUsers returns a paginated user listing.
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit > 100 {
		limit = 100
	}

	users, total, err := h.userService.List((page-1)*limit, limit)
	if err != nil {
		return utils.InternalError(c, "failed to list users")
	}

	return utils.Success(c, fiber.Map{
		"users": users,
		"page":  page,
		"limit": limit,
		"total": total,
	})
}
