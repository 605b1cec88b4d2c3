package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdex/helpdex/internal/api/dto"
	"github.com/helpdex/helpdex/internal/auth"
	"github.com/helpdex/helpdex/internal/domain"
	"github.com/helpdex/helpdex/internal/service"
	apperrors "github.com/helpdex/helpdex/pkg/util"
)

// UsersHandler covers login and the developer directory.
type UsersHandler struct {
	authService   *service.AuthService
	ticketService *service.TicketService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, ticketService *service.TicketService) *UsersHandler {
	return &UsersHandler{authService: authService, ticketService: ticketService}
}

// Login POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	token, expiresAt, user, err := h.authService.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      userResponse(user),
	}})
}

// ListDevelopers GET /users/developers.
func (h *UsersHandler) ListDevelopers(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	developers, err := h.ticketService.ListDevelopers(c.Context(), actor)
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(developers))
	for i := range developers {
		items = append(items, userResponse(&developers[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}
}
