package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdex/helpdex/internal/api/dto"
	"github.com/helpdex/helpdex/internal/service"
)

// CategoriesHandler exposes the category directory for ticket forms.
type CategoriesHandler struct {
	service *service.TicketService
}

// NewCategoriesHandler constructs handler.
func NewCategoriesHandler(ticketService *service.TicketService) *CategoriesHandler {
	return &CategoriesHandler{service: ticketService}
}

// ListCategories GET /categories.
func (h *CategoriesHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.service.ListCategories(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.CategoryResponse, 0, len(categories))
	for _, category := range categories {
		items = append(items, dto.CategoryResponse{ID: category.ID, Name: category.Name})
	}
	return c.JSON(fiber.Map{"data": items})
}
