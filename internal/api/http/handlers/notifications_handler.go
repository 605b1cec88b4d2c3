package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdex/helpdex/internal/api/dto"
	"github.com/helpdex/helpdex/internal/auth"
	"github.com/helpdex/helpdex/internal/service"
	apperrors "github.com/helpdex/helpdex/pkg/util"
)

// NotificationsHandler exposes the read side of notifications.
type NotificationsHandler struct {
	service *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notificationService *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{service: notificationService}
}

// ListNotifications GET /notifications.
func (h *NotificationsHandler) ListNotifications(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	limit := parseInt(c.Query("limit"), 50)
	notifications, err := h.service.ListForUser(c.Context(), actor, limit)
	if err != nil {
		return err
	}
	items := make([]dto.NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		items = append(items, dto.NotificationResponse{
			ID:       n.ID,
			TicketID: n.TicketID,
			Message:  n.Message,
			Read:     n.Read,
			SentAt:   n.SentAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// MarkRead PATCH /notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	if err := h.service.MarkRead(c.Context(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
