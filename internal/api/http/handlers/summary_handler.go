package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdex/helpdex/internal/api/dto"
	"github.com/helpdex/helpdex/internal/auth"
	"github.com/helpdex/helpdex/internal/domain"
	"github.com/helpdex/helpdex/internal/service"
	apperrors "github.com/helpdex/helpdex/pkg/util"
)

const dayLayout = "2006-01-02"

// SummaryHandler exposes the dashboard aggregation endpoints.
type SummaryHandler struct {
	service *service.SummaryService
}

// NewSummaryHandler constructs handler.
func NewSummaryHandler(summaryService *service.SummaryService) *SummaryHandler {
	return &SummaryHandler{service: summaryService}
}

// GetSummary GET /tickets/summary.
func (h *SummaryHandler) GetSummary(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	summary, err := h.service.GetSummary(c.Context(), actor)
	if err != nil {
		return err
	}

	counts := make(map[string]int, len(summary.StatusCounts))
	for status, count := range summary.StatusCounts {
		counts[string(status)] = count
	}
	resp := dto.SummaryResponse{
		StatusCounts:     counts,
		Upcoming:         ticketResponses(summary.Upcoming, actor),
		Overdue:          ticketResponses(summary.Overdue, actor),
		RecentlyAssigned: ticketResponses(summary.RecentlyAssigned, actor),
	}
	return c.JSON(fiber.Map{"data": resp})
}

// AverageResolutionTime GET /tickets/average-resolution-time.
func (h *SummaryHandler) AverageResolutionTime(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	from, err := parseDay(c.Query("from"))
	if err != nil {
		return err
	}
	to, err := parseDay(c.Query("to"))
	if err != nil {
		return err
	}

	report, err := h.service.AverageResolutionTime(c.Context(), actor, from, to)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ResolutionTimeResponse{
		AvgMillis:   report.AvgMillis,
		AvgReadable: report.AvgReadable,
		Count:       report.Count,
	}})
}

func parseDay(val string) (*time.Time, error) {
	if val == "" {
		return nil, nil
	}
	t, err := time.Parse(dayLayout, val)
	if err != nil {
		return nil, apperrors.NewValidationError("dates must use YYYY-MM-DD", map[string]any{"value": val})
	}
	return &t, nil
}

func ticketResponses(tickets []domain.Ticket, actor *domain.User) []dto.TicketResponse {
	if tickets == nil {
		return nil
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i], actor))
	}
	return items
}
