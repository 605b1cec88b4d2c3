package dto

import (
	"time"

	"github.com/helpdex/helpdex/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	CategoryID  string   `json:"category_id"`
	Attachments []string `json:"attachments"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// AssignDeveloperRequest payload.
type AssignDeveloperRequest struct {
	DeveloperID string `json:"developer_id"`
}

// UpdateTicketRequest carries a partial field edit.
type UpdateTicketRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Priority    *string    `json:"priority"`
	CategoryID  *string    `json:"category_id"`
	Deadline    *time.Time `json:"deadline"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    domain.Priority `json:"priority"`
	Status      domain.Status   `json:"status"`
	CategoryID  string          `json:"category_id"`
	CreatedBy   string          `json:"created_by"`
	AssignedTo  *string         `json:"assigned_to,omitempty"`
	AssignedBy  *string         `json:"assigned_by,omitempty"`
	ClosedBy    *string         `json:"closed_by,omitempty"`
	AssignedAt  *time.Time      `json:"assigned_at,omitempty"`
	ResolvedAt  *time.Time      `json:"resolved_at,omitempty"`
	ClosedAt    *time.Time      `json:"closed_at,omitempty"`
	ReopenedAt  *time.Time      `json:"reopened_at,omitempty"`
	Deadline    *time.Time      `json:"deadline,omitempty"`
	ActionLabel string          `json:"action_label,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Pagination echoes list paging back to the caller.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// TicketListResponse wraps a page of tickets.
type TicketListResponse struct {
	Data       []TicketResponse `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

// TicketDetailResponse is a ticket with its visible comments.
type TicketDetailResponse struct {
	TicketResponse
	Comments []CommentResponse `json:"comments"`
}
