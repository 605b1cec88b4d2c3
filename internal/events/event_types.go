package events

import (
	"time"

	"github.com/helpdex/helpdex/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketCommentAdded  EventType = "ticket_comment_added"
)

// Event represents a domain event emitted by services after commit.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title      string          `json:"title"`
	Priority   domain.Priority `json:"priority"`
	CategoryID string          `json:"category_id"`
}

// TicketStatusChangedPayload payload. Carries enough of the ticket for
// subscribers to pick notification recipients without refetching.
type TicketStatusChangedPayload struct {
	OldStatus   domain.Status `json:"old_status"`
	NewStatus   domain.Status `json:"new_status"`
	Role        domain.Role   `json:"role"`
	TicketTitle string        `json:"ticket_title"`
	CreatedBy   string        `json:"created_by"`
	AssignedTo  *string       `json:"assigned_to,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	DeveloperID string `json:"developer_id"`
	AssignedBy  string `json:"assigned_by"`
	TicketTitle string `json:"ticket_title"`
}

// TicketCommentAddedPayload payload.
type TicketCommentAddedPayload struct {
	CommentID string `json:"comment_id"`
	AuthorID  string `json:"author_id"`
	Internal  bool   `json:"internal"`
}
