package dto

import "time"

// NotificationResponse is a persisted notification record.
type NotificationResponse struct {
	ID       string    `json:"id"`
	TicketID string    `json:"ticket_id"`
	Message  string    `json:"message"`
	Read     bool      `json:"read"`
	SentAt   time.Time `json:"sent_at"`
}
