package domain

import "time"

// Comment is attached to exactly one ticket. Internal comments are authored
// by non-client roles and hidden from the ticket's client at read time.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Body      string
	Internal  bool
	CreatedAt time.Time
}
