package domain

import "time"

// Notification is a write-only side-effect record of a qualifying transition
// or assignment. Its creation never mutates ticket state and its failure is
// non-fatal to the transition that produced it.
type Notification struct {
	ID       string
	TicketID string
	UserID   string
	Message  string
	Read     bool
	SentAt   time.Time
}
