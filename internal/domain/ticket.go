package domain

import "time"

// Priority enumerates ticket urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ParsePriority validates a raw priority string.
func ParsePriority(raw string) (Priority, bool) {
	switch Priority(raw) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return Priority(raw), true
	}
	return "", false
}

// Ticket is the central aggregate. Status changes only through validated
// transitions or developer assignment; the transition timestamps are stamped
// by the transition that names them and overwritten if it recurs.
// AssignedTo is sticky: it is never cleared by later transitions, only
// replaced by a reassignment.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Priority    Priority
	Status      Status
	CategoryID  string
	CreatedBy   string
	AssignedTo  *string
	AssignedBy  *string
	ClosedBy    *string
	AssignedAt  *time.Time
	ResolvedAt  *time.Time
	ClosedAt    *time.Time
	ReopenedAt  *time.Time
	Deadline    *time.Time
	// Version is a monotonic counter used for optimistic concurrency:
	// concurrent transitions against the same prior state race on it and the
	// loser is rejected.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
