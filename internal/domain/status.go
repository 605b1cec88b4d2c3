package domain

// Status enumerates lifecycle states for tickets. The persisted values are the
// canonical display names.
type Status string

const (
	StatusOpen         Status = "Open"
	StatusAcknowledged Status = "Acknowledged"
	StatusAssigned     Status = "Assigned"
	StatusInProgress   Status = "In Progress"
	StatusResolved     Status = "Resolved"
	StatusClosed       Status = "Closed"
	StatusReopened     Status = "Reopened"
)

// StatusOrder lists all statuses in canonical display order. Open is the sole
// initial state; Closed can be reopened, so the machine is cyclic.
var StatusOrder = []Status{
	StatusOpen,
	StatusAcknowledged,
	StatusAssigned,
	StatusInProgress,
	StatusResolved,
	StatusClosed,
	StatusReopened,
}

// ParseStatus validates a raw status string against the closed status set.
func ParseStatus(raw string) (Status, bool) {
	for _, status := range StatusOrder {
		if string(status) == raw {
			return status, true
		}
	}
	return "", false
}

// Locked reports whether field edits are forbidden while in this status.
func (s Status) Locked() bool {
	return s == StatusResolved || s == StatusClosed
}
