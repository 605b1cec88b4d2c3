package domain

// transitionsByRole is the single source of truth for transition legality: a
// partial (current -> next) mapping per role. Absent pairs are illegal for that
// role. Admins have no transition rights.
var transitionsByRole = map[Role]map[Status]Status{
	RoleClient: {},
	RoleDeveloper: {
		StatusAssigned:   StatusInProgress,
		StatusInProgress: StatusResolved,
	},
	RoleQA: {
		StatusOpen:         StatusAcknowledged,
		StatusAcknowledged: StatusAssigned,
		StatusResolved:     StatusClosed,
		StatusClosed:       StatusReopened,
		StatusReopened:     StatusAssigned,
	},
	RoleAdmin: {},
}

// NextStatus returns the status the role may move a ticket to from current.
// The second return is false when no action is available.
func NextStatus(current Status, role Role) (Status, bool) {
	next, ok := transitionsByRole[role][current]
	return next, ok
}

// RequiresAssignment reports whether the transition out of current for the role
// must go through developer assignment rather than a bare status update.
func RequiresAssignment(current Status, role Role) bool {
	next, ok := NextStatus(current, role)
	return ok && role == RoleQA && next == StatusAssigned
}

// IsValidTransition is the sole authority for transition legality.
func IsValidTransition(current, target Status, role Role) bool {
	next, ok := NextStatus(current, role)
	return ok && next == target
}

var actionLabels = map[Status]string{
	StatusAcknowledged: "Acknowledge",
	StatusAssigned:     "Assign Ticket",
	StatusInProgress:   "Mark In Progress",
	StatusResolved:     "Mark Resolved",
	StatusClosed:       "Mark Closed",
	StatusReopened:     "Reopen Ticket",
}

// ActionLabel derives the display label for the action available to the role
// from current. Display-only; carries no behavioral weight.
func ActionLabel(current Status, role Role) (string, bool) {
	next, ok := NextStatus(current, role)
	if !ok {
		return "", false
	}
	if RequiresAssignment(current, role) {
		return "Assign Developer", true
	}
	if label, ok := actionLabels[next]; ok {
		return label, true
	}
	return "Move to " + string(next), true
}
