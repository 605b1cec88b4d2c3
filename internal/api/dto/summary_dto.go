package dto

// SummaryResponse is the role-scoped dashboard payload. Overdue and
// recently-assigned sections appear only for the roles that have them.
type SummaryResponse struct {
	StatusCounts     map[string]int   `json:"statusCounts"`
	Upcoming         []TicketResponse `json:"upcomingTickets"`
	Overdue          []TicketResponse `json:"overdueTickets,omitempty"`
	RecentlyAssigned []TicketResponse `json:"recentAssignedTickets,omitempty"`
}

// ResolutionTimeResponse reports the average resolution time.
type ResolutionTimeResponse struct {
	AvgMillis   int64  `json:"avgMs"`
	AvgReadable string `json:"avgReadable"`
	Count       int    `json:"count"`
}
