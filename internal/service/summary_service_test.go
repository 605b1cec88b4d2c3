package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helpdex/helpdex/internal/domain"
	"github.com/helpdex/helpdex/internal/service"
)

func newSummaryFixture(t *testing.T) (*service.SummaryService, *fakeTicketRepo) {
	t.Helper()

	tickets := newFakeTicketRepo()
	svc := service.NewSummaryService(tickets, nil, 0, zap.NewNop())
	return svc, tickets
}

func seedSummaryTicket(t *testing.T, tickets *fakeTicketRepo, mutate func(*domain.Ticket)) {
	t.Helper()

	ticket := &domain.Ticket{
		Title:      "ticket",
		Priority:   domain.PriorityMedium,
		Status:     domain.StatusOpen,
		CategoryID: "cat-1",
		CreatedBy:  client.ID,
	}
	if mutate != nil {
		mutate(ticket)
	}
	require.NoError(t, tickets.Create(context.Background(), ticket))
}

func Test_GetSummary_Counts_And_Upcoming_For_Client(t *testing.T) {
	t.Parallel()

	svc, tickets := newSummaryFixture(t)
	soon := time.Now().Add(48 * time.Hour)
	far := time.Now().Add(30 * 24 * time.Hour)

	seedSummaryTicket(t, tickets, func(ticket *domain.Ticket) {
		ticket.Deadline = &soon
	})
	seedSummaryTicket(t, tickets, func(ticket *domain.Ticket) {
		ticket.Status = domain.StatusResolved
		ticket.Deadline = &far
	})
	// Another user's ticket stays out of the client's summary.
	seedSummaryTicket(t, tickets, func(ticket *domain.Ticket) {
		ticket.CreatedBy = otherUser.ID
	})

	summary, err := svc.GetSummary(context.Background(), &client)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.StatusCounts[domain.StatusOpen])
	assert.Equal(t, 1, summary.StatusCounts[domain.StatusResolved])
	assert.Len(t, summary.Upcoming, 1, "only deadlines within five days are upcoming")
	assert.Nil(t, summary.Overdue, "clients get no overdue section")
	assert.Nil(t, summary.RecentlyAssigned, "clients get no recently-assigned section")
}

func Test_GetSummary_Developer_Sections(t *testing.T) {
	t.Parallel()

	svc, tickets := newSummaryFixture(t)
	past := time.Now().Add(-24 * time.Hour)

	// Overdue: assigned, past deadline, not locked.
	seedSummaryTicket(t, tickets, func(ticket *domain.Ticket) {
		assignedTo(developer)(ticket)
		ticket.Status = domain.StatusInProgress
		ticket.Deadline = &past
	})
	// Past deadline but Resolved: locked statuses are never overdue.
	seedSummaryTicket(t, tickets, func(ticket *domain.Ticket) {
		assignedTo(developer)(ticket)
		ticket.Status = domain.StatusResolved
		ticket.Deadline = &past
	})
	// Four assigned tickets with staggered assignment times.
	for i := 0; i < 4; i++ {
		offset := time.Duration(i+1) * time.Hour
		seedSummaryTicket(t, tickets, func(ticket *domain.Ticket) {
			assignedTo(developer)(ticket)
			assignedAt := time.Now().Add(-offset)
			ticket.AssignedAt = &assignedAt
		})
	}

	summary, err := svc.GetSummary(context.Background(), &developer)
	require.NoError(t, err)

	assert.Len(t, summary.Overdue, 1)
	assert.Len(t, summary.RecentlyAssigned, 3, "recently-assigned is capped at three")
}

func Test_GetSummary_Rejects_Admin(t *testing.T) {
	t.Parallel()

	svc, _ := newSummaryFixture(t)
	_, err := svc.GetSummary(context.Background(), &admin)
	requireCode(t, err, "FORBIDDEN")
}

func Test_AverageResolutionTime_Requires_QA(t *testing.T) {
	t.Parallel()

	svc, _ := newSummaryFixture(t)
	for _, actor := range []domain.User{client, developer, admin} {
		_, err := svc.AverageResolutionTime(context.Background(), &actor, nil, nil)
		requireCode(t, err, "FORBIDDEN")
	}
}

func Test_AverageResolutionTime_Window_Must_Be_Complete(t *testing.T) {
	t.Parallel()

	svc, _ := newSummaryFixture(t)
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)

	_, err := svc.AverageResolutionTime(context.Background(), &qa, &from, nil)
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = svc.AverageResolutionTime(context.Background(), &qa, nil, &to)
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = svc.AverageResolutionTime(context.Background(), &qa, &to, &from)
	requireCode(t, err, "VALIDATION_FAILED")
}

func Test_AverageResolutionTime_Window_Is_Inclusive_Of_To_Day(t *testing.T) {
	t.Parallel()

	svc, tickets := newSummaryFixture(t)
	tickets.resolutionAvg = 1
	tickets.resolutionCount = 1

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	_, err := svc.AverageResolutionTime(context.Background(), &qa, &from, &to)
	require.NoError(t, err)

	require.NotNil(t, tickets.statsFrom)
	require.NotNil(t, tickets.statsTo)
	assert.Equal(t, from, *tickets.statsFrom)
	assert.Equal(t, to.Add(24*time.Hour), *tickets.statsTo, "upper bound covers the whole to day")
}

func Test_AverageResolutionTime_Formats_Readable_Duration(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		avg      int64
		count    int
		readable string
	}{
		{"TwoHours", 2 * 60 * 60 * 1000, 4, "2h"},
		{"DaysHoursMinutes", (26*60 + 35) * 60 * 1000, 2, "1d 2h 35m"},
		{"SubMinute", 42 * 1000, 1, "0m"},
		{"MinutesOnly", 17 * 60 * 1000, 3, "17m"},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			svc, tickets := newSummaryFixture(t)
			tickets.resolutionAvg = testCase.avg
			tickets.resolutionCount = testCase.count

			report, err := svc.AverageResolutionTime(context.Background(), &qa, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, testCase.avg, report.AvgMillis)
			assert.Equal(t, testCase.readable, report.AvgReadable)
			assert.Equal(t, testCase.count, report.Count)
		})
	}
}

func Test_AverageResolutionTime_Empty_Set_Uses_Sentinel(t *testing.T) {
	t.Parallel()

	svc, _ := newSummaryFixture(t)

	report, err := svc.AverageResolutionTime(context.Background(), &qa, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), report.AvgMillis)
	assert.Equal(t, "-", report.AvgReadable)
	assert.Equal(t, 0, report.Count)
}
