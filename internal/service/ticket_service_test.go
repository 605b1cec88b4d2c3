package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helpdex/helpdex/internal/domain"
	"github.com/helpdex/helpdex/internal/events"
	"github.com/helpdex/helpdex/internal/service"
)

var (
	client    = domain.User{ID: "user-client", Name: "Cleo Client", Email: "cleo@example.com", Role: domain.RoleClient}
	otherUser = domain.User{ID: "user-other", Name: "Odin Other", Email: "odin@example.com", Role: domain.RoleClient}
	developer = domain.User{ID: "user-dev", Name: "Dara Dev", Email: "dara@example.com", Role: domain.RoleDeveloper}
	otherDev  = domain.User{ID: "user-dev-2", Name: "Devon Dev", Email: "devon@example.com", Role: domain.RoleDeveloper}
	qa        = domain.User{ID: "user-qa", Name: "Quinn QA", Email: "quinn@example.com", Role: domain.RoleQA}
	admin     = domain.User{ID: "user-admin", Name: "Ada Admin", Email: "ada@example.com", Role: domain.RoleAdmin}
)

type fixture struct {
	service  *service.TicketService
	tickets  *fakeTicketRepo
	comments *fakeCommentRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tickets := newFakeTicketRepo()
	comments := &fakeCommentRepo{}
	svc := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     tickets,
		CommentRepo:    comments,
		UserRepo:       newFakeUserRepo(client, otherUser, developer, otherDev, qa, admin),
		CategoryRepo:   newFakeCategoryRepo(domain.Category{ID: "cat-1", Name: "Billing"}),
		AttachmentRepo: newFakeAttachmentRepo(),
		Dispatcher:     events.NewInMemoryDispatcher(),
	})
	return &fixture{service: svc, tickets: tickets, comments: comments}
}

// seedTicket stores a ticket directly, bypassing creation rules, so tests can
// start from any lifecycle state.
func (f *fixture) seedTicket(t *testing.T, mutate func(*domain.Ticket)) *domain.Ticket {
	t.Helper()

	ticket := &domain.Ticket{
		Title:       "Printer on fire",
		Description: "It prints and also burns",
		Priority:    domain.PriorityHigh,
		Status:      domain.StatusOpen,
		CategoryID:  "cat-1",
		CreatedBy:   client.ID,
	}
	if mutate != nil {
		mutate(ticket)
	}
	require.NoError(t, f.tickets.Create(context.Background(), ticket))
	return ticket
}

func assignedTo(dev domain.User) func(*domain.Ticket) {
	return func(ticket *domain.Ticket) {
		id := dev.ID
		now := time.Now()
		ticket.AssignedTo = &id
		ticket.AssignedBy = &qa.ID
		ticket.AssignedAt = &now
		ticket.Status = domain.StatusAssigned
	}
}

func Test_CreateTicket_Opens_For_Client(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ticket, err := f.service.CreateTicket(context.Background(), &client, service.TicketCreateInput{
		Title:      "VPN down",
		Priority:   domain.PriorityUrgent,
		CategoryID: "cat-1",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusOpen, ticket.Status)
	assert.Equal(t, client.ID, ticket.CreatedBy)
	assert.Nil(t, ticket.AssignedTo)
}

func Test_CreateTicket_Rejects_Non_Clients(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	for _, actor := range []domain.User{developer, qa, admin} {
		_, err := f.service.CreateTicket(context.Background(), &actor, service.TicketCreateInput{
			Title:      "Nope",
			Priority:   domain.PriorityLow,
			CategoryID: "cat-1",
		})
		requireCode(t, err, "FORBIDDEN")
	}
}

func Test_UpdateStatus_Rejects_Developer_Not_Assigned(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ticket := f.seedTicket(t, assignedTo(otherDev))

	_, err := f.service.UpdateStatus(context.Background(), &developer, ticket.ID, domain.StatusInProgress)
	requireCode(t, err, "FORBIDDEN")
}

func Test_UpdateStatus_Stamps_Timestamps_Per_Transition(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ticket := f.seedTicket(t, assignedTo(developer))

	// Assigned -> In Progress stamps nothing.
	updated, err := f.service.UpdateStatus(context.Background(), &developer, ticket.ID, domain.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, updated.Status)
	assert.Nil(t, updated.ResolvedAt)

	// In Progress -> Resolved stamps resolved_at.
	updated, err = f.service.UpdateStatus(context.Background(), &developer, ticket.ID, domain.StatusResolved)
	require.NoError(t, err)
	require.NotNil(t, updated.ResolvedAt)
	assert.Nil(t, updated.ClosedAt)

	// Resolved -> Closed stamps closed_by and closed_at.
	updated, err = f.service.UpdateStatus(context.Background(), &qa, ticket.ID, domain.StatusClosed)
	require.NoError(t, err)
	require.NotNil(t, updated.ClosedAt)
	require.NotNil(t, updated.ClosedBy)
	assert.Equal(t, qa.ID, *updated.ClosedBy)

	// Closed -> Reopened stamps reopened_at, keeps the old stamps.
	updated, err = f.service.UpdateStatus(context.Background(), &qa, ticket.ID, domain.StatusReopened)
	require.NoError(t, err)
	require.NotNil(t, updated.ReopenedAt)
	assert.NotNil(t, updated.ResolvedAt)
	assert.NotNil(t, updated.ClosedAt)
}

func Test_UpdateStatus_Rejects_Illegal_Transition_With_Details(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ticket := f.seedTicket(t, nil)

	_, err := f.service.UpdateStatus(context.Background(), &qa, ticket.ID, domain.StatusClosed)
	requireCode(t, err, "INVALID_TRANSITION")
}

func Test_UpdateStatus_Rejects_Assignment_Requiring_Transition(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ticket := f.seedTicket(t, func(ticket *domain.Ticket) {
		ticket.Status = domain.StatusAcknowledged
	})

	// Acknowledged -> Assigned must go through AssignDeveloper.
	_, err := f.service.UpdateStatus(context.Background(), &qa, ticket.ID, domain.StatusAssigned)
	requireCode(t, err, "VALIDATION_FAILED")
}

func Test_UpdateStatus_Concurrent_Loser_Gets_Invalid_Transition(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ticket := f.seedTicket(t, assignedTo(developer))
	f.tickets.conflictNext = true

	_, err := f.service.UpdateStatus(context.Background(), &developer, ticket.ID, domain.StatusInProgress)
	requireCode(t, err, "INVALID_TRANSITION")
}

func Test_AssignDeveloper_Binds_And_Moves_To_Assigned(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ticket := f.seedTicket(t, func(ticket *domain.Ticket) {
		ticket.Status = domain.StatusAcknowledged
	})

	updated, err := f.service.AssignDeveloper(context.Background(), &qa, ticket.ID, developer.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusAssigned, updated.Status)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, developer.ID, *updated.AssignedTo)
	require.NotNil(t, updated.AssignedBy)
	assert.Equal(t, qa.ID, *updated.AssignedBy)
	assert.NotNil(t, updated.AssignedAt)
}

func Test_AssignDeveloper_Requires_QA(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ticket := f.seedTicket(t, nil)

	_, err := f.service.AssignDeveloper(context.Background(), &developer, ticket.ID, developer.ID)
	requireCode(t, err, "FORBIDDEN")
}

func Test_AssignDeveloper_Rejects_Locked_Ticket(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ticket := f.seedTicket(t, func(ticket *domain.Ticket) {
		ticket.Status = domain.StatusResolved
	})

	_, err := f.service.AssignDeveloper(context.Background(), &qa, ticket.ID, developer.ID)
	requireCode(t, err, "LOCKED")
}

func Test_AssignDeveloper_Rejects_Non_Developer_Assignee(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ticket := f.seedTicket(t, nil)

	_, err := f.service.AssignDeveloper(context.Background(), &qa, ticket.ID, client.ID)
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = f.service.AssignDeveloper(context.Background(), &qa, ticket.ID, "ghost")
	requireCode(t, err, "NOT_FOUND")
}

// Reassignment stays legal from Reopened; the previous developer is simply
// replaced, never cleared in between.
func Test_AssignDeveloper_Reassigns_After_Reopen(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ticket := f.seedTicket(t, func(ticket *domain.Ticket) {
		assignedTo(developer)(ticket)
		ticket.Status = domain.StatusReopened
	})

	updated, err := f.service.AssignDeveloper(context.Background(), &qa, ticket.ID, otherDev.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, otherDev.ID, *updated.AssignedTo)
}

func Test_UpdateFields_Silently_Ignores_Disallowed_Fields(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ticket := f.seedTicket(t, assignedTo(developer))

	newDescription := "Reproduced on staging"
	newPriority := domain.PriorityLow
	updated, err := f.service.UpdateFields(context.Background(), &developer, ticket.ID, service.TicketFieldPatch{
		Description: &newDescription,
		Priority:    &newPriority,
	})
	require.NoError(t, err)

	assert.Equal(t, newDescription, updated.Description)
	assert.Equal(t, domain.PriorityHigh, updated.Priority, "priority edit is not allowed for developers")
}

func Test_UpdateFields_Rejects_Locked_Ticket(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ticket := f.seedTicket(t, func(ticket *domain.Ticket) {
		ticket.Status = domain.StatusClosed
	})

	newTitle := "Renamed"
	_, err := f.service.UpdateFields(context.Background(), &client, ticket.ID, service.TicketFieldPatch{
		Title: &newTitle,
	})
	requireCode(t, err, "LOCKED")
}

func Test_UpdateFields_QA_Sets_Deadline(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ticket := f.seedTicket(t, nil)

	deadline := time.Now().Add(72 * time.Hour)
	updated, err := f.service.UpdateFields(context.Background(), &qa, ticket.ID, service.TicketFieldPatch{
		Deadline: &deadline,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Deadline)
	assert.WithinDuration(t, deadline, *updated.Deadline, time.Second)
}

func Test_AddComment_Client_Cannot_Post_Internal(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ticket := f.seedTicket(t, nil)

	_, err := f.service.AddComment(context.Background(), &client, ticket.ID, "secret note", true)
	requireCode(t, err, "FORBIDDEN")

	comment, err := f.service.AddComment(context.Background(), &client, ticket.ID, "public note", false)
	require.NoError(t, err)
	assert.False(t, comment.Internal)
}

func Test_GetTicket_Hides_Internal_Comments_From_Client(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ticket := f.seedTicket(t, assignedTo(developer))

	_, err := f.service.AddComment(context.Background(), &qa, ticket.ID, "internal triage", true)
	require.NoError(t, err)
	_, err = f.service.AddComment(context.Background(), &qa, ticket.ID, "visible reply", false)
	require.NoError(t, err)

	_, comments, err := f.service.GetTicket(context.Background(), &client, ticket.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "visible reply", comments[0].Body)

	_, comments, err = f.service.GetTicket(context.Background(), &developer, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 2)
}

func Test_GetTicket_Enforces_Visibility(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ticket := f.seedTicket(t, nil)

	_, _, err := f.service.GetTicket(context.Background(), &otherUser, ticket.ID)
	requireCode(t, err, "FORBIDDEN")

	_, _, err = f.service.GetTicket(context.Background(), &developer, ticket.ID)
	requireCode(t, err, "FORBIDDEN")

	_, _, err = f.service.GetTicket(context.Background(), &qa, ticket.ID)
	require.NoError(t, err)
}

func Test_ListTickets_Scopes_By_Role(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedTicket(t, nil)
	f.seedTicket(t, func(ticket *domain.Ticket) {
		ticket.CreatedBy = otherUser.ID
	})
	f.seedTicket(t, assignedTo(developer))

	owned, _, err := f.service.ListTickets(context.Background(), &client, service.TicketListInput{})
	require.NoError(t, err)
	assert.Len(t, owned, 2)

	assigned, _, err := f.service.ListTickets(context.Background(), &developer, service.TicketListInput{})
	require.NoError(t, err)
	assert.Len(t, assigned, 1)

	all, total, err := f.service.ListTickets(context.Background(), &qa, service.TicketListInput{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, 3, total)

	_, _, err = f.service.ListTickets(context.Background(), &admin, service.TicketListInput{})
	requireCode(t, err, "FORBIDDEN")
}

func Test_ListDevelopers_Is_QA_Only(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	developers, err := f.service.ListDevelopers(context.Background(), &qa)
	require.NoError(t, err)
	assert.Len(t, developers, 2)

	_, err = f.service.ListDevelopers(context.Background(), &client)
	requireCode(t, err, "FORBIDDEN")
}

// A broken mail relay or notification store must never fail the transition
// that triggered it.
func Test_Notification_Failure_Does_Not_Fail_Transition(t *testing.T) {
	t.Parallel()

	tickets := newFakeTicketRepo()
	dispatcher := events.NewInMemoryDispatcher()
	svc := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     tickets,
		CommentRepo:    &fakeCommentRepo{},
		UserRepo:       newFakeUserRepo(client, developer, qa),
		CategoryRepo:   newFakeCategoryRepo(domain.Category{ID: "cat-1", Name: "Billing"}),
		AttachmentRepo: newFakeAttachmentRepo(),
		Dispatcher:     dispatcher,
	})
	notifications := &fakeNotificationRepo{createErr: errFakeSend}
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: notifications,
		UserRepo:         newFakeUserRepo(client, developer, qa),
		Mailer:           &fakeMailer{sendErr: errFakeSend},
		Dispatcher:       dispatcher,
		Logger:           zap.NewNop(),
	})
	notificationService.RegisterHandlers()

	ticket := &domain.Ticket{
		Title:      "Flaky build",
		Priority:   domain.PriorityMedium,
		Status:     domain.StatusInProgress,
		CategoryID: "cat-1",
		CreatedBy:  client.ID,
	}
	assignedTo(developer)(ticket)
	ticket.Status = domain.StatusInProgress
	require.NoError(t, tickets.Create(context.Background(), ticket))

	updated, err := svc.UpdateStatus(context.Background(), &developer, ticket.ID, domain.StatusResolved)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, updated.Status)
}

func Test_Resolved_Transition_Notifies_Creator(t *testing.T) {
	t.Parallel()

	tickets := newFakeTicketRepo()
	dispatcher := events.NewInMemoryDispatcher()
	svc := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     tickets,
		CommentRepo:    &fakeCommentRepo{},
		UserRepo:       newFakeUserRepo(client, developer, qa),
		CategoryRepo:   newFakeCategoryRepo(domain.Category{ID: "cat-1", Name: "Billing"}),
		AttachmentRepo: newFakeAttachmentRepo(),
		Dispatcher:     dispatcher,
	})
	notifications := &fakeNotificationRepo{}
	mailer := &fakeMailer{}
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: notifications,
		UserRepo:         newFakeUserRepo(client, developer, qa),
		Mailer:           mailer,
		Dispatcher:       dispatcher,
		Logger:           zap.NewNop(),
	})
	notificationService.RegisterHandlers()

	ticket := &domain.Ticket{
		Title:      "Broken login",
		Priority:   domain.PriorityMedium,
		Status:     domain.StatusOpen,
		CategoryID: "cat-1",
		CreatedBy:  client.ID,
	}
	assignedTo(developer)(ticket)
	ticket.Status = domain.StatusInProgress
	require.NoError(t, tickets.Create(context.Background(), ticket))

	_, err := svc.UpdateStatus(context.Background(), &developer, ticket.ID, domain.StatusResolved)
	require.NoError(t, err)

	require.Len(t, notifications.notifications, 1)
	assert.Equal(t, client.ID, notifications.notifications[0].UserID)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, client.Email, mailer.sent[0])
}
