package service_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/helpdex/helpdex/internal/domain"
	"github.com/helpdex/helpdex/internal/repository"
	apperrors "github.com/helpdex/helpdex/pkg/util"
)

// In-memory repository fakes. They mirror the contracts documented on the
// repository interfaces, including the compare-and-swap on ticket version.

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]domain.Ticket

	conflictNext bool

	resolutionAvg   int64
	resolutionCount int
	statsFrom       *time.Time
	statsTo         *time.Time
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]domain.Ticket)}
}

func (f *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	f.tickets[ticket.ID] = *ticket
	return nil
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := ticket
	return &copied, nil
}

func (f *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conflictNext {
		f.conflictNext = false
		return repository.ErrVersionConflict
	}
	stored, ok := f.tickets[ticket.ID]
	if !ok || stored.Version != ticket.Version {
		return repository.ErrVersionConflict
	}
	ticket.Version++
	ticket.UpdatedAt = time.Now()
	f.tickets[ticket.ID] = *ticket
	return nil
}

func (f *fakeTicketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range f.tickets {
		if matchScope(ticket, filter.Scope) {
			result = append(result, ticket)
		}
	}
	return result, len(result), nil
}

func (f *fakeTicketRepo) CountByStatus(_ context.Context, scope repository.TicketScope) (map[domain.Status]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[domain.Status]int)
	for _, ticket := range f.tickets {
		if matchScope(ticket, scope) {
			counts[ticket.Status]++
		}
	}
	return counts, nil
}

func (f *fakeTicketRepo) ListByDeadline(_ context.Context, scope repository.TicketScope, from, to time.Time) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range f.tickets {
		if !matchScope(ticket, scope) || ticket.Deadline == nil {
			continue
		}
		if ticket.Deadline.Before(from) || ticket.Deadline.After(to) {
			continue
		}
		result = append(result, ticket)
	}
	return result, nil
}

func (f *fakeTicketRepo) ListOverdue(_ context.Context, scope repository.TicketScope, now time.Time) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range f.tickets {
		if !matchScope(ticket, scope) || ticket.Deadline == nil {
			continue
		}
		if ticket.Status.Locked() {
			continue
		}
		if ticket.Deadline.Before(now) {
			result = append(result, ticket)
		}
	}
	return result, nil
}

func (f *fakeTicketRepo) ListRecentlyAssigned(_ context.Context, developerID string, limit int) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range f.tickets {
		if ticket.AssignedTo == nil || *ticket.AssignedTo != developerID || ticket.AssignedAt == nil {
			continue
		}
		result = append(result, ticket)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].AssignedAt.After(*result[j].AssignedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (f *fakeTicketRepo) ResolutionStats(_ context.Context, from, to *time.Time) (int64, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsFrom = from
	f.statsTo = to
	return f.resolutionAvg, f.resolutionCount, nil
}

func matchScope(ticket domain.Ticket, scope repository.TicketScope) bool {
	if scope.CreatedBy != nil && ticket.CreatedBy != *scope.CreatedBy {
		return false
	}
	if scope.AssignedTo != nil {
		if ticket.AssignedTo == nil || *ticket.AssignedTo != *scope.AssignedTo {
			return false
		}
	}
	return true
}

type fakeUserRepo struct {
	users map[string]domain.User
}

func newFakeUserRepo(users ...domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]domain.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := user
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			copied := user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	var result []domain.User
	for _, user := range f.users {
		if user.Role == role {
			result = append(result, user)
		}
	}
	return result, nil
}

type fakeCommentRepo struct {
	comments []domain.Comment
}

func (f *fakeCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	comment.CreatedAt = time.Now()
	f.comments = append(f.comments, *comment)
	return nil
}

func (f *fakeCommentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	var result []domain.Comment
	for _, comment := range f.comments {
		if comment.TicketID == ticketID {
			result = append(result, comment)
		}
	}
	return result, nil
}

type fakeCategoryRepo struct {
	categories map[string]domain.Category
}

func newFakeCategoryRepo(categories ...domain.Category) *fakeCategoryRepo {
	repo := &fakeCategoryRepo{categories: make(map[string]domain.Category)}
	for _, category := range categories {
		repo.categories[category.ID] = category
	}
	return repo
}

func (f *fakeCategoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	category, ok := f.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := category
	return &copied, nil
}

func (f *fakeCategoryRepo) List(_ context.Context) ([]domain.Category, error) {
	var result []domain.Category
	for _, category := range f.categories {
		result = append(result, category)
	}
	return result, nil
}

type fakeAttachmentRepo struct {
	linked map[string][]string
}

func newFakeAttachmentRepo() *fakeAttachmentRepo {
	return &fakeAttachmentRepo{linked: make(map[string][]string)}
}

func (f *fakeAttachmentRepo) LinkToTicket(_ context.Context, ticketID string, attachmentIDs []string) error {
	f.linked[ticketID] = append(f.linked[ticketID], attachmentIDs...)
	return nil
}

func (f *fakeAttachmentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Attachment, error) {
	var result []domain.Attachment
	for _, id := range f.linked[ticketID] {
		result = append(result, domain.Attachment{ID: id, TicketID: &ticketID})
	}
	return result, nil
}

type fakeNotificationRepo struct {
	notifications []domain.Notification
	createErr     error
}

func (f *fakeNotificationRepo) Create(_ context.Context, notification *domain.Notification) error {
	if f.createErr != nil {
		return f.createErr
	}
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	notification.SentAt = time.Now()
	f.notifications = append(f.notifications, *notification)
	return nil
}

func (f *fakeNotificationRepo) ListByUser(_ context.Context, userID string, _ int) ([]domain.Notification, error) {
	var result []domain.Notification
	for _, notification := range f.notifications {
		if notification.UserID == userID {
			result = append(result, notification)
		}
	}
	return result, nil
}

func (f *fakeNotificationRepo) MarkRead(_ context.Context, id, userID string) error {
	for i := range f.notifications {
		if f.notifications[i].ID == id && f.notifications[i].UserID == userID {
			f.notifications[i].Read = true
			return nil
		}
	}
	return pgx.ErrNoRows
}

type fakeMailer struct {
	sendErr error
	sent    []string
}

func (f *fakeMailer) Send(_ context.Context, to, _, _ string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, to)
	return nil
}

var errFakeSend = errors.New("smtp unavailable")

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	require.Equal(t, code, domainErr.Code)
}
