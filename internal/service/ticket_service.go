package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helpdex/helpdex/internal/domain"
	"github.com/helpdex/helpdex/internal/events"
	"github.com/helpdex/helpdex/internal/repository"
	apperrors "github.com/helpdex/helpdex/pkg/util"
)

// TicketService is the lifecycle engine: it authorizes and applies status
// transitions, developer assignment, role-scoped field edits and comments.
type TicketService struct {
	tickets     repository.TicketRepository
	comments    repository.CommentRepository
	users       repository.UserRepository
	categories  repository.CategoryRepository
	attachments repository.AttachmentRepository
	dispatcher  events.Dispatcher
}

// TicketDependencies bundles repositories for the ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	CommentRepo    repository.CommentRepository
	UserRepo       repository.UserRepository
	CategoryRepo   repository.CategoryRepository
	AttachmentRepo repository.AttachmentRepository
	Dispatcher     events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:     deps.TicketRepo,
		comments:    deps.CommentRepo,
		users:       deps.UserRepo,
		categories:  deps.CategoryRepo,
		attachments: deps.AttachmentRepo,
		dispatcher:  deps.Dispatcher,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title         string
	Description   string
	Priority      domain.Priority
	CategoryID    string
	AttachmentIDs []string
}

// TicketListInput describes listing parameters.
type TicketListInput struct {
	Page        int
	PageSize    int
	Search      string
	Statuses    []domain.Status
	Priorities  []domain.Priority
	CategoryID  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// TicketFieldPatch carries a partial field edit. Fields outside the actor's
// allowed set are silently ignored.
type TicketFieldPatch struct {
	Title       *string
	Description *string
	Priority    *domain.Priority
	CategoryID  *string
	Deadline    *time.Time
}

// CreateTicket files a new ticket in state Open for a client.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if actor.Role != domain.RoleClient {
		return nil, apperrors.NewForbidden("only clients can create tickets")
	}
	if strings.TrimSpace(input.Title) == "" || input.Priority == "" || input.CategoryID == "" {
		return nil, apperrors.NewValidationError("title, priority and category are required", nil)
	}
	if _, ok := domain.ParsePriority(string(input.Priority)); !ok {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
	}
	if _, err := s.categories.GetByID(ctx, input.CategoryID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("category", map[string]any{"category_id": input.CategoryID})
		}
		return nil, apperrors.MapError(err)
	}

	ticket := &domain.Ticket{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Priority:    input.Priority,
		Status:      domain.StatusOpen,
		CategoryID:  input.CategoryID,
		CreatedBy:   actor.ID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(input.AttachmentIDs) > 0 {
		if err := s.attachments.LinkToTicket(ctx, ticket.ID, input.AttachmentIDs); err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketCreatedPayload{
			Title:      ticket.Title,
			Priority:   ticket.Priority,
			CategoryID: ticket.CategoryID,
		},
	})
	return ticket, nil
}

// GetTicket fetches a ticket with its comments, applying the visibility
// filter: clients never see internal comments.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, []domain.Comment, error) {
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if !canViewTicket(actor, ticket) {
		return nil, nil, apperrors.NewForbidden("you are not authorized to view this ticket")
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return ticket, filterComments(actor, comments), nil
}

// ListTickets returns the tickets visible to the actor's role: clients see
// their own, developers the ones assigned to them, QA all of them.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.User, input TicketListInput) ([]domain.Ticket, int, error) {
	scope, err := scopeForActor(actor)
	if err != nil {
		return nil, 0, err
	}

	page := input.Page
	if page <= 0 {
		page = 1
	}
	pageSize := input.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}

	filter := repository.TicketFilter{
		Scope:       scope,
		Statuses:    input.Statuses,
		Priorities:  input.Priorities,
		CategoryID:  input.CategoryID,
		CreatedFrom: input.CreatedFrom,
		CreatedTo:   input.CreatedTo,
		Limit:       pageSize,
		Offset:      (page - 1) * pageSize,
	}
	if strings.TrimSpace(input.Search) != "" {
		search := strings.TrimSpace(input.Search)
		filter.SearchTerm = &search
	}

	tickets, total, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return tickets, total, nil
}

// UpdateStatus applies a validated role-gated transition and stamps the
// timestamp the transition names. Assignment-requiring transitions must go
// through AssignDeveloper instead.
func (s *TicketService) UpdateStatus(ctx context.Context, actor *domain.User, ticketID string, target domain.Status) (*domain.Ticket, error) {
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleDeveloper {
		if ticket.AssignedTo == nil || *ticket.AssignedTo != actor.ID {
			return nil, apperrors.NewForbidden("you are not assigned to this ticket")
		}
	}
	if !domain.IsValidTransition(ticket.Status, target, actor.Role) {
		return nil, apperrors.NewInvalidTransition(string(ticket.Status), string(target), string(actor.Role))
	}
	if domain.RequiresAssignment(ticket.Status, actor.Role) {
		return nil, apperrors.NewValidationError(
			"this transition requires a developer assignment",
			map[string]any{"current": ticket.Status, "requested": target},
		)
	}

	oldStatus := ticket.Status
	now := time.Now()
	ticket.Status = target
	switch target {
	case domain.StatusResolved:
		ticket.ResolvedAt = &now
	case domain.StatusClosed:
		actorID := actor.ID
		ticket.ClosedBy = &actorID
		ticket.ClosedAt = &now
	case domain.StatusReopened:
		ticket.ReopenedAt = &now
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, s.staleTransitionError(ctx, ticketID, oldStatus, target, actor.Role)
		}
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus:   oldStatus,
			NewStatus:   ticket.Status,
			Role:        actor.Role,
			TicketTitle: ticket.Title,
			CreatedBy:   ticket.CreatedBy,
			AssignedTo:  ticket.AssignedTo,
		},
	})
	return ticket, nil
}

// AssignDeveloper binds a developer to the ticket and forces status to
// Assigned. This is the out-of-band transition that serves the
// assignment-requiring table entries; it does not consult the table.
func (s *TicketService) AssignDeveloper(ctx context.Context, actor *domain.User, ticketID, developerID string) (*domain.Ticket, error) {
	if actor.Role != domain.RoleQA {
		return nil, apperrors.NewForbidden("only QA can assign developers")
	}
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status.Locked() {
		return nil, apperrors.NewLocked(string(ticket.Status))
	}

	developer, err := s.users.GetByID(ctx, developerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("developer", map[string]any{"developer_id": developerID})
		}
		return nil, apperrors.MapError(err)
	}
	if developer.Role != domain.RoleDeveloper {
		return nil, apperrors.NewValidationError("selected user is not a developer", map[string]any{"developer_id": developerID})
	}

	oldStatus := ticket.Status
	now := time.Now()
	actorID := actor.ID
	ticket.AssignedTo = &developer.ID
	ticket.AssignedBy = &actorID
	ticket.AssignedAt = &now
	ticket.Status = domain.StatusAssigned

	if err := s.tickets.Update(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, s.staleTransitionError(ctx, ticketID, oldStatus, domain.StatusAssigned, actor.Role)
		}
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketAssignedPayload{
			DeveloperID: developer.ID,
			AssignedBy:  actor.ID,
			TicketTitle: ticket.Title,
		},
	})
	return ticket, nil
}

// editableFields is the fixed per-role field-edit allowance.
var editableFields = map[domain.Role]map[string]bool{
	domain.RoleClient:    {"title": true, "description": true, "priority": true},
	domain.RoleQA:        {"priority": true, "category": true, "deadline": true},
	domain.RoleDeveloper: {"description": true},
	domain.RoleAdmin:     {},
}

// UpdateFields applies a partial edit. The whole request is rejected when the
// ticket is in a locked status; individual fields outside the actor's allowed
// set are dropped without error.
func (s *TicketService) UpdateFields(ctx context.Context, actor *domain.User, ticketID string, patch TicketFieldPatch) (*domain.Ticket, error) {
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !canViewTicket(actor, ticket) {
		return nil, apperrors.NewForbidden("you are not authorized to edit this ticket")
	}
	if ticket.Status.Locked() {
		return nil, apperrors.NewLocked(string(ticket.Status))
	}

	allowed := editableFields[actor.Role]
	changed := false
	if patch.Title != nil && allowed["title"] {
		if strings.TrimSpace(*patch.Title) == "" {
			return nil, apperrors.NewValidationError("title cannot be empty", nil)
		}
		ticket.Title = strings.TrimSpace(*patch.Title)
		changed = true
	}
	if patch.Description != nil && allowed["description"] {
		ticket.Description = strings.TrimSpace(*patch.Description)
		changed = true
	}
	if patch.Priority != nil && allowed["priority"] {
		if _, ok := domain.ParsePriority(string(*patch.Priority)); !ok {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *patch.Priority})
		}
		ticket.Priority = *patch.Priority
		changed = true
	}
	if patch.CategoryID != nil && allowed["category"] {
		if _, err := s.categories.GetByID(ctx, *patch.CategoryID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("category", map[string]any{"category_id": *patch.CategoryID})
			}
			return nil, apperrors.MapError(err)
		}
		ticket.CategoryID = *patch.CategoryID
		changed = true
	}
	if patch.Deadline != nil && allowed["deadline"] {
		ticket.Deadline = patch.Deadline
		changed = true
	}

	if !changed {
		return ticket, nil
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperrors.NewConflict("ticket was modified concurrently", map[string]any{"ticket_id": ticket.ID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// AddComment appends a comment. Clients may never author internal comments.
func (s *TicketService) AddComment(ctx context.Context, actor *domain.User, ticketID, body string, internal bool) (*domain.Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.NewValidationError("comment body is required", nil)
	}
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !canViewTicket(actor, ticket) {
		return nil, apperrors.NewForbidden("you are not authorized to comment on this ticket")
	}
	if internal && actor.Role == domain.RoleClient {
		return nil, apperrors.NewForbidden("clients cannot post internal comments")
	}

	comment := &domain.Comment{
		TicketID: ticket.ID,
		AuthorID: actor.ID,
		Body:     strings.TrimSpace(body),
		Internal: internal,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketCommentAddedPayload{
			CommentID: comment.ID,
			AuthorID:  comment.AuthorID,
			Internal:  comment.Internal,
		},
	})
	return comment, nil
}

// ListDevelopers returns the developer directory QA assigns from.
func (s *TicketService) ListDevelopers(ctx context.Context, actor *domain.User) ([]domain.User, error) {
	if actor.Role != domain.RoleQA {
		return nil, apperrors.NewForbidden("only QA can list developers")
	}
	developers, err := s.users.ListByRole(ctx, domain.RoleDeveloper)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return developers, nil
}

// ListCategories exposes the category directory for ticket forms.
func (s *TicketService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return categories, nil
}

// ListAttachments returns attachment metadata for a ticket the actor may view.
func (s *TicketService) ListAttachments(ctx context.Context, actor *domain.User, ticketID string) ([]domain.Attachment, error) {
	ticket, err := s.fetchTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !canViewTicket(actor, ticket) {
		return nil, apperrors.NewForbidden("you are not authorized to view this ticket")
	}
	attachments, err := s.attachments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return attachments, nil
}

func (s *TicketService) fetchTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// staleTransitionError reports a lost transition race. The current status is
// refetched so the caller sees what actually beat them.
func (s *TicketService) staleTransitionError(ctx context.Context, ticketID string, known domain.Status, target domain.Status, role domain.Role) error {
	current := known
	if fresh, err := s.tickets.GetByID(ctx, ticketID); err == nil {
		current = fresh.Status
	}
	return apperrors.NewInvalidTransition(string(current), string(target), string(role))
}

func scopeForActor(actor *domain.User) (repository.TicketScope, error) {
	switch actor.Role {
	case domain.RoleClient:
		id := actor.ID
		return repository.TicketScope{CreatedBy: &id}, nil
	case domain.RoleDeveloper:
		id := actor.ID
		return repository.TicketScope{AssignedTo: &id}, nil
	case domain.RoleQA:
		return repository.TicketScope{}, nil
	default:
		return repository.TicketScope{}, apperrors.NewForbidden("role has no ticket visibility")
	}
}

func canViewTicket(actor *domain.User, ticket *domain.Ticket) bool {
	if actor.Role == domain.RoleQA {
		return true
	}
	if ticket.CreatedBy == actor.ID {
		return true
	}
	return ticket.AssignedTo != nil && *ticket.AssignedTo == actor.ID
}

func filterComments(actor *domain.User, comments []domain.Comment) []domain.Comment {
	if actor.Role != domain.RoleClient {
		return comments
	}
	filtered := make([]domain.Comment, 0, len(comments))
	for _, comment := range comments {
		if comment.Internal {
			continue
		}
		filtered = append(filtered, comment)
	}
	return filtered
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
