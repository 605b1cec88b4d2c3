package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/helpdex/helpdex/internal/domain"
	"github.com/helpdex/helpdex/internal/events"
	"github.com/helpdex/helpdex/internal/mail"
	"github.com/helpdex/helpdex/internal/repository"
	apperrors "github.com/helpdex/helpdex/pkg/util"
)

// NotificationService reacts to lifecycle events by pairing an email dispatch
// with a persisted notification record. All of it is best-effort: failures
// are logged and swallowed, never surfaced to the transition that emitted
// the event.
type NotificationService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	mailer        mail.Mailer
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	timeout       time.Duration
}

// NotificationDependencies bundles collaborators.
type NotificationDependencies struct {
	NotificationRepo repository.NotificationRepository
	UserRepo         repository.UserRepository
	Mailer           mail.Mailer
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
	Timeout          time.Duration
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NotificationService{
		notifications: deps.NotificationRepo,
		users:         deps.UserRepo,
		mailer:        deps.Mailer,
		dispatcher:    deps.Dispatcher,
		logger:        deps.Logger,
		timeout:       timeout,
	}
}

// RegisterHandlers subscribes to the lifecycle events that notify someone.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleAssigned)
}

// handleStatusChanged notifies the creator when their ticket is resolved or
// closed, and the assigned developer when it is reopened.
func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}

	switch payload.NewStatus {
	case domain.StatusResolved, domain.StatusClosed:
		message := fmt.Sprintf("Your ticket %q is now %s.", payload.TicketTitle, payload.NewStatus)
		n.notify(ctx, payload.CreatedBy, event.TicketID, message)
	case domain.StatusReopened:
		if payload.AssignedTo == nil {
			return nil
		}
		message := fmt.Sprintf("Ticket %q has been reopened.", payload.TicketTitle)
		n.notify(ctx, *payload.AssignedTo, event.TicketID, message)
	}
	return nil
}

// handleAssigned notifies the developer who was just assigned.
func (n *NotificationService) handleAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return nil
	}
	message := fmt.Sprintf("You have been assigned ticket %q.", payload.TicketTitle)
	n.notify(ctx, payload.DeveloperID, event.TicketID, message)
	return nil
}

// notify performs the email + record pair under a bounded timeout. Errors
// are logged warnings only: the transition is already committed.
func (n *NotificationService) notify(ctx context.Context, userID, ticketID, message string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	recipient, err := n.users.GetByID(ctx, userID)
	if err != nil {
		n.logger.Warn("notification recipient lookup failed",
			zap.String("user_id", userID),
			zap.String("ticket_id", ticketID),
			zap.Error(err))
		return
	}

	if n.mailer != nil {
		if err := n.mailer.Send(ctx, recipient.Email, "HelpDex ticket update", message); err != nil {
			n.logger.Warn("notification email failed",
				zap.String("user_id", userID),
				zap.String("ticket_id", ticketID),
				zap.Error(err))
		}
	}

	record := &domain.Notification{
		TicketID: ticketID,
		UserID:   userID,
		Message:  message,
	}
	if err := n.notifications.Create(ctx, record); err != nil {
		n.logger.Warn("notification record failed",
			zap.String("user_id", userID),
			zap.String("ticket_id", ticketID),
			zap.Error(err))
	}
}

// ListForUser returns the actor's notifications, newest first.
func (n *NotificationService) ListForUser(ctx context.Context, actor *domain.User, limit int) ([]domain.Notification, error) {
	items, err := n.notifications.ListByUser(ctx, actor.ID, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// MarkRead flags one of the actor's notifications as read.
func (n *NotificationService) MarkRead(ctx context.Context, actor *domain.User, notificationID string) error {
	if err := n.notifications.MarkRead(ctx, notificationID, actor.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("notification", map[string]any{"notification_id": notificationID})
		}
		return apperrors.MapError(err)
	}
	return nil
}
