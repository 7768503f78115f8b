package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/notify"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/repository"
)

// NotificationService turns domain events into emails and webhook posts.
type NotificationService struct {
	mailer  notify.Mailer
	webhook notify.Webhook
	users   repository.UserRepository
	staff   repository.StaffRepository
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NotificationDependencies bundles collaborators for notifications.
type NotificationDependencies struct {
	Mailer    notify.Mailer
	Webhook   notify.Webhook
	UserRepo  repository.UserRepository
	StaffRepo repository.StaffRepository
	Metrics   *observability.Metrics
	Logger    *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		mailer:  deps.Mailer,
		webhook: deps.Webhook,
		users:   deps.UserRepo,
		staff:   deps.StaffRepo,
		metrics: deps.Metrics,
		logger:  logger,
	}
}

// Handle delivers notifications for one event. Email and webhook failures are joined.
func (n *NotificationService) Handle(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type), zap.String("resource_id", event.ResourceID))

	var errs []error
	switch payload := event.Payload.(type) {
	case events.ChatCreatedPayload:
		if event.Actor.Type == domain.SubjectTypeSupport {
			errs = append(errs, n.emailUser(ctx, "chat_created", payload.UserID,
				"Support started a conversation: "+payload.Subject,
				"A member of our support team has opened a conversation with you. Sign in to reply."))
		} else {
			errs = append(errs, n.emailStaff(ctx, "chat_created", payload.AssignedTo,
				"New chat assigned: "+payload.Subject,
				fmt.Sprintf("A new chat routed to %s has been assigned to you.", payload.Role)))
		}
	case events.ChatMessageAddedPayload:
		if payload.Sender == domain.SenderSupport {
			errs = append(errs, n.emailUser(ctx, "chat_reply", payload.UserID,
				"New reply from support", payload.BodyPreview))
		} else {
			errs = append(errs, n.emailStaff(ctx, "chat_message", payload.AssignedTo,
				"New message in your chat", payload.BodyPreview))
		}
	case events.ChatStatusChangedPayload:
		errs = append(errs, n.emailUser(ctx, "chat_status", payload.UserID,
			"Your chat is now "+string(payload.NewStatus),
			fmt.Sprintf("The status of your conversation changed from %s to %s.", payload.OldStatus, payload.NewStatus)))
	}

	if n.webhook != nil {
		if err := n.webhook.Post(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (n *NotificationService) emailUser(ctx context.Context, kind, userID, subject, body string) error {
	if n.mailer == nil || n.users == nil {
		return nil
	}
	user, err := n.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user %s: %w", userID, err)
	}
	return n.send(ctx, kind, user.Email, subject, body)
}

func (n *NotificationService) emailStaff(ctx context.Context, kind, staffID, subject, body string) error {
	if n.mailer == nil || n.staff == nil {
		return nil
	}
	staff, err := n.staff.GetByID(ctx, staffID)
	if err != nil {
		return fmt.Errorf("load staff %s: %w", staffID, err)
	}
	return n.send(ctx, kind, staff.Email, subject, body)
}

func (n *NotificationService) send(ctx context.Context, kind, to, subject, body string) error {
	err := n.mailer.Send(ctx, notify.Email{To: to, Subject: subject, Body: body})
	if errors.Is(err, notify.ErrMailerDisabled) {
		return nil
	}
	n.metrics.RecordEmail(kind, err)
	return err
}
