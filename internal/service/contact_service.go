package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/notify"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/routing"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// ContactService handles contact form submissions and staff replies.
type ContactService struct {
	contacts   repository.ContactRepository
	mailer     notify.Mailer
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// ContactDependencies bundles collaborators for the contact service.
type ContactDependencies struct {
	ContactRepo repository.ContactRepository
	Mailer      notify.Mailer
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// ContactInput is a public contact form submission.
type ContactInput struct {
	Name    string
	Email   string
	Phone   string
	Service string
	Message string
}

// ContactListFilter narrows contact listings.
type ContactListFilter struct {
	Replied *bool
	Limit   int
	Offset  int
}

// ContactReplyInput is a staff reply to a contact message.
type ContactReplyInput struct {
	ContactID string
	Subject   string
	Message   string
}

// ContactReplyResult reports the recorded reply and whether the email went out.
type ContactReplyResult struct {
	Contact        *domain.ContactMessage
	EmailDelivered bool
}

// NewContactService constructs the service.
func NewContactService(deps ContactDependencies) *ContactService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContactService{
		contacts:   deps.ContactRepo,
		mailer:     deps.Mailer,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// SubmitContact stores a visitor enquiry.
func (s *ContactService) SubmitContact(ctx context.Context, input ContactInput) (*domain.ContactMessage, error) {
	body, err := normalizeBody("message", input.Message)
	if err != nil {
		return nil, err
	}
	contact := &domain.ContactMessage{
		Name:    strings.TrimSpace(input.Name),
		Email:   strings.TrimSpace(input.Email),
		Phone:   strings.TrimSpace(input.Phone),
		Service: strings.TrimSpace(input.Service),
		Message: body,
	}
	if err := s.contacts.Create(ctx, contact); err != nil {
		return nil, apperrors.MapError(err)
	}
	role := routing.Classify(contact.Service)
	s.metrics.RecordClassification("contact", role)
	publish(ctx, s.dispatcher, events.New(events.EventContactCreated, contact.ID, events.Actor{},
		events.ContactCreatedPayload{Service: contact.Service, Role: role}))
	return contact, nil
}

// ListContactsForStaff returns the contacts whose classified service the staff member holds.
func (s *ContactService) ListContactsForStaff(ctx context.Context, staff *domain.StaffMember, filter ContactListFilter) ([]domain.ContactMessage, error) {
	if staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	if len(staff.Roles.ServiceRoles()) == 0 {
		return []domain.ContactMessage{}, nil
	}
	all, err := scanAll(func(limit, offset int) ([]domain.ContactMessage, error) {
		return s.contacts.List(ctx, repository.ContactFilter{Replied: filter.Replied, Limit: limit, Offset: offset})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return paginate(routing.FilterContacts(staff, all), filter.Limit, filter.Offset), nil
}

// ListAllContacts returns every contact, for administrators.
func (s *ContactService) ListAllContacts(ctx context.Context, filter ContactListFilter) ([]domain.ContactMessage, error) {
	contacts, err := s.contacts.List(ctx, repository.ContactFilter{
		Replied: filter.Replied,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if contacts == nil {
		contacts = []domain.ContactMessage{}
	}
	return contacts, nil
}

// ReplyToContact records a staff reply and emails the sender. Delivery failures
// are logged and reported through EmailDelivered; the reply stays recorded.
func (s *ContactService) ReplyToContact(ctx context.Context, staff *domain.StaffMember, input ContactReplyInput) (*ContactReplyResult, error) {
	if staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	body, err := normalizeBody("message", input.Message)
	if err != nil {
		return nil, err
	}
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject is required", map[string]any{"field": "subject"})
	}

	contact, err := s.contacts.GetByID(ctx, input.ContactID)
	if err != nil {
		return nil, notFoundOr(err, "contact", input.ContactID)
	}
	if !routing.CanAccessContact(staff, contact) {
		s.metrics.RecordAccessDenied("contact")
		return nil, apperrors.NewDepartmentMismatch("contact", contact.ID)
	}
	if contact.Replied {
		return nil, alreadyReplied(contact.ID)
	}

	updated, err := s.contacts.MarkReplied(ctx, contact.ID, staff.ID, body)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, alreadyReplied(contact.ID)
		}
		return nil, apperrors.MapError(err)
	}

	delivered := s.sendReply(ctx, staff, updated, subject, body)
	publish(ctx, s.dispatcher, events.New(events.EventContactReplied, updated.ID, staffActor(staff.ID),
		events.ContactRepliedPayload{Email: updated.Email, EmailDelivered: delivered}))
	return &ContactReplyResult{Contact: updated, EmailDelivered: delivered}, nil
}

func (s *ContactService) sendReply(ctx context.Context, staff *domain.StaffMember, contact *domain.ContactMessage, subject, body string) bool {
	if s.mailer == nil {
		s.logger.Warn("no mailer configured; contact reply not emailed", zap.String("contact_id", contact.ID))
		return false
	}
	err := s.mailer.Send(ctx, notify.Email{
		To:      contact.Email,
		ReplyTo: staff.Email,
		Subject: subject,
		Body:    body,
	})
	s.metrics.RecordEmail("contact_reply", err)
	if err != nil {
		level := s.logger.Error
		if errors.Is(err, notify.ErrMailerDisabled) {
			level = s.logger.Warn
		}
		level("contact reply email failed",
			zap.String("contact_id", contact.ID),
			zap.String("staff_id", staff.ID),
			zap.Error(err))
		return false
	}
	return true
}

func alreadyReplied(id string) error {
	return apperrors.NewConflict("contact message already replied", map[string]any{"id": id})
}
