package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/routing"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// ChatService coordinates chat sessions between end-users and support staff.
type ChatService struct {
	chats      repository.ChatRepository
	history    repository.ChatHistoryRepository
	users      repository.UserRepository
	assignment *AssignmentService
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// ChatDependencies bundles collaborators for the chat service.
type ChatDependencies struct {
	ChatRepo    repository.ChatRepository
	HistoryRepo repository.ChatHistoryRepository
	UserRepo    repository.UserRepository
	Assignment  *AssignmentService
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// ChatListFilter narrows chat listings.
type ChatListFilter struct {
	Statuses []domain.ChatStatus
	Limit    int
	Offset   int
}

// StaffChatInput opens a chat on behalf of a staff member.
type StaffChatInput struct {
	UserID  string
	Subject string
	Message string
}

// UserChatInput opens a chat on behalf of an end-user.
type UserChatInput struct {
	Subject string
	Message string
}

// NewChatService constructs the service.
func NewChatService(deps ChatDependencies) *ChatService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		chats:      deps.ChatRepo,
		history:    deps.HistoryRepo,
		users:      deps.UserRepo,
		assignment: deps.Assignment,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// ListChatsForStaff returns the chats visible to staff: their own assignments
// for live_support holders, otherwise chats whose subject maps to a held role.
func (s *ChatService) ListChatsForStaff(ctx context.Context, staff *domain.StaffMember, filter ChatListFilter) ([]domain.ChatSession, error) {
	if staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	scope := routing.ChatScopeFor(staff)
	all, err := scanAll(func(limit, offset int) ([]domain.ChatSession, error) {
		return s.chats.List(ctx, repository.ChatFilter{
			AssignedTo: scope.AssignedTo,
			Statuses:   filter.Statuses,
			ByCreation: true,
			Limit:      limit,
			Offset:     offset,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	visible := routing.FilterChats(staff, all)
	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].UpdatedAt.After(visible[j].UpdatedAt)
	})
	return paginate(visible, filter.Limit, filter.Offset), nil
}

// ListAllChats returns chats without routing restrictions, for administrators.
func (s *ChatService) ListAllChats(ctx context.Context, filter ChatListFilter) ([]domain.ChatSession, error) {
	chats, err := s.chats.List(ctx, repository.ChatFilter{
		Statuses: filter.Statuses,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if chats == nil {
		chats = []domain.ChatSession{}
	}
	return chats, nil
}

// GetChatForStaff loads a chat after the access check.
func (s *ChatService) GetChatForStaff(ctx context.Context, staff *domain.StaffMember, chatID string) (*domain.ChatSession, error) {
	if staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, notFoundOr(err, "chat", chatID)
	}
	if !routing.CanAccessChat(staff, chat) {
		s.metrics.RecordAccessDenied("chat")
		return nil, apperrors.NewDepartmentMismatch("chat", chat.ID)
	}
	return chat, nil
}

// AddStaffMessage appends a support message. Closed chats still accept messages.
func (s *ChatService) AddStaffMessage(ctx context.Context, staff *domain.StaffMember, chatID, body string) (*domain.ChatSession, error) {
	text, err := normalizeBody("message", body)
	if err != nil {
		return nil, err
	}
	chat, err := s.GetChatForStaff(ctx, staff, chatID)
	if err != nil {
		return nil, err
	}
	return s.appendMessage(ctx, chat, domain.SenderSupport, staff.ID, text, staffActor(staff.ID))
}

// UpdateStatus moves a chat to any lifecycle state and records the change.
// The raw status is validated before the chat is loaded.
func (s *ChatService) UpdateStatus(ctx context.Context, staff *domain.StaffMember, chatID, rawStatus string) (*domain.ChatSession, error) {
	status, err := domain.ParseChatStatus(rawStatus)
	if err != nil {
		return nil, apperrors.NewValidationError("status must be one of open, resolved, closed",
			map[string]any{"field": "status", "value": rawStatus})
	}
	chat, err := s.GetChatForStaff(ctx, staff, chatID)
	if err != nil {
		return nil, err
	}
	change := &domain.ChatStatusChange{
		ChatID:    chat.ID,
		ChangedBy: staff.ID,
		NewStatus: status,
	}
	if err := s.chats.UpdateStatus(ctx, change); err != nil {
		return nil, notFoundOr(err, "chat", chat.ID)
	}
	chat.Status = status
	chat.UpdatedAt = change.CreatedAt
	publish(ctx, s.dispatcher, events.New(events.EventChatStatusChanged, chat.ID, staffActor(staff.ID),
		events.ChatStatusChangedPayload{UserID: chat.UserID, OldStatus: change.OldStatus, NewStatus: status}))
	return chat, nil
}

// MarkReadForStaff flags the user's messages as read.
func (s *ChatService) MarkReadForStaff(ctx context.Context, staff *domain.StaffMember, chatID string) (int, error) {
	chat, err := s.GetChatForStaff(ctx, staff, chatID)
	if err != nil {
		return 0, err
	}
	changed, err := s.chats.MarkRead(ctx, chat.ID, domain.SenderUser)
	if err != nil {
		return 0, notFoundOr(err, "chat", chat.ID)
	}
	return changed, nil
}

// ListHistory returns status changes for a chat the staff member can access.
func (s *ChatService) ListHistory(ctx context.Context, staff *domain.StaffMember, chatID string) ([]domain.ChatStatusChange, error) {
	chat, err := s.GetChatForStaff(ctx, staff, chatID)
	if err != nil {
		return nil, err
	}
	if s.history == nil {
		return []domain.ChatStatusChange{}, nil
	}
	history, err := s.history.ListByChat(ctx, chat.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if history == nil {
		history = []domain.ChatStatusChange{}
	}
	return history, nil
}

// StartChatAsStaff opens a chat with an end-user, assigned to the initiating member.
// The subject must route to a role the member holds so the chat stays visible to them.
func (s *ChatService) StartChatAsStaff(ctx context.Context, staff *domain.StaffMember, input StaffChatInput) (*domain.ChatSession, error) {
	if staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	text, err := normalizeBody("message", input.Message)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, notFoundOr(err, "user", input.UserID)
	}
	chat := &domain.ChatSession{
		UserID:     user.ID,
		AssignedTo: staff.ID,
		Subject:    strings.TrimSpace(input.Subject),
		Status:     domain.ChatStatusOpen,
	}
	if !routing.CanAccessChat(staff, chat) {
		s.metrics.RecordAccessDenied("chat")
		return nil, apperrors.NewDepartmentMismatch("chat", "")
	}
	chat.Messages = []domain.ChatMessage{s.message(domain.SenderSupport, staff.ID, text)}
	return s.create(ctx, chat, staffActor(staff.ID))
}

// StartChatAsUser opens a chat for an end-user and routes it by subject.
func (s *ChatService) StartChatAsUser(ctx context.Context, user *domain.User, input UserChatInput) (*domain.ChatSession, error) {
	if user == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	text, err := normalizeBody("message", input.Message)
	if err != nil {
		return nil, err
	}
	subject := strings.TrimSpace(input.Subject)
	tag := routing.Classify(subject)
	assignee, err := s.assignment.PickAssignee(ctx, user.ID+subject, tag)
	if err != nil {
		return nil, err
	}
	chat := &domain.ChatSession{
		UserID:     user.ID,
		AssignedTo: assignee.ID,
		Subject:    subject,
		Status:     domain.ChatStatusOpen,
		Messages:   []domain.ChatMessage{s.message(domain.SenderUser, user.ID, text)},
	}
	return s.create(ctx, chat, userActor(user.ID))
}

// ListChatsForUser returns the caller's own chats.
func (s *ChatService) ListChatsForUser(ctx context.Context, user *domain.User, filter ChatListFilter) ([]domain.ChatSession, error) {
	if user == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	chats, err := s.chats.List(ctx, repository.ChatFilter{
		UserID:   &user.ID,
		Statuses: filter.Statuses,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if chats == nil {
		chats = []domain.ChatSession{}
	}
	return chats, nil
}

// GetChatForUser loads a chat owned by user. Chats owned by others are reported as missing.
func (s *ChatService) GetChatForUser(ctx context.Context, user *domain.User, chatID string) (*domain.ChatSession, error) {
	if user == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, notFoundOr(err, "chat", chatID)
	}
	if chat.UserID != user.ID {
		return nil, apperrors.NewNotFound("chat", map[string]any{"id": chatID})
	}
	return chat, nil
}

// AddUserMessage appends an end-user message to their own chat.
func (s *ChatService) AddUserMessage(ctx context.Context, user *domain.User, chatID, body string) (*domain.ChatSession, error) {
	text, err := normalizeBody("message", body)
	if err != nil {
		return nil, err
	}
	chat, err := s.GetChatForUser(ctx, user, chatID)
	if err != nil {
		return nil, err
	}
	return s.appendMessage(ctx, chat, domain.SenderUser, user.ID, text, userActor(user.ID))
}

// MarkReadForUser flags support messages as read.
func (s *ChatService) MarkReadForUser(ctx context.Context, user *domain.User, chatID string) (int, error) {
	chat, err := s.GetChatForUser(ctx, user, chatID)
	if err != nil {
		return 0, err
	}
	changed, err := s.chats.MarkRead(ctx, chat.ID, domain.SenderSupport)
	if err != nil {
		return 0, notFoundOr(err, "chat", chat.ID)
	}
	return changed, nil
}

func (s *ChatService) message(sender domain.SenderSide, senderID, body string) domain.ChatMessage {
	return domain.ChatMessage{
		Sender:    sender,
		SenderID:  senderID,
		Body:      body,
		CreatedAt: s.now().UTC(),
	}
}

func (s *ChatService) create(ctx context.Context, chat *domain.ChatSession, actor events.Actor) (*domain.ChatSession, error) {
	if err := s.chats.Create(ctx, chat); err != nil {
		return nil, apperrors.MapError(err)
	}
	role := routing.Classify(chat.Subject)
	s.metrics.RecordClassification("chat", role)
	publish(ctx, s.dispatcher, events.New(events.EventChatCreated, chat.ID, actor, events.ChatCreatedPayload{
		UserID:     chat.UserID,
		AssignedTo: chat.AssignedTo,
		Subject:    chat.Subject,
		Role:       role,
	}))
	return s.reload(ctx, chat)
}

func (s *ChatService) appendMessage(ctx context.Context, chat *domain.ChatSession, sender domain.SenderSide, senderID, body string, actor events.Actor) (*domain.ChatSession, error) {
	msg := s.message(sender, senderID, body)
	if err := s.chats.AppendMessage(ctx, chat.ID, msg); err != nil {
		return nil, notFoundOr(err, "chat", chat.ID)
	}
	publish(ctx, s.dispatcher, events.New(events.EventChatMessageAdded, chat.ID, actor, events.ChatMessageAddedPayload{
		UserID:      chat.UserID,
		AssignedTo:  chat.AssignedTo,
		Sender:      sender,
		BodyPreview: events.Preview(body),
	}))
	return s.reload(ctx, chat)
}

// reload re-reads a chat to pick up the stored log and display fields.
func (s *ChatService) reload(ctx context.Context, chat *domain.ChatSession) (*domain.ChatSession, error) {
	fresh, err := s.chats.GetByID(ctx, chat.ID)
	if err != nil {
		s.logger.Warn("reload chat after write failed", zap.String("chat_id", chat.ID), zap.Error(err))
		return chat, nil
	}
	return fresh, nil
}
