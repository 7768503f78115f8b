package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/api/validation"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/routing"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// bind parses the JSON body into dst and runs tag validation.
func bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return validation.Struct(dst)
}

func userPrincipal(c *fiber.Ctx) (*domain.User, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	return principal.User, nil
}

func staffPrincipal(c *fiber.Ctx) (*domain.StaffMember, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	return principal.Staff, nil
}

func adminPrincipal(c *fiber.Ctx) (*domain.Admin, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Admin == nil {
		return nil, apperrors.NewUnauthorized("admin required")
	}
	return principal.Admin, nil
}

func parseBoolQuery(c *fiber.Ctx, key string) *bool {
	if val := c.Query(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return &parsed
		}
	}
	return nil
}

func parseIntQuery(c *fiber.Ctx, key string, defaultVal int) int {
	if val := c.Query(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultVal
}

// pageParams converts page/page_size into limit and offset.
func pageParams(c *fiber.Ctx) (limit, offset int) {
	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "page_size", 20)
	if pageSize > 100 {
		pageSize = 100
	}
	return pageSize, (page - 1) * pageSize
}

// parseChatFilter reads a comma separated status list. Unknown values are a 400.
func parseChatFilter(c *fiber.Ctx) (service.ChatListFilter, error) {
	var filter service.ChatListFilter
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status, err := domain.ParseChatStatus(part)
			if err != nil {
				return filter, apperrors.NewValidationError(err.Error(), map[string]any{"field": "status"})
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	filter.Limit, filter.Offset = pageParams(c)
	return filter, nil
}

func parseContactFilter(c *fiber.Ctx) service.ContactListFilter {
	filter := service.ContactListFilter{Replied: parseBoolQuery(c, "replied")}
	filter.Limit, filter.Offset = pageParams(c)
	return filter
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Phone:     user.Phone,
		Status:    string(user.Status),
		CreatedAt: user.CreatedAt,
	}
}

func staffResponse(staff *domain.StaffMember) dto.StaffResponse {
	return dto.StaffResponse{
		ID:        staff.ID,
		Name:      staff.Name,
		Email:     staff.Email,
		Roles:     staff.Roles.Strings(),
		Active:    staff.Active,
		CreatedAt: staff.CreatedAt,
	}
}

func adminResponse(admin *domain.Admin) dto.AdminResponse {
	return dto.AdminResponse{ID: admin.ID, Name: admin.Name, Email: admin.Email}
}

func staffList(list []domain.StaffMember) []dto.StaffResponse {
	resp := make([]dto.StaffResponse, 0, len(list))
	for i := range list {
		resp = append(resp, staffResponse(&list[i]))
	}
	return resp
}

// chatSummary counts unread messages written by the other side of viewer.
func chatSummary(chat *domain.ChatSession, viewer domain.SenderSide) dto.ChatSummary {
	summary := dto.ChatSummary{
		ID:         chat.ID,
		Subject:    chat.Subject,
		Role:       routing.Classify(chat.Subject),
		Status:     chat.Status,
		UserID:     chat.UserID,
		UserName:   chat.UserName,
		UserEmail:  chat.UserEmail,
		AssignedTo: chat.AssignedTo,
		StaffName:  chat.StaffName,
		Unread:     chat.UnreadFrom(viewer.Opposite()),
		CreatedAt:  chat.CreatedAt,
		UpdatedAt:  chat.UpdatedAt,
	}
	if n := len(chat.Messages); n > 0 {
		last := chat.Messages[n-1].CreatedAt
		summary.LastMessage = &last
	}
	return summary
}

func chatDetail(chat *domain.ChatSession, viewer domain.SenderSide) dto.ChatDetailResponse {
	messages := chat.Messages
	if messages == nil {
		messages = []domain.ChatMessage{}
	}
	return dto.ChatDetailResponse{ChatSummary: chatSummary(chat, viewer), Messages: messages}
}

func chatList(chats []domain.ChatSession, viewer domain.SenderSide) []dto.ChatSummary {
	items := make([]dto.ChatSummary, 0, len(chats))
	for i := range chats {
		items = append(items, chatSummary(&chats[i], viewer))
	}
	return items
}

func contactResponse(contact *domain.ContactMessage) dto.ContactResponse {
	return dto.ContactResponse{
		ID:        contact.ID,
		Name:      contact.Name,
		Email:     contact.Email,
		Phone:     contact.Phone,
		Service:   contact.Service,
		Role:      routing.Classify(contact.Service),
		Message:   contact.Message,
		Replied:   contact.Replied,
		ReplyBody: contact.ReplyBody,
		RepliedAt: contact.RepliedAt,
		RepliedBy: contact.RepliedBy,
		CreatedAt: contact.CreatedAt,
	}
}

func contactList(contacts []domain.ContactMessage) []dto.ContactResponse {
	items := make([]dto.ContactResponse, 0, len(contacts))
	for i := range contacts {
		items = append(items, contactResponse(&contacts[i]))
	}
	return items
}

func authResponse(token service.IssuedToken) dto.AuthResponse {
	return dto.AuthResponse{Token: token.Value, ExpiresAt: token.ExpiresAt}
}
