package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
)

// StaffHandler exposes the support-team endpoints. Every chat and contact
// operation passes the calling staff member to the service for the role check.
type StaffHandler struct {
	chats    *service.ChatService
	contacts *service.ContactService
	staff    *service.StaffService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(chatService *service.ChatService, contactService *service.ContactService, staffService *service.StaffService) *StaffHandler {
	return &StaffHandler{chats: chatService, contacts: contactService, staff: staffService}
}

// Profile handles GET /support-team/profile.
func (h *StaffHandler) Profile(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(staff)})
}

// UpdateProfile handles PUT /support-team/profile.
func (h *StaffHandler) UpdateProfile(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.StaffProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	updated, err := h.staff.UpdateProfile(c.UserContext(), staff, req.Name, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(updated)})
}

// ListContacts handles GET /support-team/contacts.
func (h *StaffHandler) ListContacts(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	contacts, err := h.contacts.ListContactsForStaff(c.UserContext(), staff, parseContactFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": contactList(contacts)})
}

// SendEmail handles POST /support-team/send-email.
func (h *StaffHandler) SendEmail(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ContactReplyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	result, err := h.contacts.ReplyToContact(c.UserContext(), staff, service.ContactReplyInput{
		ContactID: req.ContactID,
		Subject:   req.Subject,
		Message:   req.Message,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ContactReplyResponse{
		Contact:        contactResponse(result.Contact),
		EmailDelivered: result.EmailDelivered,
	}})
}

// ListChats handles GET /support-team/chats.
func (h *StaffHandler) ListChats(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	filter, err := parseChatFilter(c)
	if err != nil {
		return err
	}
	chats, err := h.chats.ListChatsForStaff(c.UserContext(), staff, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": chatList(chats, domain.SenderSupport)})
}

// StartChat handles POST /support-team/chats.
func (h *StaffHandler) StartChat(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.StaffChatRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	chat, err := h.chats.StartChatAsStaff(c.UserContext(), staff, service.StaffChatInput{
		UserID:  req.UserID,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": chatDetail(chat, domain.SenderSupport)})
}

// GetChat handles GET /support-team/chats/:chatId.
func (h *StaffHandler) GetChat(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	chat, err := h.chats.GetChatForStaff(c.UserContext(), staff, c.Params("chatId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": chatDetail(chat, domain.SenderSupport)})
}

// AddMessage handles POST /support-team/chats/:chatId/messages.
func (h *StaffHandler) AddMessage(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ChatMessageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	chat, err := h.chats.AddStaffMessage(c.UserContext(), staff, c.Params("chatId"), req.Message)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": chatDetail(chat, domain.SenderSupport)})
}

// UpdateStatus handles PUT /support-team/chats/:chatId/status.
func (h *StaffHandler) UpdateStatus(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ChatStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	chat, err := h.chats.UpdateStatus(c.UserContext(), staff, c.Params("chatId"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": chatSummary(chat, domain.SenderSupport)})
}

// MarkRead handles PUT /support-team/chats/:chatId/read.
func (h *StaffHandler) MarkRead(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	marked, err := h.chats.MarkReadForStaff(c.UserContext(), staff, c.Params("chatId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"marked": marked}})
}

// History handles GET /support-team/chats/:chatId/history.
func (h *StaffHandler) History(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	entries, err := h.chats.ListHistory(c.UserContext(), staff, c.Params("chatId"))
	if err != nil {
		return err
	}
	resp := make([]dto.ChatStatusChangeResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.ChatStatusChangeResponse{
			ID:        entry.ID,
			ChangedBy: entry.ChangedBy,
			OldStatus: entry.OldStatus,
			NewStatus: entry.NewStatus,
			CreatedAt: entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}
