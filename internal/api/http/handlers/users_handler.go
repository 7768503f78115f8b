package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
)

// UsersHandler exposes the end-user side of chats.
type UsersHandler struct {
	chats *service.ChatService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(chatService *service.ChatService) *UsersHandler {
	return &UsersHandler{chats: chatService}
}

// StartChat handles POST /support-team/user-chat. The subject is classified
// and the chat is assigned to an active staff member.
func (h *UsersHandler) StartChat(c *fiber.Ctx) error {
	user, err := userPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UserChatRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	chat, err := h.chats.StartChatAsUser(c.UserContext(), user, service.UserChatInput{
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": chatDetail(chat, domain.SenderUser)})
}

// ListChats handles GET /users/chats.
func (h *UsersHandler) ListChats(c *fiber.Ctx) error {
	user, err := userPrincipal(c)
	if err != nil {
		return err
	}
	filter, err := parseChatFilter(c)
	if err != nil {
		return err
	}
	chats, err := h.chats.ListChatsForUser(c.UserContext(), user, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": chatList(chats, domain.SenderUser)})
}

// GetChat handles GET /users/chats/:chatId.
func (h *UsersHandler) GetChat(c *fiber.Ctx) error {
	user, err := userPrincipal(c)
	if err != nil {
		return err
	}
	chat, err := h.chats.GetChatForUser(c.UserContext(), user, c.Params("chatId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": chatDetail(chat, domain.SenderUser)})
}

// AddMessage handles POST /users/chats/:chatId/messages.
func (h *UsersHandler) AddMessage(c *fiber.Ctx) error {
	user, err := userPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ChatMessageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	chat, err := h.chats.AddUserMessage(c.UserContext(), user, c.Params("chatId"), req.Message)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": chatDetail(chat, domain.SenderUser)})
}

// MarkRead handles PUT /users/chats/:chatId/read.
func (h *UsersHandler) MarkRead(c *fiber.Ctx) error {
	user, err := userPrincipal(c)
	if err != nil {
		return err
	}
	marked, err := h.chats.MarkReadForUser(c.UserContext(), user, c.Params("chatId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"marked": marked}})
}
