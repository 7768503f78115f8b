package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// ChatMessageRequest appends one message to a chat.
type ChatMessageRequest struct {
	Message string `json:"message" validate:"required"`
}

// ChatStatusRequest moves a chat to another lifecycle state.
type ChatStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UserChatRequest opens a chat from the end-user side.
type UserChatRequest struct {
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required"`
}

// StaffChatRequest opens a chat from the support side.
type StaffChatRequest struct {
	UserID  string `json:"userId" validate:"required"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required"`
}

// ChatSummary is a list entry.
type ChatSummary struct {
	ID          string            `json:"id"`
	Subject     string            `json:"subject"`
	Role        domain.RoleTag    `json:"role"`
	Status      domain.ChatStatus `json:"status"`
	UserID      string            `json:"user_id"`
	UserName    string            `json:"user_name,omitempty"`
	UserEmail   string            `json:"user_email,omitempty"`
	AssignedTo  string            `json:"assigned_to"`
	StaffName   string            `json:"staff_name,omitempty"`
	Unread      int               `json:"unread"`
	LastMessage *time.Time        `json:"last_message_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// ChatDetailResponse includes the full message log.
type ChatDetailResponse struct {
	ChatSummary
	Messages []domain.ChatMessage `json:"messages"`
}

// ChatStatusChangeResponse is one audit entry.
type ChatStatusChangeResponse struct {
	ID        string            `json:"id"`
	ChangedBy string            `json:"changed_by"`
	OldStatus domain.ChatStatus `json:"old_status"`
	NewStatus domain.ChatStatus `json:"new_status"`
	CreatedAt time.Time         `json:"created_at"`
}
