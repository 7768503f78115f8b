package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// ContactRequest is the public contact form.
type ContactRequest struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"max=32"`
	Service string `json:"service" validate:"max=200"`
	Message string `json:"message" validate:"required"`
}

// ContactReplyRequest answers a contact by email.
type ContactReplyRequest struct {
	ContactID string `json:"contactId" validate:"required"`
	Subject   string `json:"subject" validate:"required,max=200"`
	Message   string `json:"message" validate:"required"`
}

// ContactResponse is the staff view of a contact.
type ContactResponse struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Phone     string         `json:"phone,omitempty"`
	Service   string         `json:"service"`
	Role      domain.RoleTag `json:"role"`
	Message   string         `json:"message"`
	Replied   bool           `json:"replied"`
	ReplyBody *string        `json:"reply_body,omitempty"`
	RepliedAt *time.Time     `json:"replied_at,omitempty"`
	RepliedBy *string        `json:"replied_by,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ContactReplyResponse reports the recorded reply.
type ContactReplyResponse struct {
	Contact        ContactResponse `json:"contact"`
	EmailDelivered bool            `json:"email_delivered"`
}
