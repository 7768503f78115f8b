package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/support-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventChatCreated       EventType = "chat_created"
	EventChatMessageAdded  EventType = "chat_message_added"
	EventChatStatusChanged EventType = "chat_status_changed"
	EventContactCreated    EventType = "contact_created"
	EventContactReplied    EventType = "contact_replied"
)

// AllEventTypes lists every event the services publish.
var AllEventTypes = []EventType{
	EventChatCreated,
	EventChatMessageAdded,
	EventChatStatusChanged,
	EventContactCreated,
	EventContactReplied,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type domain.SubjectType `json:"type,omitempty"`
	ID   string             `json:"id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	ResourceID string      `json:"resource_id"`
	Actor      Actor       `json:"actor"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, resourceID string, actor Actor, payload interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		ResourceID: resourceID,
		Actor:      actor,
		Timestamp:  time.Now().UTC(),
		Payload:    payload,
	}
}

// ChatCreatedPayload payload.
type ChatCreatedPayload struct {
	UserID     string         `json:"user_id"`
	AssignedTo string         `json:"assigned_to"`
	Subject    string         `json:"subject"`
	Role       domain.RoleTag `json:"role"`
}

// ChatMessageAddedPayload payload.
type ChatMessageAddedPayload struct {
	UserID      string            `json:"user_id"`
	AssignedTo  string            `json:"assigned_to"`
	Sender      domain.SenderSide `json:"sender"`
	BodyPreview string            `json:"body_preview"`
}

// ChatStatusChangedPayload payload.
type ChatStatusChangedPayload struct {
	UserID    string            `json:"user_id"`
	OldStatus domain.ChatStatus `json:"old_status"`
	NewStatus domain.ChatStatus `json:"new_status"`
}

// ContactCreatedPayload payload.
type ContactCreatedPayload struct {
	Service string         `json:"service"`
	Role    domain.RoleTag `json:"role"`
}

// ContactRepliedPayload payload.
type ContactRepliedPayload struct {
	Email          string `json:"email"`
	EmailDelivered bool   `json:"email_delivered"`
}

// Preview truncates a message body for payloads.
func Preview(body string) string {
	const max = 120
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	return string(runes[:max]) + "…"
}
