package domain

import (
	"fmt"
	"strings"
	"time"
)

// ChatStatus enumerates chat lifecycle states. Any state may move to any other.
type ChatStatus string

const (
	ChatStatusOpen     ChatStatus = "open"
	ChatStatusResolved ChatStatus = "resolved"
	ChatStatusClosed   ChatStatus = "closed"
)

// ParseChatStatus accepts only the three lifecycle values.
func ParseChatStatus(raw string) (ChatStatus, error) {
	switch status := ChatStatus(strings.ToLower(strings.TrimSpace(raw))); status {
	case ChatStatusOpen, ChatStatusResolved, ChatStatusClosed:
		return status, nil
	default:
		return "", fmt.Errorf("invalid chat status %q", raw)
	}
}

// SenderSide tags which party wrote a chat message.
type SenderSide string

const (
	SenderUser    SenderSide = "user"
	SenderSupport SenderSide = "support"
)

// Opposite returns the other party.
func (s SenderSide) Opposite() SenderSide {
	if s == SenderUser {
		return SenderSupport
	}
	return SenderUser
}

// ChatMessage is one entry of the append-only chat log.
type ChatMessage struct {
	Sender    SenderSide `json:"sender"`
	SenderID  string     `json:"sender_id"`
	Body      string     `json:"body"`
	Read      bool       `json:"read"`
	CreatedAt time.Time  `json:"created_at"`
}

// ChatSession is a conversation between an end-user and the staff member assigned at creation.
type ChatSession struct {
	ID         string
	UserID     string
	AssignedTo string
	Subject    string
	Status     ChatStatus
	Messages   []ChatMessage
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Display fields populated on reads.
	UserName  string
	UserEmail string
	StaffName string
}

// UnreadFrom counts unread messages written by side.
func (c *ChatSession) UnreadFrom(side SenderSide) int {
	count := 0
	for _, msg := range c.Messages {
		if msg.Sender == side && !msg.Read {
			count++
		}
	}
	return count
}
