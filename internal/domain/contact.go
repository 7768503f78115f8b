package domain

import "time"

// ContactMessage is a visitor enquiry submitted through the public contact form.
type ContactMessage struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Service   string
	Message   string
	Replied   bool
	ReplyBody *string
	RepliedAt *time.Time
	RepliedBy *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
