package domain

import "time"

// ChatStatusChange is an immutable audit entry for a status update.
type ChatStatusChange struct {
	ID        string
	ChatID    string
	ChangedBy string
	OldStatus ChatStatus
	NewStatus ChatStatus
	CreatedAt time.Time
}
