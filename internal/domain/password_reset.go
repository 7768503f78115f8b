package domain

import "time"

// PasswordReset is a pending single-use password reset for a user or staff member.
// Only a digest of the emailed token is stored.
type PasswordReset struct {
	ID          string
	SubjectType SubjectType
	SubjectID   string
	TokenDigest string
	ExpiresAt   time.Time
	UsedAt      *time.Time
	CreatedAt   time.Time
}

// Usable reports whether the reset can still be redeemed at now.
func (r *PasswordReset) Usable(now time.Time) bool {
	return r.UsedAt == nil && now.Before(r.ExpiresAt)
}
