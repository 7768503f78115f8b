package domain

import "time"

// SubjectType differentiates the principal kinds carried in the token `type` claim.
type SubjectType string

const (
	SubjectTypeUser    SubjectType = "user"
	SubjectTypeSupport SubjectType = "support"
	SubjectTypeAdmin   SubjectType = "admin"
)

// Token represents issued authentication token metadata.
type Token struct {
	SubjectID string
	Subject   SubjectType
	ExpiresAt time.Time
	IssuedAt  time.Time
}
