package domain

import "time"

// StaffMember models a support team member.
type StaffMember struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Roles        RoleSet
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
