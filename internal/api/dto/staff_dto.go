package dto

import "time"

// StaffCreateRequest payload for admin-created staff accounts.
type StaffCreateRequest struct {
	Name     string   `json:"name" validate:"required,max=120"`
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=8"`
	Roles    []string `json:"roles" validate:"required,min=1,dive,roletag"`
}

// StaffUpdateRequest payload; omitted fields are left unchanged.
type StaffUpdateRequest struct {
	Name   *string  `json:"name" validate:"omitempty,max=120"`
	Email  *string  `json:"email" validate:"omitempty,email"`
	Roles  []string `json:"roles" validate:"omitempty,min=1,dive,roletag"`
	Active *bool    `json:"active"`
}

// StaffProfileRequest payload for self-service edits.
type StaffProfileRequest struct {
	Name  string `json:"name" validate:"omitempty,max=120"`
	Email string `json:"email" validate:"omitempty,email"`
}

// StaffResponse is the public view of a staff member.
type StaffResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// AdminResponse is the public view of an administrator.
type AdminResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
