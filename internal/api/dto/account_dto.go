package dto

import (
	"time"

	"github.com/spec-kit/campusdesk/internal/domain"
)

// AccountResponse is the public view of an account. The password hash never leaves
// the service.
type AccountResponse struct {
	ID             string               `json:"id"`
	Email          string               `json:"email"`
	FullName       string               `json:"full_name"`
	Role           domain.Role          `json:"role"`
	Status         domain.AccountStatus `json:"status"`
	Specialization *string              `json:"specialization,omitempty"`
	Phone          *string              `json:"phone,omitempty"`
	IsOnline       bool                 `json:"is_online"`
	CreatedAt      time.Time            `json:"created_at"`
}

// CreateTechnicianRequest payload.
type CreateTechnicianRequest struct {
	FullName       string  `json:"full_name"`
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	Specialization string  `json:"specialization"`
	Phone          *string `json:"phone"`
}

// ChangeRoleRequest payload.
type ChangeRoleRequest struct {
	Role domain.Role `json:"role"`
}

// SetStatusRequest payload.
type SetStatusRequest struct {
	Status domain.AccountStatus `json:"status"`
}

// SetOnlineRequest payload.
type SetOnlineRequest struct {
	Online bool `json:"online"`
}
