package dto

import (
	"time"

	"github.com/spec-kit/campusdesk/internal/domain"
)

// CreateInviteRequest payload. Code is generated when empty; ExpiresInHours is
// optional.
type CreateInviteRequest struct {
	Role           domain.Role `json:"role"`
	Code           string      `json:"code"`
	ExpiresInHours *int        `json:"expires_in_hours"`
}

// InviteResponse describes an invite code.
type InviteResponse struct {
	ID        string      `json:"id"`
	Code      string      `json:"code"`
	Role      domain.Role `json:"role"`
	Used      bool        `json:"used"`
	UsedBy    *string     `json:"used_by,omitempty"`
	UsedAt    *time.Time  `json:"used_at,omitempty"`
	ExpiresAt *time.Time  `json:"expires_at,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
