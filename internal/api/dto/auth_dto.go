package dto

import (
	"time"

	"github.com/spec-kit/campusdesk/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest payload for self-service registration.
type RegisterRequest struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	InviteCode      string `json:"invite_code"`
}

// AuthResponse is returned by a successful login.
type AuthResponse struct {
	AccountID string      `json:"account_id"`
	Role      domain.Role `json:"role"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// RegisterResponse reports the role an account was registered with. New accounts
// wait for approval, so no session is issued.
type RegisterResponse struct {
	AccountID string               `json:"account_id"`
	Role      domain.Role          `json:"role"`
	Status    domain.AccountStatus `json:"status"`
}
