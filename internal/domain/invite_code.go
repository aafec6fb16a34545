package domain

import "time"

// InviteCode is a single-use credential that grants Role at registration.
type InviteCode struct {
	ID        string
	Code      string
	Role      Role
	Used      bool
	UsedBy    *string
	UsedAt    *time.Time
	CreatedBy *string
	ExpiresAt *time.Time
	CreatedAt time.Time
}

// Expired reports whether the code carries an expiry that has passed.
func (c *InviteCode) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}
