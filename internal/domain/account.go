package domain

import "time"

// Role determines what an account may see and change.
type Role string

const (
	RoleStudent    Role = "student"
	RoleFaculty    Role = "faculty"
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// Roles lists every role in ascending privilege order.
var Roles = []Role{RoleStudent, RoleFaculty, RoleTechnician, RoleAdmin, RoleSuperadmin}

// ParseRole rejects anything outside the closed role set.
func ParseRole(s string) (Role, bool) {
	for _, r := range Roles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// IsPrivileged reports whether the role administers other accounts.
func (r Role) IsPrivileged() bool {
	return r == RoleAdmin || r == RoleSuperadmin
}

// IsReporter reports whether the role files tickets and only sees its own.
func (r Role) IsReporter() bool {
	return r == RoleStudent || r == RoleFaculty
}

// AccountStatus gates login.
type AccountStatus string

const (
	AccountStatusPending   AccountStatus = "pending"
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
)

// ParseAccountStatus rejects unknown statuses.
func ParseAccountStatus(s string) (AccountStatus, bool) {
	switch AccountStatus(s) {
	case AccountStatusPending, AccountStatusActive, AccountStatusSuspended:
		return AccountStatus(s), true
	}
	return "", false
}

// Account is a member of the institution or a maintenance staff member.
type Account struct {
	ID             string
	Email          string
	FullName       string
	PasswordHash   string
	Role           Role
	Status         AccountStatus
	Specialization *string
	Phone          *string
	IsOnline       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
