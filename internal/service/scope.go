package service

import (
	"github.com/spec-kit/campusdesk/internal/domain"
	"github.com/spec-kit/campusdesk/internal/repository"
	apperrors "github.com/spec-kit/campusdesk/pkg/util/errorutil"
)

// AccessScope maps an actor's role to the records it may read or change. It holds
// no state; every decision is a pure function of the actor and the record.
type AccessScope struct{}

// TicketFilter returns the listing filter that restricts tickets to the actor's scope.
func (AccessScope) TicketFilter(actor domain.Actor) (repository.TicketFilter, error) {
	switch actor.Role {
	case domain.RoleStudent, domain.RoleFaculty:
		id := actor.ID
		return repository.TicketFilter{ReporterID: &id}, nil
	case domain.RoleTechnician:
		id := actor.ID
		return repository.TicketFilter{AssigneeID: &id}, nil
	case domain.RoleAdmin, domain.RoleSuperadmin:
		return repository.TicketFilter{}, nil
	default:
		return repository.TicketFilter{}, apperrors.NewUnauthorized("unknown role")
	}
}

// Predicate returns the in-memory form of TicketFilter.
func (s AccessScope) Predicate(actor domain.Actor) func(*domain.Ticket) bool {
	return func(ticket *domain.Ticket) bool {
		return s.CanViewTicket(actor, ticket)
	}
}

// CanViewTicket reports whether ticket is inside the actor's scope.
func (AccessScope) CanViewTicket(actor domain.Actor, ticket *domain.Ticket) bool {
	if ticket == nil {
		return false
	}
	switch actor.Role {
	case domain.RoleStudent, domain.RoleFaculty:
		return ticket.ReporterID == actor.ID
	case domain.RoleTechnician:
		return ticket.AssigneeID != nil && *ticket.AssigneeID == actor.ID
	case domain.RoleAdmin, domain.RoleSuperadmin:
		return true
	default:
		return false
	}
}

// CanCreateTicket admits everyone who may report problems.
func (AccessScope) CanCreateTicket(actor domain.Actor) error {
	switch actor.Role {
	case domain.RoleStudent, domain.RoleFaculty, domain.RoleAdmin, domain.RoleSuperadmin:
		return nil
	default:
		return apperrors.NewUnauthorized("this account type cannot report tickets")
	}
}

// CanTransition checks who may move a ticket. Reporters never change status,
// technicians only work tickets assigned to them and never close them, and
// admins may apply any legal transition.
func (AccessScope) CanTransition(actor domain.Actor, ticket *domain.Ticket, to domain.TicketStatus) error {
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleSuperadmin:
		return nil
	case domain.RoleTechnician:
		if ticket.AssigneeID == nil || *ticket.AssigneeID != actor.ID {
			return apperrors.NewUnauthorized("ticket is not assigned to you")
		}
		if to == domain.TicketStatusClosed {
			return apperrors.NewUnauthorized("only administrators can close tickets")
		}
		return nil
	default:
		return apperrors.NewUnauthorized("not allowed to change ticket status")
	}
}

// CanAssign admits administrators.
func (AccessScope) CanAssign(actor domain.Actor) error {
	if !actor.Role.IsPrivileged() {
		return apperrors.NewUnauthorized("only administrators can assign tickets")
	}
	return nil
}

// CanCreateTechnician admits administrators.
func (AccessScope) CanCreateTechnician(actor domain.Actor) error {
	if !actor.Role.IsPrivileged() {
		return apperrors.NewUnauthorized("only administrators can create technician accounts")
	}
	return nil
}

// CanChangeRole admits only superadmins, and never on their own account.
func (AccessScope) CanChangeRole(actor domain.Actor, target *domain.Account) error {
	if actor.Role != domain.RoleSuperadmin {
		return apperrors.NewUnauthorized("only a superadmin can change account roles")
	}
	if target.ID == actor.ID {
		return apperrors.NewUnauthorized("cannot change your own role")
	}
	return nil
}

// CanSetStatus lets superadmins manage any non-superadmin account and admins manage
// student, faculty and technician accounts.
func (s AccessScope) CanSetStatus(actor domain.Actor, target *domain.Account) error {
	if target.ID == actor.ID {
		return apperrors.NewUnauthorized("cannot change your own account status")
	}
	if !s.manages(actor.Role, target.Role) {
		return apperrors.NewUnauthorized("not allowed to manage this account")
	}
	return nil
}

// ManagedRoles lists the account roles the actor administers; nil means none.
func (AccessScope) ManagedRoles(actor domain.Actor) []domain.Role {
	switch actor.Role {
	case domain.RoleSuperadmin:
		return []domain.Role{domain.RoleStudent, domain.RoleFaculty, domain.RoleTechnician, domain.RoleAdmin}
	case domain.RoleAdmin:
		return []domain.Role{domain.RoleStudent, domain.RoleFaculty, domain.RoleTechnician}
	default:
		return nil
	}
}

func (s AccessScope) manages(actor, target domain.Role) bool {
	for _, r := range s.ManagedRoles(domain.Actor{Role: actor}) {
		if r == target {
			return true
		}
	}
	return false
}

// CanListAccounts admits administrators; what they see is bounded by ManagedRoles
// (superadmins see everyone).
func (AccessScope) CanListAccounts(actor domain.Actor) error {
	if !actor.Role.IsPrivileged() {
		return apperrors.NewUnauthorized("only administrators can list accounts")
	}
	return nil
}

// CanIssueInvite lets admins mint codes for roles they manage and superadmins mint
// codes for any role.
func (s AccessScope) CanIssueInvite(actor domain.Actor, role domain.Role) error {
	if actor.Role == domain.RoleSuperadmin {
		return nil
	}
	if actor.Role == domain.RoleAdmin && s.manages(actor.Role, role) {
		return nil
	}
	return apperrors.NewUnauthorized("not allowed to issue invite codes for this role")
}
