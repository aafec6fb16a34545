package service

import (
	"testing"

	"github.com/spec-kit/campusdesk/internal/domain"
	apperrors "github.com/spec-kit/campusdesk/pkg/util/errorutil"
)

func TestAccessScopeTicketVisibility(t *testing.T) {
	var scope AccessScope
	techID := "tech-1"
	ticket := &domain.Ticket{ID: "t-1", ReporterID: "student-1", AssigneeID: &techID}

	cases := []struct {
		actor domain.Actor
		want  bool
	}{
		{domain.Actor{ID: "student-1", Role: domain.RoleStudent}, true},
		{domain.Actor{ID: "student-2", Role: domain.RoleStudent}, false},
		{domain.Actor{ID: "faculty-1", Role: domain.RoleFaculty}, false},
		{domain.Actor{ID: "tech-1", Role: domain.RoleTechnician}, true},
		{domain.Actor{ID: "tech-2", Role: domain.RoleTechnician}, false},
		{domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}, true},
		{domain.Actor{ID: "root", Role: domain.RoleSuperadmin}, true},
		{domain.Actor{ID: "x", Role: domain.Role("guest")}, false},
	}
	for _, tc := range cases {
		if got := scope.CanViewTicket(tc.actor, ticket); got != tc.want {
			t.Errorf("%s/%s: CanViewTicket = %v, want %v", tc.actor.Role, tc.actor.ID, got, tc.want)
		}
		if got := scope.Predicate(tc.actor)(ticket); got != tc.want {
			t.Errorf("%s/%s: Predicate = %v, want %v", tc.actor.Role, tc.actor.ID, got, tc.want)
		}
	}
	if scope.CanViewTicket(domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}, nil) {
		t.Errorf("nil ticket must not be visible")
	}
}

func TestAccessScopeTicketFilter(t *testing.T) {
	var scope AccessScope

	filter, err := scope.TicketFilter(domain.Actor{ID: "s", Role: domain.RoleStudent})
	if err != nil || filter.ReporterID == nil || *filter.ReporterID != "s" || filter.AssigneeID != nil {
		t.Fatalf("student filter %+v, err %v", filter, err)
	}
	filter, err = scope.TicketFilter(domain.Actor{ID: "t", Role: domain.RoleTechnician})
	if err != nil || filter.AssigneeID == nil || *filter.AssigneeID != "t" || filter.ReporterID != nil {
		t.Fatalf("technician filter %+v, err %v", filter, err)
	}
	filter, err = scope.TicketFilter(domain.Actor{ID: "a", Role: domain.RoleAdmin})
	if err != nil || filter.ReporterID != nil || filter.AssigneeID != nil {
		t.Fatalf("admin filter %+v, err %v", filter, err)
	}
	_, err = scope.TicketFilter(domain.Actor{ID: "g", Role: domain.Role("guest")})
	assertCode(t, err, apperrors.CodeUnauthorized)
}

func TestAccessScopeTransitions(t *testing.T) {
	var scope AccessScope
	techID := "tech-1"
	assigned := &domain.Ticket{AssigneeID: &techID}
	unassigned := &domain.Ticket{}

	cases := []struct {
		name   string
		actor  domain.Actor
		ticket *domain.Ticket
		to     domain.TicketStatus
		ok     bool
	}{
		{"admin any", domain.Actor{Role: domain.RoleAdmin}, unassigned, domain.TicketStatusClosed, true},
		{"superadmin any", domain.Actor{Role: domain.RoleSuperadmin}, unassigned, domain.TicketStatusRejected, true},
		{"assignee works", domain.Actor{ID: "tech-1", Role: domain.RoleTechnician}, assigned, domain.TicketStatusResolved, true},
		{"assignee cannot close", domain.Actor{ID: "tech-1", Role: domain.RoleTechnician}, assigned, domain.TicketStatusClosed, false},
		{"other technician", domain.Actor{ID: "tech-2", Role: domain.RoleTechnician}, assigned, domain.TicketStatusResolved, false},
		{"unassigned ticket", domain.Actor{ID: "tech-1", Role: domain.RoleTechnician}, unassigned, domain.TicketStatusInProgress, false},
		{"reporter", domain.Actor{ID: "s", Role: domain.RoleStudent}, unassigned, domain.TicketStatusClosed, false},
		{"faculty", domain.Actor{ID: "f", Role: domain.RoleFaculty}, unassigned, domain.TicketStatusResolved, false},
	}
	for _, tc := range cases {
		err := scope.CanTransition(tc.actor, tc.ticket, tc.to)
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && !apperrors.HasCode(err, apperrors.CodeUnauthorized) {
			t.Errorf("%s: expected UNAUTHORIZED, got %v", tc.name, err)
		}
	}
}

func TestAccessScopeAdministration(t *testing.T) {
	var scope AccessScope
	superadmin := domain.Actor{ID: "root", Role: domain.RoleSuperadmin}
	admin := domain.Actor{ID: "admin", Role: domain.RoleAdmin}

	if got := scope.ManagedRoles(domain.Actor{Role: domain.RoleFaculty}); got != nil {
		t.Fatalf("faculty manages nobody, got %v", got)
	}
	for _, role := range []domain.Role{domain.RoleStudent, domain.RoleFaculty, domain.RoleTechnician, domain.RoleAdmin} {
		if err := scope.CanIssueInvite(superadmin, role); err != nil {
			t.Errorf("superadmin should issue %s: %v", role, err)
		}
		if err := scope.CanSetStatus(superadmin, &domain.Account{ID: "x", Role: role}); err != nil {
			t.Errorf("superadmin should manage %s: %v", role, err)
		}
		wantAdmin := role != domain.RoleAdmin
		if got := scope.CanSetStatus(admin, &domain.Account{ID: "x", Role: role}) == nil; got != wantAdmin {
			t.Errorf("admin manages %s = %v, want %v", role, got, wantAdmin)
		}
	}
	if err := scope.CanIssueInvite(superadmin, domain.RoleSuperadmin); err != nil {
		t.Errorf("superadmin should issue superadmin codes: %v", err)
	}
	if err := scope.CanChangeRole(superadmin, &domain.Account{ID: "x", Role: domain.RoleStudent}); err != nil {
		t.Errorf("superadmin role change: %v", err)
	}
	assertCode(t, scope.CanChangeRole(admin, &domain.Account{ID: "x"}), apperrors.CodeUnauthorized)
	assertCode(t, scope.CanChangeRole(superadmin, &domain.Account{ID: "root"}), apperrors.CodeUnauthorized)
	assertCode(t, scope.CanCreateTicket(domain.Actor{Role: domain.RoleTechnician}), apperrors.CodeUnauthorized)
	assertCode(t, scope.CanAssign(domain.Actor{Role: domain.RoleFaculty}), apperrors.CodeUnauthorized)
	assertCode(t, scope.CanListAccounts(domain.Actor{Role: domain.RoleTechnician}), apperrors.CodeUnauthorized)
}
