package service

import (
	"context"
	"testing"

	"github.com/spec-kit/campusdesk/internal/domain"
	"github.com/spec-kit/campusdesk/internal/events"
	apperrors "github.com/spec-kit/campusdesk/pkg/util/errorutil"
)

func TestChangeRole(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	superadmin := h.seedAccount(t, "root@aimt.ac.in", domain.RoleSuperadmin, domain.AccountStatusActive)
	admin := h.seedAccount(t, "admin@aimt.ac.in", domain.RoleAdmin, domain.AccountStatusActive)
	faculty := h.seedAccount(t, "anita.sharma@aimt.ac.in", domain.RoleFaculty, domain.AccountStatusActive)

	updated, err := h.accounts.ChangeRole(ctx, superadmin, faculty.ID, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("change role: %v", err)
	}
	if updated.Role != domain.RoleAdmin {
		t.Fatalf("expected admin, got %s", updated.Role)
	}
	stored, err := h.accounts.Get(ctx, faculty.ID)
	if err != nil || stored.Role != domain.RoleAdmin {
		t.Fatalf("role not persisted: %+v, err %v", stored, err)
	}
	types := h.events.types()
	if len(types) != 1 || types[0] != events.EventAccountRoleChanged {
		t.Fatalf("expected a role change event, got %v", types)
	}

	_, err = h.accounts.ChangeRole(ctx, admin, faculty.ID, domain.RoleStudent)
	assertCode(t, err, apperrors.CodeUnauthorized)
	_, err = h.accounts.ChangeRole(ctx, superadmin, superadmin.ID, domain.RoleStudent)
	assertCode(t, err, apperrors.CodeUnauthorized)
	_, err = h.accounts.ChangeRole(ctx, superadmin, faculty.ID, domain.Role("dean"))
	assertCode(t, err, apperrors.CodeValidationFailed)
	_, err = h.accounts.ChangeRole(ctx, superadmin, "missing", domain.RoleStudent)
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestSetStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	superadmin := h.seedAccount(t, "root@aimt.ac.in", domain.RoleSuperadmin, domain.AccountStatusActive)
	otherSuper := h.seedAccount(t, "root.two@aimt.ac.in", domain.RoleSuperadmin, domain.AccountStatusActive)
	admin := h.seedAccount(t, "admin@aimt.ac.in", domain.RoleAdmin, domain.AccountStatusActive)
	otherAdmin := h.seedAccount(t, "admin.two@aimt.ac.in", domain.RoleAdmin, domain.AccountStatusActive)
	student := h.seedAccount(t, "bba2023_rahul@aimt.ac.in", domain.RoleStudent, domain.AccountStatusPending)

	approved, err := h.accounts.SetStatus(ctx, admin, student.ID, domain.AccountStatusActive)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != domain.AccountStatusActive {
		t.Fatalf("expected active, got %s", approved.Status)
	}
	if _, err := h.auth.Authenticate(ctx, LoginInput{Email: "bba2023_rahul@aimt.ac.in", Password: testPassword, SourceAddr: "a"}); err != nil {
		t.Fatalf("approved account should log in: %v", err)
	}

	if _, err := h.accounts.SetStatus(ctx, superadmin, otherAdmin.ID, domain.AccountStatusSuspended); err != nil {
		t.Fatalf("superadmin suspends admin: %v", err)
	}

	cases := []struct {
		name   string
		actor  domain.Actor
		target string
		status domain.AccountStatus
		code   string
	}{
		{"admin cannot manage admin", admin, otherAdmin.ID, domain.AccountStatusActive, apperrors.CodeUnauthorized},
		{"admin cannot manage superadmin", admin, superadmin.ID, domain.AccountStatusSuspended, apperrors.CodeUnauthorized},
		{"superadmin cannot manage superadmin", superadmin, otherSuper.ID, domain.AccountStatusSuspended, apperrors.CodeUnauthorized},
		{"no self service", admin, admin.ID, domain.AccountStatusSuspended, apperrors.CodeUnauthorized},
		{"student cannot manage", student, admin.ID, domain.AccountStatusSuspended, apperrors.CodeUnauthorized},
		{"unknown status", admin, student.ID, domain.AccountStatus("banned"), apperrors.CodeValidationFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.accounts.SetStatus(ctx, tc.actor, tc.target, tc.status)
			assertCode(t, err, tc.code)
		})
	}
}

func TestListAccountsRespectsManagedRoles(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	superadmin := h.seedAccount(t, "root@aimt.ac.in", domain.RoleSuperadmin, domain.AccountStatusActive)
	admin := h.seedAccount(t, "admin@aimt.ac.in", domain.RoleAdmin, domain.AccountStatusActive)
	student := h.seedAccount(t, "bba2023_rahul@aimt.ac.in", domain.RoleStudent, domain.AccountStatusPending)
	h.seedAccount(t, "anita.sharma@aimt.ac.in", domain.RoleFaculty, domain.AccountStatusActive)

	all, err := h.accounts.ListAccounts(ctx, superadmin, AccountListFilter{})
	if err != nil || len(all) != 4 {
		t.Fatalf("superadmin sees %d accounts, err %v", len(all), err)
	}

	managed, err := h.accounts.ListAccounts(ctx, admin, AccountListFilter{})
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if len(managed) != 2 {
		t.Fatalf("admin should see 2 accounts, got %d", len(managed))
	}

	adminRole := domain.RoleAdmin
	hidden, err := h.accounts.ListAccounts(ctx, admin, AccountListFilter{Role: &adminRole})
	if err != nil || len(hidden) != 0 {
		t.Fatalf("admin must not list admins: %d, err %v", len(hidden), err)
	}

	pending := domain.AccountStatusPending
	queue, err := h.accounts.ListAccounts(ctx, admin, AccountListFilter{Status: &pending})
	if err != nil || len(queue) != 1 || queue[0].ID != student.ID {
		t.Fatalf("unexpected approval queue %+v, err %v", queue, err)
	}

	_, err = h.accounts.ListAccounts(ctx, student, AccountListFilter{})
	assertCode(t, err, apperrors.CodeUnauthorized)
}

func TestTechnicianAvailability(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.seedAccount(t, "admin@aimt.ac.in", domain.RoleAdmin, domain.AccountStatusActive)
	online := h.seedAccount(t, "tech@aimt.ac.in", domain.RoleTechnician, domain.AccountStatusActive)
	h.seedAccount(t, "tech.two@aimt.ac.in", domain.RoleTechnician, domain.AccountStatusActive)
	student := h.seedAccount(t, "bba2023_rahul@aimt.ac.in", domain.RoleStudent, domain.AccountStatusActive)

	if err := h.accounts.SetOnline(ctx, online, true); err != nil {
		t.Fatalf("set online: %v", err)
	}
	assertCode(t, h.accounts.SetOnline(ctx, student, true), apperrors.CodeUnauthorized)

	everyone, err := h.accounts.ListTechnicians(ctx, admin, false)
	if err != nil || len(everyone) != 2 {
		t.Fatalf("expected 2 technicians, got %d (err %v)", len(everyone), err)
	}
	available, err := h.accounts.ListTechnicians(ctx, admin, true)
	if err != nil || len(available) != 1 || available[0].ID != online.ID {
		t.Fatalf("unexpected online technicians %+v (err %v)", available, err)
	}

	_, err = h.accounts.ListTechnicians(ctx, student, false)
	assertCode(t, err, apperrors.CodeUnauthorized)
}
