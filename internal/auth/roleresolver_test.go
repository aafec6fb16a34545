package auth

import (
	"testing"

	"github.com/spec-kit/campusdesk/internal/domain"
	apperrors "github.com/spec-kit/campusdesk/pkg/util/errorutil"
)

func TestRoleResolverResolve(t *testing.T) {
	resolver := NewRoleResolver("@aimt.ac.in")
	technician := domain.RoleTechnician
	student := domain.RoleStudent

	tests := []struct {
		name     string
		email    string
		override *domain.Role
		want     domain.Role
		wantCode string
	}{
		{name: "student pattern", email: "bba2023_rahul@aimt.ac.in", want: domain.RoleStudent},
		{name: "student pattern mixed case", email: "BBA2023_Rahul@AIMT.ac.in", want: domain.RoleStudent},
		{name: "student with dotted name", email: "mba2024_priya.k@aimt.ac.in", want: domain.RoleStudent},
		{name: "faculty pattern", email: "anita.sharma@aimt.ac.in", want: domain.RoleFaculty},
		{name: "faculty single name", email: "registrar@aimt.ac.in", want: domain.RoleFaculty},
		{name: "unresolved digits", email: "someone123@aimt.ac.in", wantCode: apperrors.CodeRoleUnresolved},
		{name: "unresolved long prefix", email: "abcdef2023_rahul@aimt.ac.in", wantCode: apperrors.CodeRoleUnresolved},
		{name: "override wins over pattern", email: "anita.sharma@aimt.ac.in", override: &technician, want: domain.RoleTechnician},
		{name: "override on unresolved", email: "someone123@aimt.ac.in", override: &student, want: domain.RoleStudent},
		{name: "foreign domain", email: "anita.sharma@gmail.com", wantCode: apperrors.CodeDomainRejected},
		{name: "domain checked before override", email: "x@gmail.com", override: &technician, wantCode: apperrors.CodeDomainRejected},
		{name: "lookalike domain", email: "anita@evil-aimt.ac.in.example", wantCode: apperrors.CodeDomainRejected},
		{name: "empty local part", email: "@aimt.ac.in", wantCode: apperrors.CodeDomainRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolver.Resolve(tt.email, tt.override)
			if tt.wantCode != "" {
				if !apperrors.HasCode(err, tt.wantCode) {
					t.Fatalf("Resolve(%q) error = %v, want code %s", tt.email, err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) unexpected error: %v", tt.email, err)
			}
			if got != tt.want {
				t.Fatalf("Resolve(%q) = %s, want %s", tt.email, got, tt.want)
			}
		})
	}
}

func TestRoleResolverCustomRules(t *testing.T) {
	resolver := NewRoleResolver("example.edu", PatternRule(domain.RoleTechnician, `^tech\.`))

	got, err := resolver.Resolve("tech.ravi@example.edu", nil)
	if err != nil || got != domain.RoleTechnician {
		t.Fatalf("Resolve = %s, %v", got, err)
	}
	if _, err := resolver.Resolve("anita.sharma@example.edu", nil); !apperrors.HasCode(err, apperrors.CodeRoleUnresolved) {
		t.Fatalf("expected unresolved with custom rules, got %v", err)
	}
}
