package auth

import (
	"regexp"
	"strings"

	"github.com/spec-kit/campusdesk/internal/domain"
	apperrors "github.com/spec-kit/campusdesk/pkg/util/errorutil"
)

// RoleRule maps the local part of an institution email to a role.
type RoleRule interface {
	Match(localPart string) (domain.Role, bool)
}

type patternRule struct {
	role    domain.Role
	pattern *regexp.Regexp
}

func (r patternRule) Match(localPart string) (domain.Role, bool) {
	if r.pattern.MatchString(localPart) {
		return r.role, true
	}
	return "", false
}

// PatternRule builds a rule that assigns role when the local part matches expr.
func PatternRule(role domain.Role, expr string) RoleRule {
	return patternRule{role: role, pattern: regexp.MustCompile(expr)}
}

// DefaultRoleRules returns the institution's email conventions in precedence order:
// programme code + admission year + "_" + name for students, dotted lowercase names for faculty.
func DefaultRoleRules() []RoleRule {
	return []RoleRule{
		PatternRule(domain.RoleStudent, `^[a-z]{2,5}[0-9]{4}_[a-z0-9._]+$`),
		PatternRule(domain.RoleFaculty, `^[a-z]+(?:\.[a-z]+)*$`),
	}
}

// RoleResolver derives an account role from an email address and an optional
// invite-code role. It is the only place registration decides a role.
type RoleResolver struct {
	domain string
	rules  []RoleRule
}

// NewRoleResolver builds a resolver for the institution domain (e.g. "@aimt.ac.in").
// With no rules supplied DefaultRoleRules is used.
func NewRoleResolver(institutionDomain string, rules ...RoleRule) *RoleResolver {
	if len(rules) == 0 {
		rules = DefaultRoleRules()
	}
	d := strings.ToLower(strings.TrimSpace(institutionDomain))
	if !strings.HasPrefix(d, "@") {
		d = "@" + d
	}
	return &RoleResolver{domain: d, rules: rules}
}

// Domain returns the normalized institution suffix.
func (r *RoleResolver) Domain() string {
	return r.domain
}

// CheckDomain rejects addresses outside the institution.
func (r *RoleResolver) CheckDomain(email string) error {
	if _, ok := r.localPart(email); !ok {
		return apperrors.NewDomainRejected(r.domain)
	}
	return nil
}

// Resolve applies the domain check, then the override role if present, then each
// pattern rule in order. An address no rule recognises yields ROLE_UNRESOLVED.
func (r *RoleResolver) Resolve(email string, override *domain.Role) (domain.Role, error) {
	local, ok := r.localPart(email)
	if !ok {
		return "", apperrors.NewDomainRejected(r.domain)
	}
	if override != nil {
		return *override, nil
	}
	for _, rule := range r.rules {
		if role, matched := rule.Match(local); matched {
			return role, nil
		}
	}
	return "", apperrors.NewRoleUnresolved()
}

func (r *RoleResolver) localPart(email string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if !strings.HasSuffix(normalized, r.domain) {
		return "", false
	}
	local := strings.TrimSuffix(normalized, r.domain)
	if local == "" || strings.Contains(local, "@") {
		return "", false
	}
	return local, true
}
