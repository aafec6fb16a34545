package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/campusdesk/internal/domain"
	"github.com/spec-kit/campusdesk/internal/observability"
	"github.com/spec-kit/campusdesk/internal/repository"
	apperrors "github.com/spec-kit/campusdesk/pkg/util/errorutil"
)

const (
	inviteSuffixLength   = 6
	inviteCreateAttempts = 5
	maxInviteCodeLength  = 32
)

var invitePrefixes = map[domain.Role]string{
	domain.RoleStudent:    "STU",
	domain.RoleFaculty:    "FAC",
	domain.RoleTechnician: "TECH",
	domain.RoleAdmin:      "ADM",
	domain.RoleSuperadmin: "SUPER",
}

// InviteService is the registry of single-use, role-granting invite codes.
type InviteService struct {
	invites repository.InviteCodeRepository
	logger  *zap.Logger
	scope   AccessScope
	now     func() time.Time
}

// InviteDependencies bundles collaborators for the invite service.
type InviteDependencies struct {
	InviteRepo repository.InviteCodeRepository
	Logger     *zap.Logger
}

// IssueInviteInput describes a new code. Code is generated when empty; a nil
// ExpiresIn issues a code that never expires.
type IssueInviteInput struct {
	Role      domain.Role
	Code      string
	ExpiresIn *time.Duration
}

// NewInviteService constructs the service.
func NewInviteService(deps InviteDependencies) *InviteService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InviteService{invites: deps.InviteRepo, logger: logger, now: time.Now}
}

// NormalizeInviteCode uppercases and trims user input.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Issue creates a code for role on behalf of actor.
func (s *InviteService) Issue(ctx context.Context, actor domain.Actor, input IssueInviteInput) (*domain.InviteCode, error) {
	if _, ok := domain.ParseRole(string(input.Role)); !ok {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": input.Role})
	}
	if err := s.scope.CanIssueInvite(actor, input.Role); err != nil {
		return nil, err
	}

	invite := &domain.InviteCode{Role: input.Role, CreatedBy: &actor.ID}
	if input.ExpiresIn != nil {
		if *input.ExpiresIn <= 0 {
			return nil, apperrors.NewValidationError("expiry must be in the future", nil)
		}
		expires := s.now().Add(*input.ExpiresIn)
		invite.ExpiresAt = &expires
	}

	custom := NormalizeInviteCode(input.Code)
	if custom != "" {
		if len(custom) > maxInviteCodeLength {
			return nil, apperrors.NewValidationError("invite code too long", nil)
		}
		invite.Code = custom
		if err := s.invites.Create(ctx, invite); err != nil {
			if errors.Is(err, repository.ErrDuplicateCode) {
				return nil, apperrors.NewValidationError("invite code already exists", map[string]any{"code": custom})
			}
			return nil, apperrors.NewInternalError(err)
		}
		s.logIssued(actor, invite)
		return invite, nil
	}

	for attempt := 0; attempt < inviteCreateAttempts; attempt++ {
		suffix, err := randomString(TokenAlphabet, inviteSuffixLength)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		invite.Code = invitePrefixes[input.Role] + "-" + suffix
		err = s.invites.Create(ctx, invite)
		if err == nil {
			s.logIssued(actor, invite)
			return invite, nil
		}
		if !errors.Is(err, repository.ErrDuplicateCode) {
			return nil, apperrors.NewInternalError(err)
		}
	}
	return nil, apperrors.NewInternalError(errors.New("could not allocate a unique invite code"))
}

func (s *InviteService) logIssued(actor domain.Actor, invite *domain.InviteCode) {
	observability.SecurityEvent(s.logger, "invite_code_issued",
		zap.String("actor_id", actor.ID),
		zap.String("role", string(invite.Role)),
		zap.String("invite_id", invite.ID))
}

// Validate checks that a code exists, has not expired and is unused, without consuming it.
func (s *InviteService) Validate(ctx context.Context, code string) (*domain.InviteCode, error) {
	code = NormalizeInviteCode(code)
	if code == "" {
		return nil, apperrors.NewInviteCodeInvalid()
	}
	invite, err := s.invites.GetByCode(ctx, code)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewInviteCodeInvalid()
		}
		return nil, apperrors.NewInternalError(err)
	}
	if invite.Used {
		return nil, apperrors.NewInviteCodeUsed()
	}
	if invite.Expired(s.now()) {
		return nil, apperrors.NewInviteCodeExpired()
	}
	return invite, nil
}

// Consume marks the code used by consumerID and returns the role it grants. Of any
// number of concurrent consumers exactly one succeeds; the others get INVITE_CODE_USED.
func (s *InviteService) Consume(ctx context.Context, code, consumerID string) (domain.Role, error) {
	invite, err := s.Validate(ctx, code)
	if err != nil {
		return "", err
	}
	if err := s.invites.Consume(ctx, invite.Code, consumerID); err != nil {
		return "", mapInviteConsumeError(err)
	}
	return invite.Role, nil
}

func mapInviteConsumeError(err error) error {
	switch {
	case errors.Is(err, repository.ErrInviteCodeUsed):
		return apperrors.NewInviteCodeUsed()
	case errors.Is(err, repository.ErrInviteExpired):
		return apperrors.NewInviteCodeExpired()
	case repository.IsNotFound(err):
		return apperrors.NewInviteCodeInvalid()
	default:
		return apperrors.NewInternalError(err)
	}
}

// InviteListFilter narrows List.
type InviteListFilter struct {
	Role       *domain.Role
	UnusedOnly bool
	Limit      int
	Offset     int
}

// List returns codes visible to the actor. Admins only see codes for roles they manage.
func (s *InviteService) List(ctx context.Context, actor domain.Actor, filter InviteListFilter) ([]domain.InviteCode, error) {
	if err := s.scope.CanListAccounts(actor); err != nil {
		return nil, err
	}
	codes, err := s.invites.List(ctx, repository.InviteCodeFilter{
		Role:       filter.Role,
		UnusedOnly: filter.UnusedOnly,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if actor.Role == domain.RoleSuperadmin {
		return codes, nil
	}
	visible := codes[:0]
	for _, code := range codes {
		if s.scope.CanIssueInvite(actor, code.Role) == nil {
			visible = append(visible, code)
		}
	}
	return visible, nil
}
