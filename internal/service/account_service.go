package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/campusdesk/internal/domain"
	"github.com/spec-kit/campusdesk/internal/events"
	"github.com/spec-kit/campusdesk/internal/observability"
	"github.com/spec-kit/campusdesk/internal/repository"
	apperrors "github.com/spec-kit/campusdesk/pkg/util/errorutil"
)

// AccountService administers existing accounts: roles, approval and availability.
type AccountService struct {
	accounts   repository.AccountRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	scope      AccessScope
}

// AccountDependencies bundles collaborators for the account service.
type AccountDependencies struct {
	AccountRepo repository.AccountRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// AccountListFilter narrows ListAccounts.
type AccountListFilter struct {
	Role   *domain.Role
	Status *domain.AccountStatus
	Limit  int
	Offset int
}

// NewAccountService constructs the service.
func NewAccountService(deps AccountDependencies) *AccountService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{accounts: deps.AccountRepo, dispatcher: deps.Dispatcher, logger: logger}
}

// Get loads an account by id.
func (s *AccountService) Get(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewNotFound("account", map[string]any{"id": id})
		}
		return nil, apperrors.NewInternalError(err)
	}
	return account, nil
}

// ChangeRole assigns a new role. Superadmin only, never on the caller's own account.
func (s *AccountService) ChangeRole(ctx context.Context, actor domain.Actor, accountID string, role domain.Role) (*domain.Account, error) {
	if _, ok := domain.ParseRole(string(role)); !ok {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	target, err := s.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := s.scope.CanChangeRole(actor, target); err != nil {
		return nil, err
	}
	if target.Role == role {
		return target, nil
	}
	if err := s.accounts.UpdateRole(ctx, target.ID, role); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	oldRole := target.Role
	target.Role = role
	observability.SecurityEvent(s.logger, "account_role_changed",
		zap.String("actor_id", actor.ID),
		zap.String("account_id", target.ID),
		zap.String("old_role", string(oldRole)),
		zap.String("new_role", string(role)))
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventAccountRoleChanged,
		SubjectID: target.ID,
		Actor:     actor,
		Payload:   events.AccountRoleChangedPayload{OldRole: oldRole, NewRole: role},
	})
	return target, nil
}

// SetStatus approves, suspends or reactivates an account within the actor's remit.
func (s *AccountService) SetStatus(ctx context.Context, actor domain.Actor, accountID string, status domain.AccountStatus) (*domain.Account, error) {
	if _, ok := domain.ParseAccountStatus(string(status)); !ok {
		return nil, apperrors.NewValidationError("unknown account status", map[string]any{"status": status})
	}
	target, err := s.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := s.scope.CanSetStatus(actor, target); err != nil {
		return nil, err
	}
	if target.Status == status {
		return target, nil
	}
	if err := s.accounts.UpdateStatus(ctx, target.ID, status); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	oldStatus := target.Status
	target.Status = status
	observability.SecurityEvent(s.logger, "account_status_changed",
		zap.String("actor_id", actor.ID),
		zap.String("account_id", target.ID),
		zap.String("old_status", string(oldStatus)),
		zap.String("new_status", string(status)))
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventAccountStatusSet,
		SubjectID: target.ID,
		Actor:     actor,
		Payload:   events.AccountStatusChangedPayload{OldStatus: oldStatus, NewStatus: status},
	})
	return target, nil
}

// ListAccounts returns accounts the actor administers; superadmins see every account.
func (s *AccountService) ListAccounts(ctx context.Context, actor domain.Actor, filter AccountListFilter) ([]domain.Account, error) {
	if err := s.scope.CanListAccounts(actor); err != nil {
		return nil, err
	}

	repoFilter := repository.AccountFilter{
		Status: filter.Status,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	if actor.Role != domain.RoleSuperadmin {
		repoFilter.Roles = s.scope.ManagedRoles(actor)
	}
	if filter.Role != nil {
		if repoFilter.Roles != nil && !containsRole(repoFilter.Roles, *filter.Role) {
			return []domain.Account{}, nil
		}
		repoFilter.Roles = []domain.Role{*filter.Role}
	}

	accounts, err := s.accounts.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return accounts, nil
}

// ListTechnicians returns technician accounts for assignment screens.
func (s *AccountService) ListTechnicians(ctx context.Context, actor domain.Actor, onlineOnly bool) ([]domain.Account, error) {
	if err := s.scope.CanAssign(actor); err != nil {
		return nil, err
	}
	active := domain.AccountStatusActive
	accounts, err := s.accounts.List(ctx, repository.AccountFilter{
		Roles:      []domain.Role{domain.RoleTechnician},
		Status:     &active,
		OnlineOnly: onlineOnly,
	})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return accounts, nil
}

// SetOnline toggles a technician's availability flag.
func (s *AccountService) SetOnline(ctx context.Context, actor domain.Actor, online bool) error {
	if actor.Role != domain.RoleTechnician {
		return apperrors.NewUnauthorized("only technicians have an availability status")
	}
	if err := s.accounts.SetOnline(ctx, actor.ID, online); err != nil {
		if repository.IsNotFound(err) {
			return apperrors.NewNotFound("account", nil)
		}
		return apperrors.NewInternalError(err)
	}
	return nil
}

func containsRole(roles []domain.Role, role domain.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
