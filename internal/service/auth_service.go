package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/campusdesk/internal/auth"
	"github.com/spec-kit/campusdesk/internal/config"
	"github.com/spec-kit/campusdesk/internal/domain"
	"github.com/spec-kit/campusdesk/internal/events"
	"github.com/spec-kit/campusdesk/internal/observability"
	"github.com/spec-kit/campusdesk/internal/ratelimit"
	"github.com/spec-kit/campusdesk/internal/repository"
	apperrors "github.com/spec-kit/campusdesk/pkg/util/errorutil"
)

// AuthService is the credential store: it authenticates sessions and registers accounts.
type AuthService struct {
	accounts       repository.AccountRepository
	invites        *InviteService
	limiter        *ratelimit.Limiter
	resolver       *auth.RoleResolver
	tokenMgr       *auth.TokenManager
	verifier       *auth.PasswordVerifier
	dispatcher     events.Dispatcher
	logger         *zap.Logger
	metrics        *observability.Metrics
	scope          AccessScope
	bcryptCost     int
	minPassword    int
	loginPolicy    ratelimit.Policy
	registerPolicy ratelimit.Policy
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	AccountRepo repository.AccountRepository
	Invites     *InviteService
	Limiter     *ratelimit.Limiter
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// LoginInput carries credentials and the caller's network address.
type LoginInput struct {
	Email      string
	Password   string
	SourceAddr string
}

// RegisterInput carries a self-service registration.
type RegisterInput struct {
	FullName        string
	Email           string
	Password        string
	ConfirmPassword string
	InviteCode      string
	SourceAddr      string
}

// TechnicianInput describes an account created by an administrator.
type TechnicianInput struct {
	FullName       string
	Email          string
	Password       string
	Specialization string
	Phone          *string
}

// BootstrapInput describes the operator-provisioned superadmin.
type BootstrapInput struct {
	FullName string
	Email    string
	Password string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) (*AuthService, error) {
	verifier, err := auth.NewPasswordVerifier(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	minPassword := cfg.Auth.MinPasswordLength
	if minPassword <= 0 {
		minPassword = 8
	}
	return &AuthService{
		accounts:    deps.AccountRepo,
		invites:     deps.Invites,
		limiter:     deps.Limiter,
		resolver:    auth.NewRoleResolver(cfg.Auth.InstitutionDomain),
		tokenMgr:    auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		verifier:    verifier,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		metrics:     deps.Metrics,
		bcryptCost:  cfg.Auth.BcryptCost,
		minPassword: minPassword,
		loginPolicy: ratelimit.Policy{
			Limit:  cfg.RateLimit.LoginLimit,
			Window: cfg.RateLimit.LoginWindow,
		},
		registerPolicy: ratelimit.Policy{
			Limit:  cfg.RateLimit.RegisterLimit,
			Window: cfg.RateLimit.RegisterWindow,
		},
	}, nil
}

// TokenManager exposes the JWT manager for middleware construction.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Authenticate verifies credentials and opens a session. The rate limit is checked
// before credentials are touched, and unknown accounts are indistinguishable from
// wrong passwords.
func (s *AuthService) Authenticate(ctx context.Context, input LoginInput) (domain.Session, error) {
	email := NormalizeEmail(input.Email)
	fields := []zap.Field{zap.String("email", email), zap.String("ip", input.SourceAddr)}

	limited, err := s.limiter.IsLimited(ctx, ratelimit.ActionLogin, input.SourceAddr, s.loginPolicy)
	if err != nil {
		return domain.Session{}, apperrors.NewInternalError(err)
	}
	if limited {
		observability.SecurityEvent(s.logger, "login_rate_limited", fields...)
		s.metrics.RecordAuth(ratelimit.ActionLogin, apperrors.CodeRateLimited)
		return domain.Session{}, apperrors.NewRateLimited(
			"too many login attempts, please try again later",
			int(s.loginPolicy.Window.Seconds()))
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil && !repository.IsNotFound(err) {
		return domain.Session{}, apperrors.NewInternalError(err)
	}

	hash := ""
	if account != nil {
		hash = account.PasswordHash
	}
	if email == "" || input.Password == "" || !s.verifier.Verify(hash, input.Password) {
		if recErr := s.limiter.RecordAttempt(ctx, ratelimit.ActionLogin, input.SourceAddr); recErr != nil {
			s.logger.Warn("failed to record login attempt", zap.Error(recErr))
		}
		observability.SecurityEvent(s.logger, "login_failed", fields...)
		s.metrics.RecordAuth(ratelimit.ActionLogin, apperrors.CodeInvalidCredentials)
		return domain.Session{}, apperrors.NewInvalidCredentials()
	}

	switch account.Status {
	case domain.AccountStatusActive:
	case domain.AccountStatusPending:
		s.metrics.RecordAuth(ratelimit.ActionLogin, apperrors.CodeAccountPending)
		return domain.Session{}, apperrors.NewAccountPending()
	default:
		observability.SecurityEvent(s.logger, "login_suspended", fields...)
		s.metrics.RecordAuth(ratelimit.ActionLogin, apperrors.CodeAccountSuspended)
		return domain.Session{}, apperrors.NewAccountSuspended()
	}

	if err := s.limiter.Clear(ctx, ratelimit.ActionLogin, input.SourceAddr); err != nil {
		s.logger.Warn("failed to clear login attempts", zap.Error(err))
	}

	session, err := s.tokenMgr.Issue(domain.Actor{ID: account.ID, Role: account.Role})
	if err != nil {
		return domain.Session{}, apperrors.NewInternalError(err)
	}
	observability.SecurityEvent(s.logger, "login_success",
		append(fields, zap.String("account_id", account.ID), zap.String("role", string(account.Role)))...)
	s.metrics.RecordAuth(ratelimit.ActionLogin, "success")
	return session, nil
}

// Register creates a pending account. Every attempt that passes the rate limit is
// counted against the source address, successful or not.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.Account, error) {
	account, err := s.register(ctx, input)
	if err != nil {
		code := apperrors.CodeOf(err)
		s.metrics.RecordAuth(ratelimit.ActionRegister, code)
		if code != apperrors.CodeRateLimited {
			observability.SecurityEvent(s.logger, "registration_failed",
				zap.String("email", NormalizeEmail(input.Email)),
				zap.String("ip", input.SourceAddr),
				zap.String("reason", code))
		}
		return nil, err
	}
	s.metrics.RecordAuth(ratelimit.ActionRegister, "success")
	return account, nil
}

func (s *AuthService) register(ctx context.Context, input RegisterInput) (*domain.Account, error) {
	email := NormalizeEmail(input.Email)

	limited, err := s.limiter.IsLimited(ctx, ratelimit.ActionRegister, input.SourceAddr, s.registerPolicy)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if limited {
		observability.SecurityEvent(s.logger, "registration_rate_limited",
			zap.String("email", email), zap.String("ip", input.SourceAddr))
		return nil, apperrors.NewRateLimited(
			"too many registration attempts, please try again later",
			int(s.registerPolicy.Window.Seconds()))
	}
	if err := s.limiter.RecordAttempt(ctx, ratelimit.ActionRegister, input.SourceAddr); err != nil {
		s.logger.Warn("failed to record registration attempt", zap.Error(err))
	}

	fullName := strings.TrimSpace(input.FullName)
	if fullName == "" || email == "" || input.Password == "" {
		return nil, apperrors.NewValidationError("full name, email and password are required", nil)
	}
	if err := s.resolver.CheckDomain(email); err != nil {
		return nil, err
	}
	if err := s.checkPassword(input.Password); err != nil {
		return nil, err
	}
	if input.Password != input.ConfirmPassword {
		return nil, apperrors.NewValidationError("passwords do not match", nil)
	}

	var override *domain.Role
	code := NormalizeInviteCode(input.InviteCode)
	if code != "" {
		invite, err := s.invites.Validate(ctx, code)
		if err != nil {
			return nil, err
		}
		override = &invite.Role
	}

	role, err := s.resolver.Resolve(email, override)
	if err != nil {
		return nil, err
	}

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewDuplicateEmail()
	} else if !repository.IsNotFound(err) {
		return nil, apperrors.NewInternalError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	account := &domain.Account{
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		Role:         role,
		Status:       domain.AccountStatusPending,
	}
	if code != "" {
		err = s.accounts.CreateWithInvite(ctx, account, code)
	} else {
		err = s.accounts.Create(ctx, account)
	}
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperrors.NewDuplicateEmail()
		}
		return nil, mapInviteConsumeError(err)
	}

	observability.SecurityEvent(s.logger, "registration_success",
		zap.String("account_id", account.ID),
		zap.String("email", email),
		zap.String("role", string(role)),
		zap.Bool("via_invite", code != ""),
		zap.String("ip", input.SourceAddr))
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventAccountRegistered,
		SubjectID: account.ID,
		Actor:     domain.Actor{ID: account.ID, Role: account.Role},
		Payload: events.AccountRegisteredPayload{
			Email:     account.Email,
			Role:      account.Role,
			Status:    account.Status,
			ViaInvite: code != "",
		},
	})
	return account, nil
}

// CreateTechnicianAccount provisions an active technician on behalf of an administrator.
func (s *AuthService) CreateTechnicianAccount(ctx context.Context, actor domain.Actor, input TechnicianInput) (*domain.Account, error) {
	if err := s.scope.CanCreateTechnician(actor); err != nil {
		return nil, err
	}

	email := NormalizeEmail(input.Email)
	fullName := strings.TrimSpace(input.FullName)
	specialization := strings.TrimSpace(input.Specialization)
	if fullName == "" || email == "" || specialization == "" {
		return nil, apperrors.NewValidationError("full name, email and specialization are required", nil)
	}
	if !strings.Contains(email, "@") {
		return nil, apperrors.NewValidationError("invalid email address", nil)
	}
	if err := s.checkPassword(input.Password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	account := &domain.Account{
		Email:          email,
		FullName:       fullName,
		PasswordHash:   hash,
		Role:           domain.RoleTechnician,
		Status:         domain.AccountStatusActive,
		Specialization: &specialization,
		Phone:          trimmedOrNil(input.Phone),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperrors.NewDuplicateEmail()
		}
		return nil, apperrors.NewInternalError(err)
	}

	observability.SecurityEvent(s.logger, "technician_created",
		zap.String("actor_id", actor.ID),
		zap.String("account_id", account.ID),
		zap.String("email", email))
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventAccountRegistered,
		SubjectID: account.ID,
		Actor:     actor,
		Payload: events.AccountRegisteredPayload{
			Email:  account.Email,
			Role:   account.Role,
			Status: account.Status,
		},
	})
	return account, nil
}

// BootstrapSuperadmin creates or promotes the operator-designated superadmin. It is
// only reachable from the operator CLI, never over HTTP. The boolean reports whether
// a new account was created.
func (s *AuthService) BootstrapSuperadmin(ctx context.Context, input BootstrapInput) (*domain.Account, bool, error) {
	email := NormalizeEmail(input.Email)
	fullName := strings.TrimSpace(input.FullName)
	if email == "" || !strings.Contains(email, "@") {
		return nil, false, apperrors.NewValidationError("a valid email is required", nil)
	}
	if err := s.checkPassword(input.Password); err != nil {
		return nil, false, err
	}
	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, false, apperrors.NewInternalError(err)
	}

	existing, err := s.accounts.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.accounts.UpdateRole(ctx, existing.ID, domain.RoleSuperadmin); err != nil {
			return nil, false, apperrors.NewInternalError(err)
		}
		if err := s.accounts.UpdateStatus(ctx, existing.ID, domain.AccountStatusActive); err != nil {
			return nil, false, apperrors.NewInternalError(err)
		}
		if err := s.accounts.UpdatePassword(ctx, existing.ID, hash); err != nil {
			return nil, false, apperrors.NewInternalError(err)
		}
		existing.Role = domain.RoleSuperadmin
		existing.Status = domain.AccountStatusActive
		existing.PasswordHash = hash
		observability.SecurityEvent(s.logger, "superadmin_promoted", zap.String("account_id", existing.ID))
		return existing, false, nil
	case !repository.IsNotFound(err):
		return nil, false, apperrors.NewInternalError(err)
	}

	if fullName == "" {
		fullName = "Superadmin"
	}
	account := &domain.Account{
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		Role:         domain.RoleSuperadmin,
		Status:       domain.AccountStatusActive,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, false, apperrors.NewInternalError(err)
	}
	observability.SecurityEvent(s.logger, "superadmin_created", zap.String("account_id", account.ID))
	return account, true, nil
}

func (s *AuthService) checkPassword(password string) error {
	if len(password) < s.minPassword {
		return apperrors.NewValidationError("password is too short",
			map[string]any{"min_length": s.minPassword})
	}
	return nil
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
