package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campusdesk/internal/api/dto"
	"github.com/spec-kit/campusdesk/internal/service"
)

// AuthHandler exposes login, registration and the caller's own profile.
type AuthHandler struct {
	auth     *service.AuthService
	accounts *service.AccountService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, accountService *service.AccountService) *AuthHandler {
	return &AuthHandler{auth: authService, accounts: accountService}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	session, err := h.auth.Authenticate(c.UserContext(), service.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		SourceAddr: c.IP(),
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": dto.AuthResponse{
			AccountID: session.Actor.ID,
			Role:      session.Actor.Role,
			Token:     session.Token,
			ExpiresAt: session.ExpiresAt,
		},
	})
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	account, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		FullName:        req.FullName,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		InviteCode:      req.InviteCode,
		SourceAddr:      c.IP(),
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.RegisterResponse{
			AccountID: account.ID,
			Role:      account.Role,
			Status:    account.Status,
		},
	})
}

// Me handles GET /me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	account, err := h.accounts.Get(c.UserContext(), actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": accountResponse(account)})
}
