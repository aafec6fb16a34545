package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campusdesk/internal/api/dto"
	"github.com/spec-kit/campusdesk/internal/domain"
	"github.com/spec-kit/campusdesk/internal/service"
)

// AccountsHandler exposes account administration.
type AccountsHandler struct {
	auth     *service.AuthService
	accounts *service.AccountService
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(authService *service.AuthService, accountService *service.AccountService) *AccountsHandler {
	return &AccountsHandler{auth: authService, accounts: accountService}
}

// CreateTechnician POST /accounts/technicians.
func (h *AccountsHandler) CreateTechnician(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTechnicianRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	account, err := h.auth.CreateTechnicianAccount(c.UserContext(), actor, service.TechnicianInput{
		FullName:       req.FullName,
		Email:          req.Email,
		Password:       req.Password,
		Specialization: req.Specialization,
		Phone:          req.Phone,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": accountResponse(account)})
}

// List GET /accounts?role=&status=&page=&page_size=.
func (h *AccountsHandler) List(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	filter := service.AccountListFilter{}
	if role := c.Query("role"); role != "" {
		r := domain.Role(role)
		filter.Role = &r
	}
	if status := c.Query("status"); status != "" {
		s := domain.AccountStatus(status)
		filter.Status = &s
	}
	filter.Limit, filter.Offset = pagination(c)

	accounts, err := h.accounts.ListAccounts(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": accountResponses(accounts)})
}

// ListTechnicians GET /accounts/technicians?online=true.
func (h *AccountsHandler) ListTechnicians(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	accounts, err := h.accounts.ListTechnicians(c.UserContext(), actor, c.QueryBool("online", false))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": accountResponses(accounts)})
}

// ChangeRole PATCH /accounts/:id/role.
func (h *AccountsHandler) ChangeRole(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.ChangeRoleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	account, err := h.accounts.ChangeRole(c.UserContext(), actor, c.Params("id"), req.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": accountResponse(account)})
}

// SetStatus PATCH /accounts/:id/status.
func (h *AccountsHandler) SetStatus(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.SetStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	account, err := h.accounts.SetStatus(c.UserContext(), actor, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": accountResponse(account)})
}

// SetOnline POST /accounts/me/online.
func (h *AccountsHandler) SetOnline(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.SetOnlineRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.accounts.SetOnline(c.UserContext(), actor, req.Online); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"online": req.Online}})
}
