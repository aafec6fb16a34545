package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campusdesk/internal/api/dto"
	"github.com/spec-kit/campusdesk/internal/domain"
	"github.com/spec-kit/campusdesk/internal/service"
	apperrors "github.com/spec-kit/campusdesk/pkg/util/errorutil"
)

// InvitesHandler exposes invite code administration.
type InvitesHandler struct {
	invites *service.InviteService
}

// NewInvitesHandler constructs handler.
func NewInvitesHandler(inviteService *service.InviteService) *InvitesHandler {
	return &InvitesHandler{invites: inviteService}
}

// Create POST /invites.
func (h *InvitesHandler) Create(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateInviteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	input := service.IssueInviteInput{Role: req.Role, Code: req.Code}
	if req.ExpiresInHours != nil {
		if *req.ExpiresInHours <= 0 {
			return apperrors.NewValidationError("expires_in_hours must be positive", nil)
		}
		ttl := time.Duration(*req.ExpiresInHours) * time.Hour
		input.ExpiresIn = &ttl
	}

	invite, err := h.invites.Issue(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": inviteResponse(invite)})
}

// List GET /invites?role=&unused=true.
func (h *InvitesHandler) List(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	filter := service.InviteListFilter{UnusedOnly: c.QueryBool("unused", false)}
	if role := c.Query("role"); role != "" {
		r := domain.Role(role)
		filter.Role = &r
	}
	filter.Limit, filter.Offset = pagination(c)

	codes, err := h.invites.List(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	items := make([]dto.InviteResponse, 0, len(codes))
	for i := range codes {
		items = append(items, inviteResponse(&codes[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func inviteResponse(invite *domain.InviteCode) dto.InviteResponse {
	return dto.InviteResponse{
		ID:        invite.ID,
		Code:      invite.Code,
		Role:      invite.Role,
		Used:      invite.Used,
		UsedBy:    invite.UsedBy,
		UsedAt:    invite.UsedAt,
		ExpiresAt: invite.ExpiresAt,
		CreatedAt: invite.CreatedAt,
	}
}
