package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campusdesk/internal/api/dto"
	"github.com/spec-kit/campusdesk/internal/domain"
	"github.com/spec-kit/campusdesk/internal/service"
	apperrors "github.com/spec-kit/campusdesk/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints for every role; the services decide what
// each caller may see or change.
type TicketsHandler struct {
	tickets   *service.TicketService
	lifecycle *service.LifecycleService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, lifecycleService *service.LifecycleService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService, lifecycle: lifecycleService}
}

// Create POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ticket, err := h.tickets.Create(c.UserContext(), actor, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		Building:    req.Building,
		RoomNo:      req.RoomNo,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": ticketResponse(ticket),
		"scan": dto.ScanLinkResponse{Token: ticket.Token, URL: h.tickets.ScanURL(ticket.Token)},
	})
}

// List GET /tickets?status=open,in_progress&category=&page=&page_size=.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	filter := service.TicketListFilter{}
	for _, status := range splitCSV(c.Query("status")) {
		parsed, ok := domain.ParseTicketStatus(status)
		if !ok {
			return apperrors.NewValidationError("unknown status", map[string]any{"status": status})
		}
		filter.Statuses = append(filter.Statuses, parsed)
	}
	if category := c.Query("category"); category != "" {
		parsed, ok := domain.ParseTicketCategory(category)
		if !ok {
			return apperrors.NewValidationError("unknown category", map[string]any{"category": category})
		}
		filter.Category = &parsed
	}
	filter.Limit, filter.Offset = pagination(c)

	tickets, err := h.tickets.List(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Stats GET /tickets/stats.
func (h *TicketsHandler) Stats(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	stats, err := h.tickets.Stats(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketStatsResponse{
		Total:             stats.Total,
		Open:              stats.Open,
		Resolved:          stats.Resolved,
		OnlineTechnicians: stats.OnlineTechnicians,
	}})
}

// GetByToken GET /tickets/token/:token.
func (h *TicketsHandler) GetByToken(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetByToken(c.UserContext(), actor, c.Params("token"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Get GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetByID(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// History GET /tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	entries, err := h.tickets.History(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(entries)})
}

// ScanLink GET /tickets/:id/scan.
func (h *TicketsHandler) ScanLink(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetByID(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ScanLinkResponse{
		Token: ticket.Token,
		URL:   h.tickets.ScanURL(ticket.Token),
	}})
}

// Transition POST /tickets/:id/transitions.
func (h *TicketsHandler) Transition(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.TransitionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	entry, err := h.lifecycle.Transition(c.UserContext(), actor, service.TransitionInput{
		TicketID: c.Params("id"),
		Status:   req.Status,
		Note:     req.Note,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": historyResponse(*entry)})
}

// Assign POST /tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.TechnicianID == "" {
		return apperrors.NewValidationError("technician_id required", nil)
	}
	ticket, err := h.tickets.Assign(c.UserContext(), actor, c.Params("id"), req.TechnicianID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:          ticket.ID,
		Token:       ticket.Token,
		ReporterID:  ticket.ReporterID,
		AssigneeID:  ticket.AssigneeID,
		Title:       ticket.Title,
		Description: ticket.Description,
		Category:    ticket.Category,
		Priority:    ticket.Priority,
		Status:      ticket.Status,
		Building:    ticket.Location.Building,
		RoomNo:      ticket.Location.RoomNo,
		TechNote:    ticket.TechNote,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
}

func historyResponse(entry domain.HistoryEntry) dto.TicketHistoryResponse {
	return dto.TicketHistoryResponse{
		ID:        entry.ID,
		Status:    entry.Status,
		Note:      entry.Note,
		ActorID:   entry.ActorID,
		CreatedAt: entry.CreatedAt,
	}
}

func historyResponses(entries []domain.HistoryEntry) []dto.TicketHistoryResponse {
	resp := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, historyResponse(entry))
	}
	return resp
}
