package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/campusdesk/internal/config"
	"github.com/spec-kit/campusdesk/internal/domain"
	"github.com/spec-kit/campusdesk/internal/events"
	"github.com/spec-kit/campusdesk/internal/repository"
	apperrors "github.com/spec-kit/campusdesk/pkg/util/errorutil"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
	defaultTokenAttempts = 5
)

// TicketService is the ticket store: creation, token lookup and scoped reads.
type TicketService struct {
	tickets       repository.TicketRepository
	history       repository.TicketHistoryRepository
	accounts      repository.AccountRepository
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	scope         AccessScope
	newToken      func() (string, error)
	tokenAttempts int
	scanBaseURL   string
}

// TicketDependencies bundles repositories for ticket service. TokenGenerator
// defaults to GenerateTicketToken.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	HistoryRepo    repository.TicketHistoryRepository
	AccountRepo    repository.AccountRepository
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	TokenGenerator func() (string, error)
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Category    domain.TicketCategory
	Priority    domain.TicketPriority
	Building    *string
	RoomNo      *string
}

// TicketListFilter narrows a scoped listing.
type TicketListFilter struct {
	Statuses []domain.TicketStatus
	Category *domain.TicketCategory
	Limit    int
	Offset   int
}

// NewTicketService constructs the service.
func NewTicketService(cfg config.TicketConfig, deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	generator := deps.TokenGenerator
	if generator == nil {
		generator = GenerateTicketToken
	}
	attempts := cfg.TokenAttempts
	if attempts <= 0 {
		attempts = defaultTokenAttempts
	}
	return &TicketService{
		tickets:       deps.TicketRepo,
		history:       deps.HistoryRepo,
		accounts:      deps.AccountRepo,
		dispatcher:    deps.Dispatcher,
		logger:        logger,
		newToken:      generator,
		tokenAttempts: attempts,
		scanBaseURL:   strings.TrimRight(cfg.ScanBaseURL, "/"),
	}
}

// Create files a ticket for the actor with a fresh token and an initial "open"
// history entry authored by the reporter.
func (s *TicketService) Create(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if err := s.scope.CanCreateTicket(actor); err != nil {
		return nil, err
	}
	ticket, err := s.validateCreate(actor, input)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < s.tokenAttempts; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		ticket.Token = token
		initial := &domain.HistoryEntry{Status: domain.TicketStatusOpen, ActorID: actor.ID}

		err = s.tickets.Create(ctx, ticket, initial)
		if err == nil {
			s.logger.Info("ticket created",
				zap.String("ticket_id", ticket.ID),
				zap.String("token", ticket.Token),
				zap.String("reporter_id", actor.ID))
			publishEvent(ctx, s.dispatcher, s.logger, events.Event{
				Type:      events.EventTicketCreated,
				SubjectID: ticket.ID,
				Actor:     actor,
				Payload: events.TicketCreatedPayload{
					Token:    ticket.Token,
					Category: ticket.Category,
					Priority: ticket.Priority,
					Title:    ticket.Title,
				},
			})
			return ticket, nil
		}
		if !errors.Is(err, repository.ErrDuplicateToken) {
			return nil, apperrors.NewInternalError(err)
		}
		s.logger.Warn("ticket token collision, regenerating", zap.Int("attempt", attempt+1))
	}
	return nil, apperrors.NewInternalError(fmt.Errorf("no unique ticket token after %d attempts", s.tokenAttempts))
}

func (s *TicketService) validateCreate(actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	details := map[string]any{}
	if title == "" {
		details["title"] = "required"
	} else if utf8.RuneCountInString(title) > maxTitleLength {
		details["title"] = fmt.Sprintf("at most %d characters", maxTitleLength)
	}
	if description == "" {
		details["description"] = "required"
	} else if utf8.RuneCountInString(description) > maxDescriptionLength {
		details["description"] = fmt.Sprintf("at most %d characters", maxDescriptionLength)
	}
	if _, ok := domain.ParseTicketCategory(string(input.Category)); !ok {
		details["category"] = "unknown category"
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if _, ok := domain.ParseTicketPriority(string(priority)); !ok {
		details["priority"] = "unknown priority"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid ticket", details)
	}

	return &domain.Ticket{
		ReporterID:  actor.ID,
		Title:       title,
		Description: description,
		Category:    input.Category,
		Priority:    priority,
		Status:      domain.TicketStatusOpen,
		Location: domain.TicketLocation{
			Building: trimmedOrNil(input.Building),
			RoomNo:   trimmedOrNil(input.RoomNo),
		},
	}, nil
}

// NormalizeToken uppercases and trims a scanned or typed token.
func NormalizeToken(token string) string {
	return strings.ToUpper(strings.TrimSpace(token))
}

// GetByToken resolves a token to a ticket inside the actor's scope. Tickets outside
// the scope are reported as not found.
func (s *TicketService) GetByToken(ctx context.Context, actor domain.Actor, token string) (*domain.Ticket, error) {
	token = NormalizeToken(token)
	if len(token) != TokenLength {
		return nil, apperrors.NewTicketNotFound(nil)
	}
	ticket, err := s.tickets.GetByToken(ctx, token)
	return s.scoped(actor, ticket, err)
}

// GetByID loads a ticket inside the actor's scope.
func (s *TicketService) GetByID(ctx context.Context, actor domain.Actor, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	return s.scoped(actor, ticket, err)
}

func (s *TicketService) scoped(actor domain.Actor, ticket *domain.Ticket, err error) (*domain.Ticket, error) {
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewTicketNotFound(nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	if !s.scope.CanViewTicket(actor, ticket) {
		return nil, apperrors.NewTicketNotFound(nil)
	}
	return ticket, nil
}

// List returns the tickets the actor may see.
func (s *TicketService) List(ctx context.Context, actor domain.Actor, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter, err := s.scope.TicketFilter(actor)
	if err != nil {
		return nil, err
	}
	repoFilter.Statuses = filter.Statuses
	repoFilter.Category = filter.Category
	repoFilter.Limit = filter.Limit
	repoFilter.Offset = filter.Offset

	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, nil
}

// History returns the ordered status log of a ticket inside the actor's scope.
func (s *TicketService) History(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.HistoryEntry, error) {
	if _, err := s.GetByID(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return entries, nil
}

// Assign hands an open or in-progress ticket to an active technician.
func (s *TicketService) Assign(ctx context.Context, actor domain.Actor, ticketID, technicianID string) (*domain.Ticket, error) {
	if err := s.scope.CanAssign(actor); err != nil {
		return nil, err
	}
	ticket, err := s.GetByID(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status.IsTerminal() {
		return nil, apperrors.NewValidationError("ticket is no longer being worked",
			map[string]any{"status": ticket.Status})
	}

	technician, err := s.accounts.GetByID(ctx, technicianID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewValidationError("technician not found", map[string]any{"technician_id": technicianID})
		}
		return nil, apperrors.NewInternalError(err)
	}
	if technician.Role != domain.RoleTechnician || technician.Status != domain.AccountStatusActive {
		return nil, apperrors.NewValidationError("assignee must be an active technician",
			map[string]any{"technician_id": technicianID})
	}

	if err := s.tickets.Assign(ctx, ticket.ID, technician.ID); err != nil {
		switch {
		case repository.IsNotFound(err):
			return nil, apperrors.NewTicketNotFound(nil)
		case errors.Is(err, repository.ErrStatusConflict):
			return nil, apperrors.NewValidationError("ticket is no longer being worked", nil)
		default:
			return nil, apperrors.NewInternalError(err)
		}
	}
	ticket.AssigneeID = &technician.ID

	s.logger.Info("ticket assigned",
		zap.String("ticket_id", ticket.ID),
		zap.String("technician_id", technician.ID),
		zap.String("actor_id", actor.ID))
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventTicketAssigned,
		SubjectID: ticket.ID,
		Actor:     actor,
		Payload:   events.TicketAssignedPayload{Token: ticket.Token, TechnicianID: technician.ID},
	})
	return ticket, nil
}

// Stats returns simple counts inside the actor's scope; administrators also get the
// number of technicians currently online.
func (s *TicketService) Stats(ctx context.Context, actor domain.Actor) (domain.TicketStats, error) {
	filter, err := s.scope.TicketFilter(actor)
	if err != nil {
		return domain.TicketStats{}, err
	}
	stats, err := s.tickets.Stats(ctx, filter)
	if err != nil {
		return domain.TicketStats{}, apperrors.NewInternalError(err)
	}
	if actor.Role.IsPrivileged() {
		active := domain.AccountStatusActive
		online, err := s.accounts.Count(ctx, repository.AccountFilter{
			Roles:      []domain.Role{domain.RoleTechnician},
			Status:     &active,
			OnlineOnly: true,
		})
		if err != nil {
			return domain.TicketStats{}, apperrors.NewInternalError(err)
		}
		stats.OnlineTechnicians = &online
	}
	return stats, nil
}

// ScanURL renders the link encoded in a ticket's printable code.
func (s *TicketService) ScanURL(token string) string {
	return s.scanBaseURL + "/dashboard/scanner?token=" + url.QueryEscape(token)
}
