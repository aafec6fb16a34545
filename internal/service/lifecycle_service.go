package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/campusdesk/internal/domain"
	"github.com/spec-kit/campusdesk/internal/events"
	"github.com/spec-kit/campusdesk/internal/observability"
	"github.com/spec-kit/campusdesk/internal/repository"
	apperrors "github.com/spec-kit/campusdesk/pkg/util/errorutil"
)

// LifecycleService moves tickets through the status graph. Each accepted transition
// updates the ticket and appends one history entry in a single write.
type LifecycleService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	scope      AccessScope
}

// LifecycleDependencies bundles collaborators for the lifecycle service.
type LifecycleDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// TransitionInput requests a status change.
type TransitionInput struct {
	TicketID string
	Status   domain.TicketStatus
	Note     *string
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleService{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
	}
}

// Transition applies one status change on behalf of actor and returns the history
// entry it produced.
func (s *LifecycleService) Transition(ctx context.Context, actor domain.Actor, input TransitionInput) (*domain.HistoryEntry, error) {
	if _, ok := domain.ParseTicketStatus(string(input.Status)); !ok {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": input.Status})
	}
	note := trimmedOrNil(input.Note)

	ticket, err := s.load(ctx, input.TicketID)
	if err != nil {
		return nil, err
	}

	// A concurrent writer can move the ticket between our read and the conditional
	// update; re-read once and re-validate against the fresh status.
	for attempt := 0; ; attempt++ {
		if err := s.scope.CanTransition(actor, ticket, input.Status); err != nil {
			return nil, err
		}
		if !ticket.Status.CanTransitionTo(input.Status) {
			return nil, apperrors.NewIllegalTransition(string(ticket.Status), string(input.Status))
		}

		entry, err := s.tickets.ApplyTransition(ctx, repository.TransitionParams{
			TicketID: ticket.ID,
			From:     ticket.Status,
			To:       input.Status,
			Note:     note,
			ActorID:  actor.ID,
		})
		if err == nil {
			s.afterTransition(ctx, actor, ticket, entry)
			return entry, nil
		}
		switch {
		case errors.Is(err, repository.ErrStatusConflict) && attempt == 0:
			ticket, err = s.load(ctx, input.TicketID)
			if err != nil {
				return nil, err
			}
		case errors.Is(err, repository.ErrStatusConflict):
			return nil, apperrors.NewIllegalTransition(string(ticket.Status), string(input.Status))
		case repository.IsNotFound(err):
			return nil, apperrors.NewTicketNotFound(nil)
		default:
			return nil, apperrors.NewInternalError(err)
		}
	}
}

func (s *LifecycleService) load(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewTicketNotFound(nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	return ticket, nil
}

func (s *LifecycleService) afterTransition(ctx context.Context, actor domain.Actor, ticket *domain.Ticket, entry *domain.HistoryEntry) {
	s.metrics.RecordTransition(string(ticket.Status), string(entry.Status))
	s.logger.Info("ticket status changed",
		zap.String("ticket_id", ticket.ID),
		zap.String("from", string(ticket.Status)),
		zap.String("to", string(entry.Status)),
		zap.String("actor_id", actor.ID))

	payload := events.TicketStatusChangedPayload{
		Token:     ticket.Token,
		OldStatus: ticket.Status,
		NewStatus: entry.Status,
	}
	if entry.Note != nil {
		payload.Note = strings.TrimSpace(*entry.Note)
	}
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventTicketStatusChanged,
		SubjectID: ticket.ID,
		Actor:     actor,
		Payload:   payload,
	})
}
