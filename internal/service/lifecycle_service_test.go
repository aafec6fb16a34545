package service

import (
	"context"
	"sync"
	"testing"

	"github.com/spec-kit/campusdesk/internal/domain"
	"github.com/spec-kit/campusdesk/internal/events"
	"github.com/spec-kit/campusdesk/internal/repository"
	apperrors "github.com/spec-kit/campusdesk/pkg/util/errorutil"
)

func TestTransitionPathBuildsHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	student := h.seedAccount(t, "bba2023_rahul@aimt.ac.in", domain.RoleStudent, domain.AccountStatusActive)
	admin := h.seedAccount(t, "admin@aimt.ac.in", domain.RoleAdmin, domain.AccountStatusActive)
	ticket := h.createTicket(t, student)

	for _, status := range []domain.TicketStatus{domain.TicketStatusInProgress, domain.TicketStatusResolved} {
		entry, err := h.lifecycle.Transition(ctx, admin, TransitionInput{TicketID: ticket.ID, Status: status})
		if err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
		if entry.Status != status || entry.ActorID != admin.ID {
			t.Fatalf("unexpected entry %+v", entry)
		}
	}

	history, err := h.tickets.History(ctx, student, ticket.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	want := []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress, domain.TicketStatusResolved}
	if len(history) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(history))
	}
	for i, entry := range history {
		if entry.Status != want[i] {
			t.Fatalf("entry %d: expected %s, got %s", i, want[i], entry.Status)
		}
		if i > 0 && entry.ID <= history[i-1].ID {
			t.Fatalf("history out of order: %+v", history)
		}
	}

	_, err = h.lifecycle.Transition(ctx, admin, TransitionInput{TicketID: ticket.ID, Status: domain.TicketStatusOpen})
	assertCode(t, err, apperrors.CodeIllegalTransition)

	after, err := h.tickets.History(ctx, admin, ticket.ID)
	if err != nil || len(after) != 3 {
		t.Fatalf("illegal transition must not write history: %d entries, err %v", len(after), err)
	}
	current, err := h.tickets.GetByID(ctx, admin, ticket.ID)
	if err != nil || current.Status != domain.TicketStatusResolved {
		t.Fatalf("ticket should still be resolved: %+v, err %v", current, err)
	}

	if _, err := h.lifecycle.Transition(ctx, admin, TransitionInput{TicketID: ticket.ID, Status: domain.TicketStatusClosed}); err != nil {
		t.Fatalf("close: %v", err)
	}
	_, err = h.lifecycle.Transition(ctx, admin, TransitionInput{TicketID: ticket.ID, Status: domain.TicketStatusClosed})
	assertCode(t, err, apperrors.CodeIllegalTransition)
}

func TestTransitionNoteBecomesTechNote(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	student := h.seedAccount(t, "bba2023_rahul@aimt.ac.in", domain.RoleStudent, domain.AccountStatusActive)
	technician := h.seedAccount(t, "tech@aimt.ac.in", domain.RoleTechnician, domain.AccountStatusActive)
	admin := h.seedAccount(t, "admin@aimt.ac.in", domain.RoleAdmin, domain.AccountStatusActive)
	ticket := h.createTicket(t, student)
	if _, err := h.tickets.Assign(ctx, admin, ticket.ID, technician.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	entry, err := h.lifecycle.Transition(ctx, technician, TransitionInput{
		TicketID: ticket.ID,
		Status:   domain.TicketStatusResolved,
		Note:     strPtr("  Replaced router  "),
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if entry.Note == nil || *entry.Note != "Replaced router" {
		t.Fatalf("unexpected entry note %v", entry.Note)
	}

	current, err := h.tickets.GetByID(ctx, student, ticket.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.TechNote == nil || *current.TechNote != "Replaced router" {
		t.Fatalf("tech note not stored: %v", current.TechNote)
	}

	var changed *events.Event
	h.events.mu.Lock()
	for i := range h.events.events {
		if h.events.events[i].Type == events.EventTicketStatusChanged {
			changed = &h.events.events[i]
		}
	}
	h.events.mu.Unlock()
	if changed == nil {
		t.Fatalf("no status change event published")
	}
	payload, ok := changed.Payload.(events.TicketStatusChangedPayload)
	if !ok || payload.OldStatus != domain.TicketStatusOpen || payload.NewStatus != domain.TicketStatusResolved || payload.Note != "Replaced router" {
		t.Fatalf("unexpected payload %#v", changed.Payload)
	}
}

func TestTransitionPermissions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	student := h.seedAccount(t, "bba2023_rahul@aimt.ac.in", domain.RoleStudent, domain.AccountStatusActive)
	assigned := h.seedAccount(t, "tech@aimt.ac.in", domain.RoleTechnician, domain.AccountStatusActive)
	bystander := h.seedAccount(t, "tech.two@aimt.ac.in", domain.RoleTechnician, domain.AccountStatusActive)
	admin := h.seedAccount(t, "admin@aimt.ac.in", domain.RoleAdmin, domain.AccountStatusActive)
	ticket := h.createTicket(t, student)

	_, err := h.lifecycle.Transition(ctx, assigned, TransitionInput{TicketID: ticket.ID, Status: domain.TicketStatusInProgress})
	assertCode(t, err, apperrors.CodeUnauthorized)

	if _, err := h.tickets.Assign(ctx, admin, ticket.ID, assigned.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	_, err = h.lifecycle.Transition(ctx, student, TransitionInput{TicketID: ticket.ID, Status: domain.TicketStatusInProgress})
	assertCode(t, err, apperrors.CodeUnauthorized)
	_, err = h.lifecycle.Transition(ctx, bystander, TransitionInput{TicketID: ticket.ID, Status: domain.TicketStatusInProgress})
	assertCode(t, err, apperrors.CodeUnauthorized)

	if _, err := h.lifecycle.Transition(ctx, assigned, TransitionInput{TicketID: ticket.ID, Status: domain.TicketStatusInProgress}); err != nil {
		t.Fatalf("assigned technician: %v", err)
	}
	if _, err := h.lifecycle.Transition(ctx, assigned, TransitionInput{TicketID: ticket.ID, Status: domain.TicketStatusRejected}); err != nil {
		t.Fatalf("reject: %v", err)
	}
	_, err = h.lifecycle.Transition(ctx, assigned, TransitionInput{TicketID: ticket.ID, Status: domain.TicketStatusClosed})
	assertCode(t, err, apperrors.CodeUnauthorized)

	_, err = h.lifecycle.Transition(ctx, admin, TransitionInput{TicketID: ticket.ID, Status: domain.TicketStatus("reopened")})
	assertCode(t, err, apperrors.CodeValidationFailed)
	_, err = h.lifecycle.Transition(ctx, admin, TransitionInput{TicketID: "missing", Status: domain.TicketStatusClosed})
	assertCode(t, err, apperrors.CodeTicketNotFound)
}

// racingTickets moves the ticket to r.to just before the first conditional
// update lands, the way a concurrent administrator would.
type racingTickets struct {
	repository.TicketRepository
	to   domain.TicketStatus
	once sync.Once
}

func (r *racingTickets) ApplyTransition(ctx context.Context, params repository.TransitionParams) (*domain.HistoryEntry, error) {
	r.once.Do(func() {
		_, _ = r.TicketRepository.ApplyTransition(ctx, repository.TransitionParams{
			TicketID: params.TicketID,
			From:     params.From,
			To:       r.to,
			ActorID:  "someone-else",
		})
	})
	return r.TicketRepository.ApplyTransition(ctx, params)
}

func TestTransitionRevalidatesAfterConflict(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	student := h.seedAccount(t, "bba2023_rahul@aimt.ac.in", domain.RoleStudent, domain.AccountStatusActive)
	admin := h.seedAccount(t, "admin@aimt.ac.in", domain.RoleAdmin, domain.AccountStatusActive)
	ticket := h.createTicket(t, student)

	racing := NewLifecycleService(LifecycleDependencies{
		TicketRepo: &racingTickets{TicketRepository: h.store.Tickets(), to: domain.TicketStatusResolved},
	})

	_, err := racing.Transition(ctx, admin, TransitionInput{TicketID: ticket.ID, Status: domain.TicketStatusInProgress})
	assertCode(t, err, apperrors.CodeIllegalTransition)

	history, err := h.tickets.History(ctx, admin, ticket.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[1].Status != domain.TicketStatusResolved {
		t.Fatalf("expected only the competing transition in history, got %+v", history)
	}

	other := h.createTicket(t, student)
	racing = NewLifecycleService(LifecycleDependencies{
		TicketRepo: &racingTickets{TicketRepository: h.store.Tickets(), to: domain.TicketStatusInProgress},
	})
	entry, err := racing.Transition(ctx, admin, TransitionInput{TicketID: other.ID, Status: domain.TicketStatusResolved})
	if err != nil {
		t.Fatalf("resolve after concurrent start: %v", err)
	}
	if entry.Status != domain.TicketStatusResolved {
		t.Fatalf("unexpected entry %+v", entry)
	}
	history, err = h.tickets.History(ctx, admin, other.ID)
	if err != nil || len(history) != 3 {
		t.Fatalf("expected 3 history entries after retry, got %d (err %v)", len(history), err)
	}
}

func TestConcurrentTransitionsFromSameStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	student := h.seedAccount(t, "bba2023_rahul@aimt.ac.in", domain.RoleStudent, domain.AccountStatusActive)
	admin := h.seedAccount(t, "admin@aimt.ac.in", domain.RoleAdmin, domain.AccountStatusActive)
	ticket := h.createTicket(t, student)

	targets := []domain.TicketStatus{domain.TicketStatusResolved, domain.TicketStatusRejected}
	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, status := range targets {
		wg.Add(1)
		go func(i int, status domain.TicketStatus) {
			defer wg.Done()
			_, errs[i] = h.lifecycle.Transition(ctx, admin, TransitionInput{TicketID: ticket.ID, Status: status})
		}(i, status)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assertCode(t, err, apperrors.CodeIllegalTransition)
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one transition to win, got %d", succeeded)
	}
	history, err := h.tickets.History(ctx, admin, ticket.ID)
	if err != nil || len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d (err %v)", len(history), err)
	}
}
