package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/campusdesk/internal/domain"
	"github.com/spec-kit/campusdesk/internal/repository"
)

func TestConsumeHasExactlyOneWinner(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	if err := store.Invites().Create(ctx, &domain.InviteCode{Code: "TECH-A7X9", Role: domain.RoleTechnician}); err != nil {
		t.Fatalf("create invite: %v", err)
	}

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
		losers  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Invites().Consume(ctx, "TECH-A7X9", "account")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, repository.ErrInviteCodeUsed):
				losers++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if winners != 1 || losers != workers-1 {
		t.Fatalf("winners=%d losers=%d", winners, losers)
	}
}

func TestApplyTransitionRejectsStaleStatus(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	ticket := &domain.Ticket{Token: "ABCDEFGH", ReporterID: "r", Status: domain.TicketStatusOpen}
	initial := &domain.HistoryEntry{Status: domain.TicketStatusOpen, ActorID: "r"}
	if err := store.Tickets().Create(ctx, ticket, initial); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := store.Tickets().ApplyTransition(ctx, repository.TransitionParams{
		TicketID: ticket.ID,
		From:     domain.TicketStatusInProgress,
		To:       domain.TicketStatusResolved,
		ActorID:  "a",
	})
	if !errors.Is(err, repository.ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}

	entries, _ := store.History().ListByTicket(ctx, ticket.ID)
	if len(entries) != 1 {
		t.Fatalf("history length = %d, want 1", len(entries))
	}
}

func TestCreateRejectsDuplicateToken(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	first := &domain.Ticket{Token: "ABCDEFGH", Status: domain.TicketStatusOpen}
	if err := store.Tickets().Create(ctx, first, nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	second := &domain.Ticket{Token: "ABCDEFGH", Status: domain.TicketStatusOpen}
	if err := store.Tickets().Create(ctx, second, nil); !errors.Is(err, repository.ErrDuplicateToken) {
		t.Fatalf("expected ErrDuplicateToken, got %v", err)
	}
}

func TestCreateWithInviteRejectsExpiredCode(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	now := time.Date(2024, 8, 1, 9, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })

	expires := now.Add(-2 * time.Minute)
	if err := store.Invites().Create(ctx, &domain.InviteCode{Code: "STU-LATE0001", Role: domain.RoleStudent, ExpiresAt: &expires}); err != nil {
		t.Fatalf("create invite: %v", err)
	}

	account := &domain.Account{Email: "late@aimt.ac.in", Role: domain.RoleStudent, Status: domain.AccountStatusPending}
	if err := store.Accounts().CreateWithInvite(ctx, account, "STU-LATE0001"); !errors.Is(err, repository.ErrInviteExpired) {
		t.Fatalf("expected ErrInviteExpired, got %v", err)
	}
	if err := store.Invites().Consume(ctx, "STU-LATE0001", "someone"); !errors.Is(err, repository.ErrInviteExpired) {
		t.Fatalf("expected ErrInviteExpired from Consume, got %v", err)
	}
	if _, err := store.Accounts().GetByEmail(ctx, "late@aimt.ac.in"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("account must not be created, got %v", err)
	}
	invite, _ := store.Invites().GetByCode(ctx, "STU-LATE0001")
	if invite.Used {
		t.Fatalf("expired code was consumed")
	}
}

func TestAssignRejectsTerminalTicket(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	ticket := &domain.Ticket{Token: "ABCDEFGH", ReporterID: "r", Status: domain.TicketStatusOpen}
	if err := store.Tickets().Create(ctx, ticket, nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Tickets().Assign(ctx, ticket.ID, "tech-1"); err != nil {
		t.Fatalf("assign open ticket: %v", err)
	}
	if _, err := store.Tickets().ApplyTransition(ctx, repository.TransitionParams{
		TicketID: ticket.ID,
		From:     domain.TicketStatusOpen,
		To:       domain.TicketStatusRejected,
		ActorID:  "a",
	}); err != nil {
		t.Fatalf("reject: %v", err)
	}

	if err := store.Tickets().Assign(ctx, ticket.ID, "tech-2"); !errors.Is(err, repository.ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}
	stored, _ := store.Tickets().GetByID(ctx, ticket.ID)
	if stored.AssigneeID == nil || *stored.AssigneeID != "tech-1" {
		t.Fatalf("assignee changed on a rejected ticket: %+v", stored.AssigneeID)
	}
	if err := store.Tickets().Assign(ctx, "missing", "tech-2"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
