package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/campusdesk/internal/auth"
	"github.com/spec-kit/campusdesk/internal/config"
	"github.com/spec-kit/campusdesk/internal/domain"
	"github.com/spec-kit/campusdesk/internal/events"
	"github.com/spec-kit/campusdesk/internal/ratelimit"
	"github.com/spec-kit/campusdesk/internal/repository/memory"
	apperrors "github.com/spec-kit/campusdesk/pkg/util/errorutil"
)

const testPassword = "correct-horse-9"

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) record(_ context.Context, e events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) types() []events.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]events.EventType, len(l.events))
	for i, e := range l.events {
		out[i] = e.Type
	}
	return out
}

type harness struct {
	store     *memory.Store
	clock     *testClock
	events    *eventLog
	auth      *AuthService
	invites   *InviteService
	accounts  *AccountService
	tickets   *TicketService
	lifecycle *LifecycleService
}

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 60,
			BcryptCost:            bcrypt.MinCost,
			InstitutionDomain:     "@aimt.ac.in",
			MinPasswordLength:     8,
		},
		RateLimit: config.RateLimitConfig{
			LoginLimit:     5,
			LoginWindow:    15 * time.Minute,
			RegisterLimit:  3,
			RegisterWindow: time.Hour,
		},
		Ticket: config.TicketConfig{
			ScanBaseURL:   "https://desk.example.edu/",
			TokenAttempts: 5,
		},
	}
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithTokens(t, nil)
}

func newHarnessWithTokens(t *testing.T, tokens func() (string, error)) *harness {
	t.Helper()
	cfg := testConfig()
	store := memory.NewStore()
	clock := &testClock{t: time.Date(2024, 8, 1, 9, 0, 0, 0, time.UTC)}
	store.SetClock(clock.Now)

	log := &eventLog{}
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.SubscribeAll(log.record)

	invites := NewInviteService(InviteDependencies{InviteRepo: store.Invites()})
	invites.now = clock.Now

	limiter := ratelimit.NewLimiter(store.RateLimits()).WithClock(clock.Now)
	authService, err := NewAuthService(cfg, AuthDependencies{
		AccountRepo: store.Accounts(),
		Invites:     invites,
		Limiter:     limiter,
		Dispatcher:  dispatcher,
	})
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}

	return &harness{
		store:    store,
		clock:    clock,
		events:   log,
		auth:     authService,
		invites:  invites,
		accounts: NewAccountService(AccountDependencies{AccountRepo: store.Accounts(), Dispatcher: dispatcher}),
		tickets: NewTicketService(cfg.Ticket, TicketDependencies{
			TicketRepo:     store.Tickets(),
			HistoryRepo:    store.History(),
			AccountRepo:    store.Accounts(),
			Dispatcher:     dispatcher,
			TokenGenerator: tokens,
		}),
		lifecycle: NewLifecycleService(LifecycleDependencies{TicketRepo: store.Tickets(), Dispatcher: dispatcher}),
	}
}

// seedAccount stores an account directly, bypassing registration rules.
func (h *harness) seedAccount(t *testing.T, email string, role domain.Role, status domain.AccountStatus) domain.Actor {
	t.Helper()
	hash, err := auth.HashPassword(testPassword, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	account := &domain.Account{
		Email:        email,
		FullName:     email,
		PasswordHash: hash,
		Role:         role,
		Status:       status,
	}
	if err := h.store.Accounts().Create(context.Background(), account); err != nil {
		t.Fatalf("seed %s: %v", email, err)
	}
	return domain.Actor{ID: account.ID, Role: role}
}

func (h *harness) createTicket(t *testing.T, reporter domain.Actor) *domain.Ticket {
	t.Helper()
	ticket, err := h.tickets.Create(context.Background(), reporter, TicketCreateInput{
		Title:       "WiFi down in hostel block B",
		Description: "No connectivity on the second floor since morning.",
		Category:    domain.CategoryWiFi,
		Priority:    domain.TicketPriorityHigh,
	})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected error code %s, got %v (code %q)", code, err, apperrors.CodeOf(err))
	}
}

func strPtr(s string) *string { return &s }
