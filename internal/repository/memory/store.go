// Package memory implements every repository interface on top of in-process maps.
// It backs the service in development mode and drives the service and handler tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/campusdesk/internal/domain"
	"github.com/spec-kit/campusdesk/internal/repository"
)

type attempt struct {
	action string
	addr   string
	at     time.Time
}

// Store holds all state behind one mutex so multi-record writes stay atomic.
type Store struct {
	mu          sync.Mutex
	now         func() time.Time
	accounts    map[string]*domain.Account
	invites     map[string]*domain.InviteCode
	tickets     map[string]*domain.Ticket
	history     map[string][]domain.HistoryEntry
	attempts    []attempt
	nextHistory int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		now:      time.Now,
		accounts: make(map[string]*domain.Account),
		invites:  make(map[string]*domain.InviteCode),
		tickets:  make(map[string]*domain.Ticket),
		history:  make(map[string][]domain.HistoryEntry),
	}
}

// SetClock replaces the timestamp source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Accounts() repository.AccountRepository      { return accountStore{s} }
func (s *Store) Invites() repository.InviteCodeRepository    { return inviteStore{s} }
func (s *Store) Tickets() repository.TicketRepository        { return ticketStore{s} }
func (s *Store) History() repository.TicketHistoryRepository { return historyStore{s} }
func (s *Store) RateLimits() repository.RateLimitRepository  { return rateLimitStore{s} }

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

type accountStore struct{ s *Store }

func (a accountStore) Create(_ context.Context, account *domain.Account) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return a.s.insertAccountLocked(account)
}

func (s *Store) insertAccountLocked(account *domain.Account) error {
	for _, existing := range s.accounts {
		if strings.EqualFold(existing.Email, account.Email) {
			return repository.ErrDuplicateEmail
		}
	}
	now := s.now()
	account.ID = uuid.NewString()
	account.CreatedAt = now
	account.UpdatedAt = now
	cp := *account
	s.accounts[cp.ID] = &cp
	return nil
}

func (a accountStore) CreateWithInvite(_ context.Context, account *domain.Account, code string) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	invite, err := a.s.consumableInviteLocked(code)
	if err != nil {
		return err
	}
	if err := a.s.insertAccountLocked(account); err != nil {
		return err
	}
	a.s.markUsedLocked(invite, account.ID)
	return nil
}

func (a accountStore) GetByID(_ context.Context, id string) (*domain.Account, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	account, ok := a.s.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *account
	return &cp, nil
}

func (a accountStore) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	for _, account := range a.s.accounts {
		if account.Email == email {
			cp := *account
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (a accountStore) update(id string, fn func(*domain.Account)) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	account, ok := a.s.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(account)
	account.UpdatedAt = a.s.now()
	return nil
}

func (a accountStore) UpdateRole(_ context.Context, id string, role domain.Role) error {
	return a.update(id, func(acc *domain.Account) { acc.Role = role })
}

func (a accountStore) UpdateStatus(_ context.Context, id string, status domain.AccountStatus) error {
	return a.update(id, func(acc *domain.Account) { acc.Status = status })
}

func (a accountStore) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return a.update(id, func(acc *domain.Account) { acc.PasswordHash = passwordHash })
}

func (a accountStore) SetOnline(_ context.Context, id string, online bool) error {
	return a.update(id, func(acc *domain.Account) { acc.IsOnline = online })
}

func (a accountStore) matching(filter repository.AccountFilter) []domain.Account {
	var result []domain.Account
	for _, account := range a.s.accounts {
		if len(filter.Roles) > 0 && !containsRole(filter.Roles, account.Role) {
			continue
		}
		if filter.Status != nil && account.Status != *filter.Status {
			continue
		}
		if filter.OnlineOnly && !account.IsOnline {
			continue
		}
		result = append(result, *account)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (a accountStore) List(_ context.Context, filter repository.AccountFilter) ([]domain.Account, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return page(a.matching(filter), filter.Limit, filter.Offset), nil
}

func (a accountStore) Count(_ context.Context, filter repository.AccountFilter) (int, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return len(a.matching(filter)), nil
}

func containsRole(roles []domain.Role, role domain.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

type inviteStore struct{ s *Store }

func (i inviteStore) Create(_ context.Context, code *domain.InviteCode) error {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	if _, exists := i.s.invites[code.Code]; exists {
		return repository.ErrDuplicateCode
	}
	code.ID = uuid.NewString()
	code.CreatedAt = i.s.now()
	cp := *code
	i.s.invites[cp.Code] = &cp
	return nil
}

func (i inviteStore) GetByCode(_ context.Context, code string) (*domain.InviteCode, error) {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	invite, ok := i.s.invites[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *invite
	return &cp, nil
}

func (i inviteStore) Consume(_ context.Context, code, accountID string) error {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	invite, err := i.s.consumableInviteLocked(code)
	if err != nil {
		return err
	}
	i.s.markUsedLocked(invite, accountID)
	return nil
}

func (s *Store) consumableInviteLocked(code string) (*domain.InviteCode, error) {
	invite, ok := s.invites[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if invite.Used {
		return nil, repository.ErrInviteCodeUsed
	}
	if invite.Expired(s.now()) {
		return nil, repository.ErrInviteExpired
	}
	return invite, nil
}

func (s *Store) markUsedLocked(invite *domain.InviteCode, accountID string) {
	now := s.now()
	invite.Used = true
	invite.UsedBy = &accountID
	invite.UsedAt = &now
}

func (i inviteStore) List(_ context.Context, filter repository.InviteCodeFilter) ([]domain.InviteCode, error) {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	var result []domain.InviteCode
	for _, invite := range i.s.invites {
		if filter.Role != nil && invite.Role != *filter.Role {
			continue
		}
		if filter.UnusedOnly && invite.Used {
			continue
		}
		result = append(result, *invite)
	}
	sort.Slice(result, func(a, b int) bool {
		return result[a].CreatedAt.After(result[b].CreatedAt)
	})
	return page(result, filter.Limit, filter.Offset), nil
}

type ticketStore struct{ s *Store }

func (t ticketStore) Create(_ context.Context, ticket *domain.Ticket, initial *domain.HistoryEntry) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, existing := range t.s.tickets {
		if existing.Token == ticket.Token {
			return repository.ErrDuplicateToken
		}
	}
	now := t.s.now()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	cp := *ticket
	t.s.tickets[cp.ID] = &cp

	if initial != nil {
		initial.TicketID = ticket.ID
		t.s.appendHistoryLocked(initial)
	}
	return nil
}

func (s *Store) appendHistoryLocked(entry *domain.HistoryEntry) {
	s.nextHistory++
	entry.ID = s.nextHistory
	entry.CreatedAt = s.now()
	s.history[entry.TicketID] = append(s.history[entry.TicketID], *entry)
}

func (t ticketStore) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	ticket, ok := t.s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *ticket
	return &cp, nil
}

func (t ticketStore) GetByToken(_ context.Context, token string) (*domain.Ticket, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, ticket := range t.s.tickets {
		if ticket.Token == token {
			cp := *ticket
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (t ticketStore) matching(filter repository.TicketFilter) []domain.Ticket {
	var result []domain.Ticket
	for _, ticket := range t.s.tickets {
		if filter.ReporterID != nil && ticket.ReporterID != *filter.ReporterID {
			continue
		}
		if filter.AssigneeID != nil && (ticket.AssigneeID == nil || *ticket.AssigneeID != *filter.AssigneeID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		if filter.Category != nil && ticket.Category != *filter.Category {
			continue
		}
		result = append(result, *ticket)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (t ticketStore) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return page(t.matching(filter), filter.Limit, filter.Offset), nil
}

func (t ticketStore) ApplyTransition(_ context.Context, params repository.TransitionParams) (*domain.HistoryEntry, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	ticket, ok := t.s.tickets[params.TicketID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if ticket.Status != params.From {
		return nil, repository.ErrStatusConflict
	}
	ticket.Status = params.To
	if params.Note != nil {
		note := *params.Note
		ticket.TechNote = &note
	}
	ticket.UpdatedAt = t.s.now()

	entry := &domain.HistoryEntry{
		TicketID: params.TicketID,
		Status:   params.To,
		Note:     params.Note,
		ActorID:  params.ActorID,
	}
	t.s.appendHistoryLocked(entry)
	return entry, nil
}

func (t ticketStore) Assign(_ context.Context, ticketID, technicianID string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	ticket, ok := t.s.tickets[ticketID]
	if !ok {
		return repository.ErrNotFound
	}
	if ticket.Status.IsTerminal() {
		return repository.ErrStatusConflict
	}
	ticket.AssigneeID = &technicianID
	ticket.UpdatedAt = t.s.now()
	return nil
}

func (t ticketStore) Stats(_ context.Context, filter repository.TicketFilter) (domain.TicketStats, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var stats domain.TicketStats
	for _, ticket := range t.matching(filter) {
		stats.Total++
		switch ticket.Status {
		case domain.TicketStatusOpen:
			stats.Open++
		case domain.TicketStatusResolved:
			stats.Resolved++
		}
	}
	return stats, nil
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type historyStore struct{ s *Store }

func (h historyStore) ListByTicket(_ context.Context, ticketID string) ([]domain.HistoryEntry, error) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	entries := h.s.history[ticketID]
	result := make([]domain.HistoryEntry, len(entries))
	copy(result, entries)
	return result, nil
}

type rateLimitStore struct{ s *Store }

func (r rateLimitStore) CountSince(_ context.Context, action, addr string, since time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, a := range r.s.attempts {
		if a.action == action && a.addr == addr && a.at.After(since) {
			count++
		}
	}
	return count, nil
}

func (r rateLimitStore) Record(_ context.Context, action, addr string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.attempts = append(r.s.attempts, attempt{action: action, addr: addr, at: at})
	return nil
}

func (r rateLimitStore) Clear(_ context.Context, action, addr string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.attempts[:0]
	for _, a := range r.s.attempts {
		if a.action != action || a.addr != addr {
			kept = append(kept, a)
		}
	}
	r.s.attempts = kept
	return nil
}

func (r rateLimitStore) PurgeBefore(_ context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.attempts[:0]
	var removed int64
	for _, a := range r.s.attempts {
		if a.at.After(before) {
			kept = append(kept, a)
		} else {
			removed++
		}
	}
	r.s.attempts = kept
	return removed, nil
}
