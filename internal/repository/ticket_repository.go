package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/campusdesk/internal/domain"
)

// TicketFilter captures list parameters. ReporterID and AssigneeID carry the
// caller's visibility scope.
type TicketFilter struct {
	ReporterID *string
	AssigneeID *string
	Statuses   []domain.TicketStatus
	Category   *domain.TicketCategory
	Limit      int
	Offset     int
}

// TransitionParams describes one status change and the history entry it produces.
type TransitionParams struct {
	TicketID string
	From     domain.TicketStatus
	To       domain.TicketStatus
	Note     *string
	ActorID  string
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	// Create inserts the ticket and its initial history entry atomically.
	Create(ctx context.Context, ticket *domain.Ticket, initial *domain.HistoryEntry) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByToken(ctx context.Context, token string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// ApplyTransition updates the status only if it still equals From and appends the
	// history entry in the same transaction.
	ApplyTransition(ctx context.Context, params TransitionParams) (*domain.HistoryEntry, error)
	// Assign sets the assignee while the ticket is open or in progress; otherwise it
	// returns ErrStatusConflict.
	Assign(ctx context.Context, ticketID, technicianID string) error
	Stats(ctx context.Context, filter TicketFilter) (domain.TicketStats, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const selectTicketColumns = `
        SELECT id, token, reporter_id, assignee_id, title, description, category, priority, status,
               building, room_no, tech_note, created_at, updated_at
        FROM tickets`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket, initial *domain.HistoryEntry) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO tickets (token, reporter_id, assignee_id, title, description, category, priority, status, building, room_no)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	err = tx.QueryRow(ctx, query,
		ticket.Token,
		ticket.ReporterID,
		ticket.AssigneeID,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.Location.Building,
		ticket.Location.RoomNo,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateToken
	}
	if err != nil {
		return err
	}

	if initial != nil {
		initial.TicketID = ticket.ID
		if err := insertHistory(ctx, tx, initial); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, selectTicketColumns+` WHERE id=$1`, id)
}

func (r *ticketRepository) GetByToken(ctx context.Context, token string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, selectTicketColumns+` WHERE token=$1`, token)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	where, args := ticketWhere(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		selectTicketColumns, where, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) ApplyTransition(ctx context.Context, params TransitionParams) (*domain.HistoryEntry, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const update = `
        UPDATE tickets SET status=$1, tech_note=COALESCE($2, tech_note), updated_at=NOW()
        WHERE id=$3 AND status=$4`
	cmd, err := tx.Exec(ctx, update, params.To, params.Note, params.TicketID, params.From)
	if err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, params.TicketID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, ErrStatusConflict
	}

	entry := &domain.HistoryEntry{
		TicketID: params.TicketID,
		Status:   params.To,
		Note:     params.Note,
		ActorID:  params.ActorID,
	}
	if err := insertHistory(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *ticketRepository) Assign(ctx context.Context, ticketID, technicianID string) error {
	const query = `
        UPDATE tickets SET assignee_id=$1, updated_at=NOW()
        WHERE id=$2 AND status IN ('open', 'in_progress')`
	cmd, err := r.pool.Exec(ctx, query, technicianID, ticketID)
	if err != nil {
		return mapNoRows(err)
	}
	if cmd.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, ticketID).Scan(&exists); err != nil {
		return mapNoRows(err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStatusConflict
}

func (r *ticketRepository) Stats(ctx context.Context, filter TicketFilter) (domain.TicketStats, error) {
	where, args := ticketWhere(filter)
	query := `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status='open'),
               COUNT(*) FILTER (WHERE status='resolved')
        FROM tickets WHERE ` + where

	var stats domain.TicketStats
	err := r.pool.QueryRow(ctx, query, args...).Scan(&stats.Total, &stats.Open, &stats.Resolved)
	return stats, err
}

func ticketWhere(filter TicketFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ReporterID != nil {
		args = append(args, *filter.ReporterID)
		clauses = append(clauses, fmt.Sprintf("reporter_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Token,
		&ticket.ReporterID,
		&ticket.AssigneeID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Status,
		&ticket.Location.Building,
		&ticket.Location.RoomNo,
		&ticket.TechNote,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
