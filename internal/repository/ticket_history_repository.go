package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/campusdesk/internal/domain"
)

// TicketHistoryRepository reads the append-only status log. Entries are only
// written by TicketRepository alongside the status change they record.
type TicketHistoryRepository interface {
	ListByTicket(ctx context.Context, ticketID string) ([]domain.HistoryEntry, error)
}

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{pool: pool}
}

func insertHistory(ctx context.Context, q querier, entry *domain.HistoryEntry) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, status, note, actor_id)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return q.QueryRow(ctx, query,
		entry.TicketID,
		entry.Status,
		entry.Note,
		entry.ActorID,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.HistoryEntry, error) {
	const query = `
        SELECT id, ticket_id, status, note, actor_id, created_at
        FROM ticket_history WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.HistoryEntry
	for rows.Next() {
		var entry domain.HistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.Status,
			&entry.Note,
			&entry.ActorID,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
