package domain

import "time"

// HistoryEntry is an immutable record of one accepted status transition.
type HistoryEntry struct {
	ID        int64
	TicketID  string
	Status    TicketStatus
	Note      *string
	ActorID   string
	CreatedAt time.Time
}
