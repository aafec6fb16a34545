package dto

import (
	"time"

	"github.com/spec-kit/campusdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    domain.TicketCategory `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
	Building    *string               `json:"building"`
	RoomNo      *string               `json:"room_no"`
}

// TicketResponse is the full view of a ticket.
type TicketResponse struct {
	ID          string                `json:"id"`
	Token       string                `json:"token"`
	ReporterID  string                `json:"reporter_id"`
	AssigneeID  *string               `json:"assignee_id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    domain.TicketCategory `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
	Status      domain.TicketStatus   `json:"status"`
	Building    *string               `json:"building"`
	RoomNo      *string               `json:"room_no"`
	TechNote    *string               `json:"tech_note"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// TransitionRequest payload.
type TransitionRequest struct {
	Status domain.TicketStatus `json:"status"`
	Note   *string             `json:"note"`
}

// AssignRequest payload.
type AssignRequest struct {
	TechnicianID string `json:"technician_id"`
}

// TicketHistoryResponse is one status log entry.
type TicketHistoryResponse struct {
	ID        int64               `json:"id"`
	Status    domain.TicketStatus `json:"status"`
	Note      *string             `json:"note"`
	ActorID   string              `json:"actor_id"`
	CreatedAt time.Time           `json:"created_at"`
}

// TicketStatsResponse holds dashboard counts.
type TicketStatsResponse struct {
	Total             int  `json:"total"`
	Open              int  `json:"open"`
	Resolved          int  `json:"resolved"`
	OnlineTechnicians *int `json:"online_technicians,omitempty"`
}

// ScanLinkResponse carries the link encoded in a ticket's printable code.
type ScanLinkResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}
