package events

import (
	"time"

	"github.com/spec-kit/campusdesk/internal/domain"
)

// EventType enumerates supported event identifiers. Values double as AMQP routing keys.
type EventType string

const (
	EventTicketCreated       EventType = "ticket.created"
	EventTicketStatusChanged EventType = "ticket.status_changed"
	EventTicketAssigned      EventType = "ticket.assigned"
	EventAccountRegistered   EventType = "account.registered"
	EventAccountRoleChanged  EventType = "account.role_changed"
	EventAccountStatusSet    EventType = "account.status_changed"
)

// AllEventTypes lists every type the service emits.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketStatusChanged,
	EventTicketAssigned,
	EventAccountRegistered,
	EventAccountRoleChanged,
	EventAccountStatusSet,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	SubjectID string       `json:"subject_id"`
	Actor     domain.Actor `json:"actor"`
	Timestamp time.Time    `json:"timestamp"`
	Payload   interface{}  `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Token    string                `json:"token"`
	Category domain.TicketCategory `json:"category"`
	Priority domain.TicketPriority `json:"priority"`
	Title    string                `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Token     string              `json:"token"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Note      string              `json:"note,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	Token        string `json:"token"`
	TechnicianID string `json:"technician_id"`
}

// AccountRegisteredPayload payload.
type AccountRegisteredPayload struct {
	Email     string               `json:"email"`
	Role      domain.Role          `json:"role"`
	Status    domain.AccountStatus `json:"status"`
	ViaInvite bool                 `json:"via_invite"`
}

// AccountRoleChangedPayload payload.
type AccountRoleChangedPayload struct {
	OldRole domain.Role `json:"old_role"`
	NewRole domain.Role `json:"new_role"`
}

// AccountStatusChangedPayload payload.
type AccountStatusChangedPayload struct {
	OldStatus domain.AccountStatus `json:"old_status"`
	NewStatus domain.AccountStatus `json:"new_status"`
}
