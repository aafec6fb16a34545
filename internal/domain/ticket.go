package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusRejected   TicketStatus = "rejected"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketStatuses lists every status.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusRejected,
	TicketStatusClosed,
}

// ParseTicketStatus rejects unknown statuses.
func ParseTicketStatus(s string) (TicketStatus, bool) {
	for _, st := range TicketStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// CanTransitionTo is total over every (current, requested) pair. Resolved and rejected
// tickets may only be closed; closed is final.
func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	switch s {
	case TicketStatusOpen:
		return next == TicketStatusInProgress || next == TicketStatusResolved || next == TicketStatusRejected
	case TicketStatusInProgress:
		return next == TicketStatusResolved || next == TicketStatusRejected
	case TicketStatusResolved, TicketStatusRejected:
		return next == TicketStatusClosed
	default:
		return false
	}
}

// IsTerminal reports whether work on the ticket has finished.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusRejected || s == TicketStatusClosed
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// ParseTicketPriority rejects unknown priorities.
func ParseTicketPriority(s string) (TicketPriority, bool) {
	switch TicketPriority(s) {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return TicketPriority(s), true
	}
	return "", false
}

// TicketCategory is the kind of infrastructure at fault.
type TicketCategory string

const (
	CategoryWiFi        TicketCategory = "wifi"
	CategoryElectricity TicketCategory = "electricity"
	CategoryPlumbing    TicketCategory = "plumbing"
	CategoryMess        TicketCategory = "mess"
	CategoryCleaning    TicketCategory = "cleaning"
	CategoryFurniture   TicketCategory = "furniture"
	CategoryAC          TicketCategory = "ac"
	CategoryOther       TicketCategory = "other"
)

// ParseTicketCategory rejects unknown categories.
func ParseTicketCategory(s string) (TicketCategory, bool) {
	switch TicketCategory(s) {
	case CategoryWiFi, CategoryElectricity, CategoryPlumbing, CategoryMess,
		CategoryCleaning, CategoryFurniture, CategoryAC, CategoryOther:
		return TicketCategory(s), true
	}
	return "", false
}

// TicketLocation is where the problem was observed.
type TicketLocation struct {
	Building *string
	RoomNo   *string
}

// Ticket is a reported campus infrastructure problem.
type Ticket struct {
	ID          string
	Token       string
	ReporterID  string
	AssigneeID  *string
	Title       string
	Description string
	Category    TicketCategory
	Priority    TicketPriority
	Status      TicketStatus
	Location    TicketLocation
	TechNote    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TicketStats holds simple dashboard counts.
type TicketStats struct {
	Total             int
	Open              int
	Resolved          int
	OnlineTechnicians *int
}
