package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "new"
	TicketStatusAssigned   TicketStatus = "assigned"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusNew, TicketStatusAssigned, TicketStatusInProgress,
		TicketStatusPending, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// Completed reports whether the ticket no longer runs an SLA timer.
func (s TicketStatus) Completed() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityNormal   TicketPriority = "normal"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityNormal, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// SLAStatus is the live SLA bucket of an open ticket.
type SLAStatus string

const (
	SLAStatusOnTrack  SLAStatus = "on-track"
	SLAStatusWarning  SLAStatus = "warning"
	SLAStatusBreached SLAStatus = "breached"
)

// Ticket is a supplier issue raised by staff.
type Ticket struct {
	ID            string
	TicketNumber  string
	Subject       string
	Description   string
	IssueTypeID   string
	SupplierID    *string
	SupplierName  string
	City          string
	RegionID      *string
	Priority      TicketPriority
	Status        TicketStatus
	AssignedTo    *string
	TeamID        *string
	Tier2TeamID   *string
	SLADueAt      *time.Time
	SLAStatus     SLAStatus
	CreatedBy     string
	TicketGroupID *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ResolvedAt    *time.Time
	ClosedAt      *time.Time
}
