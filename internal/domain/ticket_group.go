package domain

import "time"

// TicketGroupStatus enumerates group states.
type TicketGroupStatus string

const (
	TicketGroupActive   TicketGroupStatus = "active"
	TicketGroupResolved TicketGroupStatus = "resolved"
)

// TicketGroup bundles tickets for bulk resolution.
type TicketGroup struct {
	ID          string
	Name        string
	IssueTypeID string
	City        string
	AssignedTo  *string
	SLADueAt    *time.Time
	Status      TicketGroupStatus
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ResolvedAt  *time.Time
}
