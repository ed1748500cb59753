package domain

import "time"

// RoutingRule overrides team/assignee for an (issue type, region) pair.
// Rules are stored and editable but not consulted by ticket routing.
type RoutingRule struct {
	ID          string
	IssueTypeID string
	RegionID    string
	TeamID      *string
	AssigneeID  *string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SLARule overrides SLA hours for an (issue type, priority) pair.
// Rules are stored and editable but not consulted by the SLA clock.
type SLARule struct {
	ID                         string
	IssueTypeID                string
	Priority                   TicketPriority
	SLAHours                   int
	EscalationThresholdPercent int
	IsActive                   bool
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
}
