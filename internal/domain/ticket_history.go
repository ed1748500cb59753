package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeCreated  TicketChangeType = "created"
	ChangeTypeStatus   TicketChangeType = "status_change"
	ChangeTypeAssignee TicketChangeType = "assignee_change"
	ChangeTypeTeam     TicketChangeType = "team_change"
	ChangeTypeGroup    TicketChangeType = "group_change"
	ChangeTypeSLA      TicketChangeType = "sla_status_change"
)

// TicketHistory is an immutable audit trail entry. ChangedBy is nil for system changes such
// as SLA sweeps; ChangedByName is filled on reads.
type TicketHistory struct {
	ID            string
	TicketID      string
	ChangedBy     *string
	ChangedByName string
	ChangeType    TicketChangeType
	OldValue      map[string]any
	NewValue      map[string]any
	CreatedAt     time.Time
}
