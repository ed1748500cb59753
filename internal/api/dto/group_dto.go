package dto

import (
	"time"

	"github.com/cityflow/crm/internal/domain"
	"github.com/cityflow/crm/internal/sla"
)

// CreateGroupRequest payload.
type CreateGroupRequest struct {
	Name        string   `json:"name"`
	IssueTypeID string   `json:"issue_type_id"`
	City        string   `json:"city"`
	AssignedTo  *string  `json:"assigned_to"`
	TicketIDs   []string `json:"ticket_ids"`
}

// GroupTicketsRequest adds tickets to a group.
type GroupTicketsRequest struct {
	TicketIDs []string `json:"ticket_ids"`
}

// GroupResponse is a group row with its SLA timer.
type GroupResponse struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	IssueTypeID string                   `json:"issue_type_id"`
	City        string                   `json:"city"`
	AssignedTo  *string                  `json:"assigned_to"`
	SLADueAt    *time.Time               `json:"sla_due_at"`
	Status      domain.TicketGroupStatus `json:"status"`
	SLA         *sla.Timer               `json:"sla,omitempty"`
	CreatedBy   string                   `json:"created_by"`
	CreatedAt   time.Time                `json:"created_at"`
	ResolvedAt  *time.Time               `json:"resolved_at"`
	Tickets     []TicketResponse         `json:"tickets,omitempty"`
}

// GroupResolutionResponse reports a bulk resolve.
type GroupResolutionResponse struct {
	Group    GroupResponse     `json:"group"`
	Resolved []string          `json:"resolved"`
	Skipped  []string          `json:"skipped"`
	Failed   map[string]string `json:"failed"`
}
