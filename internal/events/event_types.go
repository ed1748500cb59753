package events

import (
	"time"

	"github.com/cityflow/crm/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketCommentAdded  EventType = "ticket_comment_added"
	EventTicketSLAWarning    EventType = "ticket_sla_warning"
	EventTicketSLABreached   EventType = "ticket_sla_breached"
	EventGroupResolved       EventType = "ticket_group_resolved"

	// AllEvents subscribes a handler to every event type.
	AllEvents EventType = "*"
)

// Actor identifies who caused an event. ProfileID is nil for the SLA sweeper.
type Actor struct {
	ProfileID *string `json:"profile_id,omitempty"`
	System    bool    `json:"system,omitempty"`
}

// SystemActor is the actor for background jobs.
func SystemActor() Actor {
	return Actor{System: true}
}

// ProfileActor is the actor for a signed-in staff member.
func ProfileActor(profileID string) Actor {
	return Actor{ProfileID: &profileID}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber string                `json:"ticket_number"`
	IssueTypeID  string                `json:"issue_type_id"`
	City         string                `json:"city"`
	RegionID     *string               `json:"region_id,omitempty"`
	AssignedTo   *string               `json:"assigned_to,omitempty"`
	TeamID       *string               `json:"team_id,omitempty"`
	Tier2TeamID  *string               `json:"tier2_team_id,omitempty"`
	Priority     domain.TicketPriority `json:"priority"`
	SLADueAt     *time.Time            `json:"sla_due_at,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssignedTo *string `json:"assigned_to,omitempty"`
	TeamID     *string `json:"team_id,omitempty"`
}

// TicketCommentAddedPayload payload.
type TicketCommentAddedPayload struct {
	CommentID   string  `json:"comment_id"`
	ParentID    *string `json:"parent_id,omitempty"`
	IsInternal  bool    `json:"is_internal"`
	BodyPreview string  `json:"body_preview"`
}

// TicketSLAPayload is published when the sweeper moves a ticket into warning or breached.
type TicketSLAPayload struct {
	TicketNumber string           `json:"ticket_number"`
	OldStatus    domain.SLAStatus `json:"old_status"`
	NewStatus    domain.SLAStatus `json:"new_status"`
	SLADueAt     time.Time        `json:"sla_due_at"`
	Tier2TeamID  *string          `json:"tier2_team_id,omitempty"`
}

// GroupResolvedPayload payload.
type GroupResolvedPayload struct {
	GroupID  string   `json:"group_id"`
	Resolved []string `json:"resolved_ticket_ids"`
	Failed   []string `json:"failed_ticket_ids,omitempty"`
}
