package dto

import (
	"strings"
	"time"

	"github.com/cityflow/crm/internal/domain"
	"github.com/cityflow/crm/internal/sla"
)

// PreviewRequest payload.
type PreviewRequest struct {
	IssueTypeID string `json:"issue_type_id"`
	City        string `json:"city"`
}

// Validate reports the missing fields.
func (r PreviewRequest) Validate() map[string]any {
	details := map[string]any{}
	if strings.TrimSpace(r.IssueTypeID) == "" {
		details["issue_type_id"] = "required"
	}
	if strings.TrimSpace(r.City) == "" {
		details["city"] = "required"
	}
	return details
}

// PreviewResponse is the routing decision shown before a ticket is submitted.
type PreviewResponse struct {
	IssueTypeID   string           `json:"issue_type_id"`
	IssueTypeName string           `json:"issue_type_name"`
	City          string           `json:"city"`
	RegionID      string           `json:"region_id"`
	RegionName    string           `json:"region_name"`
	ManagerID     *string          `json:"manager_id"`
	ManagerName   string           `json:"manager_name"`
	AssigneeID    *string          `json:"assignee_id"`
	AssigneeName  string           `json:"assignee_name"`
	TeamID        *string          `json:"team_id"`
	TeamName      string           `json:"team_name"`
	Tier2TeamID   *string          `json:"tier2_team_id"`
	Tier2TeamName string           `json:"tier2_team_name,omitempty"`
	SLAHours      int              `json:"sla_hours"`
	SLADueAt      time.Time        `json:"sla_due_at"`
	SLAStatus     domain.SLAStatus `json:"sla_status"`
	SLALabel      string           `json:"sla_label"`
}

// CreateTicketRequest payload. It is read from JSON or from multipart form fields.
type CreateTicketRequest struct {
	IssueTypeID  string                `json:"issue_type_id" form:"issue_type_id"`
	City         string                `json:"city" form:"city"`
	Subject      string                `json:"subject" form:"subject"`
	Description  string                `json:"description" form:"description"`
	SupplierID   *string               `json:"supplier_id" form:"supplier_id"`
	SupplierName string                `json:"supplier_name" form:"supplier_name"`
	Priority     domain.TicketPriority `json:"priority" form:"priority"`
}

// Validate reports the missing or malformed fields.
func (r CreateTicketRequest) Validate() map[string]any {
	details := PreviewRequest{IssueTypeID: r.IssueTypeID, City: r.City}.Validate()
	if strings.TrimSpace(r.Subject) == "" {
		details["subject"] = "required"
	}
	if r.Priority != "" && !r.Priority.Valid() {
		details["priority"] = "must be one of low, normal, high, critical"
	}
	return details
}

// CreateTicketResponse is the created ticket plus non-fatal warnings, such as attachments
// that failed to store.
type CreateTicketResponse struct {
	Ticket      TicketResponse       `json:"ticket"`
	Assignment  PreviewResponse      `json:"assignment"`
	Attachments []AttachmentResponse `json:"attachments"`
	Warnings    []string             `json:"warnings"`
}

// TicketResponse is a ticket row with its live SLA timer.
type TicketResponse struct {
	ID            string                `json:"id"`
	TicketNumber  string                `json:"ticket_number"`
	Subject       string                `json:"subject"`
	Description   string                `json:"description"`
	IssueTypeID   string                `json:"issue_type_id"`
	SupplierID    *string               `json:"supplier_id"`
	SupplierName  string                `json:"supplier_name,omitempty"`
	City          string                `json:"city"`
	RegionID      *string               `json:"region_id"`
	Priority      domain.TicketPriority `json:"priority"`
	Status        domain.TicketStatus   `json:"status"`
	AssignedTo    *string               `json:"assigned_to"`
	TeamID        *string               `json:"team_id"`
	Tier2TeamID   *string               `json:"tier2_team_id"`
	SLADueAt      *time.Time            `json:"sla_due_at"`
	SLAStatus     domain.SLAStatus      `json:"sla_status"`
	SLA           sla.Timer             `json:"sla"`
	TicketGroupID *string               `json:"ticket_group_id"`
	CreatedBy     string                `json:"created_by"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
	ResolvedAt    *time.Time            `json:"resolved_at"`
	ClosedAt      *time.Time            `json:"closed_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketResponse
	CreatedAgo  string                  `json:"created_ago"`
	Comments    []CommentResponse       `json:"comments"`
	Attachments []AttachmentResponse    `json:"attachments"`
	History     []TicketHistoryResponse `json:"history"`
}

// StatusRequest payload.
type StatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// AssignmentRequest payload. Explicit nulls are expressed with the clear flags.
type AssignmentRequest struct {
	AssigneeID    *string `json:"assignee_id"`
	TeamID        *string `json:"team_id"`
	ClearAssignee bool    `json:"clear_assignee"`
	ClearTeam     bool    `json:"clear_team"`
}

// CommentRequest payload.
type CommentRequest struct {
	Body       string  `json:"body"`
	ParentID   *string `json:"parent_id"`
	IsInternal bool    `json:"is_internal"`
}

// CommentResponse is one comment with its files.
type CommentResponse struct {
	ID          string               `json:"id"`
	ParentID    *string              `json:"parent_id"`
	AuthorID    string               `json:"author_id"`
	Body        string               `json:"body"`
	IsInternal  bool                 `json:"is_internal"`
	Attachments []AttachmentResponse `json:"attachments"`
	CreatedAt   time.Time            `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID        string    `json:"id"`
	CommentID *string   `json:"comment_id,omitempty"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID            string                  `json:"id"`
	ChangeType    domain.TicketChangeType `json:"change_type"`
	ChangedBy     *string                 `json:"changed_by"`
	ChangedByName string                  `json:"changed_by_name"`
	OldValue      map[string]any          `json:"old_value"`
	NewValue      map[string]any          `json:"new_value"`
	CreatedAt     time.Time               `json:"created_at"`
}
