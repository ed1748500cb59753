package dto

import (
	"time"

	"github.com/cityflow/crm/internal/domain"
)

// IssueTypeRequest payload.
type IssueTypeRequest struct {
	Name            string  `json:"name"`
	Icon            string  `json:"icon"`
	DefaultSLAHours int     `json:"default_sla_hours"`
	DefaultTeamID   *string `json:"default_team_id"`
	DefaultAssignee *string `json:"default_assignee"`
	IsActive        *bool   `json:"is_active"`
}

// IssueTypeResponse row.
type IssueTypeResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Icon            string    `json:"icon"`
	DefaultSLAHours int       `json:"default_sla_hours"`
	DefaultTeamID   *string   `json:"default_team_id"`
	DefaultAssignee *string   `json:"default_assignee"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

// RegionRequest payload.
type RegionRequest struct {
	Name      string  `json:"name"`
	ManagerID *string `json:"manager_id"`
}

// RegionResponse row.
type RegionResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ManagerID *string   `json:"manager_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CityMappingRequest payload.
type CityMappingRequest struct {
	CityName string `json:"city_name"`
	RegionID string `json:"region_id"`
}

// CityMappingResponse row.
type CityMappingResponse struct {
	ID        string    `json:"id"`
	CityName  string    `json:"city_name"`
	RegionID  string    `json:"region_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TeamRequest payload.
type TeamRequest struct {
	Name     string          `json:"name"`
	TeamType domain.TeamType `json:"team_type"`
	RegionID *string         `json:"region_id"`
	IsActive *bool           `json:"is_active"`
}

// TeamResponse row.
type TeamResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	TeamType  domain.TeamType `json:"team_type"`
	RegionID  *string         `json:"region_id"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
}

// ProfileRequest payload.
type ProfileRequest struct {
	FullName string      `json:"full_name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
	TeamID   *string     `json:"team_id"`
	IsActive *bool       `json:"is_active"`
}

// ProfileResponse row. The password hash is never rendered.
type ProfileResponse struct {
	ID        string      `json:"id"`
	FullName  string      `json:"full_name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	TeamID    *string     `json:"team_id"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
}

// RoutingRuleRequest payload.
type RoutingRuleRequest struct {
	IssueTypeID string  `json:"issue_type_id"`
	RegionID    string  `json:"region_id"`
	TeamID      *string `json:"team_id"`
	AssigneeID  *string `json:"assignee_id"`
	IsActive    *bool   `json:"is_active"`
}

// SLARuleRequest payload.
type SLARuleRequest struct {
	IssueTypeID                string                `json:"issue_type_id"`
	Priority                   domain.TicketPriority `json:"priority"`
	SLAHours                   int                   `json:"sla_hours"`
	EscalationThresholdPercent int                   `json:"escalation_threshold_percent"`
	IsActive                   *bool                 `json:"is_active"`
}

// RoutingRuleResponse row.
type RoutingRuleResponse struct {
	ID          string  `json:"id"`
	IssueTypeID string  `json:"issue_type_id"`
	RegionID    string  `json:"region_id"`
	TeamID      *string `json:"team_id"`
	AssigneeID  *string `json:"assignee_id"`
	IsActive    bool    `json:"is_active"`
}

// SLARuleResponse row.
type SLARuleResponse struct {
	ID                         string                `json:"id"`
	IssueTypeID                string                `json:"issue_type_id"`
	Priority                   domain.TicketPriority `json:"priority"`
	SLAHours                   int                   `json:"sla_hours"`
	EscalationThresholdPercent int                   `json:"escalation_threshold_percent"`
	IsActive                   bool                  `json:"is_active"`
}
