package domain

import "time"

// IssueType carries the defaults used when a ticket is routed.
type IssueType struct {
	ID              string
	Name            string
	Icon            string
	DefaultSLAHours int
	DefaultTeamID   *string
	DefaultAssignee *string
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
