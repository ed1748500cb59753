package domain

import "time"

// Role enumerates staff permissions.
type Role string

const (
	RoleAgent   Role = "agent"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// Profile is a staff member who can log in and own tickets.
type Profile struct {
	ID           string
	FullName     string
	Email        string
	PasswordHash string
	Role         Role
	TeamID       *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanManage reports whether the profile may reassign tickets and manage groups.
func (p *Profile) CanManage() bool {
	return p != nil && (p.Role == RoleManager || p.Role == RoleAdmin)
}

// IsAdmin reports whether the profile may change configuration.
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
