package domain

import "time"

// Session is the authenticated context established at login. The profile snapshot is
// taken once and shared by every request made with the session's token.
type Session struct {
	ID        string    `json:"id"`
	ProfileID string    `json:"profile_id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	TeamID    *string   `json:"team_id,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Profile returns the profile snapshot carried by the session.
func (s *Session) Profile() *Profile {
	if s == nil {
		return nil
	}
	return &Profile{
		ID:       s.ProfileID,
		FullName: s.FullName,
		Email:    s.Email,
		Role:     s.Role,
		TeamID:   s.TeamID,
		IsActive: true,
	}
}
