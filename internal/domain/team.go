package domain

import "time"

// TeamType distinguishes functional teams from regional escalation teams.
type TeamType string

const (
	TeamTypeFunctional TeamType = "functional"
	TeamTypeCityTeam   TeamType = "city_team"
	TeamTypeCustom     TeamType = "custom"
)

// Valid reports whether t is a known team type.
func (t TeamType) Valid() bool {
	return t == TeamTypeFunctional || t == TeamTypeCityTeam || t == TeamTypeCustom
}

// Team is a group of staff. A city_team belongs to exactly one region and a region
// has at most one city_team.
type Team struct {
	ID        string
	Name      string
	TeamType  TeamType
	RegionID  *string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
