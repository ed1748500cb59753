package domain

import "time"

// Region groups cities for routing and management.
type Region struct {
	ID        string
	Name      string
	ManagerID *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CityMapping maps one city name to exactly one region.
type CityMapping struct {
	ID        string
	CityName  string
	RegionID  string
	CreatedAt time.Time
}
