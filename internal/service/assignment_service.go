package service

import (
	"context"
	"strings"
	"time"

	"github.com/cityflow/crm/internal/domain"
	"github.com/cityflow/crm/internal/observability"
	"github.com/cityflow/crm/internal/repository"
	"github.com/cityflow/crm/internal/sla"
	apperrors "github.com/cityflow/crm/pkg/util/errorutil"
)

const (
	noManagerLabel  = "No manager"
	unassignedLabel = "Unassigned"
	noTeamLabel     = "No team"
)

// AssignmentService resolves the routing chain for a ticket: city to region, region to
// manager and city team, issue type to defaults.
type AssignmentService struct {
	regions    repository.RegionRepository
	teams      repository.TeamRepository
	profiles   repository.ProfileRepository
	issueTypes repository.IssueTypeRepository
	metrics    *observability.Metrics
	now        func() time.Time
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	RegionRepo    repository.RegionRepository
	TeamRepo      repository.TeamRepository
	ProfileRepo   repository.ProfileRepository
	IssueTypeRepo repository.IssueTypeRepository
	Metrics       *observability.Metrics
	Now           func() time.Time
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &AssignmentService{
		regions:    deps.RegionRepo,
		teams:      deps.TeamRepo,
		profiles:   deps.ProfileRepo,
		issueTypes: deps.IssueTypeRepo,
		metrics:    deps.Metrics,
		now:        now,
	}
}

// RegionContacts is the manager and tier-2 team of a region.
type RegionContacts struct {
	ManagerID   *string
	ManagerName string
	Tier2Team   *domain.Team
}

// IssueTypeDefaults are the routing defaults carried by an issue type.
type IssueTypeDefaults struct {
	IssueType  *domain.IssueType
	SLAHours   int
	TeamID     *string
	AssigneeID *string
}

// PreviewInput is the form state a preview is derived from.
type PreviewInput struct {
	IssueTypeID string
	City        string
}

// AssignmentPreview is the routing decision for a prospective ticket.
type AssignmentPreview struct {
	IssueTypeID   string
	IssueTypeName string
	City          string
	RegionID      string
	RegionName    string
	ManagerID     *string
	ManagerName   string
	AssigneeID    *string
	AssigneeName  string
	TeamID        *string
	TeamName      string
	Tier2TeamID   *string
	Tier2TeamName string
	SLAHours      int
	SLADueAt      time.Time
	SLAStatus     domain.SLAStatus
	SLALabel      string
}

// ResolveRegion maps city to its region. An unmapped city is refused with CITY_UNMAPPED;
// there is no default region.
func (s *AssignmentService) ResolveRegion(ctx context.Context, city string) (*domain.Region, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, apperrors.NewValidationError("city is required", nil)
	}
	mapping, err := s.regions.GetCityMapping(ctx, city)
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.metrics.AssignmentRefused()
			return nil, apperrors.NewUnroutable(city)
		}
		return nil, apperrors.MapError(err)
	}
	region, err := s.regions.GetByID(ctx, mapping.RegionID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.metrics.AssignmentRefused()
			return nil, apperrors.NewUnroutable(city)
		}
		return nil, apperrors.MapError(err)
	}
	return region, nil
}

// ResolveRegionContacts returns the region's manager name ("No manager" when absent) and its
// city team, if any. An inactive city team is treated as absent.
func (s *AssignmentService) ResolveRegionContacts(ctx context.Context, region *domain.Region) (*RegionContacts, error) {
	contacts := &RegionContacts{ManagerName: noManagerLabel}
	if region.ManagerID != nil {
		manager, err := s.profiles.GetByID(ctx, *region.ManagerID)
		switch {
		case err == nil:
			contacts.ManagerID = &manager.ID
			contacts.ManagerName = manager.FullName
		case !apperrors.IsNotFound(err):
			return nil, apperrors.MapError(err)
		}
	}

	team, err := s.teams.CityTeamForRegion(ctx, region.ID)
	switch {
	case err == nil && team.IsActive:
		contacts.Tier2Team = team
	case !apperrors.IsNotFound(err):
		return nil, apperrors.MapError(err)
	}
	return contacts, nil
}

// ResolveIssueTypeDefaults returns the SLA hours, team and assignee an issue type routes to.
// default_sla_hours is validated on write and trusted here.
func (s *AssignmentService) ResolveIssueTypeDefaults(ctx context.Context, issueTypeID string) (*IssueTypeDefaults, error) {
	if strings.TrimSpace(issueTypeID) == "" {
		return nil, apperrors.NewValidationError("issue_type_id is required", nil)
	}
	it, err := s.issueTypes.GetByID(ctx, issueTypeID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewValidationError("unknown issue type", map[string]any{"issue_type_id": issueTypeID})
		}
		return nil, apperrors.MapError(err)
	}
	if !it.IsActive {
		return nil, apperrors.NewValidationError("issue type is inactive", map[string]any{"issue_type_id": issueTypeID})
	}
	return &IssueTypeDefaults{
		IssueType:  it,
		SLAHours:   it.DefaultSLAHours,
		TeamID:     it.DefaultTeamID,
		AssigneeID: it.DefaultAssignee,
	}, nil
}

// Preview derives the assignment for input without side effects. The projected due time is
// anchored at the current time.
func (s *AssignmentService) Preview(ctx context.Context, input PreviewInput) (*AssignmentPreview, error) {
	return s.resolve(ctx, input, s.now())
}

// resolve runs every resolver and composes the decision with the SLA anchored at anchor.
func (s *AssignmentService) resolve(ctx context.Context, input PreviewInput, anchor time.Time) (*AssignmentPreview, error) {
	defaults, err := s.ResolveIssueTypeDefaults(ctx, input.IssueTypeID)
	if err != nil {
		return nil, err
	}
	region, err := s.ResolveRegion(ctx, input.City)
	if err != nil {
		return nil, err
	}
	contacts, err := s.ResolveRegionContacts(ctx, region)
	if err != nil {
		return nil, err
	}

	dueAt := sla.DueAt(anchor, defaults.SLAHours)
	preview := &AssignmentPreview{
		IssueTypeID:   defaults.IssueType.ID,
		IssueTypeName: defaults.IssueType.Name,
		City:          strings.TrimSpace(input.City),
		RegionID:      region.ID,
		RegionName:    region.Name,
		ManagerID:     contacts.ManagerID,
		ManagerName:   contacts.ManagerName,
		AssigneeName:  unassignedLabel,
		TeamName:      noTeamLabel,
		SLAHours:      defaults.SLAHours,
		SLADueAt:      dueAt,
		SLAStatus:     sla.Evaluate(dueAt, anchor),
		SLALabel:      sla.Describe(dueAt, anchor),
	}

	if defaults.AssigneeID != nil {
		assignee, err := s.profiles.GetByID(ctx, *defaults.AssigneeID)
		switch {
		case err == nil && assignee.IsActive:
			preview.AssigneeID = &assignee.ID
			preview.AssigneeName = assignee.FullName
		case err != nil && !apperrors.IsNotFound(err):
			return nil, apperrors.MapError(err)
		}
	}
	if defaults.TeamID != nil {
		team, err := s.teams.GetByID(ctx, *defaults.TeamID)
		switch {
		case err == nil && team.IsActive:
			preview.TeamID = &team.ID
			preview.TeamName = team.Name
		case err != nil && !apperrors.IsNotFound(err):
			return nil, apperrors.MapError(err)
		}
	}
	if contacts.Tier2Team != nil {
		preview.Tier2TeamID = &contacts.Tier2Team.ID
		preview.Tier2TeamName = contacts.Tier2Team.Name
	}
	return preview, nil
}
