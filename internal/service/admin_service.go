package service

import (
	"context"
	"errors"
	"strings"

	"github.com/cityflow/crm/internal/auth"
	"github.com/cityflow/crm/internal/domain"
	"github.com/cityflow/crm/internal/repository"
	apperrors "github.com/cityflow/crm/pkg/util/errorutil"
)

// AdminService manages routing configuration: issue types, regions, city mappings, teams,
// staff profiles and the override rule tables.
type AdminService struct {
	issueTypes repository.IssueTypeRepository
	regions    repository.RegionRepository
	teams      repository.TeamRepository
	profiles   repository.ProfileRepository
	rules      repository.RuleRepository
	sessions   auth.SessionStore
	bcryptCost int
}

// AdminDependencies bundles repositories for the admin service.
type AdminDependencies struct {
	IssueTypeRepo repository.IssueTypeRepository
	RegionRepo    repository.RegionRepository
	TeamRepo      repository.TeamRepository
	ProfileRepo   repository.ProfileRepository
	RuleRepo      repository.RuleRepository
	SessionStore  auth.SessionStore
	BcryptCost    int
}

// NewAdminService constructs the service.
func NewAdminService(deps AdminDependencies) *AdminService {
	return &AdminService{
		issueTypes: deps.IssueTypeRepo,
		regions:    deps.RegionRepo,
		teams:      deps.TeamRepo,
		profiles:   deps.ProfileRepo,
		rules:      deps.RuleRepo,
		sessions:   deps.SessionStore,
		bcryptCost: deps.BcryptCost,
	}
}

// IssueTypeInput is the editable part of an issue type.
type IssueTypeInput struct {
	Name            string
	Icon            string
	DefaultSLAHours int
	DefaultTeamID   *string
	DefaultAssignee *string
	IsActive        *bool
}

// ListIssueTypes lists issue types.
func (s *AdminService) ListIssueTypes(ctx context.Context, includeInactive bool) ([]domain.IssueType, error) {
	items, err := s.issueTypes.List(ctx, includeInactive)
	return items, apperrors.MapError(err)
}

// CreateIssueType validates and stores an issue type. default_sla_hours must be positive;
// the routing resolvers rely on it.
func (s *AdminService) CreateIssueType(ctx context.Context, input IssueTypeInput) (*domain.IssueType, error) {
	if err := s.validateIssueType(ctx, input); err != nil {
		return nil, err
	}
	it := &domain.IssueType{
		Name:            strings.TrimSpace(input.Name),
		Icon:            strings.TrimSpace(input.Icon),
		DefaultSLAHours: input.DefaultSLAHours,
		DefaultTeamID:   input.DefaultTeamID,
		DefaultAssignee: input.DefaultAssignee,
		IsActive:        input.IsActive == nil || *input.IsActive,
	}
	if err := s.issueTypes.Create(ctx, it); err != nil {
		return nil, apperrors.MapError(err)
	}
	return it, nil
}

// UpdateIssueType replaces the editable fields of an issue type.
func (s *AdminService) UpdateIssueType(ctx context.Context, id string, input IssueTypeInput) (*domain.IssueType, error) {
	it, err := s.issueTypes.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "issue type", "issue_type_id", id)
	}
	if err := s.validateIssueType(ctx, input); err != nil {
		return nil, err
	}
	it.Name = strings.TrimSpace(input.Name)
	it.Icon = strings.TrimSpace(input.Icon)
	it.DefaultSLAHours = input.DefaultSLAHours
	it.DefaultTeamID = input.DefaultTeamID
	it.DefaultAssignee = input.DefaultAssignee
	if input.IsActive != nil {
		it.IsActive = *input.IsActive
	}
	if err := s.issueTypes.Update(ctx, it); err != nil {
		return nil, apperrors.MapError(err)
	}
	return it, nil
}

// DeactivateIssueType soft-deletes an issue type. Existing tickets keep their reference.
func (s *AdminService) DeactivateIssueType(ctx context.Context, id string) error {
	it, err := s.issueTypes.GetByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "issue type", "issue_type_id", id)
	}
	if !it.IsActive {
		return nil
	}
	it.IsActive = false
	return apperrors.MapError(s.issueTypes.Update(ctx, it))
}

func (s *AdminService) validateIssueType(ctx context.Context, input IssueTypeInput) error {
	details := map[string]any{}
	if strings.TrimSpace(input.Name) == "" {
		details["name"] = "required"
	}
	if input.DefaultSLAHours <= 0 {
		details["default_sla_hours"] = "must be a positive integer"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid issue type", details)
	}
	if input.DefaultTeamID != nil {
		if _, err := s.teams.GetByID(ctx, *input.DefaultTeamID); err != nil {
			return notFoundOr(err, "team", "team_id", *input.DefaultTeamID)
		}
	}
	if input.DefaultAssignee != nil {
		if _, err := s.profiles.GetByID(ctx, *input.DefaultAssignee); err != nil {
			return notFoundOr(err, "profile", "profile_id", *input.DefaultAssignee)
		}
	}
	return nil
}

// RegionInput is the editable part of a region.
type RegionInput struct {
	Name      string
	ManagerID *string
}

// ListRegions lists regions.
func (s *AdminService) ListRegions(ctx context.Context) ([]domain.Region, error) {
	items, err := s.regions.List(ctx)
	return items, apperrors.MapError(err)
}

// CreateRegion stores a region.
func (s *AdminService) CreateRegion(ctx context.Context, input RegionInput) (*domain.Region, error) {
	if err := s.validateRegion(ctx, input); err != nil {
		return nil, err
	}
	region := &domain.Region{Name: strings.TrimSpace(input.Name), ManagerID: input.ManagerID}
	if err := s.regions.Create(ctx, region); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("region already exists", map[string]any{"name": region.Name})
		}
		return nil, apperrors.MapError(err)
	}
	return region, nil
}

// UpdateRegion renames a region or changes its manager.
func (s *AdminService) UpdateRegion(ctx context.Context, id string, input RegionInput) (*domain.Region, error) {
	region, err := s.regions.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "region", "region_id", id)
	}
	if err := s.validateRegion(ctx, input); err != nil {
		return nil, err
	}
	region.Name = strings.TrimSpace(input.Name)
	region.ManagerID = input.ManagerID
	if err := s.regions.Update(ctx, region); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("region already exists", map[string]any{"name": region.Name})
		}
		return nil, apperrors.MapError(err)
	}
	return region, nil
}

func (s *AdminService) validateRegion(ctx context.Context, input RegionInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return apperrors.NewValidationError("name is required", nil)
	}
	if input.ManagerID != nil {
		manager, err := s.profiles.GetByID(ctx, *input.ManagerID)
		if err != nil {
			return notFoundOr(err, "profile", "profile_id", *input.ManagerID)
		}
		if !manager.CanManage() {
			return apperrors.NewValidationError("region manager must have the manager or admin role", nil)
		}
	}
	return nil
}

// ListCityMappings lists every city mapping.
func (s *AdminService) ListCityMappings(ctx context.Context) ([]domain.CityMapping, error) {
	items, err := s.regions.ListCityMappings(ctx)
	return items, apperrors.MapError(err)
}

// CreateCityMapping maps a city to a region. A city maps to exactly one region.
func (s *AdminService) CreateCityMapping(ctx context.Context, city, regionID string) (*domain.CityMapping, error) {
	city = strings.TrimSpace(city)
	if city == "" || strings.TrimSpace(regionID) == "" {
		return nil, apperrors.NewValidationError("city_name and region_id are required", nil)
	}
	if _, err := s.regions.GetByID(ctx, regionID); err != nil {
		return nil, notFoundOr(err, "region", "region_id", regionID)
	}
	existing, err := s.regions.GetCityMapping(ctx, city)
	switch {
	case err == nil:
		return nil, apperrors.NewConflict("city already mapped", map[string]any{
			"city":      existing.CityName,
			"region_id": existing.RegionID,
		})
	case !apperrors.IsNotFound(err):
		return nil, apperrors.MapError(err)
	}

	mapping := &domain.CityMapping{CityName: city, RegionID: regionID}
	if err := s.regions.CreateCityMapping(ctx, mapping); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("city already mapped", map[string]any{"city": city})
		}
		return nil, apperrors.MapError(err)
	}
	return mapping, nil
}

// DeleteCityMapping removes a mapping. Tickets from that city become unroutable.
func (s *AdminService) DeleteCityMapping(ctx context.Context, id string) error {
	if _, err := s.regions.DeleteCityMapping(ctx, id); err != nil {
		return notFoundOr(err, "city mapping", "city_mapping_id", id)
	}
	return nil
}

// TeamInput is the editable part of a team.
type TeamInput struct {
	Name     string
	TeamType domain.TeamType
	RegionID *string
	IsActive *bool
}

// ListTeams lists teams.
func (s *AdminService) ListTeams(ctx context.Context) ([]domain.Team, error) {
	items, err := s.teams.List(ctx)
	return items, apperrors.MapError(err)
}

// CreateTeam stores a team. A region has at most one city team.
func (s *AdminService) CreateTeam(ctx context.Context, input TeamInput) (*domain.Team, error) {
	if err := s.validateTeam(ctx, "", input); err != nil {
		return nil, err
	}
	team := &domain.Team{
		Name:     strings.TrimSpace(input.Name),
		TeamType: input.TeamType,
		RegionID: input.RegionID,
		IsActive: input.IsActive == nil || *input.IsActive,
	}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, cityTeamConflictOr(err, input.RegionID)
	}
	return team, nil
}

// UpdateTeam replaces the editable fields of a team.
func (s *AdminService) UpdateTeam(ctx context.Context, id string, input TeamInput) (*domain.Team, error) {
	team, err := s.teams.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "team", "team_id", id)
	}
	if err := s.validateTeam(ctx, id, input); err != nil {
		return nil, err
	}
	team.Name = strings.TrimSpace(input.Name)
	team.TeamType = input.TeamType
	team.RegionID = input.RegionID
	if input.IsActive != nil {
		team.IsActive = *input.IsActive
	}
	if err := s.teams.Update(ctx, team); err != nil {
		return nil, cityTeamConflictOr(err, input.RegionID)
	}
	return team, nil
}

func (s *AdminService) validateTeam(ctx context.Context, teamID string, input TeamInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return apperrors.NewValidationError("name is required", nil)
	}
	if !input.TeamType.Valid() {
		return apperrors.NewValidationError("invalid team_type", map[string]any{"team_type": input.TeamType})
	}
	if input.TeamType == domain.TeamTypeCityTeam && input.RegionID == nil {
		return apperrors.NewValidationError("region_id is required for a city team", nil)
	}
	if input.RegionID == nil {
		return nil
	}
	if _, err := s.regions.GetByID(ctx, *input.RegionID); err != nil {
		return notFoundOr(err, "region", "region_id", *input.RegionID)
	}
	if input.TeamType != domain.TeamTypeCityTeam {
		return nil
	}
	existing, err := s.teams.CityTeamForRegion(ctx, *input.RegionID)
	switch {
	case err == nil && existing.ID != teamID:
		return apperrors.NewConflict("region already has a city team", map[string]any{
			"region_id": *input.RegionID,
			"team_id":   existing.ID,
		})
	case err != nil && !apperrors.IsNotFound(err):
		return apperrors.MapError(err)
	}
	return nil
}

func cityTeamConflictOr(err error, regionID *string) error {
	if apperrors.IsUniqueViolation(err) {
		details := map[string]any{}
		if regionID != nil {
			details["region_id"] = *regionID
		}
		return apperrors.NewConflict("region already has a city team", details)
	}
	return apperrors.MapError(err)
}

// ProfileInput describes a staff profile. Password is only used on create or when set.
type ProfileInput struct {
	FullName string
	Email    string
	Password string
	Role     domain.Role
	TeamID   *string
	IsActive *bool
}

// ListProfiles lists staff profiles.
func (s *AdminService) ListProfiles(ctx context.Context, filter repository.ProfileFilter) ([]domain.Profile, error) {
	items, err := s.profiles.List(ctx, filter)
	return items, apperrors.MapError(err)
}

// CreateProfile creates a staff account with a bcrypt password hash.
func (s *AdminService) CreateProfile(ctx context.Context, input ProfileInput) (*domain.Profile, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if strings.TrimSpace(input.FullName) == "" || !strings.Contains(email, "@") {
		return nil, apperrors.NewValidationError("full_name and a valid email are required", nil)
	}
	if !validRole(input.Role) {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": input.Role})
	}
	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		return nil, apperrors.NewValidationError("password must be at least 8 characters",
			map[string]any{"password": "min_length"})
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	profile := &domain.Profile{
		FullName:     strings.TrimSpace(input.FullName),
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
		TeamID:       input.TeamID,
		IsActive:     input.IsActive == nil || *input.IsActive,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
		}
		return nil, apperrors.MapError(err)
	}
	return profile, nil
}

// UpdateProfile changes name, role, team or active flag. Existing sessions keep their
// snapshot until they expire or sign out.
func (s *AdminService) UpdateProfile(ctx context.Context, id string, input ProfileInput) (*domain.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "profile", "profile_id", id)
	}
	previousRole := profile.Role
	if strings.TrimSpace(input.FullName) != "" {
		profile.FullName = strings.TrimSpace(input.FullName)
	}
	if input.Role != "" {
		if !validRole(input.Role) {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": input.Role})
		}
		profile.Role = input.Role
	}
	profile.TeamID = input.TeamID
	if input.IsActive != nil {
		profile.IsActive = *input.IsActive
	}
	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, apperrors.MapError(err)
	}
	// Sessions carry a snapshot of the profile taken at login.
	if s.sessions != nil && (!profile.IsActive || profile.Role != previousRole) {
		if err := s.sessions.DeleteByProfile(ctx, profile.ID); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	}
	return profile, nil
}

func validRole(r domain.Role) bool {
	return r == domain.RoleAgent || r == domain.RoleManager || r == domain.RoleAdmin
}

// ListRoutingRules lists routing rules. They are stored for configuration only; ticket
// routing reads issue type defaults.
func (s *AdminService) ListRoutingRules(ctx context.Context) ([]domain.RoutingRule, error) {
	items, err := s.rules.ListRoutingRules(ctx)
	return items, apperrors.MapError(err)
}

// CreateRoutingRule stores a routing rule for an (issue type, region) pair.
func (s *AdminService) CreateRoutingRule(ctx context.Context, rule *domain.RoutingRule) error {
	if rule.IssueTypeID == "" || rule.RegionID == "" {
		return apperrors.NewValidationError("issue_type_id and region_id are required", nil)
	}
	if rule.TeamID == nil && rule.AssigneeID == nil {
		return apperrors.NewValidationError("team_id or assignee_id is required", nil)
	}
	if err := s.rules.CreateRoutingRule(ctx, rule); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return apperrors.NewConflict("routing rule already exists", map[string]any{
				"issue_type_id": rule.IssueTypeID,
				"region_id":     rule.RegionID,
			})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// UpdateRoutingRule changes a routing rule's targets or active flag.
func (s *AdminService) UpdateRoutingRule(ctx context.Context, rule *domain.RoutingRule) error {
	return notFoundOr(s.rules.UpdateRoutingRule(ctx, rule), "routing rule", "rule_id", rule.ID)
}

// DeleteRoutingRule removes a routing rule.
func (s *AdminService) DeleteRoutingRule(ctx context.Context, id string) error {
	return notFoundOr(s.rules.DeleteRoutingRule(ctx, id), "routing rule", "rule_id", id)
}

// ListSLARules lists SLA rules. Like routing rules they are not read by the SLA clock.
func (s *AdminService) ListSLARules(ctx context.Context) ([]domain.SLARule, error) {
	items, err := s.rules.ListSLARules(ctx)
	return items, apperrors.MapError(err)
}

// CreateSLARule stores an SLA rule for an (issue type, priority) pair.
func (s *AdminService) CreateSLARule(ctx context.Context, rule *domain.SLARule) error {
	if err := validateSLARule(rule); err != nil {
		return err
	}
	if rule.IssueTypeID == "" || !rule.Priority.Valid() {
		return apperrors.NewValidationError("issue_type_id and a valid priority are required", nil)
	}
	if err := s.rules.CreateSLARule(ctx, rule); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return apperrors.NewConflict("sla rule already exists", map[string]any{
				"issue_type_id": rule.IssueTypeID,
				"priority":      rule.Priority,
			})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// UpdateSLARule changes an SLA rule's hours, threshold or active flag.
func (s *AdminService) UpdateSLARule(ctx context.Context, rule *domain.SLARule) error {
	if err := validateSLARule(rule); err != nil {
		return err
	}
	return notFoundOr(s.rules.UpdateSLARule(ctx, rule), "sla rule", "rule_id", rule.ID)
}

// DeleteSLARule removes an SLA rule.
func (s *AdminService) DeleteSLARule(ctx context.Context, id string) error {
	return notFoundOr(s.rules.DeleteSLARule(ctx, id), "sla rule", "rule_id", id)
}

func validateSLARule(rule *domain.SLARule) error {
	details := map[string]any{}
	if rule.SLAHours <= 0 {
		details["sla_hours"] = "must be a positive integer"
	}
	if rule.EscalationThresholdPercent == 0 {
		rule.EscalationThresholdPercent = 80
	}
	if rule.EscalationThresholdPercent < 1 || rule.EscalationThresholdPercent > 100 {
		details["escalation_threshold_percent"] = "must be between 1 and 100"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid sla rule", details)
	}
	return nil
}

func notFoundOr(err error, resource, key, id string) error {
	if err == nil {
		return nil
	}
	if apperrors.IsNotFound(err) {
		return apperrors.NewNotFound(resource, map[string]any{key: id})
	}
	return apperrors.MapError(err)
}
