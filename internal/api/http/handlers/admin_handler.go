package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cityflow/crm/internal/api/dto"
	"github.com/cityflow/crm/internal/domain"
	"github.com/cityflow/crm/internal/repository"
	"github.com/cityflow/crm/internal/service"
	apperrors "github.com/cityflow/crm/pkg/util/errorutil"
)

// AdminHandler manages routing configuration. Every route requires the admin role.
type AdminHandler struct {
	service *service.AdminService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{service: adminService}
}

func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

// ListIssueTypes GET /admin/issue-types?include_inactive=true.
func (h *AdminHandler) ListIssueTypes(c *fiber.Ctx) error {
	items, err := h.service.ListIssueTypes(c.UserContext(), c.QueryBool("include_inactive", false))
	if err != nil {
		return err
	}
	out := make([]dto.IssueTypeResponse, 0, len(items))
	for i := range items {
		out = append(out, issueTypeResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// CreateIssueType POST /admin/issue-types.
func (h *AdminHandler) CreateIssueType(c *fiber.Ctx) error {
	var req dto.IssueTypeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	it, err := h.service.CreateIssueType(c.UserContext(), issueTypeInput(req))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": issueTypeResponse(it)})
}

// UpdateIssueType PUT /admin/issue-types/:id.
func (h *AdminHandler) UpdateIssueType(c *fiber.Ctx) error {
	var req dto.IssueTypeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	it, err := h.service.UpdateIssueType(c.UserContext(), c.Params("id"), issueTypeInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueTypeResponse(it)})
}

// DeactivateIssueType DELETE /admin/issue-types/:id.
func (h *AdminHandler) DeactivateIssueType(c *fiber.Ctx) error {
	if err := h.service.DeactivateIssueType(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListRegions GET /admin/regions.
func (h *AdminHandler) ListRegions(c *fiber.Ctx) error {
	items, err := h.service.ListRegions(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]dto.RegionResponse, 0, len(items))
	for i := range items {
		out = append(out, regionResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// CreateRegion POST /admin/regions.
func (h *AdminHandler) CreateRegion(c *fiber.Ctx) error {
	var req dto.RegionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	region, err := h.service.CreateRegion(c.UserContext(), service.RegionInput{Name: req.Name, ManagerID: req.ManagerID})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": regionResponse(region)})
}

// UpdateRegion PUT /admin/regions/:id.
func (h *AdminHandler) UpdateRegion(c *fiber.Ctx) error {
	var req dto.RegionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	region, err := h.service.UpdateRegion(c.UserContext(), c.Params("id"), service.RegionInput{Name: req.Name, ManagerID: req.ManagerID})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": regionResponse(region)})
}

// ListCityMappings GET /admin/city-mappings.
func (h *AdminHandler) ListCityMappings(c *fiber.Ctx) error {
	items, err := h.service.ListCityMappings(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]dto.CityMappingResponse, 0, len(items))
	for _, m := range items {
		out = append(out, dto.CityMappingResponse{ID: m.ID, CityName: m.CityName, RegionID: m.RegionID, CreatedAt: m.CreatedAt})
	}
	return c.JSON(fiber.Map{"data": out})
}

// CreateCityMapping POST /admin/city-mappings.
func (h *AdminHandler) CreateCityMapping(c *fiber.Ctx) error {
	var req dto.CityMappingRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	m, err := h.service.CreateCityMapping(c.UserContext(), req.CityName, req.RegionID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.CityMappingResponse{
		ID: m.ID, CityName: m.CityName, RegionID: m.RegionID, CreatedAt: m.CreatedAt,
	}})
}

// DeleteCityMapping DELETE /admin/city-mappings/:id.
func (h *AdminHandler) DeleteCityMapping(c *fiber.Ctx) error {
	if err := h.service.DeleteCityMapping(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListTeams GET /admin/teams.
func (h *AdminHandler) ListTeams(c *fiber.Ctx) error {
	items, err := h.service.ListTeams(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]dto.TeamResponse, 0, len(items))
	for i := range items {
		out = append(out, teamResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// CreateTeam POST /admin/teams.
func (h *AdminHandler) CreateTeam(c *fiber.Ctx) error {
	var req dto.TeamRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	team, err := h.service.CreateTeam(c.UserContext(), teamInput(req))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": teamResponse(team)})
}

// UpdateTeam PUT /admin/teams/:id.
func (h *AdminHandler) UpdateTeam(c *fiber.Ctx) error {
	var req dto.TeamRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	team, err := h.service.UpdateTeam(c.UserContext(), c.Params("id"), teamInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": teamResponse(team)})
}

// ListProfiles GET /admin/profiles?team_id=&role=.
func (h *AdminHandler) ListProfiles(c *fiber.Ctx) error {
	filter := repository.ProfileFilter{
		TeamID: optionalQuery(c, "team_id"),
		Limit:  parseInt(c.Query("page_size"), 100),
	}
	if role := c.Query("role"); role != "" {
		r := domain.Role(role)
		filter.Role = &r
	}
	items, err := h.service.ListProfiles(c.UserContext(), filter)
	if err != nil {
		return err
	}
	out := make([]dto.ProfileResponse, 0, len(items))
	for i := range items {
		out = append(out, profileResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// CreateProfile POST /admin/profiles.
func (h *AdminHandler) CreateProfile(c *fiber.Ctx) error {
	var req dto.ProfileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	p, err := h.service.CreateProfile(c.UserContext(), profileInput(req))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": profileResponse(p)})
}

// UpdateProfile PUT /admin/profiles/:id.
func (h *AdminHandler) UpdateProfile(c *fiber.Ctx) error {
	var req dto.ProfileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	p, err := h.service.UpdateProfile(c.UserContext(), c.Params("id"), profileInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": profileResponse(p)})
}

// ListRoutingRules GET /admin/routing-rules.
func (h *AdminHandler) ListRoutingRules(c *fiber.Ctx) error {
	items, err := h.service.ListRoutingRules(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]dto.RoutingRuleResponse, 0, len(items))
	for i := range items {
		out = append(out, routingRuleResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// CreateRoutingRule POST /admin/routing-rules.
func (h *AdminHandler) CreateRoutingRule(c *fiber.Ctx) error {
	var req dto.RoutingRuleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	rule := routingRule("", req)
	if err := h.service.CreateRoutingRule(c.UserContext(), rule); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": routingRuleResponse(rule)})
}

// UpdateRoutingRule PUT /admin/routing-rules/:id.
func (h *AdminHandler) UpdateRoutingRule(c *fiber.Ctx) error {
	var req dto.RoutingRuleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	rule := routingRule(c.Params("id"), req)
	if err := h.service.UpdateRoutingRule(c.UserContext(), rule); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": routingRuleResponse(rule)})
}

// DeleteRoutingRule DELETE /admin/routing-rules/:id.
func (h *AdminHandler) DeleteRoutingRule(c *fiber.Ctx) error {
	if err := h.service.DeleteRoutingRule(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListSLARules GET /admin/sla-rules.
func (h *AdminHandler) ListSLARules(c *fiber.Ctx) error {
	items, err := h.service.ListSLARules(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]dto.SLARuleResponse, 0, len(items))
	for i := range items {
		out = append(out, slaRuleResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// CreateSLARule POST /admin/sla-rules.
func (h *AdminHandler) CreateSLARule(c *fiber.Ctx) error {
	var req dto.SLARuleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	rule := slaRule("", req)
	if err := h.service.CreateSLARule(c.UserContext(), rule); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": slaRuleResponse(rule)})
}

// UpdateSLARule PUT /admin/sla-rules/:id.
func (h *AdminHandler) UpdateSLARule(c *fiber.Ctx) error {
	var req dto.SLARuleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	rule := slaRule(c.Params("id"), req)
	if err := h.service.UpdateSLARule(c.UserContext(), rule); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": slaRuleResponse(rule)})
}

// DeleteSLARule DELETE /admin/sla-rules/:id.
func (h *AdminHandler) DeleteSLARule(c *fiber.Ctx) error {
	if err := h.service.DeleteSLARule(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func issueTypeInput(req dto.IssueTypeRequest) service.IssueTypeInput {
	return service.IssueTypeInput{
		Name:            req.Name,
		Icon:            req.Icon,
		DefaultSLAHours: req.DefaultSLAHours,
		DefaultTeamID:   req.DefaultTeamID,
		DefaultAssignee: req.DefaultAssignee,
		IsActive:        req.IsActive,
	}
}

func issueTypeResponse(it *domain.IssueType) dto.IssueTypeResponse {
	return dto.IssueTypeResponse{
		ID:              it.ID,
		Name:            it.Name,
		Icon:            it.Icon,
		DefaultSLAHours: it.DefaultSLAHours,
		DefaultTeamID:   it.DefaultTeamID,
		DefaultAssignee: it.DefaultAssignee,
		IsActive:        it.IsActive,
		CreatedAt:       it.CreatedAt,
	}
}

func regionResponse(r *domain.Region) dto.RegionResponse {
	return dto.RegionResponse{ID: r.ID, Name: r.Name, ManagerID: r.ManagerID, CreatedAt: r.CreatedAt}
}

func teamInput(req dto.TeamRequest) service.TeamInput {
	return service.TeamInput{Name: req.Name, TeamType: req.TeamType, RegionID: req.RegionID, IsActive: req.IsActive}
}

func teamResponse(t *domain.Team) dto.TeamResponse {
	return dto.TeamResponse{
		ID:        t.ID,
		Name:      t.Name,
		TeamType:  t.TeamType,
		RegionID:  t.RegionID,
		IsActive:  t.IsActive,
		CreatedAt: t.CreatedAt,
	}
}

func profileInput(req dto.ProfileRequest) service.ProfileInput {
	return service.ProfileInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		TeamID:   req.TeamID,
		IsActive: req.IsActive,
	}
}

func profileResponse(p *domain.Profile) dto.ProfileResponse {
	return dto.ProfileResponse{
		ID:        p.ID,
		FullName:  p.FullName,
		Email:     p.Email,
		Role:      p.Role,
		TeamID:    p.TeamID,
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
	}
}

func routingRule(id string, req dto.RoutingRuleRequest) *domain.RoutingRule {
	return &domain.RoutingRule{
		ID:          id,
		IssueTypeID: req.IssueTypeID,
		RegionID:    req.RegionID,
		TeamID:      req.TeamID,
		AssigneeID:  req.AssigneeID,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
}

func routingRuleResponse(r *domain.RoutingRule) dto.RoutingRuleResponse {
	return dto.RoutingRuleResponse{
		ID:          r.ID,
		IssueTypeID: r.IssueTypeID,
		RegionID:    r.RegionID,
		TeamID:      r.TeamID,
		AssigneeID:  r.AssigneeID,
		IsActive:    r.IsActive,
	}
}

func slaRule(id string, req dto.SLARuleRequest) *domain.SLARule {
	return &domain.SLARule{
		ID:                         id,
		IssueTypeID:                req.IssueTypeID,
		Priority:                   req.Priority,
		SLAHours:                   req.SLAHours,
		EscalationThresholdPercent: req.EscalationThresholdPercent,
		IsActive:                   req.IsActive == nil || *req.IsActive,
	}
}

func slaRuleResponse(r *domain.SLARule) dto.SLARuleResponse {
	return dto.SLARuleResponse{
		ID:                         r.ID,
		IssueTypeID:                r.IssueTypeID,
		Priority:                   r.Priority,
		SLAHours:                   r.SLAHours,
		EscalationThresholdPercent: r.EscalationThresholdPercent,
		IsActive:                   r.IsActive,
	}
}
