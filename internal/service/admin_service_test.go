package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityflow/crm/internal/auth"
	"github.com/cityflow/crm/internal/domain"
	apperrors "github.com/cityflow/crm/pkg/util/errorutil"
)

func TestAdminIssueTypes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.adminSvc.CreateIssueType(ctx, IssueTypeInput{Name: "Zero", DefaultSLAHours: 0})
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeValidation, de.Code)
	assert.Contains(t, de.Details, "default_sla_hours")

	missingTeam := "team-x"
	_, err = env.adminSvc.CreateIssueType(ctx, IssueTypeInput{Name: "Bad team", DefaultSLAHours: 4, DefaultTeamID: &missingTeam})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	it, err := env.adminSvc.CreateIssueType(ctx, IssueTypeInput{Name: " Graffiti ", DefaultSLAHours: 48})
	require.NoError(t, err)
	assert.Equal(t, "Graffiti", it.Name)
	assert.True(t, it.IsActive)

	require.NoError(t, env.adminSvc.DeactivateIssueType(ctx, it.ID))
	active, err := env.adminSvc.ListIssueTypes(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, active)

	err = env.adminSvc.DeactivateIssueType(ctx, "missing")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestAdminCityMappings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	region, err := env.adminSvc.CreateRegion(ctx, RegionInput{Name: "East", ManagerID: &env.manager.ID})
	require.NoError(t, err)

	_, err = env.adminSvc.CreateRegion(ctx, RegionInput{Name: "West", ManagerID: &env.agent.ID})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	mapping, err := env.adminSvc.CreateCityMapping(ctx, "North Haverbrook", region.ID)
	require.NoError(t, err)

	_, err = env.adminSvc.CreateCityMapping(ctx, "north haverbrook ", region.ID)
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeConflict, de.Code)
	assert.Equal(t, "city already mapped", de.Message)

	_, err = env.adminSvc.CreateCityMapping(ctx, "Brockway", "missing")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	require.NoError(t, env.adminSvc.DeleteCityMapping(ctx, mapping.ID))
	_, err = env.assignment.ResolveRegion(ctx, "North Haverbrook")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnroutable))

	assert.True(t, apperrors.IsCode(env.adminSvc.DeleteCityMapping(ctx, mapping.ID), apperrors.CodeNotFound))
}

func TestAdminTeams(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	region, err := env.adminSvc.CreateRegion(ctx, RegionInput{Name: "East"})
	require.NoError(t, err)

	_, err = env.adminSvc.CreateTeam(ctx, TeamInput{Name: "Orphan", TeamType: domain.TeamTypeCityTeam})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = env.adminSvc.CreateTeam(ctx, TeamInput{Name: "Odd", TeamType: "squad"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	cityTeam, err := env.adminSvc.CreateTeam(ctx, TeamInput{Name: "East City", TeamType: domain.TeamTypeCityTeam, RegionID: &region.ID})
	require.NoError(t, err)

	_, err = env.adminSvc.CreateTeam(ctx, TeamInput{Name: "East City 2", TeamType: domain.TeamTypeCityTeam, RegionID: &region.ID})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	renamed, err := env.adminSvc.UpdateTeam(ctx, cityTeam.ID, TeamInput{Name: "East Escalations", TeamType: domain.TeamTypeCityTeam, RegionID: &region.ID})
	require.NoError(t, err)
	assert.Equal(t, "East Escalations", renamed.Name)
}

func TestAdminProfiles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.adminSvc.CreateProfile(ctx, ProfileInput{FullName: "Short", Email: "s@cityflow.test", Password: "123", Role: domain.RoleAgent})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = env.adminSvc.CreateProfile(ctx, ProfileInput{FullName: "Root", Email: "r@cityflow.test", Password: "long-enough", Role: "root"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	p, err := env.adminSvc.CreateProfile(ctx, ProfileInput{FullName: "Lou", Email: " Lou@CityFlow.test ", Password: "long-enough", Role: domain.RoleAgent})
	require.NoError(t, err)
	assert.Equal(t, "lou@cityflow.test", p.Email)
	assert.NoError(t, auth.ComparePassword(p.PasswordHash, "long-enough"))

	inactive := false
	updated, err := env.adminSvc.UpdateProfile(ctx, p.ID, ProfileInput{Role: domain.RoleManager, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleManager, updated.Role)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "Lou", updated.FullName)
}

func TestDeactivatingProfileEndsSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	require.NoError(t, env.sessions.Save(ctx, &domain.Session{ID: "agent-session", ProfileID: env.agent.ID, Role: domain.RoleAgent, ExpiresAt: expires}))
	require.NoError(t, env.sessions.Save(ctx, &domain.Session{ID: "manager-session", ProfileID: env.manager.ID, Role: domain.RoleManager, ExpiresAt: expires}))

	rename := ProfileInput{FullName: "Ada Renamed", TeamID: env.agent.TeamID}
	_, err := env.adminSvc.UpdateProfile(ctx, env.agent.ID, rename)
	require.NoError(t, err)
	_, err = env.sessions.Get(ctx, "agent-session")
	require.NoError(t, err)

	inactive := false
	_, err = env.adminSvc.UpdateProfile(ctx, env.agent.ID, ProfileInput{IsActive: &inactive})
	require.NoError(t, err)
	_, err = env.sessions.Get(ctx, "agent-session")
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)

	_, err = env.sessions.Get(ctx, "manager-session")
	assert.NoError(t, err)
}

func TestRoleChangeEndsSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.sessions.Save(ctx, &domain.Session{ID: "s", ProfileID: env.manager.ID, Role: domain.RoleManager, ExpiresAt: time.Now().Add(time.Hour)}))

	_, err := env.adminSvc.UpdateProfile(ctx, env.manager.ID, ProfileInput{Role: domain.RoleAgent})
	require.NoError(t, err)
	_, err = env.sessions.Get(ctx, "s")
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
}

func TestAdminRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	team := "team-1"

	err := env.adminSvc.CreateRoutingRule(ctx, &domain.RoutingRule{IssueTypeID: "it", RegionID: "r"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	rr := &domain.RoutingRule{IssueTypeID: "it", RegionID: "r", TeamID: &team, IsActive: true}
	require.NoError(t, env.adminSvc.CreateRoutingRule(ctx, rr))
	rules, err := env.adminSvc.ListRoutingRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 1)
	require.NoError(t, env.adminSvc.DeleteRoutingRule(ctx, rr.ID))
	assert.True(t, apperrors.IsCode(env.adminSvc.DeleteRoutingRule(ctx, rr.ID), apperrors.CodeNotFound))

	sr := &domain.SLARule{IssueTypeID: "it", Priority: domain.TicketPriorityHigh, SLAHours: 2}
	require.NoError(t, env.adminSvc.CreateSLARule(ctx, sr))
	assert.Equal(t, 80, sr.EscalationThresholdPercent)

	sr.SLAHours = -1
	assert.True(t, apperrors.IsCode(env.adminSvc.UpdateSLARule(ctx, sr), apperrors.CodeValidation))
}
