package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cityflow/crm/internal/auth"
	"github.com/cityflow/crm/internal/cache"
	"github.com/cityflow/crm/internal/domain"
	"github.com/cityflow/crm/internal/events"
	"github.com/cityflow/crm/internal/observability"
)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type testEnv struct {
	clock       *testClock
	tickets     *memTickets
	regions     *memRegions
	teams       *memTeams
	profiles    *memProfiles
	issueTypes  *memIssueTypes
	groups      *memGroups
	comments    *memComments
	attachments *memAttachments
	history     *memHistory
	objects     *memObjects
	sessions    auth.SessionStore
	dispatcher  events.Dispatcher
	published   []events.Event

	assignment *AssignmentService
	ticketSvc  *TicketService
	groupSvc   *GroupService
	reportSvc  *ReportService
	adminSvc   *AdminService

	agent   *domain.Profile
	manager *domain.Profile
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := &testClock{t: time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)}
	env := &testEnv{
		clock:       clock,
		tickets:     newMemTickets(clock.Now),
		regions:     newMemRegions(),
		teams:       newMemTeams(),
		profiles:    newMemProfiles(),
		issueTypes:  newMemIssueTypes(),
		groups:      newMemGroups(clock.Now),
		comments:    newMemComments(),
		attachments: &memAttachments{},
		history:     &memHistory{},
		objects:     newMemObjects(),
		sessions:    auth.NewSessionStore(cache.NewMemoryStore()),
		dispatcher:  events.NewInMemoryDispatcher(),
	}
	env.dispatcher.Subscribe(events.AllEvents, func(_ context.Context, e events.Event) error {
		env.published = append(env.published, e)
		return nil
	})
	metrics := observability.NewMetrics()

	env.assignment = NewAssignmentService(AssignmentDependencies{
		RegionRepo:    env.regions,
		TeamRepo:      env.teams,
		ProfileRepo:   env.profiles,
		IssueTypeRepo: env.issueTypes,
		Metrics:       metrics,
		Now:           clock.Now,
	})
	env.ticketSvc = NewTicketService(TicketDependencies{
		TicketRepo:     env.tickets,
		CommentRepo:    env.comments,
		AttachmentRepo: env.attachments,
		HistoryRepo:    env.history,
		ProfileRepo:    env.profiles,
		TeamRepo:       env.teams,
		Assignment:     env.assignment,
		Storage:        env.objects,
		Dispatcher:     env.dispatcher,
		Metrics:        metrics,
		Now:            clock.Now,
		MaxUploadBytes: 1024,
	})
	env.groupSvc = NewGroupService(GroupDependencies{
		GroupRepo:     env.groups,
		TicketRepo:    env.tickets,
		IssueTypeRepo: env.issueTypes,
		ProfileRepo:   env.profiles,
		TicketService: env.ticketSvc,
		Dispatcher:    env.dispatcher,
		Now:           clock.Now,
	})
	env.reportSvc = NewReportService(ReportDependencies{
		TicketRepo:    env.tickets,
		IssueTypeRepo: env.issueTypes,
		TeamRepo:      env.teams,
		Now:           clock.Now,
	})
	env.adminSvc = NewAdminService(AdminDependencies{
		IssueTypeRepo: env.issueTypes,
		RegionRepo:    env.regions,
		TeamRepo:      env.teams,
		ProfileRepo:   env.profiles,
		RuleRepo:      &memRules{},
		SessionStore:  env.sessions,
		BcryptCost:    4,
	})

	env.agent = env.addProfile(t, "Ada Agent", "ada@cityflow.test", domain.RoleAgent)
	env.manager = env.addProfile(t, "Mo Manager", "mo@cityflow.test", domain.RoleManager)
	return env
}

func (e *testEnv) addProfile(t *testing.T, name, email string, role domain.Role) *domain.Profile {
	t.Helper()
	p := &domain.Profile{FullName: name, Email: email, Role: role, IsActive: true}
	require.NoError(t, e.profiles.Create(context.Background(), p))
	return p
}

// routing is a region "North" with manager, city team and a "Springfield" mapping, plus a
// 6-hour "Missed pickup" issue type routed to the Dispatch team.
type routing struct {
	region    *domain.Region
	cityTeam  *domain.Team
	dispatch  *domain.Team
	issueType *domain.IssueType
}

func (e *testEnv) seedRouting(t *testing.T) routing {
	t.Helper()
	ctx := context.Background()
	region := &domain.Region{Name: "North", ManagerID: &e.manager.ID}
	require.NoError(t, e.regions.Create(ctx, region))
	require.NoError(t, e.regions.CreateCityMapping(ctx, &domain.CityMapping{CityName: "Springfield", RegionID: region.ID}))

	cityTeam := &domain.Team{Name: "North City Team", TeamType: domain.TeamTypeCityTeam, RegionID: &region.ID, IsActive: true}
	require.NoError(t, e.teams.Create(ctx, cityTeam))
	dispatch := &domain.Team{Name: "Dispatch", TeamType: domain.TeamTypeFunctional, IsActive: true}
	require.NoError(t, e.teams.Create(ctx, dispatch))

	it := &domain.IssueType{Name: "Missed pickup", DefaultSLAHours: 6, DefaultTeamID: &dispatch.ID, IsActive: true}
	require.NoError(t, e.issueTypes.Create(ctx, it))
	return routing{region: region, cityTeam: cityTeam, dispatch: dispatch, issueType: it}
}

func (e *testEnv) createTicket(t *testing.T, r routing, subject string) *domain.Ticket {
	t.Helper()
	ticket, _, err := e.ticketSvc.CreateTicket(context.Background(), e.agent, TicketCreateInput{
		IssueTypeID: r.issueType.ID,
		City:        "Springfield",
		Subject:     subject,
	})
	require.NoError(t, err)
	return ticket
}

func (e *testEnv) eventsOfType(typ events.EventType) []events.Event {
	var out []events.Event
	for _, ev := range e.published {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}
