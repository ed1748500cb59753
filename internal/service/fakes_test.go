package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cityflow/crm/internal/domain"
	"github.com/cityflow/crm/internal/repository"
)

type memIDs struct {
	mu sync.Mutex
	n  int
}

func (m *memIDs) next(prefix string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	return fmt.Sprintf("%s-%d", prefix, m.n)
}

type memTickets struct {
	ids     memIDs
	rows    map[string]domain.Ticket
	order   []string
	now     func() time.Time
	updates int

	activityWindow [2]time.Time
}

func newMemTickets(now func() time.Time) *memTickets {
	return &memTickets{rows: map[string]domain.Ticket{}, now: now}
}

func (m *memTickets) Create(_ context.Context, t *domain.Ticket) error {
	t.ID = m.ids.next("ticket")
	t.TicketNumber = fmt.Sprintf("CF-%06d", len(m.order)+1)
	t.CreatedAt = m.now()
	t.UpdatedAt = t.CreatedAt
	m.rows[t.ID] = *t
	m.order = append(m.order, t.ID)
	return nil
}

func (m *memTickets) Update(_ context.Context, t *domain.Ticket) error {
	stored, ok := m.rows[t.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	t.SLADueAt = stored.SLADueAt
	t.UpdatedAt = m.now()
	m.rows[t.ID] = *t
	m.updates++
	return nil
}

func (m *memTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	t, ok := m.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (m *memTickets) List(_ context.Context, f repository.TicketFilter) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, id := range m.order {
		t := m.rows[id]
		if f.GroupID != nil && (t.TicketGroupID == nil || *t.TicketGroupID != *f.GroupID) {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, t.Status) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (m *memTickets) ListActivity(ctx context.Context, from, to time.Time) ([]domain.Ticket, error) {
	m.activityWindow = [2]time.Time{from, to}
	return m.List(ctx, repository.TicketFilter{})
}

func (m *memTickets) ListOpenWithDue(ctx context.Context, after *repository.SLACursor, limit int) ([]domain.Ticket, error) {
	all, _ := m.List(ctx, repository.TicketFilter{})
	var open []domain.Ticket
	for _, t := range all {
		if t.SLADueAt != nil && !t.Status.Completed() {
			open = append(open, t)
		}
	}
	sort.Slice(open, func(i, j int) bool {
		if !open[i].SLADueAt.Equal(*open[j].SLADueAt) {
			return open[i].SLADueAt.Before(*open[j].SLADueAt)
		}
		return open[i].ID < open[j].ID
	})
	var out []domain.Ticket
	for _, t := range open {
		if after != nil && (t.SLADueAt.Before(after.DueAt) || (t.SLADueAt.Equal(after.DueAt) && t.ID <= after.ID)) {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *memTickets) UpdateSLAStatus(_ context.Context, id string, status domain.SLAStatus) error {
	t, ok := m.rows[id]
	if !ok {
		return pgx.ErrNoRows
	}
	t.SLAStatus = status
	m.rows[id] = t
	return nil
}

func (m *memTickets) SetGroup(_ context.Context, id string, groupID *string) error {
	t, ok := m.rows[id]
	if !ok {
		return pgx.ErrNoRows
	}
	t.TicketGroupID = groupID
	m.rows[id] = t
	return nil
}

type memRegions struct {
	ids      memIDs
	regions  map[string]domain.Region
	mappings map[string]domain.CityMapping
}

func newMemRegions() *memRegions {
	return &memRegions{regions: map[string]domain.Region{}, mappings: map[string]domain.CityMapping{}}
}

func (m *memRegions) Create(_ context.Context, r *domain.Region) error {
	r.ID = m.ids.next("region")
	m.regions[r.ID] = *r
	return nil
}

func (m *memRegions) Update(_ context.Context, r *domain.Region) error {
	if _, ok := m.regions[r.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.regions[r.ID] = *r
	return nil
}

func (m *memRegions) GetByID(_ context.Context, id string) (*domain.Region, error) {
	r, ok := m.regions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &r, nil
}

func (m *memRegions) List(context.Context) ([]domain.Region, error) {
	out := make([]domain.Region, 0, len(m.regions))
	for _, r := range m.regions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memRegions) GetCityMapping(_ context.Context, city string) (*domain.CityMapping, error) {
	mapping, ok := m.mappings[repository.NormalizeCity(city)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &mapping, nil
}

func (m *memRegions) ListCityMappings(context.Context) ([]domain.CityMapping, error) {
	out := make([]domain.CityMapping, 0, len(m.mappings))
	for _, c := range m.mappings {
		out = append(out, c)
	}
	return out, nil
}

func (m *memRegions) CreateCityMapping(_ context.Context, c *domain.CityMapping) error {
	key := repository.NormalizeCity(c.CityName)
	if _, dup := m.mappings[key]; dup {
		return errors.New("duplicate city")
	}
	c.ID = m.ids.next("city")
	m.mappings[key] = *c
	return nil
}

func (m *memRegions) DeleteCityMapping(_ context.Context, id string) (*domain.CityMapping, error) {
	for key, c := range m.mappings {
		if c.ID == id {
			delete(m.mappings, key)
			return &c, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memTeams struct {
	ids   memIDs
	teams map[string]domain.Team
}

func newMemTeams() *memTeams { return &memTeams{teams: map[string]domain.Team{}} }

func (m *memTeams) Create(_ context.Context, t *domain.Team) error {
	t.ID = m.ids.next("team")
	m.teams[t.ID] = *t
	return nil
}

func (m *memTeams) Update(_ context.Context, t *domain.Team) error {
	if _, ok := m.teams[t.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.teams[t.ID] = *t
	return nil
}

func (m *memTeams) GetByID(_ context.Context, id string) (*domain.Team, error) {
	t, ok := m.teams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (m *memTeams) List(context.Context) ([]domain.Team, error) {
	out := make([]domain.Team, 0, len(m.teams))
	for _, t := range m.teams {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memTeams) CityTeamForRegion(_ context.Context, regionID string) (*domain.Team, error) {
	for _, t := range m.teams {
		if t.TeamType == domain.TeamTypeCityTeam && t.RegionID != nil && *t.RegionID == regionID {
			return &t, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memProfiles struct {
	ids      memIDs
	profiles map[string]domain.Profile
}

func newMemProfiles() *memProfiles { return &memProfiles{profiles: map[string]domain.Profile{}} }

func (m *memProfiles) Create(_ context.Context, p *domain.Profile) error {
	for _, existing := range m.profiles {
		if existing.Email == p.Email {
			return errors.New("duplicate email")
		}
	}
	p.ID = m.ids.next("profile")
	m.profiles[p.ID] = *p
	return nil
}

func (m *memProfiles) Update(_ context.Context, p *domain.Profile) error {
	if _, ok := m.profiles[p.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.profiles[p.ID] = *p
	return nil
}

func (m *memProfiles) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &p, nil
}

func (m *memProfiles) GetByEmail(_ context.Context, email string) (*domain.Profile, error) {
	for _, p := range m.profiles {
		if strings.EqualFold(p.Email, email) {
			return &p, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memProfiles) List(_ context.Context, _ repository.ProfileFilter) ([]domain.Profile, error) {
	out := make([]domain.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	return out, nil
}

type memIssueTypes struct {
	ids   memIDs
	types map[string]domain.IssueType
}

func newMemIssueTypes() *memIssueTypes { return &memIssueTypes{types: map[string]domain.IssueType{}} }

func (m *memIssueTypes) Create(_ context.Context, it *domain.IssueType) error {
	it.ID = m.ids.next("issue")
	m.types[it.ID] = *it
	return nil
}

func (m *memIssueTypes) Update(_ context.Context, it *domain.IssueType) error {
	if _, ok := m.types[it.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.types[it.ID] = *it
	return nil
}

func (m *memIssueTypes) GetByID(_ context.Context, id string) (*domain.IssueType, error) {
	it, ok := m.types[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &it, nil
}

func (m *memIssueTypes) List(_ context.Context, includeInactive bool) ([]domain.IssueType, error) {
	var out []domain.IssueType
	for _, it := range m.types {
		if it.IsActive || includeInactive {
			out = append(out, it)
		}
	}
	return out, nil
}

type memGroups struct {
	ids    memIDs
	groups map[string]domain.TicketGroup
	now    func() time.Time
}

func newMemGroups(now func() time.Time) *memGroups {
	return &memGroups{groups: map[string]domain.TicketGroup{}, now: now}
}

func (m *memGroups) Create(_ context.Context, g *domain.TicketGroup) error {
	g.ID = m.ids.next("group")
	g.CreatedAt = m.now()
	m.groups[g.ID] = *g
	return nil
}

func (m *memGroups) Update(_ context.Context, g *domain.TicketGroup) error {
	if _, ok := m.groups[g.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.groups[g.ID] = *g
	return nil
}

func (m *memGroups) GetByID(_ context.Context, id string) (*domain.TicketGroup, error) {
	g, ok := m.groups[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &g, nil
}

func (m *memGroups) List(_ context.Context, status *domain.TicketGroupStatus) ([]domain.TicketGroup, error) {
	var out []domain.TicketGroup
	for _, g := range m.groups {
		if status == nil || g.Status == *status {
			out = append(out, g)
		}
	}
	return out, nil
}

type memComments struct {
	ids      memIDs
	comments map[string]domain.Comment
}

func newMemComments() *memComments { return &memComments{comments: map[string]domain.Comment{}} }

func (m *memComments) Create(_ context.Context, c *domain.Comment) error {
	c.ID = m.ids.next("comment")
	m.comments[c.ID] = *c
	return nil
}

func (m *memComments) GetByID(_ context.Context, id string) (*domain.Comment, error) {
	c, ok := m.comments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &c, nil
}

func (m *memComments) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	var out []domain.Comment
	for _, c := range m.comments {
		if c.TicketID == ticketID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memAttachments struct {
	ids     memIDs
	rows    []domain.Attachment
	failErr error
}

func (m *memAttachments) Create(_ context.Context, a *domain.Attachment) error {
	if m.failErr != nil {
		return m.failErr
	}
	a.ID = m.ids.next("attachment")
	m.rows = append(m.rows, *a)
	return nil
}

func (m *memAttachments) ListByTicket(_ context.Context, ticketID string) ([]domain.Attachment, error) {
	var out []domain.Attachment
	for _, a := range m.rows {
		if a.TicketID == ticketID {
			out = append(out, a)
		}
	}
	return out, nil
}

type memHistory struct {
	entries []domain.TicketHistory
}

func (m *memHistory) Create(_ context.Context, h *domain.TicketHistory) error {
	m.entries = append(m.entries, *h)
	return nil
}

func (m *memHistory) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	var out []domain.TicketHistory
	for _, h := range m.entries {
		if h.TicketID == ticketID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *memHistory) ofType(ticketID string, ct domain.TicketChangeType) []domain.TicketHistory {
	var out []domain.TicketHistory
	for _, h := range m.entries {
		if h.TicketID == ticketID && h.ChangeType == ct {
			out = append(out, h)
		}
	}
	return out
}

type memObjects struct {
	objects   map[string][]byte
	uploadErr error
	deleted   []string
}

func newMemObjects() *memObjects { return &memObjects{objects: map[string][]byte{}} }

func (m *memObjects) Upload(_ context.Context, objectPath string, data []byte) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	m.objects[objectPath] = data
	return nil
}

func (m *memObjects) Delete(_ context.Context, objectPath string) error {
	delete(m.objects, objectPath)
	m.deleted = append(m.deleted, objectPath)
	return nil
}

func (m *memObjects) PublicURL(objectPath string) string {
	return "http://files.local/" + objectPath
}

type memRules struct {
	ids     memIDs
	routing []domain.RoutingRule
	sla     []domain.SLARule
}

func (m *memRules) CreateRoutingRule(_ context.Context, r *domain.RoutingRule) error {
	r.ID = m.ids.next("routing")
	m.routing = append(m.routing, *r)
	return nil
}

func (m *memRules) UpdateRoutingRule(_ context.Context, r *domain.RoutingRule) error {
	for i := range m.routing {
		if m.routing[i].ID == r.ID {
			m.routing[i] = *r
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memRules) DeleteRoutingRule(_ context.Context, id string) error {
	for i := range m.routing {
		if m.routing[i].ID == id {
			m.routing = append(m.routing[:i], m.routing[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memRules) ListRoutingRules(context.Context) ([]domain.RoutingRule, error) {
	return m.routing, nil
}

func (m *memRules) CreateSLARule(_ context.Context, r *domain.SLARule) error {
	r.ID = m.ids.next("sla")
	m.sla = append(m.sla, *r)
	return nil
}

func (m *memRules) UpdateSLARule(_ context.Context, r *domain.SLARule) error {
	for i := range m.sla {
		if m.sla[i].ID == r.ID {
			m.sla[i] = *r
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memRules) DeleteSLARule(_ context.Context, id string) error {
	for i := range m.sla {
		if m.sla[i].ID == id {
			m.sla = append(m.sla[:i], m.sla[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memRules) ListSLARules(context.Context) ([]domain.SLARule, error) {
	return m.sla, nil
}
