package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cityflow/crm/internal/domain"
	"github.com/cityflow/crm/internal/events"
	"github.com/cityflow/crm/internal/repository"
	"github.com/cityflow/crm/internal/sla"
	apperrors "github.com/cityflow/crm/pkg/util/errorutil"
)

// GroupService bundles tickets for bulk resolution.
type GroupService struct {
	groups     repository.TicketGroupRepository
	tickets    repository.TicketRepository
	issueTypes repository.IssueTypeRepository
	profiles   repository.ProfileRepository
	ticketSvc  *TicketService
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// GroupDependencies bundles collaborators for the group service.
type GroupDependencies struct {
	GroupRepo     repository.TicketGroupRepository
	TicketRepo    repository.TicketRepository
	IssueTypeRepo repository.IssueTypeRepository
	ProfileRepo   repository.ProfileRepository
	TicketService *TicketService
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	Now           func() time.Time
}

// NewGroupService constructs the service.
func NewGroupService(deps GroupDependencies) *GroupService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupService{
		groups:     deps.GroupRepo,
		tickets:    deps.TicketRepo,
		issueTypes: deps.IssueTypeRepo,
		profiles:   deps.ProfileRepo,
		ticketSvc:  deps.TicketService,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        now,
	}
}

// GroupCreateInput describes a new group.
type GroupCreateInput struct {
	Name        string
	IssueTypeID string
	City        string
	AssignedTo  *string
	TicketIDs   []string
}

// GroupDetail is a group with its member tickets and SLA timer.
type GroupDetail struct {
	Group   domain.TicketGroup
	SLA     sla.Timer
	Tickets []TicketView
}

// GroupResolution reports the outcome of resolving a group. Members that could not be
// resolved are listed with the reason; the group is still marked resolved.
type GroupResolution struct {
	Group    domain.TicketGroup
	Resolved []string
	Skipped  []string
	Failed   map[string]string
}

// CreateGroup creates a group and attaches the given tickets. The group's SLA due time is
// the earliest due time among its members.
func (s *GroupService) CreateGroup(ctx context.Context, actor *domain.Profile, input GroupCreateInput) (*GroupDetail, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	city := strings.TrimSpace(input.City)
	if name == "" || city == "" {
		return nil, apperrors.NewValidationError("name and city are required", nil)
	}
	if _, err := s.issueTypes.GetByID(ctx, input.IssueTypeID); err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewValidationError("unknown issue type", map[string]any{"issue_type_id": input.IssueTypeID})
		}
		return nil, apperrors.MapError(err)
	}
	if input.AssignedTo != nil {
		if err := s.requireActiveProfile(ctx, *input.AssignedTo); err != nil {
			return nil, err
		}
	}
	members, err := s.loadJoinable(ctx, "", input.TicketIDs)
	if err != nil {
		return nil, err
	}

	group := &domain.TicketGroup{
		Name:        name,
		IssueTypeID: input.IssueTypeID,
		City:        city,
		AssignedTo:  input.AssignedTo,
		SLADueAt:    earliestDue(members),
		Status:      domain.TicketGroupActive,
		CreatedBy:   actor.ID,
	}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.attach(ctx, actor, group.ID, members); err != nil {
		return nil, err
	}
	return s.GetGroup(ctx, group.ID)
}

// AddTickets attaches more tickets to an active group and refreshes its due time.
func (s *GroupService) AddTickets(ctx context.Context, actor *domain.Profile, groupID string, ticketIDs []string) (*GroupDetail, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.Status != domain.TicketGroupActive {
		return nil, apperrors.NewConflict("group already resolved", map[string]any{"group_id": groupID})
	}
	members, err := s.loadJoinable(ctx, group.ID, ticketIDs)
	if err != nil {
		return nil, err
	}
	if err := s.attach(ctx, actor, group.ID, members); err != nil {
		return nil, err
	}
	if err := s.refreshDue(ctx, group); err != nil {
		return nil, err
	}
	return s.GetGroup(ctx, group.ID)
}

// RemoveTicket detaches a ticket from a group.
func (s *GroupService) RemoveTicket(ctx context.Context, actor *domain.Profile, groupID, ticketID string) (*GroupDetail, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	ticket, err := s.ticketSvc.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.TicketGroupID == nil || *ticket.TicketGroupID != group.ID {
		return nil, apperrors.NewValidationError("ticket is not in this group", map[string]any{"ticket_id": ticketID})
	}
	if err := s.tickets.SetGroup(ctx, ticket.ID, nil); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordGroupChange(ctx, actor, ticket.ID, &group.ID, nil)
	if err := s.refreshDue(ctx, group); err != nil {
		return nil, err
	}
	return s.GetGroup(ctx, group.ID)
}

// GetGroup loads a group with its members.
func (s *GroupService) GetGroup(ctx context.Context, groupID string) (*GroupDetail, error) {
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	members, err := s.members(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	return &GroupDetail{
		Group:   *group,
		SLA:     sla.TrackGroup(group, s.now()),
		Tickets: s.ticketSvc.views(members),
	}, nil
}

// ListGroups lists groups, optionally by status.
func (s *GroupService) ListGroups(ctx context.Context, status *domain.TicketGroupStatus) ([]domain.TicketGroup, error) {
	groups, err := s.groups.List(ctx, status)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return groups, nil
}

// ResolveGroup resolves every open member and marks the group resolved. Per-ticket failures
// are reported and do not undo tickets already resolved.
func (s *GroupService) ResolveGroup(ctx context.Context, actor *domain.Profile, groupID string) (*GroupResolution, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	group, err := s.getGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.Status == domain.TicketGroupResolved {
		return nil, apperrors.NewConflict("group already resolved", map[string]any{"group_id": groupID})
	}
	members, err := s.members(ctx, group.ID)
	if err != nil {
		return nil, err
	}

	result := &GroupResolution{Failed: map[string]string{}}
	for _, member := range members {
		if member.Status.Completed() {
			result.Skipped = append(result.Skipped, member.ID)
			continue
		}
		if _, err := s.ticketSvc.UpdateStatus(ctx, actor, member.ID, domain.TicketStatusResolved); err != nil {
			s.logger.Warn("group member resolve failed",
				zap.String("group_id", group.ID), zap.String("ticket_id", member.ID), zap.Error(err))
			result.Failed[member.ID] = apperrors.ToDomainError(err).Message
			continue
		}
		result.Resolved = append(result.Resolved, member.ID)
	}

	now := s.now()
	group.Status = domain.TicketGroupResolved
	group.ResolvedAt = &now
	if err := s.groups.Update(ctx, group); err != nil {
		return nil, apperrors.MapError(err)
	}
	result.Group = *group

	failed := make([]string, 0, len(result.Failed))
	for id := range result.Failed {
		failed = append(failed, id)
	}
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:  events.EventGroupResolved,
		Actor: events.ProfileActor(actor.ID),
		Payload: events.GroupResolvedPayload{
			GroupID:  group.ID,
			Resolved: result.Resolved,
			Failed:   failed,
		},
	})
	return result, nil
}

func (s *GroupService) getGroup(ctx context.Context, id string) (*domain.TicketGroup, error) {
	group, err := s.groups.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("group", map[string]any{"group_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return group, nil
}

func (s *GroupService) members(ctx context.Context, groupID string) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{GroupID: &groupID, Limit: 1000})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// loadJoinable fetches tickets that may join groupID: open, and not in another group.
func (s *GroupService) loadJoinable(ctx context.Context, groupID string, ids []string) ([]domain.Ticket, error) {
	seen := make(map[string]struct{}, len(ids))
	out := make([]domain.Ticket, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ticket, err := s.ticketSvc.GetTicket(ctx, id)
		if err != nil {
			return nil, err
		}
		if ticket.Status.Completed() {
			return nil, apperrors.NewConflict("ticket already completed", map[string]any{"ticket_id": id})
		}
		if ticket.TicketGroupID != nil && *ticket.TicketGroupID != groupID {
			return nil, apperrors.NewConflict("ticket belongs to another group", map[string]any{
				"ticket_id": id,
				"group_id":  *ticket.TicketGroupID,
			})
		}
		out = append(out, *ticket)
	}
	return out, nil
}

func (s *GroupService) attach(ctx context.Context, actor *domain.Profile, groupID string, members []domain.Ticket) error {
	for _, member := range members {
		if member.TicketGroupID != nil && *member.TicketGroupID == groupID {
			continue
		}
		if err := s.tickets.SetGroup(ctx, member.ID, &groupID); err != nil {
			return apperrors.MapError(err)
		}
		s.recordGroupChange(ctx, actor, member.ID, member.TicketGroupID, &groupID)
	}
	return nil
}

func (s *GroupService) refreshDue(ctx context.Context, group *domain.TicketGroup) error {
	members, err := s.members(ctx, group.ID)
	if err != nil {
		return err
	}
	due := earliestDue(members)
	if timePtrEqual(due, group.SLADueAt) {
		return nil
	}
	group.SLADueAt = due
	if err := s.groups.Update(ctx, group); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *GroupService) requireActiveProfile(ctx context.Context, id string) error {
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("profile", map[string]any{"profile_id": id})
		}
		return apperrors.MapError(err)
	}
	if !p.IsActive {
		return apperrors.NewConflict("assignee inactive", map[string]any{"profile_id": id})
	}
	return nil
}

func (s *GroupService) recordGroupChange(ctx context.Context, actor *domain.Profile, ticketID string, oldGroup, newGroup *string) {
	s.ticketSvc.recordHistory(ctx, &domain.TicketHistory{
		TicketID:   ticketID,
		ChangedBy:  &actor.ID,
		ChangeType: domain.ChangeTypeGroup,
		OldValue:   map[string]any{"ticket_group_id": strPtrValue(oldGroup)},
		NewValue:   map[string]any{"ticket_group_id": strPtrValue(newGroup)},
	})
}

// earliestDue returns the soonest SLA due time among open tickets, or nil when none has one.
func earliestDue(tickets []domain.Ticket) *time.Time {
	var earliest *time.Time
	for i := range tickets {
		t := tickets[i]
		if t.SLADueAt == nil || t.Status.Completed() {
			continue
		}
		if earliest == nil || t.SLADueAt.Before(*earliest) {
			due := *t.SLADueAt
			earliest = &due
		}
	}
	return earliest
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func requireManager(actor *domain.Profile) error {
	if actor == nil {
		return apperrors.NewUnauthorized("session required")
	}
	if !actor.CanManage() {
		return apperrors.NewForbidden("manager or admin role required")
	}
	return nil
}
