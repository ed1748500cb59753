package service

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xeonx/timeago"
	"go.uber.org/zap"

	"github.com/cityflow/crm/internal/domain"
	"github.com/cityflow/crm/internal/events"
	"github.com/cityflow/crm/internal/observability"
	"github.com/cityflow/crm/internal/repository"
	"github.com/cityflow/crm/internal/sla"
	"github.com/cityflow/crm/internal/storage"
	apperrors "github.com/cityflow/crm/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets     repository.TicketRepository
	comments    repository.CommentRepository
	attachments repository.AttachmentRepository
	history     repository.TicketHistoryRepository
	profiles    repository.ProfileRepository
	teams       repository.TeamRepository
	assignment  *AssignmentService
	store       storage.ObjectStore
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
	now         func() time.Time
	maxUpload   int64
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	CommentRepo    repository.CommentRepository
	AttachmentRepo repository.AttachmentRepository
	HistoryRepo    repository.TicketHistoryRepository
	ProfileRepo    repository.ProfileRepository
	TeamRepo       repository.TeamRepository
	Assignment     *AssignmentService
	Storage        storage.ObjectStore
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Logger         *zap.Logger
	Now            func() time.Time
	MaxUploadBytes int64
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxUpload := deps.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		comments:    deps.CommentRepo,
		attachments: deps.AttachmentRepo,
		history:     deps.HistoryRepo,
		profiles:    deps.ProfileRepo,
		teams:       deps.TeamRepo,
		assignment:  deps.Assignment,
		store:       deps.Storage,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      logger,
		now:         now,
		maxUpload:   maxUpload,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	IssueTypeID  string
	City         string
	Subject      string
	Description  string
	SupplierID   *string
	SupplierName string
	Priority     domain.TicketPriority
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	SLAStatuses []domain.SLAStatus
	RegionID    *string
	TeamID      *string
	AssigneeID  *string
	IssueTypeID *string
	GroupID     *string
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// ReassignInput changes the tier-1 assignee and/or team. Nil fields are left unchanged;
// Clear* unsets them.
type ReassignInput struct {
	AssigneeID    *string
	TeamID        *string
	ClearAssignee bool
	ClearTeam     bool
}

// CommentInput describes a new comment or reply.
type CommentInput struct {
	Body       string
	ParentID   *string
	IsInternal bool
}

// AttachmentInput is a file to store against a ticket.
type AttachmentInput struct {
	FileName  string
	MimeType  string
	Data      []byte
	CommentID *string
}

// TicketView is a ticket with its live SLA timer.
type TicketView struct {
	Ticket domain.Ticket
	SLA    sla.Timer
}

// TicketDetail is everything shown on the ticket page.
type TicketDetail struct {
	Ticket      domain.Ticket
	SLA         sla.Timer
	CreatedAgo  string
	Comments    []domain.Comment
	Attachments []domain.Attachment
	History     []domain.TicketHistory
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusNew:        {domain.TicketStatusAssigned, domain.TicketStatusInProgress, domain.TicketStatusPending, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusAssigned:   {domain.TicketStatusInProgress, domain.TicketStatusPending, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusInProgress: {domain.TicketStatusPending, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusPending:    {domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed, domain.TicketStatusInProgress},
	domain.TicketStatusClosed:     {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// CreateTicket commits a ticket. The resolvers run again at submit time; when any of them
// refuses, nothing is written. The SLA due time is anchored at the commit time and frozen.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.Profile, input TicketCreateInput) (*domain.Ticket, *AssignmentPreview, error) {
	if actor == nil {
		return nil, nil, apperrors.NewUnauthorized("session required")
	}
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, nil, apperrors.NewValidationError("subject is required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityNormal
	}
	if !priority.Valid() {
		return nil, nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}

	commitTime := s.now()
	decision, err := s.assignment.resolve(ctx, PreviewInput{IssueTypeID: input.IssueTypeID, City: input.City}, commitTime)
	if err != nil {
		return nil, nil, err
	}

	regionID := decision.RegionID
	dueAt := decision.SLADueAt
	status := domain.TicketStatusNew
	if decision.AssigneeID != nil {
		status = domain.TicketStatusAssigned
	}
	ticket := &domain.Ticket{
		Subject:      subject,
		Description:  strings.TrimSpace(input.Description),
		IssueTypeID:  decision.IssueTypeID,
		SupplierID:   input.SupplierID,
		SupplierName: strings.TrimSpace(input.SupplierName),
		City:         decision.City,
		RegionID:     &regionID,
		Priority:     priority,
		Status:       status,
		AssignedTo:   decision.AssigneeID,
		TeamID:       decision.TeamID,
		Tier2TeamID:  decision.Tier2TeamID,
		SLADueAt:     &dueAt,
		SLAStatus:    decision.SLAStatus,
		CreatedBy:    actor.ID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	s.metrics.TicketCreated(string(ticket.Priority))

	s.recordHistory(ctx, &domain.TicketHistory{
		TicketID:   ticket.ID,
		ChangedBy:  &actor.ID,
		ChangeType: domain.ChangeTypeCreated,
		NewValue: map[string]any{
			"status":      ticket.Status,
			"assigned_to": strPtrValue(ticket.AssignedTo),
			"team_id":     strPtrValue(ticket.TeamID),
			"sla_due_at":  dueAt,
		},
	})
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.ProfileActor(actor.ID),
		Payload: events.TicketCreatedPayload{
			TicketNumber: ticket.TicketNumber,
			IssueTypeID:  ticket.IssueTypeID,
			City:         ticket.City,
			RegionID:     ticket.RegionID,
			AssignedTo:   ticket.AssignedTo,
			TeamID:       ticket.TeamID,
			Tier2TeamID:  ticket.Tier2TeamID,
			Priority:     ticket.Priority,
			SLADueAt:     ticket.SLADueAt,
		},
	})
	return ticket, decision, nil
}

// GetTicket fetches one ticket or NOT_FOUND.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// GetTicketDetail loads a ticket with its thread, files, history and live SLA timer.
func (s *TicketService) GetTicketDetail(ctx context.Context, id string) (*TicketDetail, error) {
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	attachments, err := s.attachments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	history, err := s.history.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	byComment := make(map[string][]domain.Attachment)
	ticketLevel := make([]domain.Attachment, 0, len(attachments))
	for _, att := range attachments {
		if att.CommentID != nil {
			byComment[*att.CommentID] = append(byComment[*att.CommentID], att)
			continue
		}
		ticketLevel = append(ticketLevel, att)
	}
	for i := range comments {
		comments[i].Attachments = byComment[comments[i].ID]
	}

	now := s.now()
	return &TicketDetail{
		Ticket:      *ticket,
		SLA:         sla.Track(ticket.SLADueAt, ticket.Status, now),
		CreatedAgo:  timeago.English.FormatReference(ticket.CreatedAt, now),
		Comments:    comments,
		Attachments: ticketLevel,
		History:     history,
	}, nil
}

// ListTickets returns tickets matching filter with their live SLA timers.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]TicketView, error) {
	if filter.Limit > 200 {
		filter.Limit = 200
	}
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		SLAStatuses: filter.SLAStatuses,
		RegionID:    filter.RegionID,
		TeamID:      filter.TeamID,
		AssigneeID:  filter.AssigneeID,
		IssueTypeID: filter.IssueTypeID,
		GroupID:     filter.GroupID,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.views(tickets), nil
}

func (s *TicketService) views(tickets []domain.Ticket) []TicketView {
	now := s.now()
	out := make([]TicketView, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, TicketView{Ticket: t, SLA: sla.Track(t.SLADueAt, t.Status, now)})
	}
	return out
}

// UpdateStatus moves a ticket along the status workflow.
func (s *TicketService) UpdateStatus(ctx context.Context, actor *domain.Profile, ticketID string, next domain.TicketStatus) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("session required")
	}
	if !next.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": next})
	}
	ticket, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == next {
		return ticket, nil
	}
	if !isValidTransition(ticket.Status, next) {
		return nil, apperrors.NewConflict("status transition not allowed", map[string]any{
			"from": ticket.Status,
			"to":   next,
		})
	}

	now := s.now()
	old := ticket.Status
	ticket.Status = next
	switch next {
	case domain.TicketStatusResolved:
		ticket.ResolvedAt = &now
	case domain.TicketStatusClosed:
		ticket.ClosedAt = &now
		if ticket.ResolvedAt == nil {
			ticket.ResolvedAt = &now
		}
	default:
		ticket.ResolvedAt = nil
	}
	ticket.SLAStatus = sla.StatusAt(ticket, now)

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordHistory(ctx, &domain.TicketHistory{
		TicketID:   ticket.ID,
		ChangedBy:  &actor.ID,
		ChangeType: domain.ChangeTypeStatus,
		OldValue:   map[string]any{"status": old},
		NewValue:   map[string]any{"status": next},
	})
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    events.ProfileActor(actor.ID),
		Payload:  events.TicketStatusChangedPayload{OldStatus: old, NewStatus: next},
	})
	return ticket, nil
}

// Reassign changes the tier-1 assignee or team. Only managers and admins may reassign.
func (s *TicketService) Reassign(ctx context.Context, actor *domain.Profile, ticketID string, input ReassignInput) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("session required")
	}
	if !actor.CanManage() {
		return nil, apperrors.NewForbidden("insufficient role for assignment")
	}
	if input.AssigneeID == nil && input.TeamID == nil && !input.ClearAssignee && !input.ClearTeam {
		return nil, apperrors.NewValidationError("assignee_id or team_id required", nil)
	}
	ticket, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusClosed {
		return nil, apperrors.NewConflict("closed tickets cannot be reassigned", map[string]any{"ticket_id": ticketID})
	}

	newAssignee := ticket.AssignedTo
	newTeam := ticket.TeamID
	switch {
	case input.ClearAssignee:
		newAssignee = nil
	case input.AssigneeID != nil:
		assignee, err := s.profiles.GetByID(ctx, *input.AssigneeID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil, apperrors.NewNotFound("profile", map[string]any{"profile_id": *input.AssigneeID})
			}
			return nil, apperrors.MapError(err)
		}
		if !assignee.IsActive {
			return nil, apperrors.NewConflict("assignee inactive", map[string]any{"profile_id": assignee.ID})
		}
		newAssignee = &assignee.ID
	}
	switch {
	case input.ClearTeam:
		newTeam = nil
	case input.TeamID != nil:
		team, err := s.teams.GetByID(ctx, *input.TeamID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil, apperrors.NewNotFound("team", map[string]any{"team_id": *input.TeamID})
			}
			return nil, apperrors.MapError(err)
		}
		if !team.IsActive {
			return nil, apperrors.NewConflict("team inactive", map[string]any{"team_id": team.ID})
		}
		newTeam = &team.ID
	}

	assigneeChanged := !sameStringPtr(ticket.AssignedTo, newAssignee)
	teamChanged := !sameStringPtr(ticket.TeamID, newTeam)
	if !assigneeChanged && !teamChanged {
		return ticket, nil
	}

	oldAssignee, oldTeam := ticket.AssignedTo, ticket.TeamID
	ticket.AssignedTo = newAssignee
	ticket.TeamID = newTeam
	if ticket.Status == domain.TicketStatusNew && newAssignee != nil {
		ticket.Status = domain.TicketStatusAssigned
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	if assigneeChanged {
		s.recordHistory(ctx, &domain.TicketHistory{
			TicketID:   ticket.ID,
			ChangedBy:  &actor.ID,
			ChangeType: domain.ChangeTypeAssignee,
			OldValue:   map[string]any{"assigned_to": strPtrValue(oldAssignee)},
			NewValue:   map[string]any{"assigned_to": strPtrValue(newAssignee)},
		})
	}
	if teamChanged {
		s.recordHistory(ctx, &domain.TicketHistory{
			TicketID:   ticket.ID,
			ChangedBy:  &actor.ID,
			ChangeType: domain.ChangeTypeTeam,
			OldValue:   map[string]any{"team_id": strPtrValue(oldTeam)},
			NewValue:   map[string]any{"team_id": strPtrValue(newTeam)},
		})
	}
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    events.ProfileActor(actor.ID),
		Payload:  events.TicketAssignedPayload{AssignedTo: ticket.AssignedTo, TeamID: ticket.TeamID},
	})
	return ticket, nil
}

// AddComment appends a comment or a reply to an existing comment on the same ticket.
func (s *TicketService) AddComment(ctx context.Context, actor *domain.Profile, ticketID string, input CommentInput) (*domain.Comment, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("session required")
	}
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, apperrors.NewValidationError("body is required", nil)
	}
	ticket, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if input.ParentID != nil {
		parent, err := s.comments.GetByID(ctx, *input.ParentID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil, apperrors.NewNotFound("comment", map[string]any{"comment_id": *input.ParentID})
			}
			return nil, apperrors.MapError(err)
		}
		if parent.TicketID != ticket.ID {
			return nil, apperrors.NewValidationError("parent comment belongs to another ticket", nil)
		}
	}

	comment := &domain.Comment{
		TicketID:   ticket.ID,
		ParentID:   input.ParentID,
		AuthorID:   actor.ID,
		Body:       body,
		IsInternal: input.IsInternal,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: ticket.ID,
		Actor:    events.ProfileActor(actor.ID),
		Payload: events.TicketCommentAddedPayload{
			CommentID:   comment.ID,
			ParentID:    comment.ParentID,
			IsInternal:  comment.IsInternal,
			BodyPreview: stringPreview(comment.Body, 140),
		},
	})
	return comment, nil
}

// AddAttachment uploads the file and then records its metadata. The two steps are not
// atomic: when the metadata insert fails the uploaded object is deleted best-effort and the
// error is returned. The ticket itself is never touched.
func (s *TicketService) AddAttachment(ctx context.Context, actor *domain.Profile, ticketID string, input AttachmentInput) (*domain.Attachment, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("session required")
	}
	name := sanitizeFileName(input.FileName)
	if name == "" {
		return nil, apperrors.NewValidationError("file name is required", nil)
	}
	if len(input.Data) == 0 {
		return nil, apperrors.NewValidationError("file is empty", map[string]any{"file_name": name})
	}
	if int64(len(input.Data)) > s.maxUpload {
		return nil, apperrors.NewValidationError("file too large", map[string]any{
			"file_name": name,
			"max_bytes": s.maxUpload,
		})
	}
	ticket, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if input.CommentID != nil {
		comment, err := s.comments.GetByID(ctx, *input.CommentID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil, apperrors.NewNotFound("comment", map[string]any{"comment_id": *input.CommentID})
			}
			return nil, apperrors.MapError(err)
		}
		if comment.TicketID != ticket.ID {
			return nil, apperrors.NewValidationError("comment belongs to another ticket", nil)
		}
	}

	objectPath := path.Join("tickets", ticket.ID, uuid.NewString()+"-"+name)
	if err := s.store.Upload(ctx, objectPath, input.Data); err != nil {
		s.metrics.AttachmentFailed()
		s.logger.Warn("attachment upload failed", zap.String("ticket_id", ticket.ID), zap.String("file", name), zap.Error(err))
		return nil, apperrors.NewInternalError(fmt.Errorf("upload %s: %w", name, err))
	}

	mimeType := strings.TrimSpace(input.MimeType)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	attachment := &domain.Attachment{
		TicketID:    ticket.ID,
		CommentID:   input.CommentID,
		StoragePath: objectPath,
		URL:         s.store.PublicURL(objectPath),
		FileName:    name,
		MimeType:    mimeType,
		SizeBytes:   int64(len(input.Data)),
		UploadedBy:  actor.ID,
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		s.metrics.AttachmentFailed()
		if delErr := s.store.Delete(ctx, objectPath); delErr != nil {
			s.logger.Warn("orphaned attachment object", zap.String("path", objectPath), zap.Error(delErr))
		}
		s.logger.Warn("attachment metadata insert failed", zap.String("ticket_id", ticket.ID), zap.String("file", name), zap.Error(err))
		return nil, apperrors.NewInternalError(fmt.Errorf("record %s: %w", name, err))
	}
	return attachment, nil
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "." || name == "/" {
		return ""
	}
	name = unsafeFileChars.ReplaceAllString(name, "_")
	return strings.Trim(name, "_")
}

func (s *TicketService) recordHistory(ctx context.Context, entry *domain.TicketHistory) {
	if s.history == nil {
		return
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("ticket history write failed",
			zap.String("ticket_id", entry.TicketID),
			zap.String("change_type", string(entry.ChangeType)),
			zap.Error(err))
	}
}
