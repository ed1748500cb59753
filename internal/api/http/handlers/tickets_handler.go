package handlers

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/cityflow/crm/internal/api/dto"
	"github.com/cityflow/crm/internal/auth"
	"github.com/cityflow/crm/internal/domain"
	"github.com/cityflow/crm/internal/service"
	apperrors "github.com/cityflow/crm/pkg/util/errorutil"
)

// TicketOperations is the ticket workflow the handler drives.
type TicketOperations interface {
	CreateTicket(ctx context.Context, actor *domain.Profile, input service.TicketCreateInput) (*domain.Ticket, *service.AssignmentPreview, error)
	GetTicketDetail(ctx context.Context, id string) (*service.TicketDetail, error)
	ListTickets(ctx context.Context, filter service.TicketListFilter) ([]service.TicketView, error)
	UpdateStatus(ctx context.Context, actor *domain.Profile, ticketID string, next domain.TicketStatus) (*domain.Ticket, error)
	Reassign(ctx context.Context, actor *domain.Profile, ticketID string, input service.ReassignInput) (*domain.Ticket, error)
	AddComment(ctx context.Context, actor *domain.Profile, ticketID string, input service.CommentInput) (*domain.Comment, error)
	AddAttachment(ctx context.Context, actor *domain.Profile, ticketID string, input service.AttachmentInput) (*domain.Attachment, error)
}

// AssignmentPreviewer derives a routing decision without writing anything.
type AssignmentPreviewer interface {
	Preview(ctx context.Context, input service.PreviewInput) (*service.AssignmentPreview, error)
}

// TicketsHandler manages staff ticket endpoints.
type TicketsHandler struct {
	tickets    TicketOperations
	assignment AssignmentPreviewer
	maxUpload  int64
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets TicketOperations, assignment AssignmentPreviewer, maxUploadBytes int64) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, assignment: assignment, maxUpload: maxUploadBytes}
}

// Preview POST /tickets/preview.
func (h *TicketsHandler) Preview(c *fiber.Ctx) error {
	var req dto.PreviewRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if details := req.Validate(); len(details) > 0 {
		return apperrors.NewValidationError("issue_type_id and city are required", details)
	}
	preview, err := h.assignment.Preview(c.UserContext(), service.PreviewInput{IssueTypeID: req.IssueTypeID, City: req.City})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": previewResponse(preview)})
}

// CreateTicket POST /tickets. Accepts JSON or multipart with files under "attachments".
// Files that fail to store are reported as warnings; the ticket stays created.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if details := req.Validate(); len(details) > 0 {
		return apperrors.NewValidationError("invalid ticket", details)
	}

	var files []*multipart.FileHeader
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return apperrors.NewValidationError("invalid multipart form", nil)
		}
		files = form.File["attachments"]
	}

	ticket, decision, err := h.tickets.CreateTicket(c.UserContext(), actor, service.TicketCreateInput{
		IssueTypeID:  req.IssueTypeID,
		City:         req.City,
		Subject:      req.Subject,
		Description:  req.Description,
		SupplierID:   req.SupplierID,
		SupplierName: req.SupplierName,
		Priority:     req.Priority,
	})
	if err != nil {
		return err
	}

	resp := dto.CreateTicketResponse{
		Ticket:      ticketResponse(service.TicketView{Ticket: *ticket, SLA: timerFromPreview(decision)}),
		Assignment:  previewResponse(decision),
		Attachments: []dto.AttachmentResponse{},
		Warnings:    []string{},
	}
	for _, fh := range files {
		att, err := h.storeFile(c.UserContext(), actor, ticket.ID, fh, nil)
		if err != nil {
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("attachment %s was not saved: %s", fh.Filename, apperrors.ToDomainError(err).Message))
			continue
		}
		resp.Attachments = append(resp.Attachments, attachmentResponse(att))
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": resp})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	views, err := h.tickets.ListTickets(c.UserContext(), parseTicketQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponses(views)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	detail, err := h.tickets.GetTicketDetail(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetailResponse(detail)})
}

// UpdateStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.StatusRequest
	if err := c.BodyParser(&req); err != nil || req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}
	ticket, err := h.tickets.UpdateStatus(c.UserContext(), actor, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(viewOf(ticket))})
}

// Reassign PATCH /tickets/:id/assignment.
func (h *TicketsHandler) Reassign(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.AssignmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.Reassign(c.UserContext(), actor, c.Params("id"), service.ReassignInput{
		AssigneeID:    req.AssigneeID,
		TeamID:        req.TeamID,
		ClearAssignee: req.ClearAssignee,
		ClearTeam:     req.ClearTeam,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(viewOf(ticket))})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.tickets.AddComment(c.UserContext(), actor, c.Params("id"), service.CommentInput{
		Body:       req.Body,
		ParentID:   req.ParentID,
		IsInternal: req.IsInternal,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// AddAttachments POST /tickets/:id/attachments (multipart, field "files", optional
// "comment_id"). Each file is stored independently; failures become warnings.
func (h *TicketsHandler) AddAttachments(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	form, err := c.MultipartForm()
	if err != nil {
		return apperrors.NewValidationError("multipart form required", nil)
	}
	files := form.File["files"]
	if len(files) == 0 {
		return apperrors.NewValidationError("at least one file is required", nil)
	}
	var commentID *string
	if v := strings.TrimSpace(c.FormValue("comment_id")); v != "" {
		commentID = &v
	}

	stored := make([]dto.AttachmentResponse, 0, len(files))
	warnings := []string{}
	for _, fh := range files {
		att, err := h.storeFile(c.UserContext(), actor, c.Params("id"), fh, commentID)
		if err != nil {
			de := apperrors.ToDomainError(err)
			if de.Code == apperrors.CodeNotFound {
				return err
			}
			warnings = append(warnings, fmt.Sprintf("attachment %s was not saved: %s", fh.Filename, de.Message))
			continue
		}
		stored = append(stored, attachmentResponse(att))
	}
	status := fiber.StatusCreated
	if len(stored) == 0 {
		status = fiber.StatusUnprocessableEntity
	}
	return c.Status(status).JSON(fiber.Map{"data": stored, "warnings": warnings})
}

func (h *TicketsHandler) storeFile(ctx context.Context, actor *domain.Profile, ticketID string, fh *multipart.FileHeader, commentID *string) (*domain.Attachment, error) {
	if h.maxUpload > 0 && fh.Size > h.maxUpload {
		return nil, apperrors.NewValidationError("file too large", map[string]any{"max_bytes": h.maxUpload})
	}
	f, err := fh.Open()
	if err != nil {
		return nil, apperrors.NewValidationError("unreadable file", nil)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, apperrors.NewValidationError("unreadable file", nil)
	}
	return h.tickets.AddAttachment(ctx, actor, ticketID, service.AttachmentInput{
		FileName:  fh.Filename,
		MimeType:  fh.Header.Get(fiber.HeaderContentType),
		Data:      data,
		CommentID: commentID,
	})
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{}
	for _, part := range splitCSV(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(part))
	}
	for _, part := range splitCSV(c.Query("priority")) {
		filter.Priorities = append(filter.Priorities, domain.TicketPriority(part))
	}
	for _, part := range splitCSV(c.Query("sla_status")) {
		filter.SLAStatuses = append(filter.SLAStatuses, domain.SLAStatus(part))
	}
	filter.RegionID = optionalQuery(c, "region_id")
	filter.TeamID = optionalQuery(c, "team_id")
	filter.AssigneeID = optionalQuery(c, "assignee_id")
	filter.IssueTypeID = optionalQuery(c, "issue_type_id")
	filter.GroupID = optionalQuery(c, "group_id")
	filter.SearchTerm = optionalQuery(c, "q")
	filter.CreatedFrom = parseTime(c.Query("created_from"))
	filter.CreatedTo = parseTime(c.Query("created_to"))

	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func actorFromContext(c *fiber.Ctx) (*domain.Profile, error) {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return session.Profile(), nil
}
