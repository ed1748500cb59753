package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cityflow/crm/internal/api/dto"
	"github.com/cityflow/crm/internal/domain"
	"github.com/cityflow/crm/internal/service"
	apperrors "github.com/cityflow/crm/pkg/util/errorutil"
)

// GroupsHandler manages ticket group endpoints.
type GroupsHandler struct {
	service *service.GroupService
}

// NewGroupsHandler constructs handler.
func NewGroupsHandler(groupService *service.GroupService) *GroupsHandler {
	return &GroupsHandler{service: groupService}
}

// CreateGroup POST /groups.
func (h *GroupsHandler) CreateGroup(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	detail, err := h.service.CreateGroup(c.UserContext(), actor, service.GroupCreateInput{
		Name:        req.Name,
		IssueTypeID: req.IssueTypeID,
		City:        req.City,
		AssignedTo:  req.AssignedTo,
		TicketIDs:   req.TicketIDs,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": groupDetailResponse(detail)})
}

// ListGroups GET /groups?status=active.
func (h *GroupsHandler) ListGroups(c *fiber.Ctx) error {
	var status *domain.TicketGroupStatus
	if raw := c.Query("status"); raw != "" {
		s := domain.TicketGroupStatus(raw)
		status = &s
	}
	groups, err := h.service.ListGroups(c.UserContext(), status)
	if err != nil {
		return err
	}
	out := make([]dto.GroupResponse, 0, len(groups))
	for i := range groups {
		out = append(out, groupResponse(&groups[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// GetGroup GET /groups/:id.
func (h *GroupsHandler) GetGroup(c *fiber.Ctx) error {
	detail, err := h.service.GetGroup(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": groupDetailResponse(detail)})
}

// AddTickets POST /groups/:id/tickets.
func (h *GroupsHandler) AddTickets(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.GroupTicketsRequest
	if err := c.BodyParser(&req); err != nil || len(req.TicketIDs) == 0 {
		return apperrors.NewValidationError("ticket_ids required", nil)
	}
	detail, err := h.service.AddTickets(c.UserContext(), actor, c.Params("id"), req.TicketIDs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": groupDetailResponse(detail)})
}

// RemoveTicket DELETE /groups/:id/tickets/:ticketId.
func (h *GroupsHandler) RemoveTicket(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	detail, err := h.service.RemoveTicket(c.UserContext(), actor, c.Params("id"), c.Params("ticketId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": groupDetailResponse(detail)})
}

// ResolveGroup POST /groups/:id/resolve.
func (h *GroupsHandler) ResolveGroup(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	res, err := h.service.ResolveGroup(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.GroupResolutionResponse{
		Group:    groupResponse(&res.Group),
		Resolved: res.Resolved,
		Skipped:  res.Skipped,
		Failed:   res.Failed,
	}})
}
