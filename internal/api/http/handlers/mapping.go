package handlers

import (
	"github.com/cityflow/crm/internal/api/dto"
	"github.com/cityflow/crm/internal/domain"
	"github.com/cityflow/crm/internal/service"
)

func previewResponse(p *service.AssignmentPreview) dto.PreviewResponse {
	return dto.PreviewResponse{
		IssueTypeID:   p.IssueTypeID,
		IssueTypeName: p.IssueTypeName,
		City:          p.City,
		RegionID:      p.RegionID,
		RegionName:    p.RegionName,
		ManagerID:     p.ManagerID,
		ManagerName:   p.ManagerName,
		AssigneeID:    p.AssigneeID,
		AssigneeName:  p.AssigneeName,
		TeamID:        p.TeamID,
		TeamName:      p.TeamName,
		Tier2TeamID:   p.Tier2TeamID,
		Tier2TeamName: p.Tier2TeamName,
		SLAHours:      p.SLAHours,
		SLADueAt:      p.SLADueAt,
		SLAStatus:     p.SLAStatus,
		SLALabel:      p.SLALabel,
	}
}

func ticketResponse(v service.TicketView) dto.TicketResponse {
	t := v.Ticket
	return dto.TicketResponse{
		ID:            t.ID,
		TicketNumber:  t.TicketNumber,
		Subject:       t.Subject,
		Description:   t.Description,
		IssueTypeID:   t.IssueTypeID,
		SupplierID:    t.SupplierID,
		SupplierName:  t.SupplierName,
		City:          t.City,
		RegionID:      t.RegionID,
		Priority:      t.Priority,
		Status:        t.Status,
		AssignedTo:    t.AssignedTo,
		TeamID:        t.TeamID,
		Tier2TeamID:   t.Tier2TeamID,
		SLADueAt:      t.SLADueAt,
		SLAStatus:     t.SLAStatus,
		SLA:           v.SLA,
		TicketGroupID: t.TicketGroupID,
		CreatedBy:     t.CreatedBy,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
		ResolvedAt:    t.ResolvedAt,
		ClosedAt:      t.ClosedAt,
	}
}

func ticketResponses(views []service.TicketView) []dto.TicketResponse {
	out := make([]dto.TicketResponse, 0, len(views))
	for _, v := range views {
		out = append(out, ticketResponse(v))
	}
	return out
}

func ticketDetailResponse(d *service.TicketDetail) dto.TicketDetailResponse {
	comments := make([]dto.CommentResponse, 0, len(d.Comments))
	for i := range d.Comments {
		comments = append(comments, commentResponse(&d.Comments[i]))
	}
	history := make([]dto.TicketHistoryResponse, 0, len(d.History))
	for _, h := range d.History {
		history = append(history, dto.TicketHistoryResponse{
			ID:            h.ID,
			ChangeType:    h.ChangeType,
			ChangedBy:     h.ChangedBy,
			ChangedByName: h.ChangedByName,
			OldValue:      h.OldValue,
			NewValue:      h.NewValue,
			CreatedAt:     h.CreatedAt,
		})
	}
	return dto.TicketDetailResponse{
		TicketResponse: ticketResponse(service.TicketView{Ticket: d.Ticket, SLA: d.SLA}),
		CreatedAgo:     d.CreatedAgo,
		Comments:       comments,
		Attachments:    attachmentResponses(d.Attachments),
		History:        history,
	}
}

func commentResponse(c *domain.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:          c.ID,
		ParentID:    c.ParentID,
		AuthorID:    c.AuthorID,
		Body:        c.Body,
		IsInternal:  c.IsInternal,
		Attachments: attachmentResponses(c.Attachments),
		CreatedAt:   c.CreatedAt,
	}
}

func attachmentResponse(a *domain.Attachment) dto.AttachmentResponse {
	return dto.AttachmentResponse{
		ID:        a.ID,
		CommentID: a.CommentID,
		FileName:  a.FileName,
		MimeType:  a.MimeType,
		SizeBytes: a.SizeBytes,
		URL:       a.URL,
		CreatedAt: a.CreatedAt,
	}
}

func attachmentResponses(items []domain.Attachment) []dto.AttachmentResponse {
	out := make([]dto.AttachmentResponse, 0, len(items))
	for i := range items {
		out = append(out, attachmentResponse(&items[i]))
	}
	return out
}

func groupResponse(g *domain.TicketGroup) dto.GroupResponse {
	return dto.GroupResponse{
		ID:          g.ID,
		Name:        g.Name,
		IssueTypeID: g.IssueTypeID,
		City:        g.City,
		AssignedTo:  g.AssignedTo,
		SLADueAt:    g.SLADueAt,
		Status:      g.Status,
		CreatedBy:   g.CreatedBy,
		CreatedAt:   g.CreatedAt,
		ResolvedAt:  g.ResolvedAt,
	}
}

func groupDetailResponse(d *service.GroupDetail) dto.GroupResponse {
	resp := groupResponse(&d.Group)
	timer := d.SLA
	resp.SLA = &timer
	resp.Tickets = ticketResponses(d.Tickets)
	return resp
}
