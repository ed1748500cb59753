package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/cityflow/crm/internal/domain"
	"github.com/cityflow/crm/internal/service"
	"github.com/cityflow/crm/internal/sla"
)

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", val); err == nil {
		return &t
	}
	return nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil
	}
	return &v
}

func timerFromPreview(p *service.AssignmentPreview) sla.Timer {
	due := p.SLADueAt
	return sla.Timer{Status: p.SLAStatus, Label: p.SLALabel, DueAt: &due}
}

func viewOf(t *domain.Ticket) service.TicketView {
	return service.TicketView{Ticket: *t, SLA: sla.Track(t.SLADueAt, t.Status, time.Now())}
}
