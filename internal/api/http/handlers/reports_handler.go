package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/cityflow/crm/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportsHandler serves dashboard aggregates.
type ReportsHandler struct {
	service *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reportService *service.ReportService) *ReportsHandler {
	return &ReportsHandler{service: reportService}
}

// Dashboard GET /reports/dashboard?from=&to=&top=.
func (h *ReportsHandler) Dashboard(c *fiber.Ctx) error {
	report, err := h.service.Dashboard(c.UserContext(), reportFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}

// Export GET /reports/export.xlsx.
func (h *ReportsHandler) Export(c *fiber.Ctx) error {
	data, err := h.service.Export(c.UserContext(), reportFilter(c))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="cityflow-report-%s.xlsx"`, time.Now().UTC().Format("20060102")))
	return c.Send(data)
}

func reportFilter(c *fiber.Ctx) service.ReportFilter {
	return service.ReportFilter{
		From: parseTime(c.Query("from")),
		To:   parseTime(c.Query("to")),
		TopN: parseInt(c.Query("top"), 0),
	}
}
