package service

import (
	"context"
	"time"

	"github.com/cityflow/crm/internal/reporting"
	"github.com/cityflow/crm/internal/repository"
	apperrors "github.com/cityflow/crm/pkg/util/errorutil"
)

const (
	defaultReportDays = 30
	maxReportDays     = 366
	defaultTopN       = 5
)

// ReportService builds dashboard aggregates from a fresh ticket fetch on every call.
type ReportService struct {
	tickets    repository.TicketRepository
	issueTypes repository.IssueTypeRepository
	teams      repository.TeamRepository
	now        func() time.Time
}

// ReportDependencies bundles repositories for the report service.
type ReportDependencies struct {
	TicketRepo    repository.TicketRepository
	IssueTypeRepo repository.IssueTypeRepository
	TeamRepo      repository.TeamRepository
	Now           func() time.Time
}

// NewReportService constructs the service.
func NewReportService(deps ReportDependencies) *ReportService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &ReportService{
		tickets:    deps.TicketRepo,
		issueTypes: deps.IssueTypeRepo,
		teams:      deps.TeamRepo,
		now:        now,
	}
}

// ReportFilter selects the reporting window in whole UTC days. Zero values default to the
// last 30 days including today.
type ReportFilter struct {
	From *time.Time
	To   *time.Time
	TopN int
}

// Dashboard computes the dashboard report.
func (s *ReportService) Dashboard(ctx context.Context, filter ReportFilter) (*reporting.Report, error) {
	now := s.now().UTC()
	to := now
	if filter.To != nil {
		to = filter.To.UTC()
	}
	from := to.AddDate(0, 0, -(defaultReportDays - 1))
	if filter.From != nil {
		from = filter.From.UTC()
	}
	if from.After(to) {
		return nil, apperrors.NewValidationError("from must not be after to", nil)
	}
	// Date-only bounds parse as midnight; the query covers both end days in full.
	start, end := reporting.DayWindow(from, to)
	if end.Sub(start) > maxReportDays*24*time.Hour {
		return nil, apperrors.NewValidationError("reporting window too large", map[string]any{"max_days": maxReportDays})
	}
	topN := filter.TopN
	if topN <= 0 {
		topN = defaultTopN
	}

	tickets, err := s.tickets.ListActivity(ctx, start, end)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	issueTypes, err := s.issueTypes.List(ctx, true)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	teams, err := s.teams.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	issueNames := make(map[string]string, len(issueTypes))
	for _, it := range issueTypes {
		issueNames[it.ID] = it.Name
	}
	teamNames := make(map[string]string, len(teams))
	for _, t := range teams {
		teamNames[t.ID] = t.Name
	}

	report := reporting.Build(tickets, reporting.Options{
		From:           start,
		To:             end.AddDate(0, 0, -1),
		Now:            now,
		TopN:           topN,
		IssueTypeNames: issueNames,
		TeamNames:      teamNames,
	})
	return &report, nil
}

// Export renders the dashboard report as an xlsx workbook.
func (s *ReportService) Export(ctx context.Context, filter ReportFilter) ([]byte, error) {
	report, err := s.Dashboard(ctx, filter)
	if err != nil {
		return nil, err
	}
	data, err := reporting.ExportWorkbook(*report)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return data, nil
}
